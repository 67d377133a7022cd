// Command ingest merges a scraped product feed into the catalog.
//
//	ingest [-notify] <path | s3://bucket/key>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/bootstrap"
	"github.com/GTDGit/pricewatch_api/internal/cache"
	"github.com/GTDGit/pricewatch_api/internal/config"
	"github.com/GTDGit/pricewatch_api/internal/metrics"
	"github.com/GTDGit/pricewatch_api/internal/service"
	"github.com/GTDGit/pricewatch_api/pkg/mailer"
)

func main() {
	notify := flag.Bool("notify", false, "email every user whose saved products are currently on a price drop")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-notify] <path | s3://bucket/key>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	source := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	bootstrap.SetupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, source, *notify); err != nil {
		log.Error().Err(err).Str("source", source).Msg("Ingestion failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, source string, notify bool) error {
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	feed, err := service.NewFeedService(ctx, &cfg.Feed)
	if err != nil {
		return err
	}

	// The top views cache is best effort for a batch job.
	var topViews service.TopViewsCache
	if redisClient, err := cache.NewRedisClient(&cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, top views cache will expire on its own")
	} else {
		defer redisClient.Close()
		topViews = cache.NewTopViewsCache(redisClient, cfg.Cache.TopViewsTTL)
	}

	items, err := feed.Load(ctx, source)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := service.NewIngestService(stores.Products, topViews).Ingest(ctx, items)
	if result != nil {
		log.Info().
			Int("inserted", result.Inserted).
			Int("updated", result.Updated).
			Int("skipped", result.Skipped).
			Dur("duration", time.Since(start)).
			Msg("Ingestion finished")
	}
	if err != nil {
		return err
	}

	if !notify {
		return nil
	}
	if !cfg.SMTP.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, skipping price alerts")
		return nil
	}
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	alerts, err := service.NewPriceAlertService(stores.Users, stores.Products, mail).Run(ctx, "")
	if err != nil {
		return err
	}
	metrics.RecordPriceAlerts(alerts.Sent, alerts.Failed)
	log.Info().Int("users", alerts.Users).Int("sent", alerts.Sent).Int("failed", alerts.Failed).Msg("Price alerts sent")
	return nil
}
