// Command createadmin creates an admin account.
//
//	createadmin -email admin@example.com -password secret
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/auth"
	"github.com/GTDGit/pricewatch_api/internal/bootstrap"
	"github.com/GTDGit/pricewatch_api/internal/config"
	"github.com/GTDGit/pricewatch_api/internal/service"
)

func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (default $ADMIN_PASSWORD)")
	flag.Parse()
	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	bootstrap.SetupLogger(cfg.Env)

	ctx := context.Background()
	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("store connection failed")
		os.Exit(1)
	}
	defer stores.Close()

	authSvc := service.NewAuthService(stores.Users, auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL))
	user, err := authSvc.CreateAdmin(ctx, *email, *password)
	if err != nil {
		log.Error().Err(err).Str("email", *email).Msg("Failed to create admin")
		stores.Close()
		os.Exit(1)
	}
	log.Info().Str("id", user.ID).Str("email", user.Email).Msg("Admin created")
}
