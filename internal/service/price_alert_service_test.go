package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

func TestFindDrops(t *testing.T) {
	user := &models.User{SavedProducts: models.SavedProducts{
		{ProductCode: "A", EmailNotification: true},
		{ProductCode: "B", EmailNotification: false},
		{ProductCode: "C", EmailNotification: true},
	}}
	dropped := models.PriceHistory{{Price: 100, Timestamp: "2024_01_01_00_00"}, {Price: 80, Timestamp: "2024_01_02_00_00"}}
	byCode := map[string][]models.Product{
		"A": {{ProductCode: "A", Name: "Alpha", PriceHistory: dropped}},
		"B": {{ProductCode: "B", PriceHistory: dropped}},
		"C": {{ProductCode: "C", PriceHistory: models.PriceHistory{{Price: 10}, {Price: 12}}}},
	}

	drops := FindDrops(user, byCode, "")
	require.Len(t, drops, 1)
	assert.Equal(t, "Alpha", drops[0].Product.Name)
	assert.Equal(t, 100.0, drops[0].Previous.Price)
	assert.Equal(t, 80.0, drops[0].Current.Price)

	assert.Empty(t, FindDrops(user, byCode, "2024_01_02_00_00"))
	assert.Len(t, FindDrops(user, byCode, "2024_01_01_23_59"), 1)
}

func TestFormatAlert(t *testing.T) {
	body := FormatAlert([]PriceDrop{{
		Product:  models.Product{Name: "Phone", OnlineMag: "shop", URL: "https://shop/phone"},
		Previous: models.PricePoint{Price: 100},
		Current:  models.PricePoint{Price: 89.5},
	}})
	assert.Contains(t, body, "Phone (shop): price dropped from 100.00 to 89.50.")
	assert.Contains(t, body, "https://shop/phone")
}

func TestPriceAlert_Run(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ingest := NewIngestService(f.products, nil)
	saved := NewSavedListService(f.users, f.products)

	_, err := ingest.Ingest(ctx, []ScrapedProduct{
		{ProductCode: "A", OnlineMag: "shop", Name: "Alpha", Price: 100, Timestamp: "2024_01_01_00_00"},
		{ProductCode: "B", OnlineMag: "shop", Name: "Beta", Price: 50, Timestamp: "2024_01_01_00_00"},
	})
	require.NoError(t, err)
	_, err = ingest.Ingest(ctx, []ScrapedProduct{
		{ProductCode: "A", OnlineMag: "shop", Name: "Alpha", Price: 90, Timestamp: "2024_01_02_00_00"},
		{ProductCode: "B", OnlineMag: "shop", Name: "Beta", Price: 40, Timestamp: "2024_01_02_00_00"},
	})
	require.NoError(t, err)

	ok := f.register(t, "ok@example.com")
	broken := f.register(t, "broken@example.com")
	quiet := f.register(t, "quiet@example.com")
	for _, u := range []*models.User{ok, broken} {
		_, err := saved.Save(ctx, u, "A")
		require.NoError(t, err)
		_, err = saved.SetNotification(ctx, u, "A", true)
		require.NoError(t, err)
	}
	_, err = saved.Save(ctx, quiet, "B")
	require.NoError(t, err)

	mailer := &fakeMailer{fail: map[string]error{"broken@example.com": errors.New("smtp down")}}
	svc := NewPriceAlertService(f.users, f.products, mailer)

	run, err := svc.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, &AlertRun{Users: 2, Sent: 1, Failed: 1}, run)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ok@example.com", mailer.sent[0].to)
	assert.Equal(t, AlertSubject, mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "Alpha")
	assert.NotContains(t, mailer.sent[0].body, "Beta")

	run, err = svc.Run(ctx, "2024_01_02_00_00")
	require.NoError(t, err)
	assert.Zero(t, run.Sent)
}

func TestPriceAlert_NoSubscribers(t *testing.T) {
	f := newFixture()
	svc := NewPriceAlertService(f.users, f.products, &fakeMailer{})
	run, err := svc.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, &AlertRun{}, run)
}

func TestPriceAlert_LocalClockIngestMatchesUTCWatermark(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	newYork := time.FixedZone("EDT", -4*60*60)
	ingest := NewIngestService(f.products, nil)
	saved := NewSavedListService(f.users, f.products)

	ingest.now = func() time.Time { return time.Date(2024, time.May, 1, 7, 0, 0, 0, newYork) }
	_, err := ingest.Ingest(ctx, []ScrapedProduct{{ProductCode: "A", OnlineMag: "shop", Name: "Alpha", Price: 100}})
	require.NoError(t, err)

	u := f.register(t, "ny@example.com")
	_, err = saved.Save(ctx, u, "A")
	require.NoError(t, err)
	_, err = saved.SetNotification(ctx, u, "A", true)
	require.NoError(t, err)

	// 08:30 EDT is 12:30 UTC, after the 12:00 UTC watermark.
	ingest.now = func() time.Time { return time.Date(2024, time.May, 1, 8, 30, 0, 0, newYork) }
	_, err = ingest.Ingest(ctx, []ScrapedProduct{{ProductCode: "A", OnlineMag: "shop", Name: "Alpha", Price: 80}})
	require.NoError(t, err)

	products, err := f.products.FindByCodes(ctx, []string{"A"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "2024_05_01_12_30", products[0].PriceHistory[1].Timestamp)

	mailer := &fakeMailer{}
	run, err := NewPriceAlertService(f.users, f.products, mailer).Run(ctx, "2024_05_01_12_00")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ny@example.com", mailer.sent[0].to)
}
