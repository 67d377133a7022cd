package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/pricewatch_api/internal/models"
)

// AlertSubject is the subject line of price drop emails.
const AlertSubject = "Price update for your saved products"

// Mailer delivers one plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PriceDrop is a product whose latest recorded price is below the one before it.
type PriceDrop struct {
	Product  models.Product
	Previous models.PricePoint
	Current  models.PricePoint
}

// AlertRun summarises one notification pass.
type AlertRun struct {
	Users  int
	Sent   int
	Failed int
}

// PriceAlertService emails users whose saved products got cheaper.
type PriceAlertService struct {
	users    UserStore
	products ProductStore
	mailer   Mailer
}

// NewPriceAlertService constructs a PriceAlertService.
func NewPriceAlertService(users UserStore, products ProductStore, mailer Mailer) *PriceAlertService {
	return &PriceAlertService{users: users, products: products, mailer: mailer}
}

// FindDrops returns the drops among products for every saved entry of user
// with notifications on. Only drops recorded after since are reported;
// an empty since reports all.
func FindDrops(user *models.User, byCode map[string][]models.Product, since string) []PriceDrop {
	var drops []PriceDrop
	for _, entry := range user.SavedProducts {
		if !entry.EmailNotification {
			continue
		}
		for _, p := range byCode[entry.ProductCode] {
			previous, current, ok := p.PriceHistory.LastDrop()
			if !ok || current.Timestamp <= since {
				continue
			}
			drops = append(drops, PriceDrop{Product: p, Previous: previous, Current: current})
		}
	}
	return drops
}

// FormatAlert renders the email body for drops.
func FormatAlert(drops []PriceDrop) string {
	var b strings.Builder
	for _, d := range drops {
		fmt.Fprintf(&b, "%s (%s): price dropped from %.2f to %.2f.\n", d.Product.Name, d.Product.OnlineMag, d.Previous.Price, d.Current.Price)
		if d.Product.URL != "" {
			fmt.Fprintf(&b, "%s\n", d.Product.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run sends one email per user with at least one new drop. Mail failures are
// logged and counted; store failures abort the run.
func (s *PriceAlertService) Run(ctx context.Context, since string) (*AlertRun, error) {
	users, err := s.users.ListWithNotifications(ctx)
	if err != nil {
		return nil, err
	}
	run := &AlertRun{Users: len(users)}
	if len(users) == 0 {
		return run, nil
	}

	codeSet := map[string]bool{}
	for _, u := range users {
		for _, entry := range u.SavedProducts {
			if entry.EmailNotification {
				codeSet[entry.ProductCode] = true
			}
		}
	}
	codes := make([]string, 0, len(codeSet))
	for code := range codeSet {
		codes = append(codes, code)
	}

	products, err := s.products.FindByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	byCode := groupByCode(products)

	for i := range users {
		user := &users[i]
		drops := FindDrops(user, byCode, since)
		if len(drops) == 0 {
			continue
		}
		if err := s.mailer.Send(ctx, user.Email, AlertSubject, FormatAlert(drops)); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send price alert")
			run.Failed++
			continue
		}
		run.Sent++
	}
	return run, nil
}
