// Package donate implements the one-time donation flow: list the fixed
// product catalog, purchase a product and consume it so it can be bought
// again.
package donate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	ThankYouMessage = "Thank you for your support!"
	errorPrefix     = "Purchase error: "
)

var ErrUnknownProduct = errors.New("unknown product")

// Product is one donation tier.
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Catalog lists the donation tiers in display order.
var Catalog = []Product{
	{ID: "donation_tier_1", Title: "Small donation", Price: "$0.99"},
	{ID: "donation_tier_2", Title: "Medium donation", Price: "$2.99"},
	{ID: "donation_tier_3", Title: "Large donation", Price: "$4.99"},
}

// CatalogIDs returns the ids of the catalog products.
func CatalogIDs() []string {
	ids := make([]string, len(Catalog))
	for i, p := range Catalog {
		ids[i] = p.ID
	}
	return ids
}

// Purchase is a completed, not yet consumed purchase.
type Purchase struct {
	Token       string    `json:"token"`
	ProductID   string    `json:"product_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Provider is the billing backend.
type Provider interface {
	QueryProducts(ctx context.Context, ids []string) ([]Product, error)
	Purchase(ctx context.Context, productID string) (Purchase, error)
	Consume(ctx context.Context, token string) error
}

// Result is the outcome of a donation, with the message shown to the user.
type Result struct {
	Purchase Purchase `json:"purchase"`
	Message  string   `json:"message"`
}

// Manager drives the purchase-then-consume flow.
type Manager struct {
	provider Provider
}

func NewManager(provider Provider) *Manager {
	return &Manager{provider: provider}
}

// Products returns the catalog products the provider knows about.
func (m *Manager) Products(ctx context.Context) ([]Product, error) {
	products, err := m.provider.QueryProducts(ctx, CatalogIDs())
	if err != nil {
		slog.Error("Failed to query products", "error", err)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	slog.Debug("Products queried", "count", len(products))
	return products, nil
}

// Donate purchases productID and consumes it immediately. The returned
// Result always carries a user-facing message, also on error.
func (m *Manager) Donate(ctx context.Context, productID string) (Result, error) {
	purchase, err := m.provider.Purchase(ctx, productID)
	if err != nil {
		slog.Error("Purchase failed", "product", productID, "error", err)
		return Result{Message: errorPrefix + err.Error()}, err
	}

	if err := m.provider.Consume(ctx, purchase.Token); err != nil {
		slog.Error("Failed to consume purchase", "token", purchase.Token, "error", err)
		return Result{Purchase: purchase, Message: errorPrefix + err.Error()}, fmt.Errorf("failed to consume purchase: %w", err)
	}

	slog.Info("Purchase consumed", "product", productID, "token", purchase.Token)
	return Result{Purchase: purchase, Message: ThankYouMessage}, nil
}

// Ledger records purchases. *storage.DB implements it.
type Ledger interface {
	InsertDonation(token, productID string, at time.Time) error
	ConsumeDonation(token string, at time.Time) error
}

// LedgerProvider is a local Provider that accepts every catalog purchase
// and records it in a Ledger.
type LedgerProvider struct {
	ledger Ledger
	now    func() time.Time
}

func NewLedgerProvider(ledger Ledger) *LedgerProvider {
	return &LedgerProvider{ledger: ledger, now: time.Now}
}

func (p *LedgerProvider) QueryProducts(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if product, ok := findProduct(id); ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (p *LedgerProvider) Purchase(ctx context.Context, productID string) (Purchase, error) {
	if err := ctx.Err(); err != nil {
		return Purchase{}, err
	}
	if _, ok := findProduct(productID); !ok {
		return Purchase{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	purchase := Purchase{
		Token:       uuid.NewString(),
		ProductID:   productID,
		PurchasedAt: p.now(),
	}
	if err := p.ledger.InsertDonation(purchase.Token, purchase.ProductID, purchase.PurchasedAt); err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

func (p *LedgerProvider) Consume(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.ledger.ConsumeDonation(token, p.now())
}

func findProduct(id string) (Product, bool) {
	for _, p := range Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
