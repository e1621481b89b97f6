package donate

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"biblify/internal/storage"
)

func openLedger(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "biblify.db"))
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestProducts(t *testing.T) {
	m := NewManager(NewLedgerProvider(openLedger(t)))

	products, err := m.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() returned an unexpected error: %v", err)
	}
	want := []string{"donation_tier_1", "donation_tier_2", "donation_tier_3"}
	if len(products) != len(want) {
		t.Fatalf("Expected %d products, got %d", len(want), len(products))
	}
	for i, id := range want {
		if products[i].ID != id {
			t.Errorf("Product %d: expected %s, got %s", i, id, products[i].ID)
		}
	}
}

func TestDonateConsumesPurchase(t *testing.T) {
	db := openLedger(t)
	m := NewManager(NewLedgerProvider(db))

	res, err := m.Donate(context.Background(), "donation_tier_2")
	if err != nil {
		t.Fatalf("Donate() returned an unexpected error: %v", err)
	}
	if res.Message != "Thank you for your support!" {
		t.Errorf("Unexpected message %q", res.Message)
	}
	if _, err := uuid.Parse(res.Purchase.Token); err != nil {
		t.Errorf("Expected a uuid purchase token, got %q", res.Purchase.Token)
	}

	donations, err := db.Donations()
	if err != nil {
		t.Fatal(err)
	}
	if len(donations) != 1 || !donations[0].ConsumedAt.Valid {
		t.Errorf("Expected one consumed ledger entry, got %+v", donations)
	}

	if _, err := m.Donate(context.Background(), "donation_tier_2"); err != nil {
		t.Errorf("Expected a consumed product to be purchasable again, got %v", err)
	}
}

func TestDonateUnknownProduct(t *testing.T) {
	m := NewManager(NewLedgerProvider(openLedger(t)))

	res, err := m.Donate(context.Background(), "donation_tier_9")
	if !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("Expected ErrUnknownProduct, got %v", err)
	}
	if !strings.HasPrefix(res.Message, "Purchase error: ") {
		t.Errorf("Unexpected message %q", res.Message)
	}
}

type failingConsume struct{ *LedgerProvider }

func (f failingConsume) Consume(context.Context, string) error { return errors.New("service unavailable") }

func TestDonateConsumeFailure(t *testing.T) {
	m := NewManager(failingConsume{NewLedgerProvider(openLedger(t))})

	res, err := m.Donate(context.Background(), "donation_tier_1")
	if err == nil {
		t.Fatal("Expected an error when consumption fails")
	}
	if res.Message != "Purchase error: service unavailable" {
		t.Errorf("Unexpected message %q", res.Message)
	}
}
