package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/ledger"
)

func TestServiceCreateAndBalance(t *testing.T) {
	repo := NewMemoryRepository()
	led := ledger.NewInMemory()
	svc := NewService(repo, led)

	ctx := context.Background()
	ownerID := uuid.NewString()
	wallet, err := svc.Create(ctx, CreateInput{OwnerID: ownerID})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if wallet.Currency != "HTG" {
		t.Fatalf("expected default currency HTG, got %s", wallet.Currency)
	}

	fetched, err := svc.GetByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != wallet.ID {
		t.Fatalf("expected wallet ID %s, got %s", wallet.ID, fetched.ID)
	}

	ledger.SeedBalance(led, wallet.AccountCode, 250_050)

	balance, err := svc.Balance(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Minor != 250_050 || balance.Amount.StringFixed(2) != "2500.50" {
		t.Fatalf("unexpected balance %+v", balance)
	}
}

func TestServiceCharge(t *testing.T) {
	repo := NewMemoryRepository()
	led := ledger.NewInMemory()
	svc := NewService(repo, led)
	ctx := context.Background()
	if err := ledger.EnsureSystemAccounts(ctx, led); err != nil {
		t.Fatalf("system accounts: %v", err)
	}

	ownerID := uuid.NewString()
	wallet, err := svc.Create(ctx, CreateInput{OwnerID: ownerID})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	ledger.SeedBalance(led, wallet.AccountCode, 100_000)

	res, err := svc.Charge(ctx, ownerID, ledger.MerchantSettlementAccountCode, "order_payment", "order-1", decimal.RequireFromString("250.25"))
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.FromBalance != 74_975 {
		t.Fatalf("expected 74975 left, got %d", res.FromBalance)
	}

	_, err = svc.Charge(ctx, ownerID, ledger.MerchantSettlementAccountCode, "order_payment", "order-2", decimal.NewFromInt(5_000))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if _, err := svc.Charge(ctx, uuid.NewString(), ledger.MerchantSettlementAccountCode, "order_payment", "order-3", decimal.NewFromInt(1)); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}
