package tests

import (
	"context"
	"testing"
	"time"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

func seedEarning(e *env, id, driverID, paymentID string, earningType domain.EarningType, net int64, payout domain.PayoutStatus) {
	gross := net * 5 / 4 // 20% commission
	e.store.PutEarning(&domain.DriverEarning{
		ID:               id,
		DriverID:         driverID,
		ShipmentID:       "ship-" + id,
		PaymentID:        paymentID,
		EarningType:      earningType,
		GrossAmount:      gross,
		CommissionAmount: gross - net,
		NetAmount:        net,
		PayoutStatus:     payout,
		CreatedAt:        time.Now(),
	})
}

// ──────────────────────────────────────────────
// LEDGER QUERIES
// ──────────────────────────────────────────────

func TestGetSummary_SplitsPendingAndPaid(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedEarning(e, "earn-1", "driver-1", "pay-1", domain.EarningTypeOriginal, 800, domain.PayoutStatusPending)
	seedEarning(e, "earn-2", "driver-1", "pay-2", domain.EarningTypeOriginal, 400, domain.PayoutStatusPaid)
	seedEarning(e, "earn-3", "driver-1", "pay-1", domain.EarningTypeRefund, -800, domain.PayoutStatusPending)
	seedEarning(e, "earn-4", "driver-2", "pay-3", domain.EarningTypeOriginal, 999, domain.PayoutStatusPending)

	summary, err := e.earnings.GetSummary(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalGross != 500 {
		t.Errorf("expected gross 500, got %d", summary.TotalGross)
	}
	if summary.TotalCommission != 100 {
		t.Errorf("expected commission 100, got %d", summary.TotalCommission)
	}
	if summary.TotalNet != 400 {
		t.Errorf("expected net 400, got %d", summary.TotalNet)
	}
	// The refund offsets the pending original; only the paid line counts
	// toward payouts already made.
	if summary.TotalPending != 0 {
		t.Errorf("expected pending 0, got %d", summary.TotalPending)
	}
	if summary.TotalPaid != 400 {
		t.Errorf("expected paid 400, got %d", summary.TotalPaid)
	}
}

func TestListDriverEarnings_ScopedToDriver(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedEarning(e, "earn-1", "driver-1", "pay-1", domain.EarningTypeOriginal, 800, domain.PayoutStatusPending)
	seedEarning(e, "earn-2", "driver-2", "pay-2", domain.EarningTypeOriginal, 400, domain.PayoutStatusPending)

	lines, err := e.earnings.ListDriverEarnings(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != "earn-1" {
		t.Errorf("expected only driver-1's line, got %+v", lines)
	}
}

// ──────────────────────────────────────────────
// PAYOUTS
// ──────────────────────────────────────────────

func TestMarkPaid_IsIdempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedEarning(e, "earn-1", "driver-1", "pay-1", domain.EarningTypeOriginal, 800, domain.PayoutStatusPending)

	for i := 0; i < 2; i++ {
		earning, err := e.earnings.MarkPaid(context.Background(), "earn-1")
		if err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i, err)
		}
		if earning.PayoutStatus != domain.PayoutStatusPaid {
			t.Errorf("pass %d: expected PAID, got %s", i, earning.PayoutStatus)
		}
	}
}

func TestMarkPaid_RefundLineRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedEarning(e, "earn-1", "driver-1", "pay-1", domain.EarningTypeRefund, -800, domain.PayoutStatusPending)

	if _, err := e.earnings.MarkPaid(context.Background(), "earn-1"); err != service.ErrPaymentNotSettled {
		t.Errorf("expected ErrPaymentNotSettled, got %v", err)
	}
}

func TestMarkPaidBatch_SettlesAllLines(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedEarning(e, "earn-1", "driver-1", "pay-1", domain.EarningTypeOriginal, 800, domain.PayoutStatusPending)
	seedEarning(e, "earn-2", "driver-1", "pay-2", domain.EarningTypeOriginal, 400, domain.PayoutStatusPaid)

	lines, err := e.earnings.MarkPaidBatch(context.Background(), []string{"earn-1", "earn-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if line.PayoutStatus != domain.PayoutStatusPaid {
			t.Errorf("line %s: expected PAID, got %s", line.ID, line.PayoutStatus)
		}
	}
}

func TestMarkPaidBatch_AbortsOnRefundLine(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedEarning(e, "earn-1", "driver-1", "pay-1", domain.EarningTypeRefund, -800, domain.PayoutStatusPending)

	if _, err := e.earnings.MarkPaidBatch(context.Background(), []string{"earn-1"}); err != service.ErrPaymentNotSettled {
		t.Errorf("expected ErrPaymentNotSettled, got %v", err)
	}
	if _, err := e.earnings.MarkPaidBatch(context.Background(), nil); err != service.ErrInvalidPaymentID {
		t.Errorf("empty batch: expected ErrInvalidPaymentID, got %v", err)
	}
}
