package app

import (
	"context"
	"testing"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	"github.com/opendigger/pointgate/internal/domain/model"
	testhelpers "github.com/opendigger/pointgate/internal/test"
	"github.com/opendigger/pointgate/internal/usecase"
)

func newFacade() (*PointsFacade, *testhelpers.LedgerRepositoryStub, *testhelpers.WithdrawalRepositoryStub, *testhelpers.SigningRepositoryStub, *testhelpers.PayoutStub) {
	ledgerRepo := testhelpers.NewLedgerRepositoryStub()
	withdrawalRepo := testhelpers.NewWithdrawalRepositoryStub()
	signingRepo := testhelpers.NewSigningRepositoryStub()
	payout := &testhelpers.PayoutStub{}

	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo)
	signingUC := usecase.NewSigningUseCase(signingRepo)
	withdrawalUC := usecase.NewWithdrawalUseCase(
		withdrawalRepo, ledgerRepo, signingUC,
		&testhelpers.ProviderStub{}, payout,
		usecase.WithdrawalOptions{
			TemplateID:    "tmpl-1",
			SigningWindow: time.Hour,
			MaxAttempts:   1,
			RetryBackoff:  time.Millisecond,
		},
		testhelpers.NewLogger(),
	)

	facade := NewPointsFacade(ledgerUC, withdrawalUC, signingUC)
	return facade, ledgerRepo, withdrawalRepo, signingRepo, payout
}

func TestPointsFacadeLedger(t *testing.T) {
	facade, _, _, _, _ := newFacade()
	ctx := context.Background()

	txn, created, err := facade.Grant(ctx, 7, model.PointKindCash, "", 500, "signup bonus", "bonus:1", nil)
	if err != nil || !created {
		t.Fatalf("grant failed: created=%v err=%v", created, err)
	}
	if txn.Delta != 500 {
		t.Fatalf("unexpected grant delta %d", txn.Delta)
	}

	res, created, err := facade.Reserve(ctx, 7, model.PointKindCash, "", 200, "hold:1")
	if err != nil || !created {
		t.Fatalf("reserve failed: created=%v err=%v", created, err)
	}

	detail, err := facade.Balance(ctx, 7, model.PointKindCash, "")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if detail.Balance != 500 || detail.Reserved != 200 || detail.Available != 300 {
		t.Fatalf("unexpected balance %+v", detail)
	}

	if err := facade.CommitReservation(ctx, res.ID); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	detail, err = facade.Balance(ctx, 7, model.PointKindCash, "")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if detail.Balance != 300 || detail.Reserved != 0 {
		t.Fatalf("unexpected balance after commit %+v", detail)
	}

	entries, err := facade.LedgerHistory(ctx, 7, model.PointKindCash, "", 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}
}

func TestPointsFacadeWithdrawalLifecycle(t *testing.T) {
	facade, _, _, signingRepo, payout := newFacade()
	ctx := context.Background()

	if _, _, err := facade.Grant(ctx, 3, model.PointKindCash, "", 20000, "topup", "", nil); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	card := model.BankCard{BankName: "CMB", Account: "6222021234567890"}
	pii := model.PIISnapshot{
		RealName: "Jordan Lee", IDNumber: "110101199001011234", Phone: "13800000000",
		BankName: card.BankName, BankAccount: card.Account,
	}
	w, err := facade.CreateWithdrawal(ctx, 3, 15000, card, pii)
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	if w.Status != model.WithdrawalSignatureInFlight {
		t.Fatalf("unexpected status %s", w.Status)
	}
	if w.SigningRecordID == nil {
		t.Fatal("expected signing record attached")
	}

	record, err := signingRepo.GetByID(ctx, *w.SigningRecordID)
	if err != nil {
		t.Fatalf("signing record missing: %v", err)
	}

	applied, transitioned, err := facade.ApplySigningOutcome(ctx, record.Correlator, fasign.OutcomeSigned)
	if err != nil || !transitioned {
		t.Fatalf("apply outcome failed: transitioned=%v err=%v", transitioned, err)
	}

	if err := facade.ResumeWithdrawal(ctx, applied.ID); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	final, err := facade.GetWithdrawal(ctx, w.ID, 3)
	if err != nil {
		t.Fatalf("get withdrawal failed: %v", err)
	}
	if final.Status != model.WithdrawalCompleted {
		t.Fatalf("expected completed withdrawal, got %s", final.Status)
	}
	if payout.Count() != 1 {
		t.Fatalf("expected exactly one payout, got %d", payout.Count())
	}

	detail, err := facade.Balance(ctx, 3, model.PointKindCash, "")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if detail.Balance != 5000 || detail.Reserved != 0 {
		t.Fatalf("unexpected balance after settlement %+v", detail)
	}
}

func TestPointsFacadeMaintenance(t *testing.T) {
	facade, _, _, _, _ := newFacade()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	if _, _, err := facade.Grant(ctx, 9, model.PointKindGift, "promo", 100, "campaign", "", &past); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	swept, err := facade.SweepExpiredGrants(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if swept != 100 {
		t.Fatalf("expected 100 points swept, got %d", swept)
	}

	overdue, err := facade.ExpiredSigningWithdrawals(ctx, 10)
	if err != nil {
		t.Fatalf("list overdue failed: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("expected no overdue withdrawals, got %d", len(overdue))
	}
}
