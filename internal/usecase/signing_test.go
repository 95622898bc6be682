package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/test"
)

func TestNewRecordMintsUniqueCorrelators(t *testing.T) {
	repo := test.NewSigningRepositoryStub()
	uc := NewSigningUseCase(repo)
	ctx := context.Background()

	pii := model.PIISnapshot{RealName: "a", IDNumber: "b", Phone: "c", BankName: "d", BankAccount: "6222000011112222"}
	first, err := uc.NewRecord(ctx, 1, pii, "tpl-1")
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	second, err := uc.NewRecord(ctx, 1, pii, "tpl-1")
	if err != nil {
		t.Fatalf("new record: %v", err)
	}

	if first.Correlator == second.Correlator {
		t.Errorf("correlators must be unique")
	}
	if len(first.Correlator) != 32 {
		t.Errorf("correlator length = %d", len(first.Correlator))
	}
	if first.Status != model.SigningPending {
		t.Errorf("status = %s", first.Status)
	}
	if first.CardFingerprint != CardFingerprint(pii.BankAccount) {
		t.Errorf("fingerprint mismatch")
	}
}

func TestCardFingerprintStableAndOpaque(t *testing.T) {
	a := CardFingerprint("6222000011112222")
	b := CardFingerprint("6222000011112222")
	c := CardFingerprint("6222000011112223")

	if a != b {
		t.Errorf("fingerprint must be stable")
	}
	if a == c {
		t.Errorf("different accounts must not collide")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d", len(a))
	}
	if a == "6222000011112222" {
		t.Errorf("fingerprint must not expose the account")
	}
}

func TestApplyOutcomeSigned(t *testing.T) {
	repo := test.NewSigningRepositoryStub()
	uc := NewSigningUseCase(repo)
	ctx := context.Background()

	record, err := uc.NewRecord(ctx, 1, model.PIISnapshot{BankAccount: "x"}, "tpl-1")
	if err != nil {
		t.Fatalf("new record: %v", err)
	}

	updated, transitioned, err := uc.ApplyOutcome(ctx, record.Correlator, fasign.OutcomeSigned)
	if err != nil || !transitioned {
		t.Fatalf("apply: transitioned=%v err=%v", transitioned, err)
	}
	if updated.Status != model.SigningSigned || updated.SignedAt == nil {
		t.Errorf("after apply: %+v", updated)
	}
}

func TestApplyOutcomeFailed(t *testing.T) {
	repo := test.NewSigningRepositoryStub()
	uc := NewSigningUseCase(repo)
	ctx := context.Background()

	record, _ := uc.NewRecord(ctx, 1, model.PIISnapshot{BankAccount: "x"}, "tpl-1")
	if err := repo.MarkSent(ctx, record.ID, "order-1"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	updated, transitioned, err := uc.ApplyOutcome(ctx, record.Correlator, fasign.OutcomeFailed)
	if err != nil || !transitioned {
		t.Fatalf("apply: transitioned=%v err=%v", transitioned, err)
	}
	if updated.Status != model.SigningFailed {
		t.Errorf("status = %s", updated.Status)
	}
}

func TestApplyOutcomeTerminalDuplicate(t *testing.T) {
	repo := test.NewSigningRepositoryStub()
	uc := NewSigningUseCase(repo)
	ctx := context.Background()

	record, _ := uc.NewRecord(ctx, 1, model.PIISnapshot{BankAccount: "x"}, "tpl-1")
	if err := repo.MarkSigned(ctx, record.ID, time.Now()); err != nil {
		t.Fatalf("mark signed: %v", err)
	}

	// even a contradicting late delivery leaves the record alone
	updated, transitioned, err := uc.ApplyOutcome(ctx, record.Correlator, fasign.OutcomeFailed)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if transitioned {
		t.Errorf("terminal record must not transition")
	}
	if updated.Status != model.SigningSigned {
		t.Errorf("status = %s", updated.Status)
	}
}

func TestApplyOutcomeUnknownCorrelator(t *testing.T) {
	uc := NewSigningUseCase(test.NewSigningRepositoryStub())
	if _, _, err := uc.ApplyOutcome(context.Background(), "missing", fasign.OutcomeSigned); !errors.Is(err, domainErrors.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestApplyOutcomeUnknownOutcomeIsAcknowledged(t *testing.T) {
	uc := NewSigningUseCase(test.NewSigningRepositoryStub())
	ctx := context.Background()

	record, _ := uc.NewRecord(ctx, 1, model.PIISnapshot{BankAccount: "x"}, "tpl-1")
	updated, transitioned, err := uc.ApplyOutcome(ctx, record.Correlator, fasign.OutcomeUnknown)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if transitioned {
		t.Errorf("inconclusive outcome must not transition")
	}
	if updated.Status != model.SigningPending {
		t.Errorf("status = %s", updated.Status)
	}
}
