package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/internal/till"
	"github.com/camdenretail/tillcore-backend/pkg/db"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/locks"
	"github.com/camdenretail/tillcore-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionReader interface {
	FindSessionByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TillSession, error)
}

// Service defines payment attachment and reversal.
type Service interface {
	AttachPayment(ctx context.Context, input AttachPaymentInput) (*AttachPaymentResult, error)
	ReversePayment(ctx context.Context, input ReversePaymentInput) (*models.Payment, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error)
}

type service struct {
	repo      Repository
	saleRepo  sales.Repository
	sessions  sessionReader
	tx        txRunner
	recorder  audit.Recorder
	mutex     *locks.KeyedMutex
	metrics   *metrics.TransactionMetrics
	tolerance int64
}

// NewService builds a payments service. toleranceCents is the configured
// overpayment allowance; metrics may be nil.
func NewService(
	repo Repository,
	saleRepo sales.Repository,
	sessions sessionReader,
	tx txRunner,
	recorder audit.Recorder,
	mutex *locks.KeyedMutex,
	txMetrics *metrics.TransactionMetrics,
	toleranceCents int64,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if saleRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if mutex == nil {
		return nil, fmt.Errorf("session mutex required")
	}
	if toleranceCents < 0 {
		return nil, fmt.Errorf("overpayment tolerance must not be negative")
	}
	return &service{
		repo:      repo,
		saleRepo:  saleRepo,
		sessions:  sessions,
		tx:        tx,
		recorder:  recorder,
		mutex:     mutex,
		metrics:   txMetrics,
		tolerance: toleranceCents,
	}, nil
}

func (s *service) AttachPayment(ctx context.Context, input AttachPaymentInput) (*AttachPaymentResult, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.RecordedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recording actor required")
	}

	// the lock key comes from the sale's session, so resolve it first
	peek, err := s.saleRepo.FindByID(ctx, input.SaleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	key := till.SessionLockKey(peek.SessionID)
	s.mutex.Lock(key)
	defer s.mutex.Unlock(key)

	var result *AttachPaymentResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		saleRepo := s.saleRepo.WithTx(tx)

		// re-read inside the lock; the sale may have been voided or settled
		// between the peek and here
		sale, err := saleRepo.FindByIDForUpdate(ctx, input.SaleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if input.CompanyID != uuid.Nil && sale.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to company")
		}
		if sale.Status == enums.SaleStatusVoided {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is voided")
		}

		session, err := s.sessions.FindSessionByIDForUpdate(ctx, sale.SessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is not open")
		}

		if input.Reference != nil && *input.Reference != "" {
			if existing, err := repo.FindBySaleAndReference(ctx, sale.ID, *input.Reference); err == nil {
				result = &AttachPaymentResult{Payment: existing, Duplicate: true}
				return nil
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment reference")
			}
		}

		settled, err := repo.SumCompletedBySale(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
		}
		if settled+input.AmountCents > sale.TotalCents+s.tolerance {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment exceeds amount due").
				WithDetails(map[string]int64{
					"total_cents":   sale.TotalCents,
					"settled_cents": settled,
					"amount_cents":  input.AmountCents,
				})
		}

		payment := &models.Payment{
			ID:          uuid.New(),
			CompanyID:   sale.CompanyID,
			SaleID:      sale.ID,
			SessionID:   sale.SessionID,
			Method:      input.Method,
			Status:      enums.PaymentStatusCompleted,
			AmountCents: input.AmountCents,
			Reference:   input.Reference,
			RecordedBy:  input.RecordedBy,
		}
		if err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "uq_payments_sale_reference") {
				existing, findErr := repo.FindBySaleAndReference(ctx, sale.ID, *input.Reference)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load racing payment")
				}
				result = &AttachPaymentResult{Payment: existing, Duplicate: true}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		if status := sales.ResolveStatus(sale.TotalCents, settled+input.AmountCents); status != sale.Status {
			sale.Status = status
			if err := saleRepo.Update(ctx, sale); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
			}
		}

		result = &AttachPaymentResult{Payment: payment}
		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  sale.CompanyID,
			ActorID:    input.RecordedBy,
			Action:     enums.AuditPaymentAttached,
			EntityType: "payment",
			EntityID:   payment.ID,
			After:      payment,
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		s.metrics.IncPaymentAttached(input.Method.String())
	}
	return result, nil
}

func (s *service) ReversePayment(ctx context.Context, input ReversePaymentInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reversal reason required")
	}

	peek, err := s.repo.FindByID(ctx, input.PaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	key := till.SessionLockKey(peek.SessionID)
	s.mutex.Lock(key)
	defer s.mutex.Unlock(key)

	var reversed *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		saleRepo := s.saleRepo.WithTx(tx)

		payment, err := repo.FindByIDForUpdate(ctx, input.PaymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if input.CompanyID != uuid.Nil && payment.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to company")
		}
		if payment.Status != enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not reversible in current status")
		}

		before := *payment

		now := time.Now().UTC()
		payment.Status = enums.PaymentStatusReversed
		payment.ReversedAt = &now
		payment.ReversedBy = &input.ActorID
		payment.ReversalReason = &input.Reason
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse payment")
		}

		sale, err := saleRepo.FindByIDForUpdate(ctx, payment.SaleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale.Status != enums.SaleStatusVoided {
			settled, err := repo.SumCompletedBySale(ctx, sale.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
			}
			if status := sales.ResolveStatus(sale.TotalCents, settled); status != sale.Status {
				sale.Status = status
				if err := saleRepo.Update(ctx, sale); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
				}
			}
		}

		reversed = payment
		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  payment.CompanyID,
			ActorID:    input.ActorID,
			Action:     enums.AuditPaymentReversed,
			EntityType: "payment",
			EntityID:   payment.ID,
			Before:     before,
			After:      payment,
		})
	})
	if err != nil {
		return nil, err
	}
	return reversed, nil
}

func (s *service) ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	payments, err := s.repo.ListBySale(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}
