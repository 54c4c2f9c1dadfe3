package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/internal/tax"
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

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service defines sale recording and voiding.
type Service interface {
	RecordSale(ctx context.Context, input RecordSaleInput) (*RecordSaleResult, error)
	VoidSale(ctx context.Context, input VoidSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error)
}

type service struct {
	repo     Repository
	sessions sessionReader
	products productReader
	tx       txRunner
	recorder audit.Recorder
	calc     *tax.Calculator
	mutex    *locks.KeyedMutex
	metrics  *metrics.TransactionMetrics
}

// NewService builds a sales service with the required dependencies. Metrics
// may be nil.
func NewService(
	repo Repository,
	sessions sessionReader,
	products productReader,
	tx txRunner,
	recorder audit.Recorder,
	calc *tax.Calculator,
	mutex *locks.KeyedMutex,
	txMetrics *metrics.TransactionMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session reader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if calc == nil {
		return nil, fmt.Errorf("tax calculator required")
	}
	if mutex == nil {
		return nil, fmt.Errorf("session mutex required")
	}
	return &service{
		repo:     repo,
		sessions: sessions,
		products: products,
		tx:       tx,
		recorder: recorder,
		calc:     calc,
		mutex:    mutex,
		metrics:  txMetrics,
	}, nil
}

func (s *service) RecordSale(ctx context.Context, input RecordSaleInput) (*RecordSaleResult, error) {
	if err := validateRecordSale(input); err != nil {
		return nil, err
	}

	hash, err := payloadHash(input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash sale payload")
	}

	key := till.SessionLockKey(input.SessionID)
	s.mutex.Lock(key)
	defer s.mutex.Unlock(key)

	var result *RecordSaleResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if existing, err := repo.FindByIdempotencyKey(ctx, input.CompanyID, input.IdempotencyKey); err == nil {
			if existing.PayloadHash != hash {
				return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different payload")
			}
			result = &RecordSaleResult{Sale: existing, Duplicate: true}
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
		}

		session, err := s.sessions.FindSessionByIDForUpdate(ctx, input.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if session.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "session does not belong to company")
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is not open")
		}

		if err := s.checkItemProducts(ctx, input); err != nil {
			return err
		}

		sale, err := s.buildSale(input, session, hash)
		if err != nil {
			return err
		}

		number, err := repo.NextSaleNumber(ctx, input.CompanyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim sale number")
		}
		sale.Number = number

		if err := repo.Create(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, "uq_sales_company_idempotency_key") {
				// lost a race with an identical submission
				existing, findErr := repo.FindByIdempotencyKey(ctx, input.CompanyID, input.IdempotencyKey)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load racing sale")
				}
				if existing.PayloadHash != hash {
					return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different payload")
				}
				result = &RecordSaleResult{Sale: existing, Duplicate: true}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}

		result = &RecordSaleResult{Sale: sale}
		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  input.CompanyID,
			ActorID:    input.RecordedBy,
			Action:     enums.AuditSaleRecorded,
			EntityType: "sale",
			EntityID:   sale.ID,
			After:      sale,
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		s.metrics.IncDuplicateReplay()
	} else {
		s.metrics.IncSaleRecorded(result.Sale.Status.String())
	}
	return result, nil
}

func validateRecordSale(input RecordSaleInput) error {
	if input.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.SessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if input.RecordedBy == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recording actor required")
	}
	if input.IdempotencyKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	for i, item := range input.Items {
		if item.Description == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: description required", i))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.UnitPriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit price must not be negative", i))
		}
	}
	return nil
}

// checkItemProducts verifies every line that names a product points at an
// active product of the selling company. Lines without a product id are
// free-form entries and pass through.
func (s *service) checkItemProducts(ctx context.Context, input RecordSaleInput) error {
	for i, item := range input.Items {
		if item.ProductID == nil {
			continue
		}
		product, err := s.products.FindByID(ctx, *item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unknown product", i))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unknown product", i))
		}
		if !product.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product is inactive", i))
		}
	}
	return nil
}

func (s *service) buildSale(input RecordSaleInput, session *models.TillSession, hash string) (*models.Sale, error) {
	sale := &models.Sale{
		ID:             uuid.New(),
		CompanyID:      input.CompanyID,
		SessionID:      session.ID,
		IdempotencyKey: input.IdempotencyKey,
		PayloadHash:    hash,
		Status:         enums.SaleStatusPending,
		RecordedBy:     input.RecordedBy,
	}

	for _, item := range input.Items {
		lineTotal := item.Quantity * item.UnitPriceCents
		lineTax, err := s.calc.LineTax(lineTotal, item.TaxRatePercent)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "compute line tax")
		}
		sale.Items = append(sale.Items, models.SaleItem{
			ID:             uuid.New(),
			SaleID:         sale.ID,
			ProductID:      item.ProductID,
			Barcode:        item.Barcode,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TaxCents:       lineTax,
			LineTotalCents: lineTotal,
		})
		sale.SubtotalCents += lineTotal
		sale.TaxCents += lineTax
	}
	sale.TotalCents = sale.SubtotalCents + sale.TaxCents
	return sale, nil
}

func (s *service) VoidSale(ctx context.Context, input VoidSaleInput) (*models.Sale, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}

	// the lock key comes from the sale's session, so resolve it first
	peek, err := s.repo.FindByID(ctx, input.SaleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	key := till.SessionLockKey(peek.SessionID)
	s.mutex.Lock(key)
	defer s.mutex.Unlock(key)

	var voided *models.Sale
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sale, err := repo.FindByIDForUpdate(ctx, input.SaleID)
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
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale already voided")
		}

		before := *sale

		if err := repo.ReversePaymentsForSale(ctx, sale.ID, input.ActorID, input.Reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse payments")
		}

		now := time.Now().UTC()
		sale.Status = enums.SaleStatusVoided
		sale.VoidedAt = &now
		sale.VoidedBy = &input.ActorID
		sale.VoidReason = &input.Reason
		if err := repo.Update(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void sale")
		}

		voided = sale
		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  sale.CompanyID,
			ActorID:    input.ActorID,
			Action:     enums.AuditSaleVoided,
			EntityType: "sale",
			EntityID:   sale.ID,
			Before:     before,
			After:      sale,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSaleRecorded(enums.SaleStatusVoided.String())
	return voided, nil
}

func (s *service) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

func (s *service) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	sales, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return sales, nil
}
