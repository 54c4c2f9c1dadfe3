package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// Repository manages persistence for sales and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindByIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) (*models.Sale, error)
	Update(ctx context.Context, sale *models.Sale) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error)

	NextSaleNumber(ctx context.Context, companyID uuid.UUID) (int64, error)
	ReversePaymentsForSale(ctx context.Context, saleID uuid.UUID, actorID uuid.UUID, reason string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("id = ?", id).
		First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("company_id = ? AND idempotency_key = ?", companyID, key).
		First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) Update(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Items", "Payments").Save(sale).Error
}

func (r *repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("session_id = ?", sessionID).
		Order("number ASC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// NextSaleNumber claims the next per-company sale number. The sequence row
// is locked for the rest of the transaction, so numbers are gapless among
// committed sales.
func (r *repository) NextSaleNumber(ctx context.Context, companyID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx)

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SaleSequence{CompanyID: companyID, NextValue: 1}).Error; err != nil {
		return 0, err
	}

	var seq models.SaleSequence
	if err := tx.
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("company_id = ?", companyID).
		First(&seq).Error; err != nil {
		return 0, err
	}

	number := seq.NextValue
	if err := tx.Model(&models.SaleSequence{}).
		Where("company_id = ?", companyID).
		Update("next_value", number+1).Error; err != nil {
		return 0, err
	}
	return number, nil
}

func (r *repository) ReversePaymentsForSale(ctx context.Context, saleID uuid.UUID, actorID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("sale_id = ? AND status = ?", saleID, enums.PaymentStatusCompleted).
		Updates(map[string]any{
			"status":          enums.PaymentStatusReversed,
			"reversed_at":     gorm.Expr("CURRENT_TIMESTAMP"),
			"reversed_by":     actorID,
			"reversal_reason": reason,
		}).Error
}
