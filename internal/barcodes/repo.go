package barcodes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
)

// Repository manages persistence for barcode sequences and assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	SequenceForUpdate(ctx context.Context, companyID uuid.UUID, defaultPrefix string) (*models.BarcodeSequence, error)
	SaveSequence(ctx context.Context, seq *models.BarcodeSequence) error

	CreateAssignment(ctx context.Context, assignment *models.BarcodeAssignment) error
	FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*models.BarcodeAssignment, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.BarcodeAssignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a barcodes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// SequenceForUpdate loads the company's counter row, creating it on first
// use, and locks it for the rest of the transaction.
func (r *repository) SequenceForUpdate(ctx context.Context, companyID uuid.UUID, defaultPrefix string) (*models.BarcodeSequence, error) {
	tx := r.db.WithContext(ctx)

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BarcodeSequence{CompanyID: companyID, Prefix: defaultPrefix}).Error; err != nil {
		return nil, err
	}

	var seq models.BarcodeSequence
	if err := tx.
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("company_id = ?", companyID).
		First(&seq).Error; err != nil {
		return nil, err
	}
	return &seq, nil
}

func (r *repository) SaveSequence(ctx context.Context, seq *models.BarcodeSequence) error {
	return r.db.WithContext(ctx).Save(seq).Error
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.BarcodeAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*models.BarcodeAssignment, error) {
	var assignment models.BarcodeAssignment
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND code = ?", companyID, code).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.BarcodeAssignment, error) {
	var assignments []models.BarcodeAssignment
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}
