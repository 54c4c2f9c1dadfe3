package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
)

// Repository manages persistence for audit entries. Entries are append-only;
// the only permitted update is the feed worker stamping published_at.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListAfter(ctx context.Context, companyID uuid.UUID, afterSeq int64, limit int) ([]models.AuditEntry, error)
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]models.AuditEntry, error)
	ListUnpublished(ctx context.Context, limit int) ([]models.AuditEntry, error)
	MarkPublished(ctx context.Context, seqs []int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListAfter(ctx context.Context, companyID uuid.UUID, afterSeq int64, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND seq > ?", companyID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListUnpublished(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("seq ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) MarkPublished(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AuditEntry{}).
		Where("seq IN ?", seqs).
		Update("published_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
