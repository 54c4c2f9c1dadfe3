package syncqueue

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// Repository manages persistence for offline sync entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, entry *models.SyncEntry) error
	Update(ctx context.Context, entry *models.SyncEntry) error
	FindByDeviceAndKey(ctx context.Context, deviceID, idempotencyKey string) (*models.SyncEntry, error)
	ListPending(ctx context.Context, companyID uuid.UUID, limit int) ([]models.SyncEntry, error)
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.SyncEntry, error)
	FindAppliedBySessionKey(ctx context.Context, companyID uuid.UUID, sessionKey string) (*models.SyncEntry, error)
	FindAppliedBySaleKey(ctx context.Context, companyID uuid.UUID, saleKey string) (*models.SyncEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sync queue repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.SyncEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Update(ctx context.Context, entry *models.SyncEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) FindByDeviceAndKey(ctx context.Context, deviceID, idempotencyKey string) (*models.SyncEntry, error) {
	var entry models.SyncEntry
	if err := r.db.WithContext(ctx).
		Where("device_id = ? AND idempotency_key = ?", deviceID, idempotencyKey).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListPending returns pending entries in the order the device recorded them.
// Local timestamps break ties within a device; created_at orders devices.
func (r *repository) ListPending(ctx context.Context, companyID uuid.UUID, limit int) ([]models.SyncEntry, error) {
	var entries []models.SyncEntry
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, enums.SyncStatusPending).
		Order("local_timestamp ASC, created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.SyncEntry, error) {
	var entries []models.SyncEntry
	if err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("local_timestamp ASC, created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindAppliedBySessionKey(ctx context.Context, companyID uuid.UUID, sessionKey string) (*models.SyncEntry, error) {
	var entry models.SyncEntry
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND session_key = ? AND operation = ? AND status = ?",
			companyID, sessionKey, enums.SyncOpOpenSession, enums.SyncStatusApplied).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindAppliedBySaleKey(ctx context.Context, companyID uuid.UUID, saleKey string) (*models.SyncEntry, error) {
	var entry models.SyncEntry
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND sale_key = ? AND operation = ? AND status = ?",
			companyID, saleKey, enums.SyncOpRecordSale, enums.SyncStatusApplied).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
