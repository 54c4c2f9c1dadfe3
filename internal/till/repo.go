package till

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// Repository manages persistence for tills, sessions and cash movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTill(ctx context.Context, till *models.Till) error
	FindTillByID(ctx context.Context, id uuid.UUID) (*models.Till, error)

	CreateSession(ctx context.Context, session *models.TillSession) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*models.TillSession, error)
	FindSessionByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TillSession, error)
	FindOpenSessionByTill(ctx context.Context, tillID uuid.UUID) (*models.TillSession, error)
	UpdateSession(ctx context.Context, session *models.TillSession) error
	ListSessionsByTill(ctx context.Context, tillID uuid.UUID, limit int) ([]models.TillSession, error)

	CreateCashMovement(ctx context.Context, movement *models.CashMovement) error
	ListCashMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
	SumCashMovements(ctx context.Context, sessionID uuid.UUID, movementType enums.CashMovementType) (int64, error)
	SumCompletedCashPayments(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a till repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTill(ctx context.Context, till *models.Till) error {
	return r.db.WithContext(ctx).Create(till).Error
}

func (r *repository) FindTillByID(ctx context.Context, id uuid.UUID) (*models.Till, error) {
	var till models.Till
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&till).Error; err != nil {
		return nil, err
	}
	return &till, nil
}

func (r *repository) CreateSession(ctx context.Context, session *models.TillSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindSessionByID(ctx context.Context, id uuid.UUID) (*models.TillSession, error) {
	var session models.TillSession
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindSessionByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TillSession, error) {
	var session models.TillSession
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) FindOpenSessionByTill(ctx context.Context, tillID uuid.UUID) (*models.TillSession, error) {
	var session models.TillSession
	if err := r.db.WithContext(ctx).
		Where("till_id = ? AND status = ?", tillID, enums.SessionStatusOpen).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) UpdateSession(ctx context.Context, session *models.TillSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *repository) ListSessionsByTill(ctx context.Context, tillID uuid.UUID, limit int) ([]models.TillSession, error) {
	var sessions []models.TillSession
	if err := r.db.WithContext(ctx).
		Where("till_id = ?", tillID).
		Order("opened_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) CreateCashMovement(ctx context.Context, movement *models.CashMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListCashMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	var movements []models.CashMovement
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) SumCashMovements(ctx context.Context, sessionID uuid.UUID, movementType enums.CashMovementType) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.CashMovement{}).
		Where("session_id = ? AND type = ?", sessionID, movementType).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) SumCompletedCashPayments(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("session_id = ? AND method = ? AND status = ?",
			sessionID, enums.PaymentMethodCash, enums.PaymentStatusCompleted).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
