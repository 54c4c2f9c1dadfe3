package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

// Recorder writes audit entries inside the caller's transaction so the trail
// commits or rolls back with the state change it describes.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) error
}

// Feed serves the ordered audit trail to consumers by cursor.
type Feed interface {
	List(ctx context.Context, companyID uuid.UUID, afterSeq int64, limit int) ([]models.AuditEntry, int64, error)
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]models.AuditEntry, error)
}

// RecordInput captures one auditable transition. Before and After are
// snapshots of the entity around the change; either may be nil.
type RecordInput struct {
	CompanyID  uuid.UUID
	ActorID    uuid.UUID
	Action     enums.AuditAction
	EntityType string
	EntityID   uuid.UUID
	Before     any
	After      any
}

// Service combines the write and read surfaces of the audit trail.
type Service interface {
	Recorder
	Feed
}

type service struct {
	repo Repository
}

const defaultFeedLimit = 100

// NewService wires the audit recorder and feed with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) error {
	if input.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	if input.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action required")
	}

	before, err := marshalSnapshot(input.Before)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal before snapshot")
	}
	after, err := marshalSnapshot(input.After)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal after snapshot")
	}

	entry := &models.AuditEntry{
		ID:         uuid.New(),
		CompanyID:  input.CompanyID,
		ActorID:    input.ActorID,
		Action:     input.Action,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		Before:     before,
		After:      after,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit entry")
	}
	return nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID, afterSeq int64, limit int) ([]models.AuditEntry, int64, error) {
	if companyID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if limit <= 0 || limit > defaultFeedLimit {
		limit = defaultFeedLimit
	}

	entries, err := s.repo.ListAfter(ctx, companyID, afterSeq, limit)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}

	next := afterSeq
	if len(entries) > 0 {
		next = entries[len(entries)-1].Seq
	}
	return entries, next, nil
}

func (s *service) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]models.AuditEntry, error) {
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	entries, err := s.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return entries, nil
}

func marshalSnapshot(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(value)
}
