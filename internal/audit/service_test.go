package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

type fakeAuditRepo struct {
	entries []models.AuditEntry
	nextSeq int64
}

func (f *fakeAuditRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAuditRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	f.nextSeq++
	entry.Seq = f.nextSeq
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListAfter(ctx context.Context, companyID uuid.UUID, afterSeq int64, limit int) ([]models.AuditEntry, error) {
	var matched []models.AuditEntry
	for _, entry := range f.entries {
		if entry.CompanyID == companyID && entry.Seq > afterSeq {
			matched = append(matched, entry)
		}
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (f *fakeAuditRepo) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]models.AuditEntry, error) {
	var matched []models.AuditEntry
	for _, entry := range f.entries {
		if entry.EntityID == entityID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (f *fakeAuditRepo) ListUnpublished(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	var matched []models.AuditEntry
	for _, entry := range f.entries {
		if entry.PublishedAt == nil {
			matched = append(matched, entry)
		}
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func (f *fakeAuditRepo) MarkPublished(ctx context.Context, seqs []int64) error {
	return nil
}

func TestRecordAssignsSequentialEntries(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	companyID := uuid.New()
	actorID := uuid.New()
	sessionID := uuid.New()

	err = svc.Record(context.Background(), nil, RecordInput{
		CompanyID:  companyID,
		ActorID:    actorID,
		Action:     enums.AuditSessionOpened,
		EntityType: "till_session",
		EntityID:   sessionID,
		After:      map[string]any{"status": "open", "opening_balance_cents": 1000},
	})
	require.NoError(t, err)

	err = svc.Record(context.Background(), nil, RecordInput{
		CompanyID:  companyID,
		ActorID:    actorID,
		Action:     enums.AuditSessionClosed,
		EntityType: "till_session",
		EntityID:   sessionID,
		Before:     map[string]any{"status": "open"},
		After:      map[string]any{"status": "closed"},
	})
	require.NoError(t, err)

	require.Len(t, repo.entries, 2)
	require.Equal(t, int64(1), repo.entries[0].Seq)
	require.Equal(t, int64(2), repo.entries[1].Seq)
	require.Nil(t, repo.entries[0].Before)
	require.NotNil(t, repo.entries[1].Before)

	var after map[string]any
	require.NoError(t, json.Unmarshal(repo.entries[0].After, &after))
	require.Equal(t, "open", after["status"])
}

func TestRecordValidation(t *testing.T) {
	svc, err := NewService(&fakeAuditRepo{})
	require.NoError(t, err)

	err = svc.Record(context.Background(), nil, RecordInput{
		ActorID:  uuid.New(),
		Action:   enums.AuditSaleRecorded,
		EntityID: uuid.New(),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRecordPassesRawSnapshotsThrough(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	raw := json.RawMessage(`{"total_cents":1350}`)
	err = svc.Record(context.Background(), nil, RecordInput{
		CompanyID:  uuid.New(),
		ActorID:    uuid.New(),
		Action:     enums.AuditSaleRecorded,
		EntityType: "sale",
		EntityID:   uuid.New(),
		After:      raw,
	})
	require.NoError(t, err)
	require.Equal(t, raw, json.RawMessage(repo.entries[0].After))
}

func TestListReturnsCursor(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	companyID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(context.Background(), nil, RecordInput{
			CompanyID:  companyID,
			ActorID:    uuid.New(),
			Action:     enums.AuditSaleRecorded,
			EntityType: "sale",
			EntityID:   uuid.New(),
			After:      map[string]any{"n": i},
		}))
	}

	entries, next, err := svc.List(context.Background(), companyID, 0, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(2), next)

	entries, next, err = svc.List(context.Background(), companyID, next, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(3), next)

	// an exhausted cursor keeps its position
	entries, next, err = svc.List(context.Background(), companyID, next, 2)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, int64(3), next)
}
