package syncqueue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/camdenretail/tillcore-backend/internal/payments"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/internal/till"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

type fakeTillService struct {
	closeErr error
	session  *models.TillSession
}

func (f *fakeTillService) CreateTill(context.Context, till.CreateTillInput) (*models.Till, error) {
	panic("unimplemented")
}

func (f *fakeTillService) OpenSession(context.Context, till.OpenSessionInput) (*models.TillSession, error) {
	panic("unimplemented")
}

func (f *fakeTillService) CloseSession(_ context.Context, input till.CloseSessionInput) (*models.TillSession, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	closed := *f.session
	closed.Status = enums.SessionStatusClosed
	closed.ClosingBalanceCents = &input.ClosingBalanceCents
	return &closed, nil
}

func (f *fakeTillService) GetSession(context.Context, uuid.UUID) (*models.TillSession, error) {
	return f.session, nil
}

func (f *fakeTillService) FindOpenSession(context.Context, uuid.UUID) (*models.TillSession, error) {
	panic("unimplemented")
}

func (f *fakeTillService) RecordCashMovement(context.Context, till.CashMovementInput) (*models.CashMovement, error) {
	panic("unimplemented")
}

func (f *fakeTillService) ListCashMovements(context.Context, uuid.UUID) ([]models.CashMovement, error) {
	panic("unimplemented")
}

type fakeSalesService struct{}

func (fakeSalesService) RecordSale(context.Context, sales.RecordSaleInput) (*sales.RecordSaleResult, error) {
	panic("unimplemented")
}

func (fakeSalesService) VoidSale(context.Context, sales.VoidSaleInput) (*models.Sale, error) {
	panic("unimplemented")
}

func (fakeSalesService) GetSale(context.Context, uuid.UUID) (*models.Sale, error) {
	panic("unimplemented")
}

func (fakeSalesService) ListBySession(context.Context, uuid.UUID) ([]models.Sale, error) {
	panic("unimplemented")
}

type fakePaymentsService struct{}

func (fakePaymentsService) AttachPayment(context.Context, payments.AttachPaymentInput) (*payments.AttachPaymentResult, error) {
	panic("unimplemented")
}

func (fakePaymentsService) ReversePayment(context.Context, payments.ReversePaymentInput) (*models.Payment, error) {
	panic("unimplemented")
}

func (fakePaymentsService) ListBySale(context.Context, uuid.UUID) ([]models.Payment, error) {
	panic("unimplemented")
}

func closeSessionEntry(t *testing.T, companyID uuid.UUID, balanceCents int64) *models.SyncEntry {
	t.Helper()
	payload, err := json.Marshal(CloseSessionPayload{
		ClosedBy:            uuid.New(),
		ClosingBalanceCents: balanceCents,
	})
	require.NoError(t, err)
	return &models.SyncEntry{
		ID:             uuid.New(),
		CompanyID:      companyID,
		DeviceID:       "till-07",
		IdempotencyKey: "close-1",
		Operation:      enums.SyncOpCloseSession,
		Payload:        payload,
		SessionKey:     "sess-local-1",
		Status:         enums.SyncStatusPending,
	}
}

func TestApplyCloseSessionReplayMatchingBalance(t *testing.T) {
	sessionID := uuid.New()
	counted := int64(5000)
	tillSvc := &fakeTillService{
		closeErr: pkgerrors.New(pkgerrors.CodeStateConflict, "session already closed"),
		session: &models.TillSession{
			ID:                  sessionID,
			Status:              enums.SessionStatusClosed,
			ClosingBalanceCents: &counted,
		},
	}
	applier, err := NewApplier(tillSvc, fakeSalesService{}, fakePaymentsService{})
	require.NoError(t, err)

	entityID, duplicate, err := applier.Apply(context.Background(),
		closeSessionEntry(t, uuid.New(), 5000), Refs{SessionID: sessionID})
	require.NoError(t, err)
	require.True(t, duplicate)
	require.Equal(t, sessionID, entityID)
}

func TestApplyCloseSessionReplayConflictingBalance(t *testing.T) {
	sessionID := uuid.New()
	counted := int64(5000)
	tillSvc := &fakeTillService{
		closeErr: pkgerrors.New(pkgerrors.CodeStateConflict, "session already closed"),
		session: &models.TillSession{
			ID:                  sessionID,
			Status:              enums.SessionStatusClosed,
			ClosingBalanceCents: &counted,
		},
	}
	applier, err := NewApplier(tillSvc, fakeSalesService{}, fakePaymentsService{})
	require.NoError(t, err)

	// the till counted a different drawer than the close already recorded,
	// so the entry must surface instead of vanishing as a duplicate
	_, _, err = applier.Apply(context.Background(),
		closeSessionEntry(t, uuid.New(), 4000), Refs{SessionID: sessionID})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestApplyCloseSessionFirstTime(t *testing.T) {
	sessionID := uuid.New()
	tillSvc := &fakeTillService{session: &models.TillSession{ID: sessionID, Status: enums.SessionStatusOpen}}
	applier, err := NewApplier(tillSvc, fakeSalesService{}, fakePaymentsService{})
	require.NoError(t, err)

	entityID, duplicate, err := applier.Apply(context.Background(),
		closeSessionEntry(t, uuid.New(), 5000), Refs{SessionID: sessionID})
	require.NoError(t, err)
	require.False(t, duplicate)
	require.Equal(t, sessionID, entityID)
}
