package till

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/locks"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.RecordInput
}

func (f *fakeRecorder) Record(_ context.Context, _ *gorm.DB, input audit.RecordInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, input)
	return nil
}

func (f *fakeRecorder) actions() []enums.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]enums.AuditAction, 0, len(f.entries))
	for _, entry := range f.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type fakeRepo struct {
	mu        sync.Mutex
	tills     map[uuid.UUID]*models.Till
	sessions  map[uuid.UUID]*models.TillSession
	movements []*models.CashMovement
	cashPaid  map[uuid.UUID]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tills:    map[uuid.UUID]*models.Till{},
		sessions: map[uuid.UUID]*models.TillSession{},
		cashPaid: map[uuid.UUID]int64{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) CreateTill(_ context.Context, till *models.Till) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tills[till.ID] = till
	return nil
}

func (f *fakeRepo) FindTillByID(_ context.Context, id uuid.UUID) (*models.Till, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	till, ok := f.tills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return till, nil
}

func (f *fakeRepo) CreateSession(_ context.Context, session *models.TillSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepo) FindSessionByID(_ context.Context, id uuid.UUID) (*models.TillSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) FindSessionByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TillSession, error) {
	return f.FindSessionByID(ctx, id)
}

func (f *fakeRepo) FindOpenSessionByTill(_ context.Context, tillID uuid.UUID) (*models.TillSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.TillID == tillID && session.Status == enums.SessionStatusOpen {
			copied := *session
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) UpdateSession(_ context.Context, session *models.TillSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepo) ListSessionsByTill(_ context.Context, tillID uuid.UUID, limit int) ([]models.TillSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.TillSession
	for _, session := range f.sessions {
		if session.TillID == tillID {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

func (f *fakeRepo) CreateCashMovement(_ context.Context, movement *models.CashMovement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, movement)
	return nil
}

func (f *fakeRepo) ListCashMovements(_ context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var movements []models.CashMovement
	for _, movement := range f.movements {
		if movement.SessionID == sessionID {
			movements = append(movements, *movement)
		}
	}
	return movements, nil
}

func (f *fakeRepo) SumCashMovements(_ context.Context, sessionID uuid.UUID, movementType enums.CashMovementType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, movement := range f.movements {
		if movement.SessionID == sessionID && movement.Type == movementType {
			total += movement.AmountCents
		}
	}
	return total, nil
}

func (f *fakeRepo) SumCompletedCashPayments(_ context.Context, sessionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cashPaid[sessionID], nil
}

func newTestService(t *testing.T, repo *fakeRepo) (Service, *fakeRecorder) {
	t.Helper()
	recorder := &fakeRecorder{}
	svc, err := NewService(repo, fakeTx{}, recorder, locks.NewKeyedMutex())
	require.NoError(t, err)
	return svc, recorder
}

func seedTill(t *testing.T, repo *fakeRepo, companyID uuid.UUID) *models.Till {
	t.Helper()
	till := &models.Till{ID: uuid.New(), CompanyID: companyID, Name: "front desk", Active: true}
	require.NoError(t, repo.CreateTill(context.Background(), till))
	return till
}

func TestOpenSession(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)

	session, err := svc.OpenSession(context.Background(), OpenSessionInput{
		CompanyID:           companyID,
		TillID:              till.ID,
		OperatorID:          uuid.New(),
		OpeningBalanceCents: 10000,
	})
	require.NoError(t, err)
	require.Equal(t, enums.SessionStatusOpen, session.Status)
	require.Equal(t, int64(10000), session.OpeningBalanceCents)
	require.Equal(t, []enums.AuditAction{enums.AuditSessionOpened}, recorder.actions())
}

func TestOpenSessionRejectsSecondOpen(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)

	input := OpenSessionInput{
		CompanyID:  companyID,
		TillID:     till.ID,
		OperatorID: uuid.New(),
	}
	_, err := svc.OpenSession(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.OpenSession(context.Background(), input)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestOpenSessionConcurrentSingleWinner(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.OpenSession(context.Background(), OpenSessionInput{
				CompanyID:  companyID,
				TillID:     till.ID,
				OperatorID: uuid.New(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var appErr *pkgerrors.Error
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
	}
	require.Equal(t, 1, succeeded)
}

func TestCloseSessionComputesVariance(t *testing.T) {
	repo := newFakeRepo()
	svc, recorder := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)

	session, err := svc.OpenSession(context.Background(), OpenSessionInput{
		CompanyID:           companyID,
		TillID:              till.ID,
		OperatorID:          uuid.New(),
		OpeningBalanceCents: 1000,
	})
	require.NoError(t, err)

	repo.mu.Lock()
	repo.cashPaid[session.ID] = 350
	repo.mu.Unlock()

	notes := "ten pence short, drawer recounted twice"
	closed, err := svc.CloseSession(context.Background(), CloseSessionInput{
		CompanyID:           companyID,
		SessionID:           session.ID,
		ClosedBy:            uuid.New(),
		ClosingBalanceCents: 1340,
		Notes:               &notes,
	})
	require.NoError(t, err)
	require.Equal(t, enums.SessionStatusClosed, closed.Status)
	require.Equal(t, int64(1350), *closed.ExpectedCents)
	require.Equal(t, int64(-10), *closed.VarianceCents)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.Notes)
	require.Equal(t, notes, *closed.Notes)
	require.Equal(t,
		[]enums.AuditAction{enums.AuditSessionOpened, enums.AuditSessionClosed},
		recorder.actions())
}

func TestCloseSessionAlreadyClosed(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)

	session, err := svc.OpenSession(context.Background(), OpenSessionInput{
		CompanyID:  companyID,
		TillID:     till.ID,
		OperatorID: uuid.New(),
	})
	require.NoError(t, err)

	closeInput := CloseSessionInput{
		CompanyID: companyID,
		SessionID: session.ID,
		ClosedBy:  uuid.New(),
	}
	_, err = svc.CloseSession(context.Background(), closeInput)
	require.NoError(t, err)

	_, err = svc.CloseSession(context.Background(), closeInput)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestCashMovementsAdjustExpectedBalance(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)
	operatorID := uuid.New()

	session, err := svc.OpenSession(context.Background(), OpenSessionInput{
		CompanyID:           companyID,
		TillID:              till.ID,
		OperatorID:          operatorID,
		OpeningBalanceCents: 5000,
	})
	require.NoError(t, err)

	_, err = svc.RecordCashMovement(context.Background(), CashMovementInput{
		CompanyID:   companyID,
		SessionID:   session.ID,
		Type:        enums.CashMovementPayIn,
		AmountCents: 2000,
		Reason:      "change float",
		RecordedBy:  operatorID,
	})
	require.NoError(t, err)

	_, err = svc.RecordCashMovement(context.Background(), CashMovementInput{
		CompanyID:   companyID,
		SessionID:   session.ID,
		Type:        enums.CashMovementPayOut,
		AmountCents: 500,
		Reason:      "window cleaner",
		RecordedBy:  operatorID,
	})
	require.NoError(t, err)

	closed, err := svc.CloseSession(context.Background(), CloseSessionInput{
		CompanyID:           companyID,
		SessionID:           session.ID,
		ClosedBy:            operatorID,
		ClosingBalanceCents: 6500,
	})
	require.NoError(t, err)
	require.Equal(t, int64(6500), *closed.ExpectedCents)
	require.Equal(t, int64(0), *closed.VarianceCents)
}

func TestCashMovementRejectedOnClosedSession(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)
	companyID := uuid.New()
	till := seedTill(t, repo, companyID)
	operatorID := uuid.New()

	session, err := svc.OpenSession(context.Background(), OpenSessionInput{
		CompanyID:  companyID,
		TillID:     till.ID,
		OperatorID: operatorID,
	})
	require.NoError(t, err)

	_, err = svc.CloseSession(context.Background(), CloseSessionInput{
		CompanyID: companyID,
		SessionID: session.ID,
		ClosedBy:  operatorID,
	})
	require.NoError(t, err)

	_, err = svc.RecordCashMovement(context.Background(), CashMovementInput{
		CompanyID:   companyID,
		SessionID:   session.ID,
		Type:        enums.CashMovementPayIn,
		AmountCents: 100,
		Reason:      "late float",
		RecordedBy:  operatorID,
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestOpenSessionUnknownTill(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.OpenSession(context.Background(), OpenSessionInput{
		CompanyID:  uuid.New(),
		TillID:     uuid.New(),
		OperatorID: uuid.New(),
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
	require.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
