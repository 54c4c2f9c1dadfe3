package barcodes

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries int
}

func (f *fakeRecorder) Record(_ context.Context, _ *gorm.DB, _ audit.RecordInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries++
	return nil
}

type fakeRepo struct {
	mu          sync.Mutex
	sequences   map[uuid.UUID]*models.BarcodeSequence
	assignments map[string]*models.BarcodeAssignment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sequences:   map[uuid.UUID]*models.BarcodeSequence{},
		assignments: map[string]*models.BarcodeAssignment{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) SequenceForUpdate(_ context.Context, companyID uuid.UUID, defaultPrefix string) (*models.BarcodeSequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq, ok := f.sequences[companyID]
	if !ok {
		seq = &models.BarcodeSequence{CompanyID: companyID, Prefix: defaultPrefix}
		f.sequences[companyID] = seq
	}
	copied := *seq
	return &copied, nil
}

func (f *fakeRepo) SaveSequence(_ context.Context, seq *models.BarcodeSequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *seq
	f.sequences[seq.CompanyID] = &copied
	return nil
}

func (f *fakeRepo) CreateAssignment(_ context.Context, assignment *models.BarcodeAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := assignment.CompanyID.String() + ":" + assignment.Code
	if _, exists := f.assignments[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	copied := *assignment
	f.assignments[key] = &copied
	return nil
}

func (f *fakeRepo) FindByCode(_ context.Context, companyID uuid.UUID, code string) (*models.BarcodeAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignment, ok := f.assignments[companyID.String()+":"+code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *assignment
	return &copied, nil
}

func (f *fakeRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]models.BarcodeAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BarcodeAssignment
	for _, assignment := range f.assignments {
		if assignment.ProductID == productID {
			out = append(out, *assignment)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc, err := NewService(repo, fakeTx{}, &fakeRecorder{}, 13)
	require.NoError(t, err)
	return svc, repo
}

func TestAllocateMintsValidCode(t *testing.T) {
	svc, _ := newTestService(t)
	companyID := uuid.New()

	assignment, err := svc.Allocate(context.Background(), AssignInput{
		CompanyID:  companyID,
		ProductID:  uuid.New(),
		AssignedBy: uuid.New(),
	})
	require.NoError(t, err)
	require.Len(t, assignment.Code, 13)
	require.Equal(t, "20", assignment.Code[:2])
	require.Equal(t, enums.BarcodeSourceGenerated, assignment.Source)
	require.NoError(t, Validate(assignment.Code))
}

func TestAllocateSequentialCodesDiffer(t *testing.T) {
	svc, _ := newTestService(t)
	companyID := uuid.New()

	first, err := svc.Allocate(context.Background(), AssignInput{
		CompanyID: companyID, ProductID: uuid.New(), AssignedBy: uuid.New(),
	})
	require.NoError(t, err)
	second, err := svc.Allocate(context.Background(), AssignInput{
		CompanyID: companyID, ProductID: uuid.New(), AssignedBy: uuid.New(),
	})
	require.NoError(t, err)

	require.NotEqual(t, first.Code, second.Code)
	require.Equal(t, "2000000000015", first.Code)
	require.Equal(t, "2000000000022", second.Code)
}

func TestRegisterExternal(t *testing.T) {
	svc, _ := newTestService(t)
	companyID := uuid.New()

	assignment, err := svc.RegisterExternal(context.Background(), AssignInput{
		CompanyID:  companyID,
		ProductID:  uuid.New(),
		AssignedBy: uuid.New(),
		Code:       "4006381333931",
	})
	require.NoError(t, err)
	require.Equal(t, enums.BarcodeSourceExternal, assignment.Source)

	found, err := svc.Lookup(context.Background(), companyID, "4006381333931")
	require.NoError(t, err)
	require.Equal(t, assignment.ID, found.ID)
}

func TestRegisterExternalShortCode(t *testing.T) {
	svc, _ := newTestService(t)

	assignment, err := svc.RegisterExternal(context.Background(), AssignInput{
		CompanyID:  uuid.New(),
		ProductID:  uuid.New(),
		AssignedBy: uuid.New(),
		Code:       "96385074",
	})
	require.NoError(t, err)
	require.Equal(t, enums.BarcodeSourceExternal, assignment.Source)
}

func TestRegisterExternalRejectsBadCodes(t *testing.T) {
	svc, _ := newTestService(t)
	input := AssignInput{
		CompanyID:  uuid.New(),
		ProductID:  uuid.New(),
		AssignedBy: uuid.New(),
	}

	// wrong lengths, non-digits, and wrong check digits at both full and
	// short lengths
	for _, code := range []string{"123", "123456789", "40063813339319999", "40063813339ab", "4006381333932", "96385075"} {
		input.Code = code
		_, err := svc.RegisterExternal(context.Background(), input)
		var appErr *pkgerrors.Error
		require.ErrorAs(t, err, &appErr, "code %s", code)
		require.Equal(t, pkgerrors.CodeValidation, appErr.Code(), "code %s", code)
	}
}

func TestAllocateSequenceExhausted(t *testing.T) {
	svc, repo := newTestService(t)
	companyID := uuid.New()

	// a 13-digit code with prefix "20" leaves ten counter digits
	repo.mu.Lock()
	repo.sequences[companyID] = &models.BarcodeSequence{
		CompanyID: companyID,
		Prefix:    "20",
		Counter:   9999999999,
	}
	repo.mu.Unlock()

	_, err := svc.Allocate(context.Background(), AssignInput{
		CompanyID:  companyID,
		ProductID:  uuid.New(),
		AssignedBy: uuid.New(),
	})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestRegisterExternalDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	input := AssignInput{
		CompanyID:  uuid.New(),
		ProductID:  uuid.New(),
		AssignedBy: uuid.New(),
		Code:       "4006381333931",
	}

	_, err := svc.RegisterExternal(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.RegisterExternal(context.Background(), input)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestLookupUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Lookup(context.Background(), uuid.New(), "0000000000000")
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
