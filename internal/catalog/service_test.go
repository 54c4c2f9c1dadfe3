package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
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
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[uuid.UUID]*models.Product{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products {
		if existing.CompanyID == product.CompanyID && existing.SKU == product.SKU {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *product
	f.products[product.ID] = &copied
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (f *fakeRepo) FindBySKU(_ context.Context, companyID uuid.UUID, sku string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, product := range f.products {
		if product.CompanyID == companyID && product.SKU == sku {
			copied := *product
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListActive(_ context.Context, companyID uuid.UUID) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, product := range f.products {
		if product.CompanyID == companyID && product.Active {
			out = append(out, *product)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (Service, *fakeRecorder) {
	t.Helper()
	recorder := &fakeRecorder{}
	svc, err := NewService(newFakeRepo(), fakeTx{}, recorder)
	require.NoError(t, err)
	return svc, recorder
}

func TestCreateProduct(t *testing.T) {
	svc, recorder := newTestService(t)
	companyID := uuid.New()

	rate := "20"
	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		CompanyID:      companyID,
		CreatedBy:      uuid.New(),
		SKU:            "TEA-001",
		Name:           "Breakfast Tea 80s",
		PriceCents:     299,
		TaxRatePercent: &rate,
	})
	require.NoError(t, err)
	require.True(t, product.Active)
	require.Equal(t, 1, recorder.entries)

	found, err := svc.FindBySKU(context.Background(), companyID, "TEA-001")
	require.NoError(t, err)
	require.Equal(t, product.ID, found.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	badRate := "twenty"

	cases := []CreateProductInput{
		{CreatedBy: uuid.New(), SKU: "A", Name: "A", PriceCents: 1},
		{CompanyID: uuid.New(), SKU: "A", Name: "A", PriceCents: 1},
		{CompanyID: uuid.New(), CreatedBy: uuid.New(), Name: "A", PriceCents: 1},
		{CompanyID: uuid.New(), CreatedBy: uuid.New(), SKU: "A", PriceCents: 1},
		{CompanyID: uuid.New(), CreatedBy: uuid.New(), SKU: "A", Name: "A", PriceCents: -1},
		{CompanyID: uuid.New(), CreatedBy: uuid.New(), SKU: "A", Name: "A", PriceCents: 1, TaxRatePercent: &badRate},
	}
	for i, input := range cases {
		_, err := svc.CreateProduct(context.Background(), input)
		var appErr *pkgerrors.Error
		require.ErrorAs(t, err, &appErr, "case %d", i)
		require.Equal(t, pkgerrors.CodeValidation, appErr.Code(), "case %d", i)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	input := CreateProductInput{
		CompanyID:  uuid.New(),
		CreatedBy:  uuid.New(),
		SKU:        "TEA-001",
		Name:       "Breakfast Tea 80s",
		PriceCents: 299,
	}

	_, err := svc.CreateProduct(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), input)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestListActiveScopedToCompany(t *testing.T) {
	svc, _ := newTestService(t)
	companyID := uuid.New()

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		CompanyID: companyID, CreatedBy: uuid.New(), SKU: "A-1", Name: "One", PriceCents: 100,
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		CompanyID: uuid.New(), CreatedBy: uuid.New(), SKU: "B-1", Name: "Other", PriceCents: 100,
	})
	require.NoError(t, err)

	products, err := svc.ListActive(context.Background(), companyID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "A-1", products[0].SKU)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetProduct(context.Background(), uuid.New())
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
