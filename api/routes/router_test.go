package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/internal/barcodes"
	"github.com/camdenretail/tillcore-backend/internal/catalog"
	"github.com/camdenretail/tillcore-backend/internal/payments"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/internal/syncqueue"
	"github.com/camdenretail/tillcore-backend/internal/till"
	pkgauth "github.com/camdenretail/tillcore-backend/pkg/auth"
	"github.com/camdenretail/tillcore-backend/pkg/config"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
	"github.com/camdenretail/tillcore-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubTillService struct{}

func (stubTillService) CreateTill(ctx context.Context, input till.CreateTillInput) (*models.Till, error) {
	panic("unimplemented")
}

func (stubTillService) OpenSession(ctx context.Context, input till.OpenSessionInput) (*models.TillSession, error) {
	panic("unimplemented")
}

func (stubTillService) CloseSession(ctx context.Context, input till.CloseSessionInput) (*models.TillSession, error) {
	panic("unimplemented")
}

func (stubTillService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.TillSession, error) {
	return &models.TillSession{ID: sessionID, Status: enums.SessionStatusOpen}, nil
}

func (stubTillService) FindOpenSession(ctx context.Context, tillID uuid.UUID) (*models.TillSession, error) {
	return &models.TillSession{TillID: tillID, Status: enums.SessionStatusOpen}, nil
}

func (stubTillService) RecordCashMovement(ctx context.Context, input till.CashMovementInput) (*models.CashMovement, error) {
	panic("unimplemented")
}

func (stubTillService) ListCashMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	return nil, nil
}

type stubSalesService struct{}

func (stubSalesService) RecordSale(ctx context.Context, input sales.RecordSaleInput) (*sales.RecordSaleResult, error) {
	panic("unimplemented")
}

func (stubSalesService) VoidSale(ctx context.Context, input sales.VoidSaleInput) (*models.Sale, error) {
	panic("unimplemented")
}

func (stubSalesService) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	return &models.Sale{ID: saleID}, nil
}

func (stubSalesService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error) {
	return nil, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) AttachPayment(ctx context.Context, input payments.AttachPaymentInput) (*payments.AttachPaymentResult, error) {
	panic("unimplemented")
}

func (stubPaymentsService) ReversePayment(ctx context.Context, input payments.ReversePaymentInput) (*models.Payment, error) {
	panic("unimplemented")
}

func (stubPaymentsService) ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

type stubBarcodeService struct{}

func (stubBarcodeService) Allocate(ctx context.Context, input barcodes.AssignInput) (*models.BarcodeAssignment, error) {
	panic("unimplemented")
}

func (stubBarcodeService) RegisterExternal(ctx context.Context, input barcodes.AssignInput) (*models.BarcodeAssignment, error) {
	panic("unimplemented")
}

func (stubBarcodeService) Lookup(ctx context.Context, companyID uuid.UUID, code string) (*models.BarcodeAssignment, error) {
	return &models.BarcodeAssignment{CompanyID: companyID, Code: code}, nil
}

func (stubBarcodeService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.BarcodeAssignment, error) {
	return nil, nil
}

type stubCatalogService struct{}

func (stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*models.Product, error) {
	panic("unimplemented")
}

func (stubCatalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	return &models.Product{ID: productID}, nil
}

func (stubCatalogService) FindBySKU(ctx context.Context, companyID uuid.UUID, sku string) (*models.Product, error) {
	return &models.Product{CompanyID: companyID, SKU: sku}, nil
}

func (stubCatalogService) ListActive(ctx context.Context, companyID uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

type stubSyncService struct{}

func (stubSyncService) Enqueue(ctx context.Context, input syncqueue.EnqueueInput) (*syncqueue.EnqueueResult, error) {
	panic("unimplemented")
}

func (stubSyncService) Drain(ctx context.Context, companyID uuid.UUID) (*syncqueue.DrainResult, error) {
	return &syncqueue.DrainResult{}, nil
}

func (stubSyncService) ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.SyncEntry, error) {
	return nil, nil
}

type stubAuditService struct{}

func (stubAuditService) Record(ctx context.Context, tx *gorm.DB, input audit.RecordInput) error {
	return nil
}

func (stubAuditService) List(ctx context.Context, companyID uuid.UUID, afterSeq int64, limit int) ([]models.AuditEntry, int64, error) {
	return nil, afterSeq, nil
}

func (stubAuditService) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]models.AuditEntry, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubTillService{},
		stubSalesService{},
		stubPaymentsService{},
		stubBarcodeService{},
		stubCatalogService{},
		stubSyncService{},
		stubAuditService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.OperatorRole, deviceID string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		OperatorID: uuid.New(),
		CompanyID:  uuid.New(),
		Role:       role,
		DeviceID:   deviceID,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for live probe got %d", resp.Code)
	}
}

func TestAPIGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAPIGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleOperator, "till-7"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestAuditFeedRequiresBackOfficeRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	operator := httptest.NewRequest(http.MethodGet, "/api/v1/audit/feed", nil)
	operator.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleOperator, ""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, operator)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator got %d", resp.Code)
	}

	backOffice := httptest.NewRequest(http.MethodGet, "/api/v1/audit/feed", nil)
	backOffice.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleBackOffice, ""))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, backOffice)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for back office got %d", resp.Code)
	}
}

func TestSyncStatusRequiresDeviceToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	noDevice := httptest.NewRequest(http.MethodGet, "/api/v1/sync/entries", nil)
	noDevice.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleOperator, ""))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, noDevice)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without device claim got %d", resp.Code)
	}

	withDevice := httptest.NewRequest(http.MethodGet, "/api/v1/sync/entries", nil)
	withDevice.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleOperator, "till-7"))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, withDevice)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with device claim got %d", resp.Code)
	}
}

func TestBarcodeLookupRoutes(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/barcodes/2000000000015", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleOperator, "till-7"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for barcode lookup got %d", resp.Code)
	}
}
