package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/middleware"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type stubSalesService struct {
	result *sales.RecordSaleResult
	input  sales.RecordSaleInput
	called bool
}

func (s *stubSalesService) RecordSale(ctx context.Context, input sales.RecordSaleInput) (*sales.RecordSaleResult, error) {
	s.called = true
	s.input = input
	return s.result, nil
}

func (s *stubSalesService) VoidSale(ctx context.Context, input sales.VoidSaleInput) (*models.Sale, error) {
	panic("unimplemented")
}

func (s *stubSalesService) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	panic("unimplemented")
}

func (s *stubSalesService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Sale, error) {
	panic("unimplemented")
}

func TestSaleRecord(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	companyID := uuid.New()
	operatorID := uuid.New()
	sessionID := uuid.New()

	body := `{"session_id":"` + sessionID.String() + `","idempotency_key":"sale-1","items":[{"description":"Breakfast Tea 80s","quantity":1,"unit_price_cents":299}]}`

	makeRequest := func(ctx context.Context, stub *stubSalesService, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		SaleRecord(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	authedCtx := func() context.Context {
		ctx := middleware.WithCompanyID(context.Background(), companyID.String())
		return middleware.WithOperatorID(ctx, operatorID.String())
	}

	t.Run("missing company", func(t *testing.T) {
		ctx := middleware.WithOperatorID(context.Background(), operatorID.String())
		rec := makeRequest(ctx, &stubSalesService{}, body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 when company missing, got %d", rec.Code)
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec := makeRequest(authedCtx(), &stubSalesService{}, `{"items":[]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty sale, got %d", rec.Code)
		}
	})

	t.Run("created", func(t *testing.T) {
		stub := &stubSalesService{
			result: &sales.RecordSaleResult{Sale: &models.Sale{ID: uuid.New(), SessionID: sessionID, Number: 7}},
		}
		rec := makeRequest(authedCtx(), stub, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 for new sale, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"number":"S-7"`) {
			t.Fatalf("expected receipt-style sale number in body, got %s", rec.Body.String())
		}
		if !stub.called {
			t.Fatalf("expected RecordSale to be invoked")
		}
		if stub.input.CompanyID != companyID || stub.input.RecordedBy != operatorID {
			t.Fatalf("expected actor wired from context, got %+v", stub.input)
		}
		if stub.input.IdempotencyKey != "sale-1" {
			t.Fatalf("expected idempotency key passed through, got %q", stub.input.IdempotencyKey)
		}
	})

	t.Run("duplicate replays with 200", func(t *testing.T) {
		stub := &stubSalesService{
			result: &sales.RecordSaleResult{
				Sale:      &models.Sale{ID: uuid.New(), SessionID: sessionID},
				Duplicate: true,
			},
		}
		rec := makeRequest(authedCtx(), stub, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for duplicate sale, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"duplicate":true`) {
			t.Fatalf("expected duplicate flag in body, got %s", rec.Body.String())
		}
	})
}
