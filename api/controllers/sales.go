package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type saleItemRequest struct {
	ProductID      *string `json:"product_id"`
	Barcode        *string `json:"barcode"`
	Description    string  `json:"description" validate:"required"`
	Quantity       int64   `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int64   `json:"unit_price_cents" validate:"min=0"`
	TaxRatePercent *string `json:"tax_rate_percent"`
}

type saleRecordRequest struct {
	SessionID      string            `json:"session_id" validate:"required"`
	IdempotencyKey string            `json:"idempotency_key" validate:"required"`
	Items          []saleItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req saleRecordRequest) toInput(companyID, operatorID uuid.UUID) (sales.RecordSaleInput, error) {
	sessionID, err := uuid.Parse(strings.TrimSpace(req.SessionID))
	if err != nil {
		return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session_id")
	}

	items := make([]sales.SaleItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		input := sales.SaleItemInput{
			Barcode:        item.Barcode,
			Description:    strings.TrimSpace(item.Description),
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TaxRatePercent: item.TaxRatePercent,
		}
		if item.ProductID != nil && *item.ProductID != "" {
			productID, err := uuid.Parse(*item.ProductID)
			if err != nil {
				return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
			}
			input.ProductID = &productID
		}
		items = append(items, input)
	}

	return sales.RecordSaleInput{
		CompanyID:      companyID,
		SessionID:      sessionID,
		RecordedBy:     operatorID,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		Items:          items,
	}, nil
}

// SaleRecord records a sale against an open session. A replay of the same
// idempotency key returns the original sale with 200 instead of 201.
func SaleRecord(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saleRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(companyID, operatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, saleResponseFromModel(result.Sale, result.Duplicate))
	}
}

type saleVoidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SaleVoid voids a sale and reverses its completed payments.
func SaleVoid(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := pathUUID(chi.URLParam(r, "saleId"), "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saleVoidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voided, err := svc.VoidSale(r.Context(), sales.VoidSaleInput{
			CompanyID: companyID,
			SaleID:    saleID,
			ActorID:   operatorID,
			Reason:    strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, saleResponseFromModel(voided, false))
	}
}

// SaleDetail returns one sale with its items and payments.
func SaleDetail(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(chi.URLParam(r, "saleId"), "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, saleResponseFromModel(sale, false))
	}
}

// SessionSales lists the sales recorded in a session.
func SessionSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := pathUUID(chi.URLParam(r, "sessionId"), "session id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBySession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]saleResponse, 0, len(list))
		for i := range list {
			out = append(out, saleResponseFromModel(&list[i], false))
		}
		responses.WriteSuccess(w, out)
	}
}

type saleItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Barcode        *string    `json:"barcode,omitempty"`
	Description    string     `json:"description"`
	Quantity       int64      `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	LineTotalCents int64      `json:"line_total_cents"`
	TaxCents       int64      `json:"tax_cents"`
}

type saleResponse struct {
	ID             uuid.UUID          `json:"id"`
	SessionID      uuid.UUID          `json:"session_id"`
	Number         string             `json:"number"`
	Status         enums.SaleStatus   `json:"status"`
	SubtotalCents  int64              `json:"subtotal_cents"`
	TaxCents       int64              `json:"tax_cents"`
	TotalCents     int64              `json:"total_cents"`
	RecordedBy     uuid.UUID          `json:"recorded_by"`
	Duplicate      bool               `json:"duplicate,omitempty"`
	VoidedAt       *time.Time         `json:"voided_at,omitempty"`
	VoidedBy       *uuid.UUID         `json:"voided_by,omitempty"`
	VoidReason     *string            `json:"void_reason,omitempty"`
	Items          []saleItemResponse `json:"items,omitempty"`
	Payments       []paymentResponse  `json:"payments,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	IdempotencyKey string             `json:"idempotency_key"`
}

func saleResponseFromModel(m *models.Sale, duplicate bool) saleResponse {
	items := make([]saleItemResponse, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, saleItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Barcode:        item.Barcode,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
			TaxCents:       item.TaxCents,
		})
	}

	payments := make([]paymentResponse, 0, len(m.Payments))
	for i := range m.Payments {
		payments = append(payments, paymentResponseFromModel(&m.Payments[i], false))
	}

	return saleResponse{
		ID:             m.ID,
		SessionID:      m.SessionID,
		Number:         sales.FormatNumber(m.Number),
		Status:         m.Status,
		SubtotalCents:  m.SubtotalCents,
		TaxCents:       m.TaxCents,
		TotalCents:     m.TotalCents,
		RecordedBy:     m.RecordedBy,
		Duplicate:      duplicate,
		VoidedAt:       m.VoidedAt,
		VoidedBy:       m.VoidedBy,
		VoidReason:     m.VoidReason,
		Items:          items,
		Payments:       payments,
		CreatedAt:      m.CreatedAt,
		IdempotencyKey: m.IdempotencyKey,
	}
}
