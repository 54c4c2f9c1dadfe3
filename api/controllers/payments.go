package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/payments"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type paymentAttachRequest struct {
	Method      string  `json:"method" validate:"required"`
	AmountCents int64   `json:"amount_cents" validate:"required,min=1"`
	Reference   *string `json:"reference"`
}

// PaymentAttach settles part of a sale. Retrying with the same reference
// returns the original payment with 200 instead of 201.
func PaymentAttach(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload paymentAttachRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(strings.TrimSpace(payload.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
			return
		}

		result, err := svc.AttachPayment(r.Context(), payments.AttachPaymentInput{
			CompanyID:   companyID,
			SaleID:      saleID,
			Method:      method,
			AmountCents: payload.AmountCents,
			Reference:   payload.Reference,
			RecordedBy:  operatorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, paymentResponseFromModel(result.Payment, result.Duplicate))
	}
}

type paymentReverseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PaymentReverse reverses a completed payment.
func PaymentReverse(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := pathUUID(chi.URLParam(r, "paymentId"), "payment id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentReverseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reversed, err := svc.ReversePayment(r.Context(), payments.ReversePaymentInput{
			CompanyID: companyID,
			PaymentID: paymentID,
			ActorID:   operatorID,
			Reason:    strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentResponseFromModel(reversed, false))
	}
}

// SalePayments lists the payments attached to a sale.
func SalePayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(chi.URLParam(r, "saleId"), "sale id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBySale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]paymentResponse, 0, len(list))
		for i := range list {
			out = append(out, paymentResponseFromModel(&list[i], false))
		}
		responses.WriteSuccess(w, out)
	}
}

type paymentResponse struct {
	ID             uuid.UUID           `json:"id"`
	SaleID         uuid.UUID           `json:"sale_id"`
	SessionID      uuid.UUID           `json:"session_id"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	AmountCents    int64               `json:"amount_cents"`
	Reference      *string             `json:"reference,omitempty"`
	RecordedBy     uuid.UUID           `json:"recorded_by"`
	Duplicate      bool                `json:"duplicate,omitempty"`
	ReversedAt     *time.Time          `json:"reversed_at,omitempty"`
	ReversedBy     *uuid.UUID          `json:"reversed_by,omitempty"`
	ReversalReason *string             `json:"reversal_reason,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func paymentResponseFromModel(m *models.Payment, duplicate bool) paymentResponse {
	return paymentResponse{
		ID:             m.ID,
		SaleID:         m.SaleID,
		SessionID:      m.SessionID,
		Method:         m.Method,
		Status:         m.Status,
		AmountCents:    m.AmountCents,
		Reference:      m.Reference,
		RecordedBy:     m.RecordedBy,
		Duplicate:      duplicate,
		ReversedAt:     m.ReversedAt,
		ReversedBy:     m.ReversedBy,
		ReversalReason: m.ReversalReason,
		CreatedAt:      m.CreatedAt,
	}
}
