package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/till"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type tillCreateRequest struct {
	Name     string  `json:"name" validate:"required"`
	Location *string `json:"location"`
}

// TillCreate registers a new till for the authenticated company.
func TillCreate(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload tillCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateTill(r.Context(), till.CreateTillInput{
			CompanyID: companyID,
			Name:      strings.TrimSpace(payload.Name),
			Location:  payload.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, tillResponseFromModel(created))
	}
}

type sessionOpenRequest struct {
	TillID              string `json:"till_id" validate:"required"`
	OpeningBalanceCents int64  `json:"opening_balance_cents" validate:"min=0"`
}

// SessionOpen opens a till session for the authenticated operator.
func SessionOpen(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sessionOpenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tillID, err := pathUUID(payload.TillID, "till_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.OpenSession(r.Context(), till.OpenSessionInput{
			CompanyID:           companyID,
			TillID:              tillID,
			OperatorID:          operatorID,
			OpeningBalanceCents: payload.OpeningBalanceCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponseFromModel(session))
	}
}

type sessionCloseRequest struct {
	ClosingBalanceCents int64   `json:"closing_balance_cents" validate:"min=0"`
	Notes               *string `json:"notes"`
}

// SessionClose closes a session with the counted drawer balance.
func SessionClose(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := pathUUID(chi.URLParam(r, "sessionId"), "session id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sessionCloseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CloseSession(r.Context(), till.CloseSessionInput{
			CompanyID:           companyID,
			SessionID:           sessionID,
			ClosedBy:            operatorID,
			ClosingBalanceCents: payload.ClosingBalanceCents,
			Notes:               payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponseFromModel(session))
	}
}

// SessionDetail returns one session with its balance summary.
func SessionDetail(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := pathUUID(chi.URLParam(r, "sessionId"), "session id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponseFromModel(session))
	}
}

// TillOpenSession returns the currently open session on a till, if any.
func TillOpenSession(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tillID, err := pathUUID(chi.URLParam(r, "tillId"), "till id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.FindOpenSession(r.Context(), tillID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponseFromModel(session))
	}
}

type cashMovementRequest struct {
	Type        string `json:"type" validate:"required,oneof=pay_in pay_out"`
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Reason      string `json:"reason" validate:"required"`
}

// SessionCashMovementCreate records a pay-in or pay-out on an open session.
func SessionCashMovementCreate(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := pathUUID(chi.URLParam(r, "sessionId"), "session id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cashMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movementType, err := enums.ParseCashMovementType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement type"))
			return
		}

		movement, err := svc.RecordCashMovement(r.Context(), till.CashMovementInput{
			CompanyID:   companyID,
			SessionID:   sessionID,
			Type:        movementType,
			AmountCents: payload.AmountCents,
			Reason:      strings.TrimSpace(payload.Reason),
			RecordedBy:  operatorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, cashMovementResponseFromModel(movement))
	}
}

// SessionCashMovements lists the movements recorded on a session.
func SessionCashMovements(svc till.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := pathUUID(chi.URLParam(r, "sessionId"), "session id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movements, err := svc.ListCashMovements(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]cashMovementResponse, 0, len(movements))
		for i := range movements {
			out = append(out, cashMovementResponseFromModel(&movements[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type tillResponse struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Location  *string   `json:"location,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func tillResponseFromModel(m *models.Till) tillResponse {
	return tillResponse{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		Name:      m.Name,
		Location:  m.Location,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
}

type sessionResponse struct {
	ID                  uuid.UUID           `json:"id"`
	CompanyID           uuid.UUID           `json:"company_id"`
	TillID              uuid.UUID           `json:"till_id"`
	OperatorID          uuid.UUID           `json:"operator_id"`
	Status              enums.SessionStatus `json:"status"`
	OpeningBalanceCents int64               `json:"opening_balance_cents"`
	ClosingBalanceCents *int64              `json:"closing_balance_cents,omitempty"`
	ExpectedCents       *int64              `json:"expected_cents,omitempty"`
	VarianceCents       *int64              `json:"variance_cents,omitempty"`
	OpenedAt            time.Time           `json:"opened_at"`
	ClosedAt            *time.Time          `json:"closed_at,omitempty"`
	ClosedBy            *uuid.UUID          `json:"closed_by,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
}

func sessionResponseFromModel(m *models.TillSession) sessionResponse {
	return sessionResponse{
		ID:                  m.ID,
		CompanyID:           m.CompanyID,
		TillID:              m.TillID,
		OperatorID:          m.OperatorID,
		Status:              m.Status,
		OpeningBalanceCents: m.OpeningBalanceCents,
		ClosingBalanceCents: m.ClosingBalanceCents,
		ExpectedCents:       m.ExpectedCents,
		VarianceCents:       m.VarianceCents,
		OpenedAt:            m.OpenedAt,
		ClosedAt:            m.ClosedAt,
		ClosedBy:            m.ClosedBy,
		Notes:               m.Notes,
	}
}

type cashMovementResponse struct {
	ID          uuid.UUID              `json:"id"`
	SessionID   uuid.UUID              `json:"session_id"`
	Type        enums.CashMovementType `json:"type"`
	AmountCents int64                  `json:"amount_cents"`
	Reason      string                 `json:"reason"`
	RecordedBy  uuid.UUID              `json:"recorded_by"`
	CreatedAt   time.Time              `json:"created_at"`
}

func cashMovementResponseFromModel(m *models.CashMovement) cashMovementResponse {
	return cashMovementResponse{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Type:        m.Type,
		AmountCents: m.AmountCents,
		Reason:      m.Reason,
		RecordedBy:  m.RecordedBy,
		CreatedAt:   m.CreatedAt,
	}
}
