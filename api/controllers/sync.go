package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/middleware"
	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/syncqueue"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type syncEnqueueRequest struct {
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	Operation      string          `json:"operation" validate:"required"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
	SessionKey     string          `json:"session_key" validate:"required"`
	SaleKey        *string         `json:"sale_key"`
	LocalTimestamp time.Time       `json:"local_timestamp" validate:"required"`
}

// SyncEnqueue accepts one operation a till recorded while offline. The
// device id comes from the token, not the body, so one till cannot enqueue
// under another's identity.
func SyncEnqueue(svc syncqueue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deviceID := middleware.DeviceIDFromContext(r.Context())
		if deviceID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "device context missing"))
			return
		}

		var payload syncEnqueueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		operation, err := enums.ParseSyncOperation(strings.TrimSpace(payload.Operation))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid sync operation"))
			return
		}

		result, err := svc.Enqueue(r.Context(), syncqueue.EnqueueInput{
			CompanyID:      companyID,
			DeviceID:       deviceID,
			IdempotencyKey: strings.TrimSpace(payload.IdempotencyKey),
			Operation:      operation,
			Payload:        payload.Payload,
			SessionKey:     strings.TrimSpace(payload.SessionKey),
			SaleKey:        payload.SaleKey,
			LocalTimestamp: payload.LocalTimestamp,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusAccepted
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, syncEntryResponseFromModel(result.Entry))
	}
}

// SyncDrain replays the company's pending entries against the online
// services and reports per-entry outcomes.
func SyncDrain(svc syncqueue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Drain(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SyncStatus lists the calling device's queue entries so a till can
// reconcile which offline operations landed.
func SyncStatus(svc syncqueue.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := middleware.DeviceIDFromContext(r.Context())
		if deviceID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "device context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListByDevice(r.Context(), deviceID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]syncEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, syncEntryResponseFromModel(&entries[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type syncEntryResponse struct {
	ID              uuid.UUID           `json:"id"`
	DeviceID        string              `json:"device_id"`
	IdempotencyKey  string              `json:"idempotency_key"`
	Operation       enums.SyncOperation `json:"operation"`
	SessionKey      string              `json:"session_key"`
	SaleKey         *string             `json:"sale_key,omitempty"`
	Status          enums.SyncStatus    `json:"status"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
	AppliedEntityID *uuid.UUID          `json:"applied_entity_id,omitempty"`
	Attempts        int                 `json:"attempts"`
	LocalTimestamp  time.Time           `json:"local_timestamp"`
	CreatedAt       time.Time           `json:"created_at"`
}

func syncEntryResponseFromModel(m *models.SyncEntry) syncEntryResponse {
	return syncEntryResponse{
		ID:              m.ID,
		DeviceID:        m.DeviceID,
		IdempotencyKey:  m.IdempotencyKey,
		Operation:       m.Operation,
		SessionKey:      m.SessionKey,
		SaleKey:         m.SaleKey,
		Status:          m.Status,
		RejectionReason: m.RejectionReason,
		AppliedEntityID: m.AppliedEntityID,
		Attempts:        m.Attempts,
		LocalTimestamp:  m.LocalTimestamp,
		CreatedAt:       m.CreatedAt,
	}
}
