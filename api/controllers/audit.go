package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

// AuditFeed pages through the company's audit trail by sequence cursor.
// Callers pass the next_cursor from the previous page as ?after=.
func AuditFeed(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		after, err := validators.ParseQueryInt64(r, "after", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, next, err := svc.List(r.Context(), companyID, after, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]auditEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, auditEntryResponseFromModel(&entries[i]))
		}
		responses.WriteSuccess(w, auditFeedResponse{Entries: out, NextCursor: next})
	}
}

// EntityAuditTrail returns every recorded transition for one entity.
func EntityAuditTrail(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, err := pathUUID(chi.URLParam(r, "entityId"), "entity id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListByEntity(r.Context(), entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]auditEntryResponse, 0, len(entries))
		for i := range entries {
			out = append(out, auditEntryResponseFromModel(&entries[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type auditFeedResponse struct {
	Entries    []auditEntryResponse `json:"entries"`
	NextCursor int64                `json:"next_cursor"`
}

type auditEntryResponse struct {
	Seq        int64             `json:"seq"`
	ID         uuid.UUID         `json:"id"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Action     enums.AuditAction `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	Before     json.RawMessage   `json:"before,omitempty"`
	After      json.RawMessage   `json:"after,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

func auditEntryResponseFromModel(m *models.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		Seq:        m.Seq,
		ID:         m.ID,
		ActorID:    m.ActorID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Before:     m.Before,
		After:      m.After,
		RecordedAt: m.CreatedAt,
	}
}
