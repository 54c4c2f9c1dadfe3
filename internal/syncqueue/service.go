package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/pkg/config"
	"github.com/camdenretail/tillcore-backend/pkg/db"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/metrics"
)

// Service accepts offline entries and drains them through the online
// services when connectivity returns.
type Service interface {
	Enqueue(ctx context.Context, input EnqueueInput) (*EnqueueResult, error)
	Drain(ctx context.Context, companyID uuid.UUID) (*DrainResult, error)
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.SyncEntry, error)
}

type service struct {
	repo    Repository
	applier Applier
	cfg     config.SyncConfig
	metrics *metrics.DrainMetrics
}

// NewService builds a sync queue service. Metrics may be nil.
func NewService(repo Repository, applier Applier, cfg config.SyncConfig, drainMetrics *metrics.DrainMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sync repository required")
	}
	if applier == nil {
		return nil, fmt.Errorf("applier required")
	}
	if cfg.DrainBatchSize <= 0 {
		return nil, fmt.Errorf("drain batch size must be positive")
	}
	return &service{repo: repo, applier: applier, cfg: cfg, metrics: drainMetrics}, nil
}

// Enqueue stores an offline entry. Accepting never depends on the entry
// being valid; validation happens at drain time, the same way the online
// path would have validated it.
func (s *service) Enqueue(ctx context.Context, input EnqueueInput) (*EnqueueResult, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.DeviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id required")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if !input.Operation.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sync operation %q", input.Operation))
	}
	if len(input.Payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload required")
	}
	if input.SessionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session key required")
	}
	if input.Operation == enums.SyncOpRecordSale || input.Operation == enums.SyncOpAttachPayment {
		if input.SaleKey == nil || *input.SaleKey == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale key required for sale operations")
		}
	}
	if input.LocalTimestamp.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local timestamp required")
	}

	entry := &models.SyncEntry{
		ID:             uuid.New(),
		CompanyID:      input.CompanyID,
		DeviceID:       input.DeviceID,
		IdempotencyKey: input.IdempotencyKey,
		Operation:      input.Operation,
		Payload:        input.Payload,
		SessionKey:     input.SessionKey,
		SaleKey:        input.SaleKey,
		Status:         enums.SyncStatusPending,
		LocalTimestamp: input.LocalTimestamp.UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "uq_sync_entries_device_key") {
			existing, findErr := s.repo.FindByDeviceAndKey(ctx, input.DeviceID, input.IdempotencyKey)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load queued entry")
			}
			return &EnqueueResult{Entry: existing, Duplicate: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue entry")
	}
	return &EnqueueResult{Entry: entry}, nil
}

// groupState tracks why later entries of a session group must not run.
type groupState struct {
	rejected bool
	deferred bool
}

// Drain replays pending entries in recorded order. Entries sharing a
// session key form a causal chain: a rejected entry rejects its dependents,
// a transiently failing one leaves them pending for the next pass.
// Cancellation is honored between entries, never mid-entry.
func (s *service) Drain(ctx context.Context, companyID uuid.UUID) (*DrainResult, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}

	started := time.Now()
	defer func() { s.metrics.ObserveDrain(time.Since(started)) }()

	entries, err := s.repo.ListPending(ctx, companyID, s.cfg.DrainBatchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending entries")
	}

	result := &DrainResult{}
	groups := map[string]*groupState{}
	sessionByKey := map[string]uuid.UUID{}
	saleByKey := map[string]uuid.UUID{}

	var updateErrs error
	for i := range entries {
		if ctx.Err() != nil {
			break
		}
		entry := &entries[i]

		group, ok := groups[entry.SessionKey]
		if !ok {
			group = &groupState{}
			groups[entry.SessionKey] = group
		}
		if group.deferred {
			result.Deferred++
			s.metrics.IncEntry("deferred")
			continue
		}
		if group.rejected {
			updateErrs = multierr.Append(updateErrs,
				s.reject(ctx, entry, result, "earlier entry for this session was rejected"))
			continue
		}

		refs, reason, err := s.resolveRefs(ctx, entry, sessionByKey, saleByKey)
		if err != nil {
			return result, err
		}
		if reason != "" {
			group.rejected = true
			updateErrs = multierr.Append(updateErrs, s.reject(ctx, entry, result, reason))
			continue
		}

		entityID, duplicate, applyErr := s.applyWithRetry(ctx, entry, refs)
		switch {
		case applyErr == nil:
			entry.Status = enums.SyncStatusApplied
			entry.AppliedEntityID = &entityID
			entry.Attempts++
			if err := s.repo.Update(ctx, entry); err != nil {
				updateErrs = multierr.Append(updateErrs, err)
			}
			switch entry.Operation {
			case enums.SyncOpOpenSession:
				sessionByKey[entry.SessionKey] = entityID
			case enums.SyncOpRecordSale:
				if entry.SaleKey != nil {
					saleByKey[*entry.SaleKey] = entityID
				}
			}
			if duplicate {
				result.Duplicate++
				s.metrics.IncEntry("duplicate")
			} else {
				result.Applied++
				s.metrics.IncEntry("applied")
			}
			result.Outcomes = append(result.Outcomes, EntryOutcome{
				EntryID:   entry.ID,
				Status:    enums.SyncStatusApplied,
				Duplicate: duplicate,
				EntityID:  &entityID,
			})

		case pkgerrors.IsRetryable(applyErr):
			// leave pending for the next pass; dependents must wait too
			entry.Attempts++
			if err := s.repo.Update(ctx, entry); err != nil {
				updateErrs = multierr.Append(updateErrs, err)
			}
			group.deferred = true
			result.Deferred++
			s.metrics.IncEntry("deferred")
			result.Outcomes = append(result.Outcomes, EntryOutcome{
				EntryID: entry.ID,
				Status:  enums.SyncStatusPending,
				Reason:  applyErr.Error(),
			})

		default:
			group.rejected = true
			updateErrs = multierr.Append(updateErrs, s.reject(ctx, entry, result, applyErr.Error()))
		}
	}

	if updateErrs != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, updateErrs, "update drained entries")
	}
	return result, nil
}

func (s *service) applyWithRetry(ctx context.Context, entry *models.SyncEntry, refs Refs) (uuid.UUID, bool, error) {
	backoff := retry.NewExponential(s.cfg.RetryBaseDelay)
	backoff = retry.WithCappedDuration(s.cfg.RetryMaxDelay, backoff)
	backoff = retry.WithMaxRetries(s.cfg.MaxAttempts, backoff)

	var entityID uuid.UUID
	var duplicate bool
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		applyCtx, cancel := context.WithTimeout(ctx, s.cfg.ReplayTimeout)
		defer cancel()

		id, dup, err := s.applier.Apply(applyCtx, entry, refs)
		if err != nil {
			if pkgerrors.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		entityID, duplicate = id, dup
		return nil
	})
	return entityID, duplicate, err
}

// resolveRefs maps the entry's correlation keys to server IDs, consulting
// entries applied in this pass first and earlier drains second. A non-empty
// reason means the entry cannot ever resolve and must be rejected.
func (s *service) resolveRefs(
	ctx context.Context,
	entry *models.SyncEntry,
	sessionByKey map[string]uuid.UUID,
	saleByKey map[string]uuid.UUID,
) (Refs, string, error) {
	refs := Refs{}

	switch entry.Operation {
	case enums.SyncOpOpenSession:
		return refs, "", nil

	case enums.SyncOpRecordSale, enums.SyncOpCloseSession:
		id, reason, err := s.lookupSession(ctx, entry, sessionByKey)
		if err != nil || reason != "" {
			return refs, reason, err
		}
		refs.SessionID = id
		return refs, "", nil

	case enums.SyncOpAttachPayment:
		if entry.SaleKey == nil || *entry.SaleKey == "" {
			return refs, "sale key missing", nil
		}
		if id, ok := saleByKey[*entry.SaleKey]; ok {
			refs.SaleID = id
			return refs, "", nil
		}
		applied, err := s.repo.FindAppliedBySaleKey(ctx, entry.CompanyID, *entry.SaleKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return refs, fmt.Sprintf("unknown sale key %q", *entry.SaleKey), nil
			}
			return refs, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve sale key")
		}
		if applied.AppliedEntityID == nil {
			return refs, fmt.Sprintf("unknown sale key %q", *entry.SaleKey), nil
		}
		refs.SaleID = *applied.AppliedEntityID
		return refs, "", nil

	default:
		return refs, fmt.Sprintf("unknown sync operation %q", entry.Operation), nil
	}
}

func (s *service) lookupSession(ctx context.Context, entry *models.SyncEntry, sessionByKey map[string]uuid.UUID) (uuid.UUID, string, error) {
	if id, ok := sessionByKey[entry.SessionKey]; ok {
		return id, "", nil
	}
	applied, err := s.repo.FindAppliedBySessionKey(ctx, entry.CompanyID, entry.SessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Sprintf("unknown session key %q", entry.SessionKey), nil
		}
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session key")
	}
	if applied.AppliedEntityID == nil {
		return uuid.Nil, fmt.Sprintf("unknown session key %q", entry.SessionKey), nil
	}
	return *applied.AppliedEntityID, "", nil
}

func (s *service) reject(ctx context.Context, entry *models.SyncEntry, result *DrainResult, reason string) error {
	entry.Status = enums.SyncStatusRejected
	entry.RejectionReason = &reason
	entry.Attempts++
	result.Rejected++
	s.metrics.IncEntry("rejected")
	result.Outcomes = append(result.Outcomes, EntryOutcome{
		EntryID: entry.ID,
		Status:  enums.SyncStatusRejected,
		Reason:  reason,
	})
	return s.repo.Update(ctx, entry)
}

func (s *service) ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.SyncEntry, error) {
	if deviceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device id required")
	}
	if limit <= 0 || limit > s.cfg.DrainBatchSize {
		limit = s.cfg.DrainBatchSize
	}
	entries, err := s.repo.ListByDevice(ctx, deviceID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list device entries")
	}
	return entries, nil
}
