package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/internal/payments"
	"github.com/camdenretail/tillcore-backend/internal/sales"
	"github.com/camdenretail/tillcore-backend/internal/till"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

// Applier replays one queued entry against the online services. It reports
// the server-side entity the entry resolved to and whether the effect had
// already been applied by an earlier attempt.
type Applier interface {
	Apply(ctx context.Context, entry *models.SyncEntry, refs Refs) (uuid.UUID, bool, error)
}

type serviceApplier struct {
	till     till.Service
	sales    sales.Service
	payments payments.Service
}

// NewApplier wires the drain against the same services the online API uses,
// so replayed entries pass through identical validation and audit paths.
func NewApplier(tillSvc till.Service, salesSvc sales.Service, paymentsSvc payments.Service) (Applier, error) {
	if tillSvc == nil {
		return nil, fmt.Errorf("till service required")
	}
	if salesSvc == nil {
		return nil, fmt.Errorf("sales service required")
	}
	if paymentsSvc == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &serviceApplier{till: tillSvc, sales: salesSvc, payments: paymentsSvc}, nil
}

func (a *serviceApplier) Apply(ctx context.Context, entry *models.SyncEntry, refs Refs) (uuid.UUID, bool, error) {
	switch entry.Operation {
	case enums.SyncOpOpenSession:
		return a.openSession(ctx, entry)
	case enums.SyncOpRecordSale:
		return a.recordSale(ctx, entry, refs)
	case enums.SyncOpAttachPayment:
		return a.attachPayment(ctx, entry, refs)
	case enums.SyncOpCloseSession:
		return a.closeSession(ctx, entry, refs)
	default:
		return uuid.Nil, false, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown sync operation %q", entry.Operation))
	}
}

func (a *serviceApplier) openSession(ctx context.Context, entry *models.SyncEntry) (uuid.UUID, bool, error) {
	var payload OpenSessionPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode open_session payload")
	}

	session, err := a.till.OpenSession(ctx, till.OpenSessionInput{
		CompanyID:           entry.CompanyID,
		TillID:              payload.TillID,
		OperatorID:          payload.OperatorID,
		OpeningBalanceCents: payload.OpeningBalanceCents,
	})
	if err == nil {
		return session.ID, false, nil
	}

	// a previous drain attempt (or the online path) may have opened it
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
		existing, findErr := a.till.FindOpenSession(ctx, payload.TillID)
		if findErr != nil {
			return uuid.Nil, false, err
		}
		if existing.OperatorID == payload.OperatorID {
			return existing.ID, true, nil
		}
	}
	return uuid.Nil, false, err
}

func (a *serviceApplier) recordSale(ctx context.Context, entry *models.SyncEntry, refs Refs) (uuid.UUID, bool, error) {
	var payload RecordSalePayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode record_sale payload")
	}

	result, err := a.sales.RecordSale(ctx, sales.RecordSaleInput{
		CompanyID:      entry.CompanyID,
		SessionID:      refs.SessionID,
		RecordedBy:     payload.RecordedBy,
		IdempotencyKey: entry.IdempotencyKey,
		Items:          payload.Items,
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return result.Sale.ID, result.Duplicate, nil
}

func (a *serviceApplier) attachPayment(ctx context.Context, entry *models.SyncEntry, refs Refs) (uuid.UUID, bool, error) {
	var payload AttachPaymentPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode attach_payment payload")
	}

	// offline captures without a terminal reference fall back to the entry
	// key, so a re-drained entry cannot double-pay the sale
	reference := payload.Reference
	if reference == nil || *reference == "" {
		key := entry.IdempotencyKey
		reference = &key
	}

	result, err := a.payments.AttachPayment(ctx, payments.AttachPaymentInput{
		CompanyID:   entry.CompanyID,
		SaleID:      refs.SaleID,
		Method:      payload.Method,
		AmountCents: payload.AmountCents,
		Reference:   reference,
		RecordedBy:  payload.RecordedBy,
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return result.Payment.ID, result.Duplicate, nil
}

func (a *serviceApplier) closeSession(ctx context.Context, entry *models.SyncEntry, refs Refs) (uuid.UUID, bool, error) {
	var payload CloseSessionPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode close_session payload")
	}

	session, err := a.till.CloseSession(ctx, till.CloseSessionInput{
		CompanyID:           entry.CompanyID,
		SessionID:           refs.SessionID,
		ClosedBy:            payload.ClosedBy,
		ClosingBalanceCents: payload.ClosingBalanceCents,
		Notes:               payload.Notes,
	})
	if err == nil {
		return session.ID, false, nil
	}

	// a previous drain attempt may have closed it already, but only a close
	// with the same counted drawer is the same close
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
		existing, findErr := a.till.GetSession(ctx, refs.SessionID)
		if findErr == nil && existing.Status == enums.SessionStatusClosed {
			if existing.ClosingBalanceCents != nil && *existing.ClosingBalanceCents == payload.ClosingBalanceCents {
				return existing.ID, true, nil
			}
			return uuid.Nil, false, pkgerrors.New(pkgerrors.CodeValidation,
				"session already closed with a different closing balance")
		}
	}
	return uuid.Nil, false, err
}
