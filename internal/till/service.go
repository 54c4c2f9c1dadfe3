package till

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/locks"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines till and session lifecycle operations.
type Service interface {
	CreateTill(ctx context.Context, input CreateTillInput) (*models.Till, error)
	OpenSession(ctx context.Context, input OpenSessionInput) (*models.TillSession, error)
	CloseSession(ctx context.Context, input CloseSessionInput) (*models.TillSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.TillSession, error)
	FindOpenSession(ctx context.Context, tillID uuid.UUID) (*models.TillSession, error)
	RecordCashMovement(ctx context.Context, input CashMovementInput) (*models.CashMovement, error)
	ListCashMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	recorder audit.Recorder
	sessions *locks.KeyedMutex
}

// NewService builds a till service with the required dependencies.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder, sessions *locks.KeyedMutex) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("till repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session mutex required")
	}
	return &service{repo: repo, tx: tx, recorder: recorder, sessions: sessions}, nil
}

// SessionLockKey is the keyed-mutex key serializing all writes that touch a
// session: sales, payments, cash movements and the close itself.
func SessionLockKey(sessionID uuid.UUID) string {
	return "session:" + sessionID.String()
}

func tillLockKey(tillID uuid.UUID) string {
	return "till:" + tillID.String()
}

func (s *service) CreateTill(ctx context.Context, input CreateTillInput) (*models.Till, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "till name required")
	}

	till := &models.Till{
		ID:        uuid.New(),
		CompanyID: input.CompanyID,
		Name:      input.Name,
		Location:  input.Location,
		Active:    true,
	}
	if err := s.repo.CreateTill(ctx, till); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create till")
	}
	return till, nil
}

func (s *service) OpenSession(ctx context.Context, input OpenSessionInput) (*models.TillSession, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.TillID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "till id required")
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	if input.OpeningBalanceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening balance must not be negative")
	}

	key := tillLockKey(input.TillID)
	s.sessions.Lock(key)
	defer s.sessions.Unlock(key)

	var session *models.TillSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		till, err := repo.FindTillByID(ctx, input.TillID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "till not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load till")
		}
		if till.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "till does not belong to company")
		}
		if !till.Active {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "till is inactive")
		}

		if _, err := repo.FindOpenSessionByTill(ctx, input.TillID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "till already has an open session")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open session")
		}

		session = &models.TillSession{
			ID:                  uuid.New(),
			CompanyID:           input.CompanyID,
			TillID:              input.TillID,
			OperatorID:          input.OperatorID,
			Status:              enums.SessionStatusOpen,
			OpeningBalanceCents: input.OpeningBalanceCents,
			OpenedAt:            time.Now().UTC(),
		}
		if err := repo.CreateSession(ctx, session); err != nil {
			if db.IsUniqueViolation(err, "uq_till_sessions_open_till") {
				return pkgerrors.New(pkgerrors.CodeConflict, "till already has an open session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
		}

		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  input.CompanyID,
			ActorID:    input.OperatorID,
			Action:     enums.AuditSessionOpened,
			EntityType: "till_session",
			EntityID:   session.ID,
			After:      session,
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) CloseSession(ctx context.Context, input CloseSessionInput) (*models.TillSession, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if input.ClosedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "closing actor required")
	}
	if input.ClosingBalanceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "closing balance must not be negative")
	}

	key := SessionLockKey(input.SessionID)
	s.sessions.Lock(key)
	defer s.sessions.Unlock(key)

	var session *models.TillSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.FindSessionByIDForUpdate(ctx, input.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if input.CompanyID != uuid.Nil && loaded.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "session does not belong to company")
		}
		if loaded.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session already closed")
		}

		before := *loaded

		expected, err := expectedBalance(ctx, repo, loaded)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		variance := input.ClosingBalanceCents - expected
		loaded.Status = enums.SessionStatusClosed
		loaded.ClosingBalanceCents = &input.ClosingBalanceCents
		loaded.ExpectedCents = &expected
		loaded.VarianceCents = &variance
		loaded.ClosedAt = &now
		loaded.ClosedBy = &input.ClosedBy
		loaded.Notes = input.Notes

		if err := repo.UpdateSession(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close session")
		}

		session = loaded
		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  loaded.CompanyID,
			ActorID:    input.ClosedBy,
			Action:     enums.AuditSessionClosed,
			EntityType: "till_session",
			EntityID:   loaded.ID,
			Before:     before,
			After:      loaded,
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// expectedBalance is the drawer the session should hold at close: opening
// float plus completed cash payments plus pay-ins minus pay-outs. Voided
// sales contribute nothing because their payments are reversed.
func expectedBalance(ctx context.Context, repo Repository, session *models.TillSession) (int64, error) {
	cash, err := repo.SumCompletedCashPayments(ctx, session.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum cash payments")
	}
	payIns, err := repo.SumCashMovements(ctx, session.ID, enums.CashMovementPayIn)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pay-ins")
	}
	payOuts, err := repo.SumCashMovements(ctx, session.ID, enums.CashMovementPayOut)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pay-outs")
	}
	return session.OpeningBalanceCents + cash + payIns - payOuts, nil
}

func (s *service) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.TillSession, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return session, nil
}

func (s *service) FindOpenSession(ctx context.Context, tillID uuid.UUID) (*models.TillSession, error) {
	if tillID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "till id required")
	}
	session, err := s.repo.FindOpenSessionByTill(ctx, tillID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open session for till")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open session")
	}
	return session, nil
}

func (s *service) RecordCashMovement(ctx context.Context, input CashMovementInput) (*models.CashMovement, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid cash movement type %q", input.Type))
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if input.RecordedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recording actor required")
	}

	key := SessionLockKey(input.SessionID)
	s.sessions.Lock(key)
	defer s.sessions.Unlock(key)

	var movement *models.CashMovement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		session, err := repo.FindSessionByIDForUpdate(ctx, input.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if input.CompanyID != uuid.Nil && session.CompanyID != input.CompanyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "session does not belong to company")
		}
		if session.Status != enums.SessionStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session is not open")
		}

		movement = &models.CashMovement{
			ID:          uuid.New(),
			CompanyID:   session.CompanyID,
			SessionID:   session.ID,
			Type:        input.Type,
			AmountCents: input.AmountCents,
			Reason:      input.Reason,
			RecordedBy:  input.RecordedBy,
		}
		if err := repo.CreateCashMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cash movement")
		}

		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  session.CompanyID,
			ActorID:    input.RecordedBy,
			Action:     enums.AuditCashMovement,
			EntityType: "cash_movement",
			EntityID:   movement.ID,
			After:      movement,
		})
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) ListCashMovements(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	movements, err := s.repo.ListCashMovements(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cash movements")
	}
	return movements, nil
}
