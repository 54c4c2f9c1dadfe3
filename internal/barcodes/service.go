package barcodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

// defaultPrefix is the GS1 restricted-circulation range reserved for
// in-store codes, so minted codes never collide with supplier EANs.
const defaultPrefix = "20"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AssignInput binds a code to a product, minted or supplier-issued.
type AssignInput struct {
	CompanyID  uuid.UUID
	ProductID  uuid.UUID
	AssignedBy uuid.UUID
	// Code is only set when registering an external code.
	Code string
}

// Service defines barcode allocation and registration.
type Service interface {
	Allocate(ctx context.Context, input AssignInput) (*models.BarcodeAssignment, error)
	RegisterExternal(ctx context.Context, input AssignInput) (*models.BarcodeAssignment, error)
	Lookup(ctx context.Context, companyID uuid.UUID, code string) (*models.BarcodeAssignment, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.BarcodeAssignment, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	recorder    audit.Recorder
	totalDigits int
}

// NewService builds a barcode service. totalDigits is the full minted code
// length including the check digit.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder, totalDigits int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("barcodes repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if totalDigits < len(defaultPrefix)+2 || totalDigits > 14 {
		return nil, fmt.Errorf("total digits %d out of range", totalDigits)
	}
	return &service{repo: repo, tx: tx, recorder: recorder, totalDigits: totalDigits}, nil
}

func (s *service) Allocate(ctx context.Context, input AssignInput) (*models.BarcodeAssignment, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.AssignedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assigning actor required")
	}

	var assignment *models.BarcodeAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		seq, err := repo.SequenceForUpdate(ctx, input.CompanyID, defaultPrefix)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load barcode sequence")
		}

		seq.Counter++
		code, err := s.mint(seq.Prefix, seq.Counter)
		if err != nil {
			return err
		}
		if err := repo.SaveSequence(ctx, seq); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance barcode sequence")
		}

		assignment = &models.BarcodeAssignment{
			ID:         uuid.New(),
			CompanyID:  input.CompanyID,
			ProductID:  input.ProductID,
			Code:       code,
			Source:     enums.BarcodeSourceGenerated,
			AssignedBy: input.AssignedBy,
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, "uq_barcode_assignments_company_code") {
				// an external registration claimed this code first; the
				// counter row stays advanced so the next mint moves past it
				return pkgerrors.New(pkgerrors.CodeConflict, "minted code already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create barcode assignment")
		}

		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  input.CompanyID,
			ActorID:    input.AssignedBy,
			Action:     enums.AuditBarcodeAssigned,
			EntityType: "barcode_assignment",
			EntityID:   assignment.ID,
			After:      assignment,
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// mint builds prefix + zero-padded counter + check digit.
func (s *service) mint(prefix string, counter int64) (string, error) {
	bodyLen := s.totalDigits - 1
	counterLen := bodyLen - len(prefix)
	counterStr := fmt.Sprintf("%0*d", counterLen, counter)
	if len(counterStr) > counterLen {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "barcode range exhausted")
	}
	body := prefix + counterStr
	check, err := CheckDigit(body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute check digit")
	}
	return body + string(check), nil
}

func (s *service) RegisterExternal(ctx context.Context, input AssignInput) (*models.BarcodeAssignment, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.AssignedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assigning actor required")
	}

	code := strings.TrimSpace(input.Code)
	switch len(code) {
	case 8, 12, 13, 14: // EAN-8, UPC-A, EAN-13, GTIN-14
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode length must be 8, 12, 13 or 14 digits")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode must be numeric")
		}
	}
	if err := Validate(code); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid barcode")
	}

	var assignment *models.BarcodeAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assignment = &models.BarcodeAssignment{
			ID:         uuid.New(),
			CompanyID:  input.CompanyID,
			ProductID:  input.ProductID,
			Code:       code,
			Source:     enums.BarcodeSourceExternal,
			AssignedBy: input.AssignedBy,
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, "uq_barcode_assignments_company_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "barcode already assigned")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create barcode assignment")
		}

		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  input.CompanyID,
			ActorID:    input.AssignedBy,
			Action:     enums.AuditBarcodeAssigned,
			EntityType: "barcode_assignment",
			EntityID:   assignment.ID,
			After:      assignment,
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) Lookup(ctx context.Context, companyID uuid.UUID, code string) (*models.BarcodeAssignment, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode required")
	}
	assignment, err := s.repo.FindByCode(ctx, companyID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "barcode not assigned")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup barcode")
	}
	return assignment, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.BarcodeAssignment, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	assignments, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list barcodes")
	}
	return assignments, nil
}
