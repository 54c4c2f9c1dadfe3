package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/camdenretail/tillcore-backend/internal/audit"
	"github.com/camdenretail/tillcore-backend/pkg/db"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateProductInput describes a new catalog row.
type CreateProductInput struct {
	CompanyID      uuid.UUID
	CreatedBy      uuid.UUID
	SKU            string
	Name           string
	PriceCents     int64
	TaxRatePercent *string
}

// Service defines the catalog surface tills and the back office read from.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	FindBySKU(ctx context.Context, companyID uuid.UUID, sku string) (*models.Product, error)
	ListActive(ctx context.Context, companyID uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	recorder audit.Recorder
}

// NewService builds a catalog service.
func NewService(repo Repository, tx txRunner, recorder audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, recorder: recorder}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id required")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.TaxRatePercent != nil {
		if _, err := decimal.NewFromString(*input.TaxRatePercent); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rate")
		}
	}

	product := &models.Product{
		ID:             uuid.New(),
		CompanyID:      input.CompanyID,
		SKU:            sku,
		Name:           name,
		PriceCents:     input.PriceCents,
		TaxRatePercent: input.TaxRatePercent,
		Active:         true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "uq_products_company_sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %q already registered", sku))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		return s.recorder.Record(ctx, tx, audit.RecordInput{
			CompanyID:  input.CompanyID,
			ActorID:    input.CreatedBy,
			Action:     enums.AuditProductCreated,
			EntityType: "product",
			EntityID:   product.ID,
			After:      product,
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product")
	}
	return product, nil
}

func (s *service) FindBySKU(ctx context.Context, companyID uuid.UUID, sku string) (*models.Product, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	product, err := s.repo.FindBySKU(ctx, companyID, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product")
	}
	return product, nil
}

func (s *service) ListActive(ctx context.Context, companyID uuid.UUID) ([]models.Product, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id required")
	}
	products, err := s.repo.ListActive(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}
