package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/catalog"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type productCreateRequest struct {
	SKU            string  `json:"sku" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	PriceCents     int64   `json:"price_cents" validate:"min=0"`
	TaxRatePercent *string `json:"tax_rate_percent"`
}

// ProductCreate registers a catalog product for the authenticated company.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			CompanyID:      companyID,
			CreatedBy:      operatorID,
			SKU:            strings.TrimSpace(payload.SKU),
			Name:           strings.TrimSpace(payload.Name),
			PriceCents:     payload.PriceCents,
			TaxRatePercent: payload.TaxRatePercent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, productResponseFromModel(product))
	}
}

// ProductDetail returns one product. Tills resolve a ?sku= lookup through
// the same handler via ProductList.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, productResponseFromModel(product))
	}
}

// ProductList lists the company's active products, or a single product when
// ?sku= is given.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if sku := strings.TrimSpace(r.URL.Query().Get("sku")); sku != "" {
			product, err := svc.FindBySKU(r.Context(), companyID, sku)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, []productResponse{productResponseFromModel(product)})
			return
		}

		products, err := svc.ListActive(r.Context(), companyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(products))
		for i := range products {
			out = append(out, productResponseFromModel(&products[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type productResponse struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	PriceCents     int64     `json:"price_cents"`
	TaxRatePercent *string   `json:"tax_rate_percent,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

func productResponseFromModel(m *models.Product) productResponse {
	return productResponse{
		ID:             m.ID,
		SKU:            m.SKU,
		Name:           m.Name,
		PriceCents:     m.PriceCents,
		TaxRatePercent: m.TaxRatePercent,
		Active:         m.Active,
		CreatedAt:      m.CreatedAt,
	}
}
