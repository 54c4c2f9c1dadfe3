package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/responses"
	"github.com/camdenretail/tillcore-backend/api/validators"
	"github.com/camdenretail/tillcore-backend/internal/barcodes"
	"github.com/camdenretail/tillcore-backend/pkg/db/models"
	"github.com/camdenretail/tillcore-backend/pkg/enums"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
	"github.com/camdenretail/tillcore-backend/pkg/logger"
)

type barcodeAllocateRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// BarcodeAllocate mints the next in-store code for a product.
func BarcodeAllocate(svc barcodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload barcodeAllocateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(payload.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Allocate(r.Context(), barcodes.AssignInput{
			CompanyID:  companyID,
			ProductID:  productID,
			AssignedBy: operatorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, barcodeResponseFromModel(assignment))
	}
}

type barcodeRegisterRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Code      string `json:"code" validate:"required,numeric"`
}

// BarcodeRegister binds a supplier-issued code to a product.
func BarcodeRegister(svc barcodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, operatorID, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload barcodeRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(payload.ProductID, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.RegisterExternal(r.Context(), barcodes.AssignInput{
			CompanyID:  companyID,
			ProductID:  productID,
			AssignedBy: operatorID,
			Code:       strings.TrimSpace(payload.Code),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, barcodeResponseFromModel(assignment))
	}
}

// BarcodeLookup resolves a scanned code to its assignment.
func BarcodeLookup(svc barcodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code required"))
			return
		}

		assignment, err := svc.Lookup(r.Context(), companyID, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, barcodeResponseFromModel(assignment))
	}
}

// ProductBarcodes lists the codes bound to a product.
func ProductBarcodes(svc barcodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]barcodeResponse, 0, len(list))
		for i := range list {
			out = append(out, barcodeResponseFromModel(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type barcodeResponse struct {
	ID         uuid.UUID           `json:"id"`
	ProductID  uuid.UUID           `json:"product_id"`
	Code       string              `json:"code"`
	Source     enums.BarcodeSource `json:"source"`
	AssignedBy uuid.UUID           `json:"assigned_by"`
	CreatedAt  time.Time           `json:"created_at"`
}

func barcodeResponseFromModel(m *models.BarcodeAssignment) barcodeResponse {
	return barcodeResponse{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Code:       m.Code,
		Source:     m.Source,
		AssignedBy: m.AssignedBy,
		CreatedAt:  m.CreatedAt,
	}
}
