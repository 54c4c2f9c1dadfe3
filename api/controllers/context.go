package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/api/middleware"
	pkgerrors "github.com/camdenretail/tillcore-backend/pkg/errors"
)

// requestActor resolves the authenticated company and operator from the
// request context. Every mutating endpoint needs both.
func requestActor(r *http.Request) (companyID, operatorID uuid.UUID, err error) {
	rawCompany := middleware.CompanyIDFromContext(r.Context())
	if rawCompany == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "company context missing")
	}
	companyID, err = uuid.Parse(rawCompany)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid company id")
	}

	rawOperator := middleware.OperatorIDFromContext(r.Context())
	if rawOperator == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator context missing")
	}
	operatorID, err = uuid.Parse(rawOperator)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operator id")
	}
	return companyID, operatorID, nil
}

// pathUUID parses a chi URL parameter as a UUID.
func pathUUID(value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
