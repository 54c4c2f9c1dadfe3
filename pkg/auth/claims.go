package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/camdenretail/tillcore-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	OperatorID uuid.UUID
	CompanyID  uuid.UUID
	Role       enums.OperatorRole
	// DeviceID identifies the till device the token was issued to, when the
	// caller is a till rather than a back-office user.
	DeviceID string
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to operators and tills.
type AccessTokenClaims struct {
	OperatorID uuid.UUID          `json:"operator_id"`
	CompanyID  uuid.UUID          `json:"company_id"`
	Role       enums.OperatorRole `json:"role"`
	DeviceID   string             `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}
