package enums

import "fmt"

// OperatorRole is the role carried in an operator's access token.
type OperatorRole string

const (
	RoleOperator   OperatorRole = "operator"
	RoleSupervisor OperatorRole = "supervisor"
	RoleBackOffice OperatorRole = "back_office"
)

func (r OperatorRole) String() string {
	return string(r)
}

func (r OperatorRole) IsValid() bool {
	switch r {
	case RoleOperator, RoleSupervisor, RoleBackOffice:
		return true
	}
	return false
}

func ParseOperatorRole(value string) (OperatorRole, error) {
	role := OperatorRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid operator role %q", value)
	}
	return role, nil
}
