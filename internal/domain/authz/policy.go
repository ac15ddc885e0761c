// Package authz decide qué rol puede ejecutar cada operación de trazabilidad.
// Es una función pura: no depende del transporte ni de la persistencia.
package authz

import (
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// Operation operación sujeta a autorización.
type Operation string

const (
	OpCreate    Operation = "create"
	OpScan      Operation = "scan"
	OpTransfer  Operation = "transfer"
	OpHistory   Operation = "history"
	OpList      Operation = "list"
	OpListUsers Operation = "list_users"

	OpResetPassword Operation = "reset_password"
)

var policy = map[Operation][]entity.Role{
	OpCreate:    {entity.RoleAdmin},
	OpScan:      {entity.RoleAdmin, entity.RoleUser, entity.RoleAnonymous},
	OpTransfer:  {entity.RoleAdmin, entity.RoleUser},
	OpHistory:   {entity.RoleAdmin},
	OpList:      {entity.RoleAdmin},
	OpListUsers: {entity.RoleAdmin},

	OpResetPassword: {entity.RoleAdmin},
}

// CanPerform indica si role puede ejecutar op. Operaciones desconocidas se deniegan.
func CanPerform(role entity.Role, op Operation) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Check devuelve ErrUnauthenticated si el caller no tiene credencial y la operación la exige,
// o ErrForbidden si tiene credencial pero su rol no alcanza.
func Check(caller entity.Caller, op Operation) error {
	role := caller.Role
	if !caller.Authenticated() {
		role = entity.RoleAnonymous
	}
	if CanPerform(role, op) {
		return nil
	}
	if role == entity.RoleAnonymous {
		return fmt.Errorf("%w: la operación %s requiere sesión", domain.ErrUnauthenticated, op)
	}
	return fmt.Errorf("%w: el rol %s no puede ejecutar %s", domain.ErrForbidden, role, op)
}

// CanTransferFrom aplica la regla de tenencia: un user solo transfiere lo que tiene;
// un admin puede actuar en nombre de cualquier propietario.
func CanTransferFrom(caller entity.Caller, expectedOwnerID string) bool {
	if caller.Role == entity.RoleAdmin {
		return true
	}
	return caller.Authenticated() && caller.ID == expectedOwnerID
}
