package entity

import "time"

// Role rol de quien invoca una operación.
type Role string

// Roles válidos. RoleAnonymous corresponde a una petición sin credencial.
const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleAnonymous Role = "anonymous"
)

// ParseRole convierte el claim del token en Role. Devuelve false si no es admin ni user.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleUser:
		return Role(s), true
	}
	return "", false
}

// Estados de cuenta.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa a un operador que puede custodiar productos.
type User struct {
	ID           string
	Username     string
	Name         string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Role         Role
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Caller identidad resuelta a partir de la credencial presentada.
type Caller struct {
	ID   string
	Role Role
}

// Anonymous devuelve el caller sin credencial.
func Anonymous() Caller {
	return Caller{Role: RoleAnonymous}
}

// Authenticated indica si el caller presentó una credencial válida.
func (c Caller) Authenticated() bool {
	return c.ID != "" && c.Role != RoleAnonymous && c.Role != ""
}
