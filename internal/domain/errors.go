package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrUsernameTaken      = errors.New("el nombre de usuario ya está en uso")
	ErrInvalidCredentials = errors.New("usuario o contraseña incorrectos")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthenticated    = errors.New("se requiere un token de sesión")
	ErrForbidden          = errors.New("acceso denegado, no tiene los permisos necesarios")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrStorageFailure     = errors.New("no se pudo almacenar la evidencia")

	// ErrDuplicate y ErrStaleOwner son conflictos: KindOf los clasifica como KindConflict.
	ErrDuplicate  = errors.New("recurso duplicado")
	ErrStaleOwner = errors.New("el propietario actual cambió")

	// ErrBrokenChain indica que registro y ledger divergen: es un bug, nunca un estado válido.
	ErrBrokenChain = errors.New("cadena de custodia inconsistente")
)

// Kind clasificación estable de un error, expuesta a los clientes.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindStorageFailure  Kind = "STORAGE_FAILURE"
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindInternal        Kind = "INTERNAL"
)

// KindOf devuelve la clase estable de err (también si viene envuelto con %w).
// Cualquier error no reconocido es KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrStaleOwner), errors.Is(err, ErrUsernameTaken):
		return KindConflict
	case errors.Is(err, ErrStorageFailure):
		return KindStorageFailure
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
