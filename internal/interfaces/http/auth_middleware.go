package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/pkg/jwt"
)

// Locals keys para UserID y Role en Fiber.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// CallerResolver convierte un bearer token en Caller. Lo implementa *auth.TokenGate.
type CallerResolver interface {
	ResolveCaller(token string) (entity.Caller, error)
}

// AuthMiddleware exige un Bearer Token válido y carga UserID y Role en c.Locals.
func AuthMiddleware(gate CallerResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		return authenticate(c, gate)
	}
}

// OptionalAuth deja pasar peticiones sin Authorization como anónimas.
// Una credencial presente pero inválida se rechaza igual que en AuthMiddleware.
func OptionalAuth(gate CallerResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return authenticate(c, gate)
	}
}

func authenticate(c *fiber.Ctx, gate CallerResolver) error {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
	}
	caller, err := gate.ResolveCaller(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrMissingRole) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
	}
	c.Locals(LocalUserID, caller.ID)
	c.Locals(LocalRole, string(caller.Role))
	return c.Next()
}

// RequireRole corta con 403 si el rol del caller no está entre los permitidos.
// Debe usarse después de AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHENTICATED", Message: "sesión requerida"})
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para esta operación"})
	}
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetRole devuelve el rol del contexto o "" si la petición es anónima.
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}

// GetCaller arma el Caller de la petición; sin credencial devuelve el anónimo.
func GetCaller(c *fiber.Ctx) entity.Caller {
	id := GetUserID(c)
	role, ok := entity.ParseRole(GetRole(c))
	if id == "" || !ok {
		return entity.Anonymous()
	}
	return entity.Caller{ID: id, Role: role}
}
