package auth

import (
	"errors"
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/pkg/jwt"
)

// TokenGate resuelve un bearer token en un Caller.
type TokenGate struct {
	secret string
}

// NewTokenGate construye el gate con el secreto HS256.
func NewTokenGate(secret string) *TokenGate {
	return &TokenGate{secret: secret}
}

// ResolveCaller valida el token. Cualquier fallo es ErrUnauthenticated.
func (g *TokenGate) ResolveCaller(token string) (entity.Caller, error) {
	if token == "" {
		return entity.Anonymous(), fmt.Errorf("%w: token vacío", domain.ErrUnauthenticated)
	}
	claims, err := jwt.Parse(g.secret, token)
	if err != nil {
		if errors.Is(err, jwt.ErrMissingRole) {
			return entity.Anonymous(), fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
		}
		return entity.Anonymous(), fmt.Errorf("%w: token inválido o expirado", domain.ErrUnauthenticated)
	}
	role, ok := entity.ParseRole(claims.Role)
	if !ok {
		return entity.Anonymous(), fmt.Errorf("%w: rol %q desconocido", domain.ErrUnauthenticated, claims.Role)
	}
	return entity.Caller{ID: claims.UserID, Role: role}, nil
}
