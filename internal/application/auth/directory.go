package auth

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ custody.OwnerDirectory = (*UserDirectory)(nil)

// UserDirectory responde si un ID corresponde a un usuario activo.
type UserDirectory struct {
	users repository.UserRepository
}

// NewUserDirectory construye el directorio sobre el repositorio de usuarios.
func NewUserDirectory(users repository.UserRepository) *UserDirectory {
	return &UserDirectory{users: users}
}

// OwnerExists implementa custody.OwnerDirectory.
func (d *UserDirectory) OwnerExists(ctx context.Context, ownerID string) (bool, error) {
	u, err := d.users.GetByID(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return u != nil && u.Status == entity.UserStatusActive, nil
}
