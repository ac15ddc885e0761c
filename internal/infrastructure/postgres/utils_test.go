package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraintEventSequence})
	name, ok := uniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, constraintEventSequence, name)

	_, ok = uniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok, "foreign key no es unicidad")

	_, ok = uniqueViolation(errors.New("23505"))
	assert.False(t, ok, "solo errores tipados de PostgreSQL")
}
