package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/muelab/lessonbook/internal/engine"
)

func TestMapConflict(t *testing.T) {
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "reservations_no_slot_overlap"}
	unique := &pgconn.PgError{Code: "23505"}
	foreignKey := &pgconn.PgError{Code: "23503"}

	assert.ErrorIs(t, MapConflict(exclusion), engine.ErrConflict)
	assert.ErrorIs(t, MapConflict(unique), engine.ErrConflict)

	// Обёрнутая ошибка тоже распознаётся
	wrapped := fmt.Errorf("create reservation: %w", exclusion)
	assert.ErrorIs(t, MapConflict(wrapped), engine.ErrConflict)

	// Остальные ошибки проходят без изменений
	assert.Equal(t, error(foreignKey), MapConflict(foreignKey))
	plain := errors.New("connection reset")
	assert.Equal(t, plain, MapConflict(plain))

	assert.NoError(t, MapConflict(nil))
}
