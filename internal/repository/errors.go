package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/muelab/lessonbook/internal/engine"
)

// Коды SQLSTATE которыми Postgres сообщает о нарушении инварианта
// непересечения: exclusion constraint и уникальный индекс
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// MapConflict переводит нарушение constraint'а в engine.ErrConflict,
// чтобы вызывающие могли перегенерировать кандидатов вместо слепого ретрая
func MapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation {
			return engine.ErrConflict
		}
	}
	return err
}
