package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/inventario-lotes/internal/domain"
)

// psql builder de squirrel con placeholders $n.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isBusy reconoce esperas de bloqueo agotadas, interbloqueos y fallos de serialización.
func isBusy(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "55P03", // lock_not_available
		"40P01", // deadlock_detected
		"40001": // serialization_failure
		return true
	}
	return false
}

// wrap anota el error con la operación y lo traduce a ErrBusy cuando aplica.
func wrap(op string, err error) error {
	if isBusy(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrBusy, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
