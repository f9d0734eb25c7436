package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the top message, the
// typed code when present, the unwrap chain and any postgres diagnostics.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields := map[string]any{
		"error":       err.Error(),
		"error_chain": chain,
	}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		fields["pg_code"] = pgxErr.Code
		fields["pg_constraint"] = pgxErr.ConstraintName
		fields["pg_table"] = pgxErr.TableName
		fields["pg_message"] = pgxErr.Message
	case errors.As(err, &pqErr):
		fields["pg_code"] = string(pqErr.Code)
		fields["pg_constraint"] = pqErr.Constraint
		fields["pg_table"] = pqErr.Table
		fields["pg_message"] = pqErr.Message
	}
	return fields
}
