// Package sqlxrepos implements the domain repositories on PostgreSQL
// via sqlx.
package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
)

// notFoundErr maps the driver's empty-result error to the domain one.
func notFoundErr(err error) error {
	if err == sql.ErrNoRows {
		return entity.ErrNotFound
	}
	return err
}

// fkViolationErr maps a foreign key violation to a validation error on
// the given field, so broken references surface as bad input instead of
// a server error.
func fkViolationErr(err error, field string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "referenced entity does not exist"})
	}
	return err
}

// parseID parses a numeric model id; malformed ids read as not found.
func parseID(modelID string) (int64, error) {
	id, err := strconv.ParseInt(modelID, 10, 64)
	if err != nil {
		return 0, entity.ErrNotFound
	}
	return id, nil
}

// conditions accumulates WHERE clauses with positional placeholders.
// Clause templates receive the argument position: "name = $%d".
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, arg interface{}) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(clause, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// orderClause renders the ORDER BY clause restricted to allowed columns,
// falling back to the repo default.
func orderClause(ords []core.DBOrdering, allowed map[string]string, def string) string {
	clause := core.OrderingsToSQL(ords, allowed)
	if clause == "" {
		clause = def
	}
	return " ORDER BY " + clause
}
