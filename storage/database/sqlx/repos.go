package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

func trapNoRowsErr(err, notFound error) error {
	switch errors.Cause(err) {
	case sql.ErrNoRows:
		return notFound
	case sql.ErrConnDone:
		return core.NewShutdownError("database connection is closed")
	}
	return err
}

// orderBy renders an ORDER BY clause from the allowed columns only, ending with the primary key.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	clauses = append(clauses, "id ASC")
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// where joins AND conditions.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
