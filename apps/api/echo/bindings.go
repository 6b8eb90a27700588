package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID reads a positive integer path param; anything else is a 404.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryParser collects field errors while reading optional query params.
type queryParser struct {
	ctx  echo.Context
	flds []core.FieldError
}

func (qp *queryParser) int(name string) int {
	val := qp.ctx.QueryParam(name)
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		qp.flds = append(qp.flds, core.FieldError{Field: name, Error: name + " must be a positive integer"})
		return 0
	}
	return n
}

func (qp *queryParser) date(name string) time.Time {
	val := qp.ctx.QueryParam(name)
	if val == "" {
		return time.Time{}
	}
	d, err := core.ParseDate(val)
	if err != nil {
		qp.flds = append(qp.flds, core.FieldError{Field: name, Error: "must be a valid date in the format YYYY-MM-DD"})
		return time.Time{}
	}
	return d
}

func (qp *queryParser) err() error {
	if len(qp.flds) == 0 {
		return nil
	}
	return core.NewValidationError(nil, qp.flds...)
}
