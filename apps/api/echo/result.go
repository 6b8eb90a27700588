package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/result"
	"github.com/trezcool/shule/core/student"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type resultApi struct {
	agg      *result.Aggregator
	students *student.Service
}

func registerResultAPI(g *echo.Group, agg *result.Aggregator, students *student.Service) {
	api := resultApi{agg: agg, students: students}

	rg := g.Group("/tests/:id/results")
	rg.GET("", api.query, staffMiddleware())
	rg.GET("/export", api.export, staffMiddleware())
	rg.GET("/:student_id", api.retrieve, rolesMiddleware(RoleTeacher, RoleParent))
}

func (api *resultApi) query(ctx echo.Context) error {
	testID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	results, err := api.agg.ForTest(ctx.Request().Context(), testID)
	if err != nil {
		return errors.Wrap(err, "aggregating test results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) retrieve(ctx echo.Context) error {
	testID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := pathID(ctx, "student_id")
	if err != nil {
		return err
	}
	res, err := api.agg.ForStudent(ctx.Request().Context(), testID, studentID)
	if err != nil {
		return errors.Wrap(err, "aggregating student result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) export(ctx echo.Context) error {
	testID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	results, err := api.agg.ForTest(reqCtx, testID)
	if err != nil {
		return errors.Wrap(err, "aggregating test results")
	}
	ids := make([]int, len(results))
	for i, res := range results {
		ids[i] = res.StudentID
	}
	names, err := api.students.Names(reqCtx, ids...)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = result.ExportXLSX(results, names, &buf); err != nil {
		return errors.Wrap(err, "exporting results")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("test-%d-results.xlsx", testID)))
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
