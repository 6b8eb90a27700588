package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/mark"
)

type (
	markApi struct {
		svc      *mark.Service
		validate *validator.Validate
	}

	SubmitMarksRequest struct {
		Marks []mark.NewMark `json:"marks"`
	}
)

func registerMarkAPI(g *echo.Group, svc *mark.Service, validate *validator.Validate) {
	api := markApi{svc: svc, validate: validate}

	mg := g.Group("/marks", staffMiddleware())
	mg.POST("", api.submit)
	mg.POST("/row", api.submitRow)
	mg.GET("", api.query)

	// detail endpoints
	dg := mg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *markApi) submit(ctx echo.Context) error {
	var data SubmitMarksRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitMarksRequest")
	}

	res, err := api.svc.Submit(ctx.Request().Context(), callerName(ctx), data.Marks)
	if err != nil {
		return errors.Wrap(err, "submitting marks")
	}

	code := http.StatusOK
	if len(res.Accepted) > 0 {
		code = http.StatusCreated
	}
	return ctx.JSON(code, res)
}

func (api *markApi) submitRow(ctx echo.Context) error {
	var data mark.NewMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.SubmitOne(ctx.Request().Context(), callerName(ctx), data)
	if err != nil {
		return errors.Wrap(err, "submitting mark")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *markApi) query(ctx echo.Context) error {
	qp := queryParser{ctx: ctx}
	filter := mark.QueryFilter{
		TestID:    qp.int("test_id"),
		StudentID: qp.int("student_id"),
	}
	if err := qp.err(); err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)

	marks, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *markApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	m, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting mark")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *markApi) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data mark.UpdateMark
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMark")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), id, callerName(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating mark")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *markApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting mark")
	}
	return ctx.NoContent(http.StatusNoContent)
}
