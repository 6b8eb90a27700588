package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type (
	attendanceApi struct {
		svc        *attendance.Service
		validate   *validator.Validate
		translator ut.Translator
	}

	MarkAttendanceRequest struct {
		Entries []attendance.NewEntry `json:"entries"`
	}

	StatusResponse struct {
		StudentID int               `json:"student_id"`
		Date      string            `json:"date"`
		Status    attendance.Status `json:"status"`
	}
)

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, validate *validator.Validate, translator ut.Translator) {
	api := attendanceApi{svc: svc, validate: validate, translator: translator}

	ag := g.Group("/attendance")
	ag.POST("", api.mark, staffMiddleware())
	ag.GET("", api.query, staffMiddleware())
	ag.GET("/students/:id/status", api.latestStatus, rolesMiddleware(RoleTeacher, RoleParent))
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data MarkAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendanceRequest")
	}
	if err := attendance.ValidateBatch(api.validate, api.translator, data.Entries); err != nil {
		return err
	}

	res, err := api.svc.Mark(ctx.Request().Context(), data.Entries)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// query lists entries; from and to are inclusive calendar days.
func (api *attendanceApi) query(ctx echo.Context) error {
	qp := queryParser{ctx: ctx}
	filter := attendance.QueryFilter{
		StudentID: qp.int("student_id"),
		From:      qp.date("from"),
		To:        qp.date("to"),
	}
	if status := attendance.Status(ctx.QueryParam("status")); status != "" {
		if !status.IsValid() {
			qp.flds = append(qp.flds, core.FieldError{Field: "status", Error: "status must be one of Present, Absent or Late"})
		}
		filter.Status = status
	}
	if err := qp.err(); err != nil {
		return err
	}
	if !filter.To.IsZero() {
		filter.To = filter.To.AddDate(0, 0, 1)
	}

	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, entries)
}

// latestStatus defaults to today (UTC) when no date is given.
func (api *attendanceApi) latestStatus(ctx echo.Context) error {
	studentID, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	qp := queryParser{ctx: ctx}
	date := qp.date("date")
	if err = qp.err(); err != nil {
		return err
	}
	if date.IsZero() {
		date = attendance.NowFunc().UTC()
	}

	status, err := api.svc.LatestStatus(ctx.Request().Context(), studentID, date)
	if err != nil {
		return errors.Wrap(err, "getting latest status")
	}
	return ctx.JSON(http.StatusOK, StatusResponse{
		StudentID: studentID,
		Date:      date.Format(core.DateLayout),
		Status:    status,
	})
}
