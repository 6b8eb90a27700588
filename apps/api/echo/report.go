package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
	metricsvc "github.com/trezcool/shule/services/metrics"
)

const monthlyAbsenceJob = "monthly_absence"

type (
	// ReportRunner runs a report for the period containing asOf.
	ReportRunner interface {
		Run(ctx context.Context, asOf time.Time) error
	}

	reportApi struct {
		monthly ReportRunner
		metrics *metricsvc.Metrics
	}

	MonthlyReportRequest struct {
		Month string `json:"month"` // YYYY-MM; current month when empty
	}

	MonthlyReportResponse struct {
		Month string `json:"month"`
	}
)

func registerReportAPI(g *echo.Group, monthly ReportRunner, metrics *metricsvc.Metrics) {
	api := reportApi{monthly: monthly, metrics: metrics}

	rg := g.Group("/reports", adminMiddleware())
	rg.POST("/monthly-absence", api.monthlyAbsence)
}

func (api *reportApi) monthlyAbsence(ctx echo.Context) error {
	var data MonthlyReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MonthlyReportRequest")
	}
	asOf, err := report.ParseMonth(data.Month)
	if err != nil {
		return err
	}

	err = api.monthly.Run(ctx.Request().Context(), asOf)
	if api.metrics != nil {
		api.metrics.JobRun(monthlyAbsenceJob, err)
	}
	if err != nil {
		return errors.Wrap(err, "running monthly absence report")
	}
	return ctx.JSON(http.StatusAccepted, MonthlyReportResponse{Month: asOf.Format(report.MonthLayout)})
}
