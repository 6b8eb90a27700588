package echoapi_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/tests"
)

func Test_reportApi_monthlyAbsence(t *testing.T) {
	app := setup(t)
	admin := getToken(t, "Admin", RoleAdmin)
	teacher := getToken(t, "Teacher", RoleTeacher)

	amani := testutil.CreateStudent(t, app.students, "Amani", "amani@test.cd", "")
	body := marchallObj(t, MarkAttendanceRequest{Entries: []attendance.NewEntry{
		{StudentID: amani.ID, Date: "2025-02-03", Status: attendance.Absent},
		{StudentID: amani.ID, Date: "2025-02-10", Status: attendance.Absent},
		{StudentID: amani.ID, Date: "2025-03-01", Status: attendance.Absent},
	}})
	req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", teacher, body)
	app.serve(req, rec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("marking attendance failed: %s", rec.Body.String())
	}
	before := len(app.notifier.Sent())

	runHTTPTests(t, app, []httpTest{
		{
			name:     "admins only",
			method:   http.MethodPost,
			path:     "/v1/reports/monthly-absence",
			body:     []byte(`{"month": "2025-02"}`),
			token:    teacher,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "bad month",
			method:   http.MethodPost,
			path:     "/v1/reports/monthly-absence",
			body:     []byte(`{"month": "February"}`),
			token:    admin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"month": "must be a valid month in the format YYYY-MM"}),
		},
		{
			name:     "february",
			method:   http.MethodPost,
			path:     "/v1/reports/monthly-absence",
			body:     []byte(`{"month": "2025-02"}`),
			token:    admin,
			wantCode: http.StatusAccepted,
			wantData: marchallObj(t, MonthlyReportResponse{Month: "2025-02"}),
		},
	})

	var reports []testutil.Message
	for _, msg := range app.notifier.Sent()[before:] {
		if msg.Channel == notification.Email && strings.HasPrefix(msg.Body, "Monthly Report") {
			reports = append(reports, msg)
		}
	}
	if assert.Len(t, reports, 1) {
		assert.Equal(t, "amani@test.cd", reports[0].To)
		assert.Equal(t, "Monthly Report for Amani: Absent 2 days in February 2025.", reports[0].Body)
	}
}
