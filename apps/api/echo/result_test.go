package echoapi_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/result"
	"github.com/trezcool/shule/tests"
)

func seedMarks(t *testing.T, app testApp, batch ...mark.NewMark) {
	t.Helper()
	svc := mark.NewService(app.marks, app.logger)
	if _, err := svc.Submit(context.Background(), "seed", batch); err != nil {
		t.Fatalf("seedMarks() failed: %v", err)
	}
}

func Test_resultApi(t *testing.T) {
	app := setup(t)
	teacher := getToken(t, "Teacher", RoleTeacher)
	parent := getToken(t, "Parent", RoleParent)

	amani := testutil.CreateStudent(t, app.students, "Amani", "amani@test.cd", "+243810000001")
	baraka := testutil.CreateStudent(t, app.students, "Baraka", "baraka@test.cd", "+243810000002")
	seedMarks(t, app,
		mark.NewMark{StudentID: amani.ID, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 45},
		mark.NewMark{StudentID: amani.ID, TestID: 1, Subject: "English", TotalMarks: 50, ObtainedMarks: 30},
		mark.NewMark{StudentID: baraka.ID, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 95},
	)

	t.Run("test results are ranked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/1/results", teacher)
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var results []result.TestResult
		unmarshal(t, rec, &results)
		if assert.Len(t, results, 2) {
			assert.Equal(t, baraka.ID, results[0].StudentID)
			assert.Equal(t, 1, results[0].Rank)
			assert.Equal(t, "PASS 95/100", results[0].Summary)
			assert.Equal(t, amani.ID, results[1].StudentID)
			assert.Equal(t, 2, results[1].Rank)
			assert.Equal(t, "PASS 75/150", results[1].Summary)
		}
	})

	t.Run("parents read one student's result", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/1/results/1", parent)
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)

		var res result.TestResult
		unmarshal(t, rec, &res)
		assert.Equal(t, result.Pass, res.Status)
		assert.Equal(t, "50", res.Percentage.String())
		if assert.Len(t, res.Subjects, 2) {
			assert.Equal(t, result.Fail, res.Subjects[0].Status)
			assert.Equal(t, result.Pass, res.Subjects[1].Status)
		}
	})

	t.Run("export", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/tests/1/results/export", teacher)
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "test-1-results.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		if assert.NoError(t, err) {
			rows, err := f.GetRows("Results")
			assert.NoError(t, err)
			if assert.Len(t, rows, 3) {
				assert.Contains(t, rows[1], "Baraka")
				assert.Contains(t, rows[2], "Amani")
			}
		}
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "parents cannot list a whole test",
			method:   http.MethodGet,
			path:     "/v1/tests/1/results",
			token:    parent,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown test",
			method:   http.MethodGet,
			path:     "/v1/tests/2/results",
			token:    teacher,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: result.ErrNotFound.Error()}),
		},
		{
			name:     "no marks for student",
			method:   http.MethodGet,
			path:     "/v1/tests/1/results/99",
			token:    parent,
			wantCode: http.StatusNotFound,
		},
	})
}
