package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/mark"
)

func Test_markApi_submit(t *testing.T) {
	app := setup(t)
	teacher := getToken(t, "Mr Teacher", RoleTeacher)
	parent := getToken(t, "Parent", RoleParent)

	batch := func(marks ...mark.NewMark) []byte {
		return marchallObj(t, SubmitMarksRequest{Marks: marks})
	}
	math := mark.NewMark{StudentID: 1, TestID: 10, Subject: "Math", TotalMarks: 100, ObtainedMarks: 70}
	eng := mark.NewMark{StudentID: 1, TestID: 10, Subject: "English", TotalMarks: 50, ObtainedMarks: 20}

	runHTTPTests(t, app, []httpTest{
		{
			name:     "unauthenticated",
			method:   http.MethodPost,
			path:     "/v1/marks",
			body:     batch(math),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "parents cannot write",
			method:   http.MethodPost,
			path:     "/v1/marks",
			body:     batch(math),
			token:    parent,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:   "one invalid candidate rejects the batch",
			method: http.MethodPost,
			path:   "/v1/marks",
			body: batch(math, mark.NewMark{
				StudentID: 1, TestID: 10, Subject: "Art", TotalMarks: 10, ObtainedMarks: 11,
			}),
			token:    teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"marks[1].obtained_marks": grading.ErrObtainedRange.Error(),
			}),
		},
		{
			name:     "empty batch",
			method:   http.MethodPost,
			path:     "/v1/marks",
			body:     batch(),
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: []byte(`{"accepted": [], "skipped_subjects": [], "conflicted_subjects": []}`),
		},
	})

	marks, err := app.marks.QueryMarks(context.Background(), mark.QueryFilter{})
	assert.NoError(t, err)
	assert.Empty(t, marks, "nothing may be written by rejected batches")

	t.Run("insert if absent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", teacher, batch(math, eng))
		app.serve(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var res mark.SubmitResult
		unmarshal(t, rec, &res)
		if assert.Len(t, res.Accepted, 2) {
			assert.Equal(t, "Mr Teacher", res.Accepted[0].UpdatedBy)
			assert.Equal(t, "B", string(res.Accepted[0].Grade))
			assert.Equal(t, "70", res.Accepted[0].Percentage.String())
			assert.Equal(t, "F", string(res.Accepted[1].Grade))
		}
		assert.Empty(t, res.Skipped)

		// resubmitting skips what exists
		req, rec = newAuthRequest(http.MethodPost, "/v1/marks", teacher, batch(math, eng))
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		res = mark.SubmitResult{}
		unmarshal(t, rec, &res)
		assert.Empty(t, res.Accepted)
		assert.Equal(t, []string{"Math", "English"}, res.Skipped)
	})
}

func Test_markApi_submitRow(t *testing.T) {
	app := setup(t)
	teacher := getToken(t, "Mr Teacher", RoleTeacher)
	row := marchallObj(t, mark.NewMark{StudentID: 2, TestID: 3, Subject: "Science", TotalMarks: 40, ObtainedMarks: 36})

	req, rec := newAuthRequest(http.MethodPost, "/v1/marks/row", teacher, row)
	app.serve(req, rec)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var m mark.Mark
	unmarshal(t, rec, &m)
	assert.Equal(t, "A+", string(m.Grade))

	runHTTPTests(t, app, []httpTest{
		{
			name:     "duplicate",
			method:   http.MethodPost,
			path:     "/v1/marks/row",
			body:     row,
			token:    teacher,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: mark.ErrConflict.Error()}),
		},
		{
			name:     "missing subject",
			method:   http.MethodPost,
			path:     "/v1/marks/row",
			body:     []byte(`{"student_id": 2, "test_id": 3, "total_marks": 40, "obtained_marks": 1}`),
			token:    teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"subject": "this field is required"}),
		},
	})
}

func Test_markApi_detail(t *testing.T) {
	app := setup(t)
	admin := getToken(t, "Admin", RoleAdmin)
	teacher := getToken(t, "Ms Teacher", RoleTeacher)

	m, err := app.marks.CreateMark(context.Background(), mark.Mark{StudentID: 1, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 40})
	if err != nil {
		t.Fatalf("CreateMark() failed: %v", err)
	}
	detail := fmt.Sprintf("/v1/marks/%d", m.ID)

	t.Run("update recomputes the grade", func(t *testing.T) {
		body := marchallObj(t, mark.UpdateMark{Subject: "Math", TotalMarks: 100, ObtainedMarks: 85})
		req, rec := newAuthRequest(http.MethodPut, detail, teacher, body)
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		var got mark.Mark
		unmarshal(t, rec, &got)
		assert.Equal(t, "A", string(got.Grade))
		assert.Equal(t, "Ms Teacher", got.UpdatedBy)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     "/v1/marks/999",
			token:    admin,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: mark.ErrNotFound.Error()}),
		},
		{
			name:     "retrieve malformed id",
			method:   http.MethodGet,
			path:     "/v1/marks/abc",
			token:    admin,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "update out of range",
			method:   http.MethodPut,
			path:     detail,
			body:     marchallObj(t, mark.UpdateMark{Subject: "Math", TotalMarks: 10, ObtainedMarks: 85}),
			token:    admin,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     detail,
			token:    admin,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     detail,
			token:    admin,
			wantCode: http.StatusNotFound,
		},
	})
}

func Test_markApi_query(t *testing.T) {
	app := setup(t)
	teacher := getToken(t, "Teacher", RoleTeacher)
	ctx := context.Background()

	for _, m := range []mark.Mark{
		{StudentID: 1, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 40},
		{StudentID: 2, TestID: 1, Subject: "Math", TotalMarks: 100, ObtainedMarks: 90},
		{StudentID: 1, TestID: 2, Subject: "Math", TotalMarks: 100, ObtainedMarks: 60},
	} {
		if _, err := app.marks.CreateMark(ctx, m); err != nil {
			t.Fatalf("CreateMark() failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []int
	}{
		{name: "all", query: "", wantCode: http.StatusOK, wantIDs: []int{1, 2, 3}},
		{name: "by test", query: "?test_id=1", wantCode: http.StatusOK, wantIDs: []int{1, 2}},
		{name: "by student", query: "?student_id=1", wantCode: http.StatusOK, wantIDs: []int{1, 3}},
		{name: "by test & student", query: "?test_id=2&student_id=1", wantCode: http.StatusOK, wantIDs: []int{3}},
		{name: "ordered", query: "?ordering=-obtained_marks", wantCode: http.StatusOK, wantIDs: []int{2, 3, 1}},
		{name: "nothing", query: "?test_id=7", wantCode: http.StatusOK, wantIDs: []int{}},
		{name: "bad filter", query: "?test_id=x", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/marks"+tt.query, teacher)
			app.serve(req, rec)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantIDs == nil {
				return
			}
			var marks []mark.Mark
			unmarshal(t, rec, &marks)
			ids := make([]int, 0, len(marks))
			for _, m := range marks {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
