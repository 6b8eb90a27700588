package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/mark"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/result"
	"github.com/trezcool/shule/core/student"
	metricsvc "github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

const secretKey = "test-secret"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server   *Server
	students student.Repository
	marks    mark.Repository
	notifier *testutil.Notifier
	logger   *testutil.Logger
	metrics  *metricsvc.Metrics
}

// setup wires the API on an in-memory store; notifications are delivered synchronously.
func setup(t *testing.T) testApp {
	t.Helper()
	conf := &core.Config{AppName: "Shule", Env: "TEST", TestMode: true}
	conf.Server.SecretKey = secretKey

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	db := inmemdb.Open()
	studentRepo := inmemdb.NewStudentRepository(db)
	markRepo := inmemdb.NewMarkRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)

	logger := testutil.NewLogger()
	notifier := testutil.NewNotifier()
	metrics := metricsvc.New(nil)
	dispatcher := notification.NewDispatcher(notifier, time.Second, logger, notification.WithMetrics(metrics))

	app := testApp{
		students: studentRepo,
		marks:    markRepo,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
	app.server = NewServer(conf, Deps{
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Metrics:    metrics,
		Students:   student.NewService(studentRepo),
		Marks:      mark.NewService(markRepo, logger),
		Results:    result.NewAggregator(markRepo),
		Attendance: attendance.NewService(attRepo, attendance.NewNotifier(studentRepo, logger).WithMetrics(metrics), dispatcher),
		Reports:    report.NewMonthlyAbsence(attRepo, studentRepo, dispatcher, time.UTC, logger),
	})
	return app
}

func (app testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	app.server.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, name string, roles ...string) string {
	claims := NewClaims("Shule", "ext-"+name, name, time.Hour, roles...)
	token, err := GenerateToken(claims, secretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
