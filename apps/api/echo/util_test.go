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

	"github.com/trezcool/dripfeed/apps/api/echo"
	"github.com/trezcool/dripfeed/core"
	"github.com/trezcool/dripfeed/core/course"
	"github.com/trezcool/dripfeed/fs"
	"github.com/trezcool/dripfeed/services/email"
	"github.com/trezcool/dripfeed/services/logger"
	"github.com/trezcool/dripfeed/storage/database/dummy"
	"github.com/trezcool/dripfeed/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

type testApp struct {
	conf *core.Config
	svc  *course.Service
	repo *dummydb.CourseRepository
	srv  *echoapi.Server
}

func setup(t *testing.T) testApp {
	conf := testutil.NewConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(appfs.FS, logger, true /* strict */)
	emailsvc.ResetSentMessages()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	repo := testutil.NewCourseRepository(t)
	svc := course.NewService(repo, emailsvc.NewConsoleServiceMock(conf, logger), validate, conf)

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		CourseSvc:  svc,
		Translator: translator,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return testApp{conf: conf, svc: svc, repo: repo, srv: srv}
}

func mockNow(t *testing.T, now time.Time) {
	course.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { course.NowFunc = time.Now })
}

func (app testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.srv.ServeHTTP(rec, req)
	return rec
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

func getToken(t *testing.T, conf *core.Config, userID string) string {
	claims := echoapi.NewClaims(conf, core.Person{ID: userID, Name: "User " + userID})
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
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
	t.Helper()
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
