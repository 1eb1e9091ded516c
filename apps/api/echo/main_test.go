package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/masomo-console/apps/api/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/course"
	"github.com/trezcool/masomo-console/core/invigilation"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/database/inmem"
	"github.com/trezcool/masomo-console/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	*echoapi.Server
	conf *core.Config
	db   *inmemdb.DB

	usrRepo user.Repository
	invRepo invigilation.Repository
	crsRepo course.Repository
	prgRepo program.Repository
}

// setup returns a server backed by a freshly seeded in-memory database.
func setup(t *testing.T) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	validate, translator := testutil.NewValidator()
	db := testutil.SeededDB(t)

	app := testApp{
		conf:    conf,
		db:      db,
		usrRepo: inmemdb.NewUserRepository(db),
		invRepo: inmemdb.NewInvigilationRepository(db),
		crsRepo: inmemdb.NewCourseRepository(db),
		prgRepo: inmemdb.NewProgramRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ClearSentMessages()

	app.Server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf),
		Validate:        validate,
		Translator:      translator,
		MailSvc:         mailSvc,
		UserSvc:         user.NewService(app.usrRepo, validate, mailSvc, conf),
		InvigilationSvc: invigilation.NewService(app.invRepo, validate),
		CourseSvc:       course.NewService(app.crsRepo, validate),
		ProgramSvc:      program.NewService(app.prgRepo, validate),
	})
	return app
}

// token returns a valid token for the seeded user id.
func (app testApp) token(t *testing.T, id string) string {
	t.Helper()
	return getToken(t, app.conf, testutil.GetUser(t, app.db, id))
}

func (app testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
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
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := echoapi.GetUserClaims(conf, usr)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
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
	assert.Equal(t, tt.wantCode, rec.Code, "code")
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
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}
