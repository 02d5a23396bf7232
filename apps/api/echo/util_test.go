package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
	emailsvc "github.com/philosothon/philosothon/services/email"
	inmemdb "github.com/philosothon/philosothon/storage/database/inmem"
)

const testPassword = "Gr3at-Thinker"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	app    Server
	auth   *tokenAuth
	users  *user.Service
	regSvc *registration.Service
	mail   *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, nopLogger{})

	// set up DB & services
	db := inmemdb.Open()
	users := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf, validate)
	regs := inmemdb.NewRegistrationRepository(db)

	catalog, err := registration.NewCatalog([]registration.Question{
		{ID: "program", Label: "Program", Kind: registration.KindText, Required: true},
		{ID: "newsletter", Label: "Newsletter", Kind: registration.KindBoolean},
	})
	require.NoError(t, err)
	wizard, err := registration.NewWizard(catalog, registration.NewAdapter(inmemdb.NewProgressStore(db), users, regs, mailSvc))
	require.NoError(t, err)
	regSvc := registration.NewService(wizard, inmemdb.NewSessionStore(db), regs, nopLogger{})

	// set up server
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		UserSvc:        users,
		RegSvc:         regSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return testEnv{
		app:    app,
		auth:   newTokenAuth(conf),
		users:  users,
		regSvc: regSvc,
		mail:   mailSvc,
	}
}

func (env testEnv) createUser(t *testing.T, email string, confirmed bool, roles ...string) user.User {
	t.Helper()
	usr, err := env.users.Create(context.Background(), user.NewUser{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           email,
		Password:        testPassword,
		PasswordConfirm: testPassword,
		Roles:           roles,
		Confirmed:       confirmed,
	})
	require.NoError(t, err)
	return usr
}

func (env testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := env.auth.generateToken(env.auth.userClaims(usr))
	require.NoError(t, err, "getToken()")
	return token
}

// serve runs the request against the server
func (env testEnv) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
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

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
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

func runHTTPTests(t *testing.T, env testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, env.serve(method, tt.path, tt.token, tt.body))
		})
	}
}
