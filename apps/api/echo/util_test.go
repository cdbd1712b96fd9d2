package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
	"github.com/invigilo/invigilo/core/examconfig/convert"
	"github.com/invigilo/invigilo/core/institution"
	"github.com/invigilo/invigilo/core/user"
	emailsvc "github.com/invigilo/invigilo/services/email"
	inmemdb "github.com/invigilo/invigilo/storage/database/inmem"
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
	extra    interface{}
}

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	server Server
	db     *inmemdb.DB

	usrSvc     *user.Service
	instSvc    *institution.Service
	logSvc     *activitylog.Service
	examCfgSvc *examconfig.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	instRepo := inmemdb.NewInstitutionRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	logRepo := inmemdb.NewActivityLogRepository(db)
	nodeRepo := inmemdb.NewNodeRepository(db)
	cfgRepo := inmemdb.NewConfigurationRepository(db)
	attrRepo := inmemdb.NewAttributeRepository(db)
	valRepo := inmemdb.NewValueRepository(db)

	logger := testLogger{}
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(), logger)
	instSvc := institution.NewService(instRepo)
	logSvc := activitylog.NewService(logRepo, logger)
	examCfgSvc := examconfig.NewService(nodeRepo, cfgRepo, attrRepo, valRepo)
	convertSvc := convert.NewService(attrRepo, valRepo)
	authzSvc := authz.NewService()

	bulkSvc := entity.NewBulkService()
	bulkSvc.Register(institution.NewResolver(instRepo))
	bulkSvc.Register(user.NewResolver(usrRepo))
	bulkSvc.Register(examconfig.NewNodeResolver(nodeRepo))

	server := NewServer(&Options{
		Addr:           ":0",
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        usrSvc,
		InstSvc:        instSvc,
		LogSvc:         logSvc,
		ExamCfgSvc:     examCfgSvc,
		ConvertSvc:     convertSvc,
		AuthzSvc:       authzSvc,
		BulkSvc:        bulkSvc,
	})

	return &testEnv{
		server:     server,
		db:         db,
		usrSvc:     usrSvc,
		instSvc:    instSvc,
		logSvc:     logSvc,
		examCfgSvc: examCfgSvc,
	}
}

func (env *testEnv) createInstitution(t *testing.T, name, suffix string) institution.Institution {
	t.Helper()
	inst, err := env.instSvc.Repo().CreateNew(context.Background(), institution.Mod{Name: name, URLSuffix: suffix})
	if err != nil {
		t.Fatalf("createInstitution() failed: %v", err)
	}
	return inst
}

func (env *testEnv) createUser(t *testing.T, instID int64, name, uname, pwd string, roles []string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Repo().CreateNew(context.Background(), user.Mod{
		InstitutionID: instID,
		Name:          name,
		Username:      uname,
		Email:         uname + "@test.test",
		Roles:         roles,
		Password:      pwd,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env *testEnv) deactivateUser(t *testing.T, usr user.User) user.User {
	t.Helper()
	usr, err := env.usrSvc.Repo().SetActive(context.Background(), usr.UUID, false)
	if err != nil {
		t.Fatalf("deactivateUser() failed: %v", err)
	}
	return usr
}

func (env *testEnv) createNode(t *testing.T, instID int64, owner, name string) examconfig.Node {
	t.Helper()
	node, err := env.examCfgSvc.CreateNode(context.Background(), examconfig.NodeMod{
		InstitutionID: instID,
		Name:          name,
		Type:          examconfig.NodeTypeExamConfig,
		Status:        examconfig.StatusConstruction,
	}, owner)
	if err != nil {
		t.Fatalf("createNode() failed: %v", err)
	}
	return node
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
