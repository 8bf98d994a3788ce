package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vpass/src/config"
	"vpass/src/controllers"
	"vpass/src/events"
	"vpass/src/guard"
	"vpass/src/lifecycle"
	"vpass/src/middlewares"
	"vpass/src/models"
	"vpass/src/notify"
	"vpass/src/store/memory"
	"vpass/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

const testSecret = "test-secret"

type outbox struct {
	mu   sync.Mutex
	sent []string
}

func (o *outbox) Send(_ context.Context, to, subject, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, to+"|"+subject)
	return nil
}

type TestSuite struct {
	suite.Suite
	cfg        *config.Config
	broker     *events.MemoryBroker
	dispatcher *notify.Dispatcher
	mail       *outbox
	router     *gin.Engine
	tokens     map[types.Role]string
	outsider   string
	clock      time.Time
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	registerValidators()
}

func (s *TestSuite) SetupTest() {
	s.cfg = &config.Config{APIEnv: "test", JWTSecret: testSecret, AppHost: "https://app.test", ResetTokenTTL: 15 * time.Minute}
	users := memory.NewDirectory(
		models.User{ID: 1, TenantID: 1, Name: "Ana", Email: "ana@acme.test", Role: types.ROLE_EMPLOYEE},
		models.User{ID: 2, TenantID: 1, Name: "Ben", Email: "ben@acme.test", Role: types.ROLE_APPROVER},
		models.User{ID: 3, TenantID: 1, Name: "Cy", Email: "cy@acme.test", Role: types.ROLE_SECURITY},
		models.User{ID: 4, TenantID: 1, Name: "Di", Email: "di@acme.test", Role: types.ROLE_ADMIN},
		models.User{ID: 9, TenantID: 2, Name: "Eve", Email: "eve@other.test", Role: types.ROLE_ADMIN},
	)
	outboxStore := memory.NewOutbox()
	audit := memory.NewAuditLog()
	s.broker = events.NewMemoryBroker(0)
	s.mail = &outbox{}
	publisher := events.NewPublisher(s.broker, outboxStore)
	s.clock = time.Now()
	engine := lifecycle.New(memory.NewPassStore(), users, publisher, guard.NewClaimsGuard(),
		lifecycle.WithTrail(memory.NewTrailStore()),
		lifecycle.WithClock(func() time.Time { return s.clock }),
	)
	s.dispatcher = notify.NewDispatcher(audit, s.mail)

	s.router = setupRouter(&server{
		cfg:      s.cfg,
		engine:   engine,
		audit:    audit,
		accounts: controllers.NewAccountsController(users, publisher, nil, s.cfg.AppHost, s.cfg.ResetTokenTTL),
	})

	s.tokens = map[types.Role]string{}
	for id, role := range map[uint]types.Role{1: types.ROLE_EMPLOYEE, 2: types.ROLE_APPROVER, 3: types.ROLE_SECURITY, 4: types.ROLE_ADMIN} {
		s.tokens[role] = s.sign(types.Claims{UserID: id, TenantID: 1, Role: role})
	}
	s.outsider = s.sign(types.Claims{UserID: 9, TenantID: 2, Role: types.ROLE_ADMIN})
}

func (s *TestSuite) sign(claims types.Claims) string {
	token, err := middlewares.SignToken([]byte(testSecret), claims, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *TestSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) createPass() string {
	return s.createPassAt(time.Now().Add(48 * time.Hour))
}

func (s *TestSuite) createPassAt(at time.Time) string {
	visitAt := at.Format(config.TIME_PARSE_FORMAT)
	w := s.do(http.MethodPost, apiPrefix+"/passes", s.tokens[types.ROLE_EMPLOYEE], fmt.Sprintf(`{
		"visitor_name": "Vic Visitor",
		"visitor_email": "vic@guest.test",
		"visitor_phone": "+15550100",
		"purpose": "Interview",
		"visit_date_time": %q
	}`, visitAt))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("PENDING", gjson.Get(w.Body.String(), "pass.status").String())
	s.Len(gjson.Get(w.Body.String(), "pass.pass_code").String(), 8)
	return gjson.Get(w.Body.String(), "pass.id").String()
}

func (s *TestSuite) TestHealth() {
	w := s.do(http.MethodGet, "/", "", "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *TestSuite) TestPassLifecycle() {
	id := s.createPass()

	w := s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/approve", s.tokens[types.ROLE_APPROVER], "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("APPROVED", gjson.Get(w.Body.String(), "pass.status").String())
	s.EqualValues(2, gjson.Get(w.Body.String(), "pass.approved_by").Int())

	queue, _ := events.QueueFor(events.Routes[events.TypePassApproved].RoutingKey)
	s.Equal(1, s.broker.Drain(context.Background(), queue, s.dispatcher.Handle))
	s.ElementsMatch([]string{
		"ana@acme.test|Your Visitor Pass Request has been Approved!",
		"vic@guest.test|Your Visitor Pass is Confirmed!",
	}, s.mail.sent)

	w = s.do(http.MethodGet, apiPrefix+"/passes/"+id+"/notifications", s.tokens[types.ROLE_EMPLOYEE], "")
	s.Require().Equal(http.StatusOK, w.Code)
	statuses := gjson.Get(w.Body.String(), "notifications.#.status").Array()
	s.Len(statuses, 2)
	for _, st := range statuses {
		s.Equal("SENT", st.String())
	}

	w = s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/check-in", s.tokens[types.ROLE_SECURITY], "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("CHECKED_IN", gjson.Get(w.Body.String(), "pass.status").String())

	w = s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/check-out", s.tokens[types.ROLE_SECURITY], "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("CHECKED_OUT", gjson.Get(w.Body.String(), "pass.status").String())

	w = s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/check-out", s.tokens[types.ROLE_SECURITY], "")
	s.Equal(http.StatusConflict, w.Code)
}

func (s *TestSuite) TestRejectRequiresReason() {
	id := s.createPass()

	w := s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/reject", s.tokens[types.ROLE_APPROVER], `{"reason": "  "}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/reject", s.tokens[types.ROLE_APPROVER], `{"reason": "No host available"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("REJECTED", gjson.Get(w.Body.String(), "pass.status").String())
	s.Equal("No host available", gjson.Get(w.Body.String(), "pass.rejection_reason").String())

	w = s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/approve", s.tokens[types.ROLE_APPROVER], "")
	s.Equal(http.StatusConflict, w.Code)
}

func (s *TestSuite) TestCheckInPendingPassConflicts() {
	id := s.createPass()
	w := s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/check-in", s.tokens[types.ROLE_SECURITY], "")
	s.Equal(http.StatusConflict, w.Code)
}

func (s *TestSuite) TestOtherTenantSeesNothing() {
	id := s.createPass()

	w := s.do(http.MethodGet, apiPrefix+"/passes/"+id, s.outsider, "")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/approve", s.outsider, "")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes", s.outsider, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(gjson.Get(w.Body.String(), "passes").Array())
}

func (s *TestSuite) TestLookupByCodeAndList() {
	id := s.createPass()
	w := s.do(http.MethodGet, apiPrefix+"/passes/"+id, s.tokens[types.ROLE_SECURITY], "")
	s.Require().Equal(http.StatusOK, w.Code)
	code := gjson.Get(w.Body.String(), "pass.pass_code").String()

	w = s.do(http.MethodGet, apiPrefix+"/passes/code/"+strings.ToLower(code), s.tokens[types.ROLE_SECURITY], "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(id, gjson.Get(w.Body.String(), "pass.id").String())

	w = s.do(http.MethodGet, apiPrefix+"/passes?status=PENDING", s.tokens[types.ROLE_APPROVER], "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(gjson.Get(w.Body.String(), "passes").Array(), 1)

	w = s.do(http.MethodGet, apiPrefix+"/passes?status=BOGUS", s.tokens[types.ROLE_APPROVER], "")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *TestSuite) TestListMine() {
	id := s.createPass()

	w := s.do(http.MethodGet, apiPrefix+"/passes/mine", s.tokens[types.ROLE_EMPLOYEE], "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(id, gjson.Get(w.Body.String(), "passes.0.id").String())
	s.Len(gjson.Get(w.Body.String(), "passes").Array(), 1)

	w = s.do(http.MethodGet, apiPrefix+"/passes/mine", s.tokens[types.ROLE_APPROVER], "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(gjson.Get(w.Body.String(), "passes").Array())
}

func (s *TestSuite) TestTodaysVisitors() {
	visit := time.Now().Add(time.Minute)
	s.clock = visit
	expected := s.createPassAt(visit)
	onSite := s.createPassAt(visit)
	s.createPass()
	for _, id := range []string{expected, onSite} {
		w := s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/approve", s.tokens[types.ROLE_APPROVER], "")
		s.Require().Equal(http.StatusOK, w.Code)
	}
	w := s.do(http.MethodPost, apiPrefix+"/passes/"+onSite+"/check-in", s.tokens[types.ROLE_SECURITY], "")
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes/today", s.tokens[types.ROLE_SECURITY], "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	s.Equal(expected, gjson.Get(body, "today.approved_for_entry.0.id").String())
	s.Equal(onSite, gjson.Get(body, "today.on_site.0.id").String())
	s.EqualValues(1, gjson.Get(body, "today.approved_count").Int())
	s.EqualValues(1, gjson.Get(body, "today.on_site_count").Int())

	w = s.do(http.MethodGet, apiPrefix+"/passes/today", s.tokens[types.ROLE_EMPLOYEE], "")
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes/today", s.outsider, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Zero(gjson.Get(w.Body.String(), "today.approved_count").Int())
}

func (s *TestSuite) TestHugePageIsRejected() {
	s.createPass()
	w := s.do(http.MethodGet, apiPrefix+"/passes?page=922337203685477580", s.tokens[types.ROLE_APPROVER], "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes/mine?page=922337203685477580", s.tokens[types.ROLE_EMPLOYEE], "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestRoleGates() {
	id := s.createPass()

	w := s.do(http.MethodPost, apiPrefix+"/passes/"+id+"/approve", s.tokens[types.ROLE_EMPLOYEE], "")
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, apiPrefix+"/passes", s.tokens[types.ROLE_SECURITY], `{}`)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes/"+id, "", "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *TestSuite) TestCreatePassValidation() {
	past := time.Now().Add(-time.Hour).Format(config.TIME_PARSE_FORMAT)
	w := s.do(http.MethodPost, apiPrefix+"/passes", s.tokens[types.ROLE_EMPLOYEE], fmt.Sprintf(`{
		"visitor_name": "Vic", "visitor_phone": "1", "purpose": "x", "visit_date_time": %q
	}`, past))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes/not-a-uuid", s.tokens[types.ROLE_EMPLOYEE], "")
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, apiPrefix+"/passes/"+uuid.NewString(), s.tokens[types.ROLE_EMPLOYEE], "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *TestSuite) TestCreateUser() {
	body := `{"name": "Fay", "email": "fay@acme.test", "role": "SECURITY"}`
	w := s.do(http.MethodPost, apiPrefix+"/users", s.tokens[types.ROLE_ADMIN], body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.EqualValues(1, gjson.Get(w.Body.String(), "user.tenant_id").Int())

	queue, _ := events.QueueFor(events.Routes[events.TypeUserCreated].RoutingKey)
	s.Equal(1, s.broker.Len(queue))

	w = s.do(http.MethodPost, apiPrefix+"/users", s.tokens[types.ROLE_ADMIN], body)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, apiPrefix+"/users", s.tokens[types.ROLE_APPROVER], body)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *TestSuite) TestPasswordResetWithoutRedis() {
	w := s.do(http.MethodPost, apiPrefix+"/auth/password-reset", "", `{"email": "ana@acme.test"}`)
	s.Equal(http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodPost, apiPrefix+"/auth/password-reset", "", `{"email": "not-an-email"}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	s.cfg.MaintenanceMode = true
	w := s.do(http.MethodGet, "/", "", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func TestSuiteRun(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
