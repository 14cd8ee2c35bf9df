package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/config"
	httpmiddleware "github.com/gestaozabele/clinica/internal/http/middleware"
	"github.com/gestaozabele/clinica/internal/metrics"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
	"github.com/gestaozabele/clinica/internal/service/servicetest"
)

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = fmt.Sprint(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorBody      `json:"error"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *servicetest.MemStore
	redis   *stubRedis
}

func testConfig() *config.Config {
	limit := config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}
	return &config.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		MetricsEnabled:   true,
		RateLimitPublic:  limit,
		RateLimitAuth:    limit,
		RateLimitLogin:   limit,
		WebAuthnRPID:     "localhost",
		WebAuthnRPOrigin: "http://localhost:5173",
		WebAuthnRPName:   "Clínica CRM",
	}
}

func newTestServer(t *testing.T, db pinger) *testServer {
	t.Helper()
	store := servicetest.NewMemStore()
	redisStub := &stubRedis{}
	collector := metrics.NewCollector()
	sessions := auth.NewSessionManager(strings.Repeat("k", 32), time.Hour)

	handler, err := NewRouter(Deps{
		Config:  testConfig(),
		DB:      db,
		Auth:    service.NewAuthService(store, redisStub, sessions, collector),
		Clinic:  service.NewClinicService(store, nil, collector),
		Metrics: collector,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return &testServer{t: t, handler: handler, store: store, redis: redisStub}
}

func (s *testServer) seedUser(username, password string, role repo.Role) repo.User {
	s.t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.t.Fatalf("hash: %v", err)
	}
	user, err := s.store.CreateUser(context.Background(), repo.CreateUserParams{Username: username, PasswordHash: hash, Name: strings.ToUpper(username[:1]) + username[1:], Role: role})
	if err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	return user
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.1:4000"
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(req)
}

func (s *testServer) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	decodeData(s.t, env, &session)
	return session.Token
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(http.MethodGet, "/health", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if env.Error != nil || !strings.Contains(string(env.Data), `"ok"`) {
		t.Fatalf("unexpected health body %s", rec.Body.String())
	}

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	if !strings.Contains(body, "clinica_http_requests_total") || !strings.Contains(body, `route="/health"`) {
		t.Fatalf("metrics missing request counter:\n%s", body)
	}
}

func TestReadyReportsDependencies(t *testing.T) {
	s := newTestServer(t, stubPinger{err: errors.New("conexão recusada")})

	rec, env := s.do(http.MethodGet, "/ready", "", nil)
	expectStatus(t, rec, http.StatusServiceUnavailable)
	details, _ := env.Error.Details.(map[string]any)
	if details["db"] != "conexão recusada" {
		t.Fatalf("expected db error in details, got %+v", env.Error)
	}

	ok := newTestServer(t, stubPinger{})
	rec, _ = ok.do(http.MethodGet, "/ready", "", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestLoginCookieAndLogout(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedUser("admin", "SenhaForte123", repo.RoleAdmin)

	rec, env := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "SenhaForte123"})
	expectStatus(t, rec, http.StatusOK)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpmiddleware.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("session cookie not set: %+v", rec.Result().Cookies())
	}
	if cookie.Secure {
		t.Fatalf("localhost origin must produce a non-secure cookie")
	}
	var session struct {
		Token string    `json:"token"`
		User  repo.User `json:"user"`
	}
	decodeData(t, env, &session)
	if session.Token != cookie.Value || session.User.Username != "admin" {
		t.Fatalf("unexpected session body %s", env.Data)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rec, env = s.send(req)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(string(env.Data), `"username":"admin"`) {
		t.Fatalf("me returned %s", env.Data)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	rec, _ = s.send(req)
	expectStatus(t, rec, http.StatusOK)
	if len(s.redis.store) != 0 {
		t.Fatalf("logout must drop the redis session, got %v", s.redis.store)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	rec, env = s.send(req)
	expectStatus(t, rec, http.StatusUnauthorized)
	if env.Error == nil || env.Error.Code != "AUTH" {
		t.Fatalf("expected AUTH error, got %+v", env.Error)
	}
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedUser("admin", "SenhaForte123", repo.RoleAdmin)

	for _, body := range []map[string]string{
		{"username": "admin", "password": "errada"},
		{"username": "ninguem", "password": "SenhaForte123"},
	} {
		rec, env := s.do(http.MethodPost, "/api/auth/login", "", body)
		expectStatus(t, rec, http.StatusUnauthorized)
		if env.Error.Message != "credenciais inválidas" {
			t.Fatalf("unknown user and wrong password must share the message, got %q", env.Error.Message)
		}
	}

	rec, env := s.do(http.MethodPost, "/api/auth/login", "", "{")
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %+v", env.Error)
	}
}

func TestGuards(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedUser("admin", "SenhaForte123", repo.RoleAdmin)
	s.seedUser("ana", "SenhaForte123", repo.RoleCollaborator)

	rec, _ := s.do(http.MethodGet, "/api/patients", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	rec, _ = s.do(http.MethodGet, "/api/patients", "token-falso", nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	ana := s.login("ana", "SenhaForte123")
	rec, env := s.do(http.MethodGet, "/api/users", ana, nil)
	expectStatus(t, rec, http.StatusForbidden)
	if env.Error.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %+v", env.Error)
	}

	// colaborador sem cadastro de colaborador não acessa rotas com escopo
	rec, _ = s.do(http.MethodGet, "/api/patients", ana, nil)
	expectStatus(t, rec, http.StatusForbidden)

	admin := s.login("admin", "SenhaForte123")
	rec, _ = s.do(http.MethodGet, "/api/users", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	rec, _ = s.do(http.MethodGet, "/api/patients/nao-e-uuid", admin, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	rec, _ = s.do(http.MethodGet, "/api/patients?status=sumido", admin, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

// clinic prepara Recife com um colaborador logado e um paciente.
type clinic struct {
	*testServer
	admin, maria string
	cityID       string
	collabID     string
	patientID    string
}

func newClinic(t *testing.T) *clinic {
	t.Helper()
	s := newTestServer(t, nil)
	s.seedUser("admin", "SenhaForte123", repo.RoleAdmin)
	c := &clinic{testServer: s, admin: s.login("admin", "SenhaForte123")}

	rec, env := s.do(http.MethodPost, "/api/cities", c.admin, map[string]any{"name": "Recife", "state": "PE"})
	expectStatus(t, rec, http.StatusCreated)
	var city repo.City
	decodeData(t, env, &city)
	c.cityID = city.ID.String()

	rec, env = s.do(http.MethodPost, "/api/users", c.admin, map[string]any{"username": "maria", "password": "SenhaForte123", "name": "Maria"})
	expectStatus(t, rec, http.StatusCreated)
	var user repo.User
	decodeData(t, env, &user)

	rec, env = s.do(http.MethodPost, "/api/collaborators", c.admin, map[string]any{
		"userId":           user.ID,
		"cityId":           c.cityID,
		"revenueGoal":      "10000",
		"consultationGoal": "20",
	})
	expectStatus(t, rec, http.StatusCreated)
	var collab repo.Collaborator
	decodeData(t, env, &collab)
	c.collabID = collab.ID.String()

	c.maria = s.login("maria", "SenhaForte123")
	rec, env = s.do(http.MethodPost, "/api/patients", c.maria, map[string]any{"name": "Carla Lima", "phone": "81999990000", "cityId": c.cityID})
	expectStatus(t, rec, http.StatusCreated)
	var patient repo.Patient
	decodeData(t, env, &patient)
	if patient.CollaboratorID == nil || patient.CollaboratorID.String() != c.collabID {
		t.Fatalf("patient must belong to maria: %s", env.Data)
	}
	c.patientID = patient.ID.String()
	return c
}

func TestConsultationFlow(t *testing.T) {
	c := newClinic(t)

	rec, env := c.do(http.MethodPost, "/api/procedure-templates", c.admin, map[string]any{"name": "Preenchimento", "defaultPrice": "1500,00", "validityDays": 365})
	expectStatus(t, rec, http.StatusCreated)
	var tpl repo.ProcedureTemplate
	decodeData(t, env, &tpl)

	rec, env = c.do(http.MethodPost, "/api/events", c.maria, map[string]any{
		"patientId": c.patientID,
		"title":     "Consulta de avaliação",
		"startDate": time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	expectStatus(t, rec, http.StatusCreated)
	var event repo.Event
	decodeData(t, env, &event)

	rec, env = c.do(http.MethodPatch, "/api/events/"+event.ID.String()+"/complete", c.maria, map[string]any{"completionType": "closed_procedure", "templateId": tpl.ID})
	expectStatus(t, rec, http.StatusOK)
	var result service.CompletionResult
	decodeData(t, env, &result)
	if result.Procedure == nil || result.Procedure.Value != 1500 {
		t.Fatalf("expected procedure from template, got %s", env.Data)
	}
	if result.Patient == nil || result.Patient.FollowupStatus == nil || *result.Patient.FollowupStatus != repo.FollowupProcedureClosed {
		t.Fatalf("patient followup not updated: %s", env.Data)
	}

	rec, env = c.do(http.MethodPatch, "/api/events/"+event.ID.String()+"/complete", c.maria, map[string]any{"completionType": "missed"})
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != "VALIDATION" {
		t.Fatalf("second completion must be rejected, got %+v", env.Error)
	}

	rec, env = c.do(http.MethodGet, "/api/patients/"+c.patientID+"/notes", c.maria, nil)
	expectStatus(t, rec, http.StatusOK)
	var notes []repo.PatientNote
	decodeData(t, env, &notes)
	if len(notes) != 1 || notes[0].Type != repo.NoteProcedure {
		t.Fatalf("expected one procedure note, got %s", env.Data)
	}

	rec, env = c.do(http.MethodGet, "/api/collaborators/"+c.collabID+"/metrics", c.maria, nil)
	expectStatus(t, rec, http.StatusOK)
	var m service.CollaboratorMetrics
	decodeData(t, env, &m)
	if m.RevenueThisMonth != 1500 || m.GoalProgress.Monthly != 15 {
		t.Fatalf("unexpected metrics %s", env.Data)
	}

	rec, env = c.do(http.MethodDelete, "/api/cities/"+c.cityID, c.admin, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != "CONFLICT" || env.Error.Message != "não é possível excluir a cidade: 1 colaborador(es) e 1 paciente(s) vinculados" {
		t.Fatalf("unexpected conflict %+v", env.Error)
	}
}

func TestPatientLifecycleOverHTTP(t *testing.T) {
	c := newClinic(t)
	base := "/api/patients/" + c.patientID

	rec, env := c.do(http.MethodPost, base+"/deactivate", c.maria, map[string]string{"reason": " "})
	expectStatus(t, rec, http.StatusBadRequest)
	issues, _ := env.Error.Details.([]any)
	if env.Error.Message != "motivo da desativação é obrigatório" || len(issues) != 1 {
		t.Fatalf("unexpected validation error %+v", env.Error)
	}

	rec, _ = c.do(http.MethodPost, base+"/deactivate", c.maria, map[string]string{"reason": "Mudou de cidade"})
	expectStatus(t, rec, http.StatusOK)

	rec, env = c.do(http.MethodGet, "/api/patients/deactivated", c.maria, nil)
	expectStatus(t, rec, http.StatusOK)
	var list []repo.PatientDetail
	decodeData(t, env, &list)
	if len(list) != 1 {
		t.Fatalf("expected the patient in the deactivated list, got %s", env.Data)
	}

	rec, env = c.do(http.MethodPost, base+"/reactivate", c.maria, nil)
	expectStatus(t, rec, http.StatusOK)
	var patient repo.Patient
	decodeData(t, env, &patient)
	if patient.Status != repo.PatientActive {
		t.Fatalf("expected active patient, got %s", patient.Status)
	}

	rec, env = c.do(http.MethodPatch, base, c.maria, map[string]any{"apelido": "Carlinha"})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), `"field":"apelido"`) {
		t.Fatalf("unknown patch field must be itemised: %s", rec.Body.String())
	}

	rec, _ = c.do(http.MethodDelete, base, c.maria, nil)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestCollaboratorScopingOverHTTP(t *testing.T) {
	c := newClinic(t)

	rec, env := c.do(http.MethodPost, "/api/users", c.admin, map[string]any{"username": "joao", "password": "SenhaForte123", "name": "João"})
	expectStatus(t, rec, http.StatusCreated)
	var user repo.User
	decodeData(t, env, &user)
	rec, _ = c.do(http.MethodPost, "/api/collaborators", c.admin, map[string]any{"userId": user.ID, "cityId": c.cityID})
	expectStatus(t, rec, http.StatusCreated)
	joao := c.login("joao", "SenhaForte123")

	rec, _ = c.do(http.MethodGet, "/api/patients/"+c.patientID, joao, nil)
	expectStatus(t, rec, http.StatusForbidden)
	rec, _ = c.do(http.MethodGet, "/api/collaborators/"+c.collabID+"/metrics", joao, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec, env = c.do(http.MethodGet, "/api/patients", joao, nil)
	expectStatus(t, rec, http.StatusOK)
	if string(env.Data) != "[]" {
		t.Fatalf("joao must not see maria's patients, got %s", env.Data)
	}

	rec, _ = c.do(http.MethodPost, "/api/collaborators", c.admin, map[string]any{"userId": user.ID, "cityId": c.cityID})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestPhotoUpload(t *testing.T) {
	c := newClinic(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("photo", "rosto.png")
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	_, _ = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/patients/"+c.patientID+"/photo", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.maria)
	rec, env := c.send(req)
	expectStatus(t, rec, http.StatusOK)
	var patient repo.Patient
	decodeData(t, env, &patient)
	prefix := "/uploads/patients/" + c.patientID + "/photo/"
	if patient.PhotoURL == nil || !strings.HasPrefix(*patient.PhotoURL, prefix) {
		t.Fatalf("photo url = %v, want prefix %s", patient.PhotoURL, prefix)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/patients/"+c.patientID+"/files", strings.NewReader("sem multipart"))
	req.Header.Set("Authorization", "Bearer "+c.maria)
	rec, _ = c.send(req)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestDuplicateCityName(t *testing.T) {
	c := newClinic(t)

	rec, env := c.do(http.MethodPost, "/api/cities", c.admin, map[string]any{"name": "recife", "state": "PE"})
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != "CONFLICT" || env.Error.Message != `já existe uma cidade chamada "Recife"` {
		t.Fatalf("unexpected error %+v", env.Error)
	}

	rec, env = c.do(http.MethodPost, "/api/cities", c.admin, map[string]any{"name": "Olinda", "state": "PE"})
	expectStatus(t, rec, http.StatusCreated)
	var olinda repo.City
	decodeData(t, env, &olinda)

	rec, env = c.do(http.MethodPut, "/api/cities/"+olinda.ID.String(), c.admin, map[string]any{"name": "Recife"})
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != "CONFLICT" {
		t.Fatalf("rename onto an existing city must conflict, got %+v", env.Error)
	}

	rec, _ = c.do(http.MethodPut, "/api/cities/"+olinda.ID.String(), c.admin, map[string]any{"name": "Olinda", "state": "PE"})
	expectStatus(t, rec, http.StatusOK)
}

func TestDeleteCollaboratorWithHistory(t *testing.T) {
	c := newClinic(t)

	rec, _ := c.do(http.MethodPost, "/api/events", c.maria, map[string]any{
		"patientId": c.patientID,
		"title":     "Retorno",
		"startDate": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	expectStatus(t, rec, http.StatusCreated)

	rec, env := c.do(http.MethodPost, "/api/users", c.admin, map[string]any{"username": "joao", "password": "SenhaForte123", "name": "João"})
	expectStatus(t, rec, http.StatusCreated)
	var user repo.User
	decodeData(t, env, &user)
	rec, env = c.do(http.MethodPost, "/api/collaborators", c.admin, map[string]any{"userId": user.ID, "cityId": c.cityID})
	expectStatus(t, rec, http.StatusCreated)
	var joao repo.Collaborator
	decodeData(t, env, &joao)

	rec, _ = c.do(http.MethodPatch, "/api/patients/"+c.patientID, c.admin, map[string]any{"collaboratorId": joao.ID})
	expectStatus(t, rec, http.StatusOK)

	rec, env = c.do(http.MethodDelete, "/api/collaborators/"+c.collabID, c.admin, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if env.Error.Code != "CONFLICT" || !strings.Contains(env.Error.Message, "1 compromisso(s)") || strings.Contains(env.Error.Message, "paciente") {
		t.Fatalf("unexpected error %+v", env.Error)
	}

	rec, _ = c.do(http.MethodDelete, "/api/collaborators/"+joao.ID.String(), c.admin, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestConstraintErrorsMapToConflict(t *testing.T) {
	for _, err := range []error{servicetest.ErrDuplicate, fmt.Errorf("delete: %w", servicetest.ErrReferenced)} {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodDelete, "/api/cities/x", nil), err)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"CONFLICT"`) {
			t.Fatalf("%v: status %d body %s", err, rec.Code, rec.Body.String())
		}
	}
}

func TestCreateRejectsUnknownFields(t *testing.T) {
	c := newClinic(t)

	rec, env := c.do(http.MethodPost, "/api/patients", c.maria, map[string]any{"name": "Ana", "apelido": "Aninha"})
	expectStatus(t, rec, http.StatusBadRequest)
	issues, _ := env.Error.Details.([]any)
	if env.Error.Code != "VALIDATION" || len(issues) != 1 || !strings.Contains(rec.Body.String(), `"field":"apelido"`) {
		t.Fatalf("unknown field must be itemised: %s", rec.Body.String())
	}

	rec, _ = c.do(http.MethodGet, "/api/patients", c.admin, nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestPatientListPagination(t *testing.T) {
	c := newClinic(t)
	for _, name := range []string{"Bruna", "Diego"} {
		rec, _ := c.do(http.MethodPost, "/api/patients", c.maria, map[string]any{"name": name})
		expectStatus(t, rec, http.StatusCreated)
	}

	rec, env := c.do(http.MethodGet, "/api/patients?limit=2&offset=1", c.admin, nil)
	expectStatus(t, rec, http.StatusOK)
	var list []repo.PatientDetail
	decodeData(t, env, &list)
	if len(list) != 2 || rec.Header().Get("X-Total-Count") != "3" || rec.Header().Get("X-Limit") != "2" || rec.Header().Get("X-Offset") != "1" {
		t.Fatalf("unexpected page: n=%d headers=%v", len(list), rec.Header())
	}

	rec, _ = c.do(http.MethodGet, "/api/patients?limit=100000", c.admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Limit") != strconv.Itoa(repo.MaxPatientLimit) {
		t.Fatalf("limit must be capped, got %s", rec.Header().Get("X-Limit"))
	}

	rec, _ = c.do(http.MethodGet, "/api/patients/active", c.maria, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Total-Count") != "3" || rec.Header().Get("X-Limit") != strconv.Itoa(repo.DefaultPatientLimit) {
		t.Fatalf("shortcut list must carry paging headers: %v", rec.Header())
	}
}
