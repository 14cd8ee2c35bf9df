package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gestaozabele/clinica/internal/auth"
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

type countingRecorder struct {
	service.NopRecorder
	transitions   []string
	consultations []string
	procedures    int
	logins        []string
}

func (r *countingRecorder) PatientTransition(transition string) {
	r.transitions = append(r.transitions, transition)
}

func (r *countingRecorder) ConsultationCompleted(outcome string) {
	r.consultations = append(r.consultations, outcome)
}

func (r *countingRecorder) ProcedureCreated() {
	r.procedures++
}

func (r *countingRecorder) LoginAttempt(result string) {
	r.logins = append(r.logins, result)
}

// fixture monta uma clínica com Recife, um admin e dois colaboradores.
type fixture struct {
	ctx      context.Context
	store    *servicetest.MemStore
	svc      *service.ClinicService
	recorder *countingRecorder
	now      time.Time

	city   repo.City
	admin  auth.Principal
	maria  auth.Principal
	joao   auth.Principal
	mariaC repo.Collaborator
	joaoC  repo.Collaborator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	store := servicetest.NewMemStore()
	store.Now = func() time.Time { return now }
	recorder := &countingRecorder{}
	svc := service.NewClinicService(store, nil, recorder)
	svc.SetClock(func() time.Time { return now })

	f := &fixture{ctx: ctx, store: store, svc: svc, recorder: recorder, now: now}

	adminUser, err := store.CreateUser(ctx, repo.CreateUserParams{Username: "admin", Name: "Admin", Role: repo.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	f.admin = auth.Principal{UserID: adminUser.ID, Username: "admin", Name: "Admin", Role: auth.RoleAdmin}

	f.city, err = store.CreateCity(ctx, repo.CreateCityParams{Name: "Recife", State: "PE"})
	if err != nil {
		t.Fatalf("create city: %v", err)
	}
	f.maria, f.mariaC = f.collaborator(t, "maria", "Maria Souza", 10000, 20)
	f.joao, f.joaoC = f.collaborator(t, "joao", "João Lima", 0, 0)
	return f
}

func (f *fixture) collaborator(t *testing.T, username, name string, goal float64, consultations int) (auth.Principal, repo.Collaborator) {
	t.Helper()
	user, err := f.store.CreateUser(f.ctx, repo.CreateUserParams{Username: username, Name: name, Role: repo.RoleCollaborator})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	collab, err := f.store.CreateCollaborator(f.ctx, repo.CreateCollaboratorParams{
		UserID:           user.ID,
		CityID:           f.city.ID,
		RevenueGoal:      goal,
		ConsultationGoal: consultations,
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("create collaborator %s: %v", username, err)
	}
	id := collab.ID
	return auth.Principal{UserID: user.ID, Username: username, Name: name, Role: auth.RoleCollaborator, CollaboratorID: &id}, collab
}

// patient cadastra um paciente do colaborador informado (cadastro completo).
func (f *fixture) patient(t *testing.T, owner auth.Principal, name string) repo.Patient {
	t.Helper()
	patient, err := f.svc.CreatePatient(f.ctx, owner, service.CreatePatientInput{Name: name, CityID: &f.city.ID})
	if err != nil {
		t.Fatalf("create patient %s: %v", name, err)
	}
	return patient
}

func (f *fixture) template(t *testing.T, name string, price float64, days int) repo.ProcedureTemplate {
	t.Helper()
	tpl, err := f.store.CreateTemplate(f.ctx, repo.CreateTemplateParams{Name: name, DefaultPrice: price, ValidityDays: days, IsActive: true})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func expectValidation(t *testing.T, err error, field string) *service.ValidationError {
	t.Helper()
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if field == "" {
		return verr
	}
	for _, issue := range verr.Issues {
		if issue.Field == field {
			return verr
		}
	}
	t.Fatalf("expected issue on %q, got %+v", field, verr.Issues)
	return nil
}

func expectForbidden(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func strPtr(s string) *string {
	return &s
}
