// Package servicetest traz um Store em memória para testes de serviço e HTTP.
package servicetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

// ErrDuplicate e ErrReferenced imitam os erros do Postgres para
// unique_violation e foreign_key_violation.
var (
	ErrDuplicate  error = &pgconn.PgError{Code: "23505", Message: "servicetest: registro duplicado"}
	ErrReferenced error = &pgconn.PgError{Code: "23503", Message: "servicetest: registro referenciado"}
)

type state struct {
	users         []repo.User
	cities        []repo.City
	collaborators []repo.Collaborator
	patients      []repo.Patient
	templates     []repo.ProcedureTemplate
	procedures    []repo.Procedure
	events        []repo.Event
	notes         []repo.PatientNote
	files         []repo.PatientFile
	tasks         []repo.AdminTask
	performance   []repo.PerformanceMetric
	progress      []repo.PatientProgress
	activity      []repo.ActivityLog
	passkeys      []repo.PasskeyCredential
}

func (s state) clone() state {
	return state{
		users:         append([]repo.User(nil), s.users...),
		cities:        append([]repo.City(nil), s.cities...),
		collaborators: append([]repo.Collaborator(nil), s.collaborators...),
		patients:      append([]repo.Patient(nil), s.patients...),
		templates:     append([]repo.ProcedureTemplate(nil), s.templates...),
		procedures:    append([]repo.Procedure(nil), s.procedures...),
		events:        append([]repo.Event(nil), s.events...),
		notes:         append([]repo.PatientNote(nil), s.notes...),
		files:         append([]repo.PatientFile(nil), s.files...),
		tasks:         append([]repo.AdminTask(nil), s.tasks...),
		performance:   append([]repo.PerformanceMetric(nil), s.performance...),
		progress:      append([]repo.PatientProgress(nil), s.progress...),
		activity:      append([]repo.ActivityLog(nil), s.activity...),
		passkeys:      append([]repo.PasskeyCredential(nil), s.passkeys...),
	}
}

// MemStore implementa service.Store em memória. WithTx tira um retrato do
// estado e o restaura se a função falhar.
type MemStore struct {
	mu    sync.Mutex
	st    state
	inTx  bool
	fails map[string]error

	// Now é o relógio usado em created_at/updated_at.
	Now func() time.Time
}

var _ service.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{Now: time.Now, fails: map[string]error{}}
}

// FailOn faz a próxima chamada ao método devolver err.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[method] = err
}

func (m *MemStore) fail(method string) error {
	if err, ok := m.fails[method]; ok {
		delete(m.fails, method)
		return err
	}
	return nil
}

func (m *MemStore) WithTx(ctx context.Context, fn func(service.Store) error) error {
	m.mu.Lock()
	if m.inTx {
		m.mu.Unlock()
		return fn(m)
	}
	snapshot := m.st.clone()
	m.inTx = true
	m.mu.Unlock()

	err := fn(m)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inTx = false
	if err != nil {
		m.st = snapshot
	}
	return err
}

// apply grava o UpdateSet no struct usando as tags db.
func apply(target any, set repo.UpdateSet) error {
	v := reflect.ValueOf(target).Elem()
	t := v.Type()
	for _, entry := range set.Entries() {
		idx := -1
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Tag.Get("db") == entry.Column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("servicetest: coluna %s desconhecida em %s", entry.Column, t.Name())
		}
		field := v.Field(idx)
		if entry.Value == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		val := reflect.ValueOf(entry.Value)
		switch {
		case val.Type().AssignableTo(field.Type()):
			field.Set(val)
		case field.Kind() == reflect.Pointer && val.Type().AssignableTo(field.Type().Elem()):
			ptr := reflect.New(field.Type().Elem())
			ptr.Elem().Set(val)
			field.Set(ptr)
		default:
			return fmt.Errorf("servicetest: tipo %s não serve para %s.%s (%s)", val.Type(), t.Name(), entry.Column, field.Type())
		}
	}
	return nil
}

func find[T any](items []T, match func(T) bool) (int, bool) {
	for i, item := range items {
		if match(item) {
			return i, true
		}
	}
	return -1, false
}

// Users

func (m *MemStore) CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return repo.User{}, err
	}
	if _, ok := find(m.st.users, func(u repo.User) bool { return u.Username == arg.Username }); ok {
		return repo.User{}, ErrDuplicate
	}
	now := m.Now()
	u := repo.User{ID: uuid.New(), Username: arg.Username, PasswordHash: arg.PasswordHash, Name: arg.Name, Role: arg.Role, CreatedAt: now, UpdatedAt: now}
	m.st.users = append(m.st.users, u)
	return u, nil
}

func (m *MemStore) GetUser(ctx context.Context, id uuid.UUID) (repo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user(id)
}

func (m *MemStore) user(id uuid.UUID) (repo.User, error) {
	if i, ok := find(m.st.users, func(u repo.User) bool { return u.ID == id }); ok {
		return m.st.users[i], nil
	}
	return repo.User{}, repo.ErrNotFound
}

func (m *MemStore) GetUserByUsername(ctx context.Context, username string) (repo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.users, func(u repo.User) bool { return u.Username == username }); ok {
		return m.st.users[i], nil
	}
	return repo.User{}, repo.ErrNotFound
}

func (m *MemStore) ListUsers(ctx context.Context) ([]repo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]repo.User(nil), m.st.users...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) UpdateUserRole(ctx context.Context, id uuid.UUID, role repo.Role) (repo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.users, func(u repo.User) bool { return u.ID == id })
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	m.st.users[i].Role = role
	m.st.users[i].UpdatedAt = m.Now()
	return m.st.users[i], nil
}

func (m *MemStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.users, func(u repo.User) bool { return u.ID == id })
	if !ok {
		return repo.ErrNotFound
	}
	m.st.users[i].PasswordHash = passwordHash
	m.st.users[i].UpdatedAt = m.Now()
	return nil
}

// Cities

func (m *MemStore) CreateCity(ctx context.Context, arg repo.CreateCityParams) (repo.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := find(m.st.cities, func(c repo.City) bool { return strings.EqualFold(c.Name, arg.Name) }); ok {
		return repo.City{}, ErrDuplicate
	}
	now := m.Now()
	c := repo.City{
		ID: uuid.New(), Name: arg.Name, State: arg.State, Description: arg.Description,
		MonthlyGoal: arg.MonthlyGoal, QuarterlyGoal: arg.QuarterlyGoal, YearlyGoal: arg.YearlyGoal,
		CreatedAt: now, UpdatedAt: now,
	}
	m.st.cities = append(m.st.cities, c)
	return c, nil
}

func (m *MemStore) GetCity(ctx context.Context, id uuid.UUID) (repo.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.city(id)
}

func (m *MemStore) city(id uuid.UUID) (repo.City, error) {
	if i, ok := find(m.st.cities, func(c repo.City) bool { return c.ID == id }); ok {
		return m.st.cities[i], nil
	}
	return repo.City{}, repo.ErrNotFound
}

func (m *MemStore) ListCities(ctx context.Context) ([]repo.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]repo.City(nil), m.st.cities...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) UpdateCity(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.cities, func(c repo.City) bool { return c.ID == id })
	if !ok {
		return repo.City{}, repo.ErrNotFound
	}
	c := m.st.cities[i]
	if err := apply(&c, set); err != nil {
		return repo.City{}, err
	}
	if _, dup := find(m.st.cities, func(o repo.City) bool { return o.ID != id && strings.EqualFold(o.Name, c.Name) }); dup {
		return repo.City{}, ErrDuplicate
	}
	c.UpdatedAt = m.Now()
	m.st.cities[i] = c
	return c, nil
}

func (m *MemStore) GetCityByName(ctx context.Context, name string) (repo.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.cities, func(c repo.City) bool { return strings.EqualFold(c.Name, name) }); ok {
		return m.st.cities[i], nil
	}
	return repo.City{}, repo.ErrNotFound
}

func (m *MemStore) DeleteCity(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.cities, func(c repo.City) bool { return c.ID == id })
	if !ok {
		return repo.ErrNotFound
	}
	if _, ref := find(m.st.collaborators, func(c repo.Collaborator) bool { return c.CityID == id }); ref {
		return ErrReferenced
	}
	if _, ref := find(m.st.patients, func(p repo.Patient) bool { return p.CityID != nil && *p.CityID == id }); ref {
		return ErrReferenced
	}
	m.st.cities = append(m.st.cities[:i], m.st.cities[i+1:]...)
	return nil
}

// Collaborators

func (m *MemStore) CreateCollaborator(ctx context.Context, arg repo.CreateCollaboratorParams) (repo.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := find(m.st.collaborators, func(c repo.Collaborator) bool { return c.UserID == arg.UserID }); ok {
		return repo.Collaborator{}, ErrDuplicate
	}
	now := m.Now()
	c := repo.Collaborator{
		ID: uuid.New(), UserID: arg.UserID, CityID: arg.CityID, RevenueGoal: arg.RevenueGoal,
		ConsultationGoal: arg.ConsultationGoal, IsActive: arg.IsActive, CreatedAt: now, UpdatedAt: now,
	}
	m.st.collaborators = append(m.st.collaborators, c)
	return c, nil
}

func (m *MemStore) collaboratorDetail(c repo.Collaborator) repo.CollaboratorDetail {
	d := repo.CollaboratorDetail{Collaborator: c}
	if u, err := m.user(c.UserID); err == nil {
		d.User = repo.UserSummary{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
	}
	if city, err := m.city(c.CityID); err == nil {
		d.City = repo.CitySummary{ID: city.ID, Name: city.Name, State: city.State}
	}
	return d
}

func (m *MemStore) collaborator(id uuid.UUID) (repo.Collaborator, bool) {
	if i, ok := find(m.st.collaborators, func(c repo.Collaborator) bool { return c.ID == id }); ok {
		return m.st.collaborators[i], true
	}
	return repo.Collaborator{}, false
}

func (m *MemStore) collaboratorName(id uuid.UUID) string {
	c, ok := m.collaborator(id)
	if !ok {
		return ""
	}
	u, _ := m.user(c.UserID)
	return u.Name
}

func (m *MemStore) GetCollaborator(ctx context.Context, id uuid.UUID) (repo.CollaboratorDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collaborator(id)
	if !ok {
		return repo.CollaboratorDetail{}, repo.ErrNotFound
	}
	return m.collaboratorDetail(c), nil
}

func (m *MemStore) GetCollaboratorByUserID(ctx context.Context, userID uuid.UUID) (repo.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.collaborators, func(c repo.Collaborator) bool { return c.UserID == userID }); ok {
		return m.st.collaborators[i], nil
	}
	return repo.Collaborator{}, repo.ErrNotFound
}

func (m *MemStore) ListCollaborators(ctx context.Context, cityID *uuid.UUID) ([]repo.CollaboratorDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.CollaboratorDetail
	for _, c := range m.st.collaborators {
		if cityID != nil && c.CityID != *cityID {
			continue
		}
		out = append(out, m.collaboratorDetail(c))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].User.Name < out[j].User.Name })
	return out, nil
}

func (m *MemStore) UpdateCollaborator(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.collaborators, func(c repo.Collaborator) bool { return c.ID == id })
	if !ok {
		return repo.Collaborator{}, repo.ErrNotFound
	}
	c := m.st.collaborators[i]
	if err := apply(&c, set); err != nil {
		return repo.Collaborator{}, err
	}
	c.UpdatedAt = m.Now()
	m.st.collaborators[i] = c
	return c, nil
}

func (m *MemStore) DeleteCollaborator(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.collaborators, func(c repo.Collaborator) bool { return c.ID == id })
	if !ok {
		return repo.ErrNotFound
	}
	if m.collaboratorRefs(id).Total() > 0 {
		return ErrReferenced
	}
	m.st.collaborators = append(m.st.collaborators[:i], m.st.collaborators[i+1:]...)
	// performance_metrics tem ON DELETE CASCADE
	kept := m.st.performance[:0]
	for _, pm := range m.st.performance {
		if pm.CollaboratorID != id {
			kept = append(kept, pm)
		}
	}
	m.st.performance = kept
	return nil
}

func (m *MemStore) CollaboratorReferences(ctx context.Context, id uuid.UUID) (repo.CollaboratorRefs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collaboratorRefs(id), nil
}

func (m *MemStore) collaboratorRefs(id uuid.UUID) repo.CollaboratorRefs {
	var r repo.CollaboratorRefs
	is := func(ref *uuid.UUID) bool { return ref != nil && *ref == id }
	for _, p := range m.st.patients {
		if is(p.CollaboratorID) {
			r.Patients++
		}
		if is(p.DeactivatedBy) {
			r.History++
		}
	}
	for _, e := range m.st.events {
		if e.CollaboratorID == id {
			r.Events++
		}
	}
	for _, p := range m.st.procedures {
		if p.CollaboratorID == id {
			r.Procedures++
		}
	}
	for _, t := range m.st.tasks {
		if t.CollaboratorID == id {
			r.Tasks++
		}
	}
	for _, n := range m.st.notes {
		if is(n.CollaboratorID) {
			r.History++
		}
	}
	for _, p := range m.st.progress {
		if is(p.CollaboratorID) {
			r.History++
		}
	}
	return r
}

func (m *MemStore) CountCollaborators(ctx context.Context, cityID *uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.st.collaborators {
		if cityID == nil || c.CityID == *cityID {
			n++
		}
	}
	return n, nil
}

// Patients

func (m *MemStore) CreatePatient(ctx context.Context, arg repo.CreatePatientParams) (repo.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreatePatient"); err != nil {
		return repo.Patient{}, err
	}
	now := m.Now()
	p := repo.Patient{
		ID: uuid.New(), Name: arg.Name, Phone: arg.Phone, Email: arg.Email, CPF: arg.CPF, BirthDate: arg.BirthDate,
		Address: arg.Address, CityID: arg.CityID, CollaboratorID: arg.CollaboratorID, Classification: arg.Classification,
		Status: arg.Status, IsRegistrationComplete: arg.IsRegistrationComplete, Notes: arg.Notes,
		CreatedAt: now, UpdatedAt: now,
	}
	m.st.patients = append(m.st.patients, p)
	return p, nil
}

func (m *MemStore) patientDetail(p repo.Patient) repo.PatientDetail {
	d := repo.PatientDetail{Patient: p}
	if p.CityID != nil {
		if c, err := m.city(*p.CityID); err == nil {
			d.City = &repo.CitySummary{ID: c.ID, Name: c.Name, State: c.State}
		}
	}
	if p.CollaboratorID != nil {
		if c, ok := m.collaborator(*p.CollaboratorID); ok {
			d.Collaborator = &repo.CollaboratorSummary{ID: c.ID, UserID: c.UserID, Name: m.collaboratorName(c.ID)}
		}
	}
	return d
}

func (m *MemStore) GetPatient(ctx context.Context, id uuid.UUID) (repo.PatientDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.patients, func(p repo.Patient) bool { return p.ID == id }); ok {
		return m.patientDetail(m.st.patients[i]), nil
	}
	return repo.PatientDetail{}, repo.ErrNotFound
}

func containsFold(s *string, sub string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), sub)
}

func matchPatient(p repo.Patient, f repo.PatientFilter) bool {
	if f.CollaboratorID != nil && (p.CollaboratorID == nil || *p.CollaboratorID != *f.CollaboratorID) {
		return false
	}
	if f.CityID != nil && (p.CityID == nil || *p.CityID != *f.CityID) {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.ExcludeStatus != nil && p.Status == *f.ExcludeStatus {
		return false
	}
	if f.FollowupStatus != nil && (p.FollowupStatus == nil || *p.FollowupStatus != *f.FollowupStatus) {
		return false
	}
	if f.IsRegistrationComplete != nil && p.IsRegistrationComplete != *f.IsRegistrationComplete {
		return false
	}
	if f.Classification != nil && p.Classification != *f.Classification {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		if !containsFold(&p.Name, search) && !containsFold(p.Phone, search) && !containsFold(p.CPF, search) && !containsFold(p.Email, search) {
			return false
		}
	}
	return true
}

func (m *MemStore) ListPatients(ctx context.Context, filter repo.PatientFilter) ([]repo.PatientDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []repo.Patient
	for i := len(m.st.patients) - 1; i >= 0; i-- {
		if matchPatient(m.st.patients[i], filter) {
			matched = append(matched, m.st.patients[i])
		}
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	out := make([]repo.PatientDetail, 0, len(matched))
	for _, p := range matched {
		out = append(out, m.patientDetail(p))
	}
	return out, nil
}

func (m *MemStore) CountPatients(ctx context.Context, filter repo.PatientFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.st.patients {
		if matchPatient(p, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) PatientStatusCounts(ctx context.Context, collaboratorID *uuid.UUID) ([]repo.PatientCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type key struct {
		status   repo.PatientStatus
		followup string
		complete bool
	}
	counts := map[key]int{}
	var order []key
	for _, p := range m.st.patients {
		if collaboratorID != nil && (p.CollaboratorID == nil || *p.CollaboratorID != *collaboratorID) {
			continue
		}
		k := key{status: p.Status, complete: p.IsRegistrationComplete}
		if p.FollowupStatus != nil {
			k.followup = string(*p.FollowupStatus)
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make([]repo.PatientCount, 0, len(order))
	for _, k := range order {
		out = append(out, repo.PatientCount{Status: k.status, FollowupStatus: k.followup, IsRegistrationComplete: k.complete, Count: counts[k]})
	}
	return out, nil
}

func (m *MemStore) UpdatePatient(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdatePatient"); err != nil {
		return repo.Patient{}, err
	}
	i, ok := find(m.st.patients, func(p repo.Patient) bool { return p.ID == id })
	if !ok {
		return repo.Patient{}, repo.ErrNotFound
	}
	p := m.st.patients[i]
	if err := apply(&p, set); err != nil {
		return repo.Patient{}, err
	}
	if p.Status == repo.PatientDeactivated && p.DeactivationReason == nil {
		return repo.Patient{}, errors.New("servicetest: paciente desativado sem motivo")
	}
	p.UpdatedAt = m.Now()
	m.st.patients[i] = p
	return p, nil
}

func (m *MemStore) DeletePatient(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.patients, func(p repo.Patient) bool { return p.ID == id })
	if !ok {
		return repo.ErrNotFound
	}
	m.st.patients = append(m.st.patients[:i], m.st.patients[i+1:]...)
	return nil
}

// Procedure templates

func (m *MemStore) CreateTemplate(ctx context.Context, arg repo.CreateTemplateParams) (repo.ProcedureTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	t := repo.ProcedureTemplate{
		ID: uuid.New(), Name: arg.Name, DefaultPrice: arg.DefaultPrice, ValidityDays: arg.ValidityDays,
		Category: arg.Category, IsActive: arg.IsActive, CreatedAt: now, UpdatedAt: now,
	}
	m.st.templates = append(m.st.templates, t)
	return t, nil
}

func (m *MemStore) GetTemplate(ctx context.Context, id uuid.UUID) (repo.ProcedureTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.templates, func(t repo.ProcedureTemplate) bool { return t.ID == id }); ok {
		return m.st.templates[i], nil
	}
	return repo.ProcedureTemplate{}, repo.ErrNotFound
}

func (m *MemStore) ListTemplates(ctx context.Context, activeOnly bool) ([]repo.ProcedureTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.ProcedureTemplate
	for _, t := range m.st.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) UpdateTemplate(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.ProcedureTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.templates, func(t repo.ProcedureTemplate) bool { return t.ID == id })
	if !ok {
		return repo.ProcedureTemplate{}, repo.ErrNotFound
	}
	t := m.st.templates[i]
	if err := apply(&t, set); err != nil {
		return repo.ProcedureTemplate{}, err
	}
	t.UpdatedAt = m.Now()
	m.st.templates[i] = t
	return t, nil
}

func (m *MemStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.templates, func(t repo.ProcedureTemplate) bool { return t.ID == id })
	if !ok {
		return repo.ErrNotFound
	}
	m.st.templates = append(m.st.templates[:i], m.st.templates[i+1:]...)
	return nil
}

// Procedures

func (m *MemStore) CreateProcedure(ctx context.Context, arg repo.CreateProcedureParams) (repo.Procedure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateProcedure"); err != nil {
		return repo.Procedure{}, err
	}
	now := m.Now()
	p := repo.Procedure{
		ID: uuid.New(), PatientID: arg.PatientID, CollaboratorID: arg.CollaboratorID, TemplateID: arg.TemplateID,
		Name: arg.Name, Value: arg.Value, PerformedDate: arg.PerformedDate, ValidUntil: arg.ValidUntil,
		Status: arg.Status, Notes: arg.Notes, CreatedAt: now, UpdatedAt: now,
	}
	m.st.procedures = append(m.st.procedures, p)
	return p, nil
}

func (m *MemStore) procedureDetail(p repo.Procedure) repo.ProcedureDetail {
	d := repo.ProcedureDetail{Procedure: p, CollaboratorName: m.collaboratorName(p.CollaboratorID)}
	if i, ok := find(m.st.patients, func(pt repo.Patient) bool { return pt.ID == p.PatientID }); ok {
		d.PatientName = m.st.patients[i].Name
	}
	return d
}

func (m *MemStore) GetProcedure(ctx context.Context, id uuid.UUID) (repo.ProcedureDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.procedures, func(p repo.Procedure) bool { return p.ID == id }); ok {
		return m.procedureDetail(m.st.procedures[i]), nil
	}
	return repo.ProcedureDetail{}, repo.ErrNotFound
}

func matchProcedure(p repo.Procedure, f repo.ProcedureFilter) bool {
	if f.CollaboratorID != nil && p.CollaboratorID != *f.CollaboratorID {
		return false
	}
	if f.PatientID != nil && p.PatientID != *f.PatientID {
		return false
	}
	if f.TemplateID != nil && (p.TemplateID == nil || *p.TemplateID != *f.TemplateID) {
		return false
	}
	if f.Status != nil {
		now := f.Now
		if now.IsZero() {
			now = time.Now()
		}
		if p.EffectiveStatus(now) != *f.Status {
			return false
		}
	}
	if f.ExpiringBefore != nil {
		if p.Status != repo.ProcedureActive || p.ValidUntil == nil || !p.ValidUntil.Before(*f.ExpiringBefore) {
			return false
		}
	}
	return true
}

func (m *MemStore) ListProcedures(ctx context.Context, filter repo.ProcedureFilter) ([]repo.ProcedureDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.ProcedureDetail
	for _, p := range m.st.procedures {
		if matchProcedure(p, filter) {
			out = append(out, m.procedureDetail(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedDate.After(out[j].PerformedDate) })
	return out, nil
}

func (m *MemStore) CountProcedures(ctx context.Context, filter repo.ProcedureFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.st.procedures {
		if matchProcedure(p, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) ExpireProcedures(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, p := range m.st.procedures {
		if p.Status == repo.ProcedureActive && p.ValidUntil != nil && p.ValidUntil.Before(now) {
			m.st.procedures[i].Status = repo.ProcedureExpired
			m.st.procedures[i].UpdatedAt = m.Now()
			n++
		}
	}
	return n, nil
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

func (m *MemStore) SumProcedureValue(ctx context.Context, collaboratorID *uuid.UUID, from, to *time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, p := range m.st.procedures {
		if collaboratorID != nil && p.CollaboratorID != *collaboratorID {
			continue
		}
		if inRange(p.PerformedDate, from, to) {
			total += p.Value
		}
	}
	return total, nil
}

func (m *MemStore) TopPerformers(ctx context.Context, from, to *time.Time, limit int) ([]repo.TopPerformer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 5
	}
	byCollab := map[uuid.UUID]*repo.TopPerformer{}
	var order []uuid.UUID
	for _, p := range m.st.procedures {
		if !inRange(p.PerformedDate, from, to) {
			continue
		}
		tp, ok := byCollab[p.CollaboratorID]
		if !ok {
			tp = &repo.TopPerformer{CollaboratorID: p.CollaboratorID, Name: m.collaboratorName(p.CollaboratorID)}
			byCollab[p.CollaboratorID] = tp
			order = append(order, p.CollaboratorID)
		}
		tp.Revenue += p.Value
		tp.Procedures++
	}
	out := make([]repo.TopPerformer, 0, len(order))
	for _, id := range order {
		out = append(out, *byCollab[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Events

func (m *MemStore) CreateEvent(ctx context.Context, arg repo.CreateEventParams) (repo.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	e := repo.Event{
		ID: uuid.New(), CollaboratorID: arg.CollaboratorID, PatientID: arg.PatientID, ProcedureID: arg.ProcedureID,
		Title: arg.Title, Description: arg.Description, Type: arg.Type, Status: arg.Status, StartDate: arg.StartDate,
		EndDate: arg.EndDate, RequiresFeedback: arg.RequiresFeedback, FeedbackQuestion: arg.FeedbackQuestion,
		CreatedAt: now, UpdatedAt: now,
	}
	m.st.events = append(m.st.events, e)
	return e, nil
}

func (m *MemStore) eventDetail(e repo.Event) repo.EventDetail {
	d := repo.EventDetail{Event: e, CollaboratorName: m.collaboratorName(e.CollaboratorID)}
	if e.PatientID != nil {
		if i, ok := find(m.st.patients, func(p repo.Patient) bool { return p.ID == *e.PatientID }); ok {
			name := m.st.patients[i].Name
			d.PatientName = &name
		}
	}
	return d
}

func (m *MemStore) GetEvent(ctx context.Context, id uuid.UUID) (repo.EventDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.events, func(e repo.Event) bool { return e.ID == id }); ok {
		return m.eventDetail(m.st.events[i]), nil
	}
	return repo.EventDetail{}, repo.ErrNotFound
}

func matchEvent(e repo.Event, f repo.EventFilter) bool {
	if f.CollaboratorID != nil && e.CollaboratorID != *f.CollaboratorID {
		return false
	}
	if f.PatientID != nil && (e.PatientID == nil || *e.PatientID != *f.PatientID) {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if !inRange(e.StartDate, f.From, f.To) {
		return false
	}
	if f.OpenOnly && !e.Status.Open() {
		return false
	}
	if f.ExcludeCancelled && e.Status == repo.EventCancelled {
		return false
	}
	return true
}

func (m *MemStore) ListEvents(ctx context.Context, filter repo.EventFilter) ([]repo.EventDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.EventDetail
	for _, e := range m.st.events {
		if matchEvent(e, filter) {
			out = append(out, m.eventDetail(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemStore) CountEvents(ctx context.Context, filter repo.EventFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.st.events {
		if matchEvent(e, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) UpdateEvent(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateEvent"); err != nil {
		return repo.Event{}, err
	}
	i, ok := find(m.st.events, func(e repo.Event) bool { return e.ID == id })
	if !ok {
		return repo.Event{}, repo.ErrNotFound
	}
	e := m.st.events[i]
	if err := apply(&e, set); err != nil {
		return repo.Event{}, err
	}
	e.UpdatedAt = m.Now()
	m.st.events[i] = e
	return e, nil
}

// Notes and files

func (m *MemStore) CreateNote(ctx context.Context, arg repo.CreateNoteParams) (repo.PatientNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateNote"); err != nil {
		return repo.PatientNote{}, err
	}
	n := repo.PatientNote{
		ID: uuid.New(), PatientID: arg.PatientID, CollaboratorID: arg.CollaboratorID, Type: arg.Type,
		Title: arg.Title, Content: arg.Content, Amount: arg.Amount, CreatedAt: m.Now(),
	}
	m.st.notes = append(m.st.notes, n)
	return n, nil
}

func (m *MemStore) ListNotes(ctx context.Context, patientID uuid.UUID) ([]repo.PatientNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.PatientNote
	for i := len(m.st.notes) - 1; i >= 0; i-- {
		if m.st.notes[i].PatientID == patientID {
			out = append(out, m.st.notes[i])
		}
	}
	return out, nil
}

func (m *MemStore) CreateFile(ctx context.Context, arg repo.CreateFileParams) (repo.PatientFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := repo.PatientFile{
		ID: uuid.New(), PatientID: arg.PatientID, UploadedBy: arg.UploadedBy, FileName: arg.FileName,
		ContentType: arg.ContentType, SizeBytes: arg.SizeBytes, URL: arg.URL, CreatedAt: m.Now(),
	}
	m.st.files = append(m.st.files, f)
	return f, nil
}

func (m *MemStore) ListFiles(ctx context.Context, patientID uuid.UUID) ([]repo.PatientFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.PatientFile
	for i := len(m.st.files) - 1; i >= 0; i-- {
		if m.st.files[i].PatientID == patientID {
			out = append(out, m.st.files[i])
		}
	}
	return out, nil
}

// Admin tasks

func (m *MemStore) CreateTask(ctx context.Context, arg repo.CreateTaskParams) (repo.AdminTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	t := repo.AdminTask{
		ID: uuid.New(), Title: arg.Title, Description: arg.Description, CollaboratorID: arg.CollaboratorID,
		PatientID: arg.PatientID, CreatedBy: arg.CreatedBy, Priority: arg.Priority, Status: arg.Status,
		DueDate: arg.DueDate, Recurrence: arg.Recurrence, CreatedAt: now, UpdatedAt: now,
	}
	m.st.tasks = append(m.st.tasks, t)
	return t, nil
}

func (m *MemStore) GetTask(ctx context.Context, id uuid.UUID) (repo.AdminTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.tasks, func(t repo.AdminTask) bool { return t.ID == id }); ok {
		return m.st.tasks[i], nil
	}
	return repo.AdminTask{}, repo.ErrNotFound
}

func (m *MemStore) ListTasks(ctx context.Context, filter repo.TaskFilter) ([]repo.AdminTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.AdminTask
	for i := len(m.st.tasks) - 1; i >= 0; i-- {
		t := m.st.tasks[i]
		if filter.CollaboratorID != nil && t.CollaboratorID != *filter.CollaboratorID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (m *MemStore) UpdateTask(ctx context.Context, id uuid.UUID, set repo.UpdateSet) (repo.AdminTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.tasks, func(t repo.AdminTask) bool { return t.ID == id })
	if !ok {
		return repo.AdminTask{}, repo.ErrNotFound
	}
	t := m.st.tasks[i]
	if err := apply(&t, set); err != nil {
		return repo.AdminTask{}, err
	}
	t.UpdatedAt = m.Now()
	m.st.tasks[i] = t
	return t, nil
}

// Performance

func (m *MemStore) UpsertPerformance(ctx context.Context, arg repo.UpsertPerformanceParams) (repo.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric := repo.PerformanceMetric{
		CollaboratorID: arg.CollaboratorID, Date: arg.Date, Contacts: arg.Contacts, Appointments: arg.Appointments,
		ProceduresCompleted: arg.ProceduresCompleted, Revenue: arg.Revenue, Feedbacks: arg.Feedbacks,
		TasksCompleted: arg.TasksCompleted, SatisfactionScore: arg.SatisfactionScore,
	}
	if i, ok := find(m.st.performance, func(p repo.PerformanceMetric) bool {
		return p.CollaboratorID == arg.CollaboratorID && p.Date.Equal(arg.Date)
	}); ok {
		metric.ID = m.st.performance[i].ID
		metric.CreatedAt = m.st.performance[i].CreatedAt
		m.st.performance[i] = metric
		return metric, nil
	}
	metric.ID = uuid.New()
	metric.CreatedAt = m.Now()
	m.st.performance = append(m.st.performance, metric)
	return metric, nil
}

func (m *MemStore) ListPerformance(ctx context.Context, collaboratorID uuid.UUID, from, to time.Time) ([]repo.PerformanceMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.PerformanceMetric
	for _, p := range m.st.performance {
		if p.CollaboratorID == collaboratorID && inRange(p.Date, &from, &to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemStore) PerformanceRankings(ctx context.Context, from, to time.Time) ([]repo.PerformanceRanking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byCollab := map[uuid.UUID]*repo.PerformanceRanking{}
	scores := map[uuid.UUID][]float64{}
	var order []uuid.UUID
	for _, p := range m.st.performance {
		if !inRange(p.Date, &from, &to) {
			continue
		}
		r, ok := byCollab[p.CollaboratorID]
		if !ok {
			r = &repo.PerformanceRanking{CollaboratorID: p.CollaboratorID, Name: m.collaboratorName(p.CollaboratorID)}
			byCollab[p.CollaboratorID] = r
			order = append(order, p.CollaboratorID)
		}
		r.Contacts += p.Contacts
		r.Appointments += p.Appointments
		r.ProceduresCompleted += p.ProceduresCompleted
		r.Revenue += p.Revenue
		r.Feedbacks += p.Feedbacks
		r.TasksCompleted += p.TasksCompleted
		if p.SatisfactionScore != nil {
			scores[p.CollaboratorID] = append(scores[p.CollaboratorID], *p.SatisfactionScore)
		}
	}
	out := make([]repo.PerformanceRanking, 0, len(order))
	for _, id := range order {
		r := *byCollab[id]
		if s := scores[id]; len(s) > 0 {
			var sum float64
			for _, v := range s {
				sum += v
			}
			avg := sum / float64(len(s))
			r.AvgSatisfaction = &avg
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Progress

func (m *MemStore) CreateProgress(ctx context.Context, arg repo.CreateProgressParams) (repo.PatientProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := repo.PatientProgress{
		ID: uuid.New(), PatientID: arg.PatientID, CollaboratorID: arg.CollaboratorID, Status: arg.Status,
		PreviousStatus: arg.PreviousStatus, IsStalled: arg.IsStalled, StallReason: arg.StallReason,
		DaysSinceLastContact: arg.DaysSinceLastContact, NextAction: arg.NextAction, NextActionDate: arg.NextActionDate,
		CreatedAt: m.Now(),
	}
	m.st.progress = append(m.st.progress, p)
	return p, nil
}

func (m *MemStore) ListProgress(ctx context.Context, patientID uuid.UUID) ([]repo.PatientProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.PatientProgress
	for i := len(m.st.progress) - 1; i >= 0; i-- {
		if m.st.progress[i].PatientID == patientID {
			out = append(out, m.st.progress[i])
		}
	}
	return out, nil
}

// latestProgress devolve o último registro por paciente (o mais novo inserido).
func (m *MemStore) latestProgress() []repo.PatientProgress {
	seen := map[uuid.UUID]bool{}
	var out []repo.PatientProgress
	for i := len(m.st.progress) - 1; i >= 0; i-- {
		p := m.st.progress[i]
		if seen[p.PatientID] {
			continue
		}
		seen[p.PatientID] = true
		out = append(out, p)
	}
	return out
}

func (m *MemStore) ListStalledPatients(ctx context.Context, collaboratorID *uuid.UUID) ([]repo.StalledPatient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.StalledPatient
	for _, lp := range m.latestProgress() {
		if !lp.IsStalled {
			continue
		}
		i, ok := find(m.st.patients, func(p repo.Patient) bool { return p.ID == lp.PatientID })
		if !ok {
			continue
		}
		patient := m.st.patients[i]
		if collaboratorID != nil && (patient.CollaboratorID == nil || *patient.CollaboratorID != *collaboratorID) {
			continue
		}
		sp := repo.StalledPatient{
			PatientID: patient.ID, PatientName: patient.Name, CollaboratorID: patient.CollaboratorID,
			StallReason: lp.StallReason, DaysSinceLastContact: lp.DaysSinceLastContact, NextAction: lp.NextAction,
			FlaggedAt: lp.CreatedAt,
		}
		if patient.CollaboratorID != nil {
			name := m.collaboratorName(*patient.CollaboratorID)
			sp.CollaboratorName = &name
		}
		out = append(out, sp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysSinceLastContact != out[j].DaysSinceLastContact {
			return out[i].DaysSinceLastContact > out[j].DaysSinceLastContact
		}
		return out[i].PatientName < out[j].PatientName
	})
	return out, nil
}

func (m *MemStore) CountStalledPatients(ctx context.Context, collaboratorID *uuid.UUID) (int, error) {
	list, err := m.ListStalledPatients(ctx, collaboratorID)
	return len(list), err
}

// Activity

func (m *MemStore) CreateActivity(ctx context.Context, arg repo.CreateActivityParams) (repo.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateActivity"); err != nil {
		return repo.ActivityLog{}, err
	}
	a := repo.ActivityLog{
		ID: uuid.New(), UserID: arg.UserID, Type: arg.Type, Description: arg.Description,
		EntityType: arg.EntityType, EntityID: arg.EntityID, CreatedAt: m.Now(),
	}
	m.st.activity = append(m.st.activity, a)
	return a, nil
}

func (m *MemStore) ListActivity(ctx context.Context, userID *uuid.UUID, limit int) ([]repo.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []repo.ActivityLog
	for i := len(m.st.activity) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.st.activity[i]
		if userID != nil && (a.UserID == nil || *a.UserID != *userID) {
			continue
		}
		if a.UserID != nil {
			if u, err := m.user(*a.UserID); err == nil {
				name := u.Name
				a.UserName = &name
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// Passkeys

func (m *MemStore) ListPasskeys(ctx context.Context, userID uuid.UUID) ([]repo.PasskeyCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.PasskeyCredential
	for _, p := range m.st.passkeys {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemStore) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (repo.PasskeyCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := find(m.st.passkeys, func(p repo.PasskeyCredential) bool { return bytes.Equal(p.CredentialID, credentialID) }); ok {
		return m.st.passkeys[i], nil
	}
	return repo.PasskeyCredential{}, repo.ErrNotFound
}

func (m *MemStore) CreatePasskey(ctx context.Context, arg repo.CreatePasskeyParams) (repo.PasskeyCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := repo.PasskeyCredential{
		ID: uuid.New(), UserID: arg.UserID, CredentialID: arg.CredentialID, PublicKey: arg.PublicKey,
		SignCount: arg.SignCount, Transports: arg.Transports, AAGUID: arg.AAGUID, Nickname: arg.Nickname,
		Cloned: arg.Cloned, CreatedAt: m.Now(),
	}
	m.st.passkeys = append(m.st.passkeys, p)
	return p, nil
}

func (m *MemStore) UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := find(m.st.passkeys, func(p repo.PasskeyCredential) bool { return p.ID == id })
	if !ok {
		return repo.ErrNotFound
	}
	now := m.Now()
	m.st.passkeys[i].SignCount = signCount
	m.st.passkeys[i].Cloned = cloned
	m.st.passkeys[i].UpdatedAt = &now
	return nil
}

// ActivityTypes devolve os tipos registrados, na ordem de inserção.
func (m *MemStore) ActivityTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.st.activity))
	for _, a := range m.st.activity {
		out = append(out, a.Type)
	}
	return out
}

// Procedures devolve todos os procedimentos gravados.
func (m *MemStore) Procedures() []repo.Procedure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repo.Procedure(nil), m.st.procedures...)
}
