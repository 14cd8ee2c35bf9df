package service_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func TestDeleteCityBlockedByReferences(t *testing.T) {
	f := newFixture(t)
	f.patient(t, f.maria, "Carla")

	err := f.svc.DeleteCity(f.ctx, f.admin, f.city.ID)
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	want := "não é possível excluir a cidade: 2 colaborador(es) e 1 paciente(s) vinculados"
	if conflict.Message != want {
		t.Fatalf("message = %q, want %q", conflict.Message, want)
	}

	empty, err := f.svc.CreateCity(f.ctx, f.admin, service.CreateCityInput{Name: "Olinda", State: "pe"})
	if err != nil {
		t.Fatalf("create city: %v", err)
	}
	if empty.State != "PE" {
		t.Fatalf("state must be upper-cased, got %s", empty.State)
	}
	if err := f.svc.DeleteCity(f.ctx, f.admin, empty.ID); err != nil {
		t.Fatalf("delete empty city: %v", err)
	}
	expectForbidden(t, f.svc.DeleteCity(f.ctx, f.maria, f.city.ID))

	_, err = f.svc.CreateCity(f.ctx, f.admin, service.CreateCityInput{Name: "X", State: "Pernambuco"})
	expectValidation(t, err, "state")
}

func TestUpdateCityPatch(t *testing.T) {
	f := newFixture(t)
	city, err := f.svc.UpdateCity(f.ctx, f.admin, f.city.ID, service.Patch{"monthlyGoal": json.RawMessage(`"50000,00"`)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if city.MonthlyGoal == nil || *city.MonthlyGoal != 50000 {
		t.Fatalf("monthly goal not applied: %v", city.MonthlyGoal)
	}
	city, err = f.svc.UpdateCity(f.ctx, f.admin, f.city.ID, service.Patch{"monthlyGoal": json.RawMessage(`null`)})
	if err != nil || city.MonthlyGoal != nil {
		t.Fatalf("null must clear the goal: %v err=%v", city.MonthlyGoal, err)
	}
	_, err = f.svc.UpdateCity(f.ctx, f.admin, f.city.ID, service.Patch{"monthlyGoal": json.RawMessage(`-1`)})
	expectValidation(t, err, "monthlyGoal")
}

func TestCollaboratorLifecycle(t *testing.T) {
	f := newFixture(t)
	f.patient(t, f.maria, "Carla")

	err := f.svc.DeleteCollaborator(f.ctx, f.admin, f.mariaC.ID)
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) || conflict.Message != "não é possível excluir o colaborador: 1 paciente(s) vinculados" {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := f.svc.DeleteCollaborator(f.ctx, f.admin, f.joaoC.ID); err != nil {
		t.Fatalf("delete collaborator without patients: %v", err)
	}

	_, err = f.svc.CreateCollaborator(f.ctx, f.admin, service.CreateCollaboratorInput{UserID: f.maria.UserID, CityID: f.city.ID})
	if verr := expectValidation(t, err, ""); verr.Message != "usuário já é colaborador" {
		t.Fatalf("unexpected message %q", verr.Message)
	}

	_, err = f.svc.GetCollaborator(f.ctx, f.maria, f.joaoC.ID)
	expectForbidden(t, err)
	self, err := f.svc.GetCollaborator(f.ctx, f.maria, f.mariaC.ID)
	if err != nil || self.User.Name != "Maria Souza" || self.City.Name != "Recife" {
		t.Fatalf("self detail: %+v err=%v", self, err)
	}

	updated, err := f.svc.UpdateCollaborator(f.ctx, f.admin, f.mariaC.ID, service.Patch{"consultationGoal": json.RawMessage(`"30"`), "isActive": json.RawMessage(`false`)})
	if err != nil || updated.ConsultationGoal != 30 || updated.IsActive {
		t.Fatalf("update collaborator: %+v err=%v", updated, err)
	}
}

func TestDeleteCollaboratorBlockedByHistory(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateTask(f.ctx, f.admin, service.CreateTaskInput{Title: "Revisar agenda", CollaboratorID: f.joaoC.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	err := f.svc.DeleteCollaborator(f.ctx, f.admin, f.joaoC.ID)
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) || conflict.Message != "não é possível excluir o colaborador: 1 tarefa(s) vinculados" {
		t.Fatalf("expected conflict on task, got %v", err)
	}
	if _, err := f.svc.GetCollaborator(f.ctx, f.admin, f.joaoC.ID); err != nil {
		t.Fatalf("collaborator must survive the refused delete: %v", err)
	}
}

func TestCityNameUnique(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCity(f.ctx, f.admin, service.CreateCityInput{Name: " recife ", State: "PE"})
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) || !strings.Contains(conflict.Message, "Recife") {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}

	olinda, err := f.svc.CreateCity(f.ctx, f.admin, service.CreateCityInput{Name: "Olinda", State: "PE"})
	if err != nil {
		t.Fatalf("create city: %v", err)
	}
	_, err = f.svc.UpdateCity(f.ctx, f.admin, olinda.ID, service.Patch{"name": json.RawMessage(`"RECIFE"`)})
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on rename, got %v", err)
	}
	if _, err := f.svc.UpdateCity(f.ctx, f.admin, olinda.ID, service.Patch{"name": json.RawMessage(`"olinda"`)}); err != nil {
		t.Fatalf("renaming a city onto itself must pass: %v", err)
	}
}

func TestTaskCompletionTimestamp(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.CreateTask(f.ctx, f.admin, service.CreateTaskInput{Title: "Ligar para pacientes", CollaboratorID: f.mariaC.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Priority != repo.PriorityMedium || task.Status != repo.TaskPending {
		t.Fatalf("unexpected defaults %+v", task)
	}
	_, err = f.svc.CreateTask(f.ctx, f.maria, service.CreateTaskInput{Title: "x", CollaboratorID: f.mariaC.ID})
	expectForbidden(t, err)

	_, err = f.svc.UpdateTaskStatus(f.ctx, f.joao, task.ID, service.TaskStatusInput{Status: repo.TaskCompleted})
	expectForbidden(t, err)

	done, err := f.svc.UpdateTaskStatus(f.ctx, f.maria, task.ID, service.TaskStatusInput{Status: repo.TaskCompleted})
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(f.now) {
		t.Fatalf("completed_at must be set, got %v", done.CompletedAt)
	}
	reopened, err := f.svc.UpdateTaskStatus(f.ctx, f.maria, task.ID, service.TaskStatusInput{Status: repo.TaskInProgress})
	if err != nil || reopened.CompletedAt != nil {
		t.Fatalf("reopening must clear completed_at: %v err=%v", reopened.CompletedAt, err)
	}
	_, err = f.svc.UpdateTaskStatus(f.ctx, f.maria, task.ID, service.TaskStatusInput{Status: "feito"})
	expectValidation(t, err, "status")

	mine, _ := f.svc.ListTasks(f.ctx, f.maria, repo.TaskFilter{})
	theirs, _ := f.svc.ListTasks(f.ctx, f.joao, repo.TaskFilter{})
	if len(mine) != 1 || len(theirs) != 0 {
		t.Fatalf("tasks must be scoped: mine=%d theirs=%d", len(mine), len(theirs))
	}
}

func TestUploads(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carla")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	updated, err := f.svc.UploadPhoto(f.ctx, f.maria, patient.ID, service.FileUpload{FileName: "foto.png", Body: png})
	if err != nil {
		t.Fatalf("upload photo: %v", err)
	}
	prefix := "/uploads/patients/" + patient.ID.String() + "/photo/"
	if updated.PhotoURL == nil || !strings.HasPrefix(*updated.PhotoURL, prefix) {
		t.Fatalf("unexpected photo url %v", updated.PhotoURL)
	}

	_, err = f.svc.UploadPhoto(f.ctx, f.maria, patient.ID, service.FileUpload{FileName: "nota.txt", Body: []byte("texto simples")})
	expectValidation(t, err, "")
	_, err = f.svc.UploadFile(f.ctx, f.maria, patient.ID, service.FileUpload{FileName: "vazio.pdf"})
	expectValidation(t, err, "")

	file, err := f.svc.UploadFile(f.ctx, f.maria, patient.ID, service.FileUpload{FileName: "exame.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("upload file: %v", err)
	}
	if file.SizeBytes != 8 || file.ContentType != "application/pdf" {
		t.Fatalf("unexpected file %+v", file)
	}
	files, _ := f.svc.ListFiles(f.ctx, f.maria, patient.ID)
	notes, _ := f.svc.ListNotes(f.ctx, f.maria, patient.ID)
	if len(files) != 1 || len(notes) != 1 || notes[0].Type != repo.NoteFile {
		t.Fatalf("expected one file and one file note, got %d/%+v", len(files), notes)
	}
	_, err = f.svc.UploadFile(f.ctx, f.joao, patient.ID, service.FileUpload{FileName: "x.pdf", Body: []byte("x")})
	expectForbidden(t, err)
}

func TestProcedureEffectiveStatus(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carla")
	tpl := f.template(t, "Peeling", 400, 30)

	old, err := f.svc.CreateProcedure(f.ctx, f.maria, service.CreateProcedureInput{
		PatientID:     patient.ID,
		Name:          strPtr("Limpeza"),
		Value:         func() *service.Number { v := service.Number(300); return &v }(),
		PerformedDate: &service.Date{Time: f.now.AddDate(0, -2, 0)},
		ValidUntil:    &service.Date{Time: f.now.AddDate(0, -1, 0)},
	})
	if err != nil {
		t.Fatalf("create expired procedure: %v", err)
	}
	fresh, err := f.svc.CreateProcedure(f.ctx, f.maria, service.CreateProcedureInput{PatientID: patient.ID, TemplateID: &tpl.ID})
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}
	if fresh.Name != "Peeling" || fresh.Value != 400 || fresh.ValidUntil == nil || !fresh.ValidUntil.Equal(f.now.AddDate(0, 0, 30)) {
		t.Fatalf("template defaults not applied: %+v", fresh)
	}

	expired := repo.ProcedureExpired
	list, err := f.svc.ListProcedures(f.ctx, f.maria, service.ProcedureQuery{Status: &expired})
	if err != nil || len(list) != 1 || list[0].ID != old.ID || list[0].Status != repo.ProcedureExpired {
		t.Fatalf("expected the old procedure as expired: %+v err=%v", list, err)
	}
	expiring, _ := f.svc.ListProcedures(f.ctx, f.maria, service.ProcedureQuery{ExpiringWithinDays: 45})
	if len(expiring) != 1 || expiring[0].ID != fresh.ID {
		t.Fatalf("expected the fresh procedure expiring soon, got %+v", expiring)
	}
	n, err := f.svc.ExpireProcedures(f.ctx)
	if err != nil || n != 1 {
		t.Fatalf("expire: n=%d err=%v", n, err)
	}

	_, err = f.svc.CreateProcedure(f.ctx, f.maria, service.CreateProcedureInput{
		PatientID:     patient.ID,
		Name:          strPtr("X"),
		PerformedDate: &service.Date{Time: f.now},
		ValidUntil:    &service.Date{Time: f.now.AddDate(0, 0, -1)},
	})
	expectValidation(t, err, "validUntil")

	err = f.svc.DeleteTemplate(f.ctx, f.admin, tpl.ID)
	var conflict *service.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("template with procedures must not be deleted, got %v", err)
	}
}

func TestProgressAndStalledPatients(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carla")

	first, err := f.svc.CreateProgress(f.ctx, f.maria, patient.ID, service.CreateProgressInput{Status: "aguardando retorno", IsStalled: true, StallReason: strPtr("não atende")})
	if err != nil {
		t.Fatalf("create progress: %v", err)
	}
	if first.PreviousStatus != nil {
		t.Fatalf("first entry has no previous status")
	}
	stalled, err := f.svc.StalledPatients(f.ctx, f.admin)
	if err != nil || len(stalled) != 1 || stalled[0].PatientID != patient.ID {
		t.Fatalf("expected one stalled patient: %+v err=%v", stalled, err)
	}
	_, err = f.svc.StalledPatients(f.ctx, f.maria)
	expectForbidden(t, err)

	second, err := f.svc.CreateProgress(f.ctx, f.maria, patient.ID, service.CreateProgressInput{Status: "agendado"})
	if err != nil {
		t.Fatalf("create progress: %v", err)
	}
	if second.PreviousStatus == nil || *second.PreviousStatus != "aguardando retorno" {
		t.Fatalf("previous status = %v", second.PreviousStatus)
	}
	stalled, _ = f.svc.StalledPatients(f.ctx, f.admin)
	if len(stalled) != 0 {
		t.Fatalf("only the latest entry counts, got %d stalled", len(stalled))
	}
}

func TestPerformanceUpsert(t *testing.T) {
	f := newFixture(t)
	revenue := service.Number(1000)
	if _, err := f.svc.UpsertPerformance(f.ctx, f.maria, service.UpsertPerformanceInput{Revenue: &revenue}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	revenue = 1500
	metric, err := f.svc.UpsertPerformance(f.ctx, f.maria, service.UpsertPerformanceInput{Revenue: &revenue})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if !metric.Date.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date must be truncated to the day, got %v", metric.Date)
	}

	list, _ := f.svc.ListPerformance(f.ctx, f.maria, f.mariaC.ID, nil, nil)
	if len(list) != 1 || list[0].Revenue != 1500 {
		t.Fatalf("same day must be replaced: %+v", list)
	}
	_, err = f.svc.ListPerformance(f.ctx, f.joao, f.mariaC.ID, nil, nil)
	expectForbidden(t, err)

	score := service.Number(11)
	_, err = f.svc.UpsertPerformance(f.ctx, f.maria, service.UpsertPerformanceInput{SatisfactionScore: &score})
	expectValidation(t, err, "satisfactionScore")

	revenue = 200
	if _, err := f.svc.UpsertPerformance(f.ctx, f.joao, service.UpsertPerformanceInput{Revenue: &revenue}); err != nil {
		t.Fatalf("upsert joao: %v", err)
	}
	ranking, err := f.svc.PerformanceRankings(f.ctx, f.admin, nil, nil)
	if err != nil || len(ranking) != 2 || ranking[0].CollaboratorID != f.mariaC.ID {
		t.Fatalf("unexpected ranking %+v err=%v", ranking, err)
	}
}

func TestCollaboratorMetricsAndGrowth(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carla")
	value := func(v float64) *service.Number { n := service.Number(v); return &n }

	if _, err := f.svc.CreateProcedure(f.ctx, f.maria, service.CreateProcedureInput{PatientID: patient.ID, Name: strPtr("Botox"), Value: value(2500)}); err != nil {
		t.Fatalf("create procedure: %v", err)
	}
	f.consultation(t, f.maria, &patient.ID, f.now.Add(time.Hour))

	metrics, err := f.svc.CollaboratorMetrics(f.ctx, f.maria, f.mariaC.ID)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.RevenueThisMonth != 2500 || metrics.GoalProgress.Monthly != 25 {
		t.Fatalf("monthly progress: %+v", metrics)
	}
	if metrics.ConsultationsThisMonth != 1 || metrics.GoalProgress.Consultations != 5 {
		t.Fatalf("consultation progress: %+v", metrics)
	}

	zero, err := f.svc.CollaboratorMetrics(f.ctx, f.admin, f.joaoC.ID)
	if err != nil || zero.GoalProgress.Monthly != 0 || zero.GoalProgress.Consultations != 0 {
		t.Fatalf("zero goal must give zero progress: %+v err=%v", zero, err)
	}
	_, err = f.svc.CollaboratorMetrics(f.ctx, f.joao, f.mariaC.ID)
	expectForbidden(t, err)

	stats, err := f.svc.GlobalStats(f.ctx, f.admin, nil, nil)
	if err != nil {
		t.Fatalf("global stats: %v", err)
	}
	if stats.MonthlyGrowth != nil {
		t.Fatalf("growth over an empty month must be nil, got %v", *stats.MonthlyGrowth)
	}

	if _, err := f.svc.CreateProcedure(f.ctx, f.admin, service.CreateProcedureInput{
		PatientID:     patient.ID,
		Name:          strPtr("Limpeza"),
		Value:         value(1000),
		PerformedDate: &service.Date{Time: time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)},
	}); err != nil {
		t.Fatalf("create procedure last month: %v", err)
	}
	stats, err = f.svc.GlobalStats(f.ctx, f.admin, nil, nil)
	if err != nil {
		t.Fatalf("global stats: %v", err)
	}
	if stats.MonthlyGrowth == nil || math.Abs(*stats.MonthlyGrowth-150) > 1e-9 {
		t.Fatalf("monthly growth = %v, want 150", stats.MonthlyGrowth)
	}
	if stats.TotalRevenue != 3500 || stats.TotalPatients != 1 || len(stats.TopPerformers) != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	_, err = f.svc.GlobalStats(f.ctx, f.maria, nil, nil)
	expectForbidden(t, err)
}

func TestDashboardScopes(t *testing.T) {
	f := newFixture(t)
	f.patient(t, f.maria, "Carla")
	f.patient(t, f.joao, "Bruno")
	if _, err := f.svc.CreatePatient(f.ctx, f.admin, service.CreatePatientInput{Name: "Pré"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	global, err := f.svc.Dashboard(f.ctx, f.admin)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if global.Scope != "global" || global.Patients.Total != 3 || global.Patients.IncompleteRegisters != 1 {
		t.Fatalf("unexpected global dashboard %+v", global.Patients)
	}
	if global.TotalCollaborators == nil || *global.TotalCollaborators != 2 {
		t.Fatalf("total collaborators missing")
	}

	own, err := f.svc.Dashboard(f.ctx, f.maria)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if own.Scope != "collaborator" || own.Patients.Total != 1 || own.Metrics == nil {
		t.Fatalf("unexpected collaborator dashboard %+v", own)
	}
	_, err = f.svc.CollaboratorDashboard(f.ctx, f.maria, f.joaoC.ID)
	expectForbidden(t, err)

	mine, _ := f.svc.Activity(f.ctx, f.maria, 0)
	for _, a := range mine {
		if a.UserID == nil || *a.UserID != f.maria.UserID {
			t.Fatalf("collaborator must see only own activity, got %+v", a)
		}
	}
	all, _ := f.svc.Activity(f.ctx, f.admin, 0)
	if len(all) != 3 || len(mine) != 1 {
		t.Fatalf("activity counts: all=%d mine=%d", len(all), len(mine))
	}
}
