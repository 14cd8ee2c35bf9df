package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func (f *fixture) consultation(t *testing.T, owner auth.Principal, patientID *uuid.UUID, start time.Time) repo.Event {
	t.Helper()
	event, err := f.svc.CreateEvent(f.ctx, owner, service.CreateEventInput{
		PatientID: patientID,
		Title:     "Consulta",
		StartDate: &service.Date{Time: start},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func TestCompleteEventClosedProcedure(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, "Preenchimento", 1500, 365)
	patient := f.patient(t, f.maria, "Carla")
	event := f.consultation(t, f.maria, &patient.ID, f.now.Add(-time.Hour))

	value := service.Number(1800)
	result, err := f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{
		CompletionType: "closed_procedure",
		TemplateID:     &tpl.ID,
		Value:          &value,
		Notes:          strPtr("Fechou com desconto"),
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Event.Status != repo.EventCompleted || result.Event.CompletedAt == nil {
		t.Fatalf("event not completed: %+v", result.Event)
	}
	if result.Procedure == nil || result.Procedure.Value != 1800 {
		t.Fatalf("expected procedure with informed value, got %+v", result.Procedure)
	}
	if result.Event.ProcedureID == nil || *result.Event.ProcedureID != result.Procedure.ID {
		t.Fatalf("event must link the procedure")
	}
	want := f.now.AddDate(0, 0, 365)
	if result.Procedure.ValidUntil == nil || !result.Procedure.ValidUntil.Equal(want) {
		t.Fatalf("valid_until = %v, want %v", result.Procedure.ValidUntil, want)
	}
	if result.Patient == nil || result.Patient.FollowupStatus == nil || *result.Patient.FollowupStatus != repo.FollowupProcedureClosed {
		t.Fatalf("patient followup not updated: %+v", result.Patient)
	}
	if result.Patient.LastConsultationDate == nil || !result.Patient.LastConsultationDate.Equal(f.now) {
		t.Fatalf("last consultation date not set")
	}

	notes, _ := f.svc.ListNotes(f.ctx, f.maria, patient.ID)
	if len(notes) != 1 || notes[0].Type != repo.NoteProcedure || notes[0].Content != "Fechou com desconto" {
		t.Fatalf("unexpected notes %+v", notes)
	}
	if notes[0].Amount == nil || *notes[0].Amount != 1800 {
		t.Fatalf("note amount must be the procedure value")
	}

	_, err = f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{CompletionType: "missed"})
	if verr := expectValidation(t, err, ""); verr.Message != "compromisso já está concluído" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
}

func TestCompleteEventOutcomes(t *testing.T) {
	cases := []struct {
		kind     string
		followup repo.FollowupStatus
		note     repo.NoteType
		list     service.PatientList
	}{
		{"no_closure", repo.FollowupNoClosure, repo.NoteAppointment, service.ListNoClosure},
		{"missed", repo.FollowupMissed, repo.NoteMissed, service.ListMissed},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			f := newFixture(t)
			patient := f.patient(t, f.maria, "Carla")
			event := f.consultation(t, f.maria, &patient.ID, f.now)

			result, err := f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{CompletionType: tc.kind})
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			if result.Procedure != nil {
				t.Fatalf("no procedure expected")
			}
			if *result.Patient.FollowupStatus != tc.followup {
				t.Fatalf("followup = %s, want %s", *result.Patient.FollowupStatus, tc.followup)
			}
			notes, _ := f.svc.ListNotes(f.ctx, f.maria, patient.ID)
			if len(notes) != 1 || notes[0].Type != tc.note {
				t.Fatalf("unexpected notes %+v", notes)
			}
			page, err := f.svc.ListPatientShortcut(f.ctx, f.maria, tc.list, 0, 0)
			if err != nil || len(page.Items) != 1 || page.Total != 1 {
				t.Fatalf("shortcut %s: %+v err=%v", tc.list, page, err)
			}
		})
	}
}

func TestCompleteEventValidation(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, "Botox", 900, 120)
	patient := f.patient(t, f.maria, "Carla")
	event := f.consultation(t, f.maria, &patient.ID, f.now)
	orphan := f.consultation(t, f.maria, nil, f.now)

	_, err := f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{})
	expectValidation(t, err, "completionType")
	_, err = f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{CompletionType: "talvez"})
	expectValidation(t, err, "completionType")
	_, err = f.svc.CompleteEvent(f.ctx, f.joao, event.ID, service.ConsultationResultInput{CompletionType: "missed"})
	expectForbidden(t, err)
	_, err = f.svc.CompleteEvent(f.ctx, f.maria, orphan.ID, service.ConsultationResultInput{CompletionType: "closed_procedure", TemplateID: &tpl.ID})
	expectValidation(t, err, "")

	missing := uuid.New()
	_, err = f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{CompletionType: "closed_procedure", TemplateID: &missing})
	expectValidation(t, err, "")

	// compromisso sem paciente e sem modelo só fecha o compromisso
	result, err := f.svc.CompleteEvent(f.ctx, f.maria, orphan.ID, service.ConsultationResultInput{CompletionType: "no_closure"})
	if err != nil || result.Patient != nil || result.Event.Status != repo.EventCompleted {
		t.Fatalf("orphan completion: %+v err=%v", result, err)
	}
}

func TestCompleteEventRollsBack(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, "Botox", 900, 120)
	patient := f.patient(t, f.maria, "Carla")
	event := f.consultation(t, f.maria, &patient.ID, f.now)

	f.store.FailOn("UpdateEvent", errors.New("conexão perdida"))
	_, err := f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{CompletionType: "closed_procedure", TemplateID: &tpl.ID})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if n := len(f.store.Procedures()); n != 0 {
		t.Fatalf("procedure must be rolled back, got %d", n)
	}
	current, _ := f.svc.GetPatient(f.ctx, f.maria, patient.ID)
	if current.FollowupStatus != nil || current.LastConsultationDate != nil {
		t.Fatalf("patient changes must be rolled back: %+v", current.Patient)
	}
	ev, _ := f.svc.GetEvent(f.ctx, f.maria, event.ID)
	if ev.Status != repo.EventPending {
		t.Fatalf("event must stay pending, got %s", ev.Status)
	}
	notes, _ := f.svc.ListNotes(f.ctx, f.maria, patient.ID)
	if len(notes) != 0 {
		t.Fatalf("note must be rolled back")
	}
	if len(f.recorder.consultations) != 0 {
		t.Fatalf("metrics must not count failed completions")
	}
}

func TestUpdateEventRules(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carla")
	event := f.consultation(t, f.maria, &patient.ID, f.now)

	_, err := f.svc.UpdateEvent(f.ctx, f.maria, event.ID, service.Patch{"status": []byte(`"completed"`)})
	expectValidation(t, err, "")

	updated, err := f.svc.UpdateEvent(f.ctx, f.maria, event.ID, service.Patch{"status": []byte(`"confirmed"`), "title": []byte(`"Retorno"`)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != repo.EventConfirmed || updated.Title != "Retorno" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	if _, err := f.svc.CompleteEvent(f.ctx, f.maria, event.ID, service.ConsultationResultInput{CompletionType: "missed"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = f.svc.UpdateEvent(f.ctx, f.maria, event.ID, service.Patch{"title": []byte(`"Outro"`)})
	expectValidation(t, err, "")

	fb, err := f.svc.RecordFeedback(f.ctx, f.maria, event.ID, service.FeedbackInput{FeedbackResponse: strPtr("Gostou")})
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if !fb.FeedbackCompleted || !fb.PatientResponded || fb.FeedbackDate == nil {
		t.Fatalf("feedback not recorded: %+v", fb)
	}
}

func TestUpcomingAndPendingEvents(t *testing.T) {
	f := newFixture(t)
	f.consultation(t, f.maria, nil, f.now.Add(-48*time.Hour))
	f.consultation(t, f.maria, nil, f.now.Add(24*time.Hour))
	f.consultation(t, f.joao, nil, f.now.Add(2*time.Hour))

	upcoming, err := f.svc.UpcomingEvents(f.ctx, f.maria, 0)
	if err != nil || len(upcoming) != 1 {
		t.Fatalf("upcoming: n=%d err=%v", len(upcoming), err)
	}
	pending, err := f.svc.PendingEvents(f.ctx, f.maria)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: n=%d err=%v", len(pending), err)
	}
	all, _ := f.svc.UpcomingEvents(f.ctx, f.admin, 0)
	if len(all) != 2 || !all[0].StartDate.Before(all[1].StartDate) {
		t.Fatalf("admin upcoming must be ordered by start date: %+v", all)
	}
}
