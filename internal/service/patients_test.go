package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

func TestCreatePatientDefaults(t *testing.T) {
	f := newFixture(t)

	own := f.patient(t, f.maria, "Carlos Alberto")
	if own.CollaboratorID == nil || *own.CollaboratorID != f.mariaC.ID {
		t.Fatalf("collaborator must own the patient, got %v", own.CollaboratorID)
	}
	if !own.IsRegistrationComplete {
		t.Fatalf("patient created by collaborator must be complete")
	}
	if own.Classification != repo.ClassificationBronze || own.Status != repo.PatientActive {
		t.Fatalf("unexpected defaults: %s/%s", own.Classification, own.Status)
	}

	pre, err := f.svc.CreatePatient(f.ctx, f.admin, service.CreatePatientInput{Name: "Pré Cadastro"})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if pre.IsRegistrationComplete || pre.CollaboratorID != nil {
		t.Fatalf("admin creates an incomplete registration without owner, got %+v", pre)
	}

	_, err = f.svc.CreatePatient(f.ctx, f.admin, service.CreatePatientInput{Name: "X", Status: repo.PatientDeactivated})
	expectValidation(t, err, "status")
	_, err = f.svc.CreatePatient(f.ctx, f.admin, service.CreatePatientInput{Name: " "})
	expectValidation(t, err, "name")
}

func TestCollaboratorScoping(t *testing.T) {
	f := newFixture(t)
	mine := f.patient(t, f.maria, "Paciente da Maria")
	f.patient(t, f.joao, "Paciente do João")

	list, err := f.svc.ListPatients(f.ctx, f.maria, repo.PatientFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("collaborator must see only own patients, got %d", len(list))
	}
	all, err := f.svc.ListPatients(f.ctx, f.admin, repo.PatientFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("admin must see all patients: n=%d err=%v", len(all), err)
	}

	_, err = f.svc.GetPatient(f.ctx, f.joao, mine.ID)
	expectForbidden(t, err)
	_, err = f.svc.DeactivatePatient(f.ctx, f.joao, mine.ID, service.DeactivateInput{Reason: "teste"})
	expectForbidden(t, err)
	_, err = f.svc.ListNotes(f.ctx, f.joao, mine.ID)
	expectForbidden(t, err)

	patch := service.Patch{"collaboratorId": json.RawMessage(`"` + f.joaoC.ID.String() + `"`)}
	_, err = f.svc.UpdatePatient(f.ctx, f.maria, mine.ID, patch)
	expectForbidden(t, err)
	err = f.svc.DeletePatient(f.ctx, f.maria, mine.ID)
	expectForbidden(t, err)
}

func TestUpdatePatientPatch(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carlos")

	_, err := f.svc.UpdatePatient(f.ctx, f.maria, patient.ID, service.Patch{"isAdmin": json.RawMessage(`true`)})
	expectValidation(t, err, "isAdmin")
	_, err = f.svc.UpdatePatient(f.ctx, f.maria, patient.ID, service.Patch{"status": json.RawMessage(`"deactivated"`)})
	expectValidation(t, err, "")

	updated, err := f.svc.UpdatePatient(f.ctx, f.maria, patient.ID, service.Patch{
		"phone":          json.RawMessage(`"81999990000"`),
		"classification": json.RawMessage(`"gold"`),
		"email":          json.RawMessage(`null`),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != "81999990000" || updated.Classification != repo.ClassificationGold {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Email != nil {
		t.Fatalf("null must clear email")
	}
}

func TestDeactivateAndReactivate(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carlos")

	_, err := f.svc.DeactivatePatient(f.ctx, f.maria, patient.ID, service.DeactivateInput{Reason: "   "})
	if verr := expectValidation(t, err, "reason"); verr.Message != "motivo da desativação é obrigatório" {
		t.Fatalf("unexpected message %q", verr.Message)
	}

	deactivated, err := f.svc.DeactivatePatient(f.ctx, f.maria, patient.ID, service.DeactivateInput{Reason: "Mudou de cidade"})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Status != repo.PatientDeactivated || deactivated.DeactivationReason == nil || *deactivated.DeactivationReason != "Mudou de cidade" {
		t.Fatalf("unexpected deactivated patient %+v", deactivated)
	}
	if deactivated.DeactivatedAt == nil || !deactivated.DeactivatedAt.Equal(f.now) {
		t.Fatalf("deactivated_at must be set")
	}
	if deactivated.DeactivatedBy == nil || *deactivated.DeactivatedBy != f.mariaC.ID {
		t.Fatalf("deactivated_by must be the collaborator")
	}

	_, err = f.svc.DeactivatePatient(f.ctx, f.maria, patient.ID, service.DeactivateInput{Reason: "de novo"})
	expectValidation(t, err, "")
	_, err = f.svc.UpdatePatient(f.ctx, f.maria, patient.ID, service.Patch{"status": json.RawMessage(`"active"`)})
	expectValidation(t, err, "")

	list, err := f.svc.ListPatientShortcut(f.ctx, f.admin, service.ListDeactivated, 0, 0)
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("deactivated shortcut: %+v err=%v", list, err)
	}
	active, _ := f.svc.ListPatientShortcut(f.ctx, f.admin, service.ListActive, 0, 0)
	if len(active.Items) != 0 {
		t.Fatalf("deactivated patient must not be listed as active")
	}

	reactivated, err := f.svc.ReactivatePatient(f.ctx, f.maria, patient.ID, service.ReactivateInput{Reason: strPtr("Voltou")})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if reactivated.Status != repo.PatientActive || reactivated.DeactivatedAt != nil || reactivated.DeactivatedBy != nil {
		t.Fatalf("reactivation must clear deactivation fields: %+v", reactivated)
	}
	if reactivated.DeactivationReason == nil || *reactivated.DeactivationReason != "Reativado: Voltou" {
		t.Fatalf("unexpected reason %v", reactivated.DeactivationReason)
	}
	_, err = f.svc.ReactivatePatient(f.ctx, f.maria, patient.ID, service.ReactivateInput{})
	expectValidation(t, err, "")

	notes, err := f.svc.ListNotes(f.ctx, f.maria, patient.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 2 || notes[0].Type != repo.NoteStatus || notes[1].Type != repo.NoteStatus {
		t.Fatalf("expected two status notes, got %+v", notes)
	}
	types := f.store.ActivityTypes()
	if !contains(types, "patient_deactivated") || !contains(types, "patient_reactivated") {
		t.Fatalf("missing lifecycle activity: %v", types)
	}
	if len(f.recorder.transitions) != 2 {
		t.Fatalf("expected two transitions recorded, got %v", f.recorder.transitions)
	}
}

func TestDeactivateRollsBackOnNoteFailure(t *testing.T) {
	f := newFixture(t)
	patient := f.patient(t, f.maria, "Carlos")

	f.store.FailOn("CreateNote", errors.New("disco cheio"))
	if _, err := f.svc.DeactivatePatient(f.ctx, f.maria, patient.ID, service.DeactivateInput{Reason: "teste"}); err == nil {
		t.Fatalf("expected error")
	}
	current, err := f.svc.GetPatient(f.ctx, f.maria, patient.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Status != repo.PatientActive || current.DeactivationReason != nil {
		t.Fatalf("status change must be rolled back, got %s", current.Status)
	}
}

func TestCompleteRegistration(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, "Botox", 1200, 180)
	pre, err := f.svc.CreatePatient(f.ctx, f.admin, service.CreatePatientInput{Name: "Pré Cadastro"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	incomplete, _ := f.svc.ListPatientShortcut(f.ctx, f.admin, service.ListIncomplete, 0, 0)
	if len(incomplete.Items) != 1 {
		t.Fatalf("expected one incomplete registration, got %d", len(incomplete.Items))
	}

	_, err = f.svc.CompleteRegistration(f.ctx, f.maria, pre.ID, service.CompleteRegistrationInput{})
	verr := expectValidation(t, err, "classification")
	if len(verr.Issues) != 3 {
		t.Fatalf("expected classification, phone and cityId issues, got %+v", verr.Issues)
	}

	done, err := f.svc.CompleteRegistration(f.ctx, f.maria, pre.ID, service.CompleteRegistrationInput{
		Classification: repo.ClassificationSilver,
		Phone:          "81988887777",
		CityID:         &f.city.ID,
		ConsultationResult: &service.ConsultationResultInput{
			CompletionType: "procedure_closed",
			TemplateID:     &tpl.ID,
		},
	})
	if err != nil {
		t.Fatalf("complete registration: %v", err)
	}
	if !done.IsRegistrationComplete || done.CollaboratorID == nil || *done.CollaboratorID != f.mariaC.ID {
		t.Fatalf("registration not completed for collaborator: %+v", done)
	}
	if done.FollowupStatus == nil || *done.FollowupStatus != repo.FollowupProcedureClosed {
		t.Fatalf("expected procedure_closed followup, got %v", done.FollowupStatus)
	}
	procedures := f.store.Procedures()
	if len(procedures) != 1 || procedures[0].Value != 1200 || procedures[0].Name != "Botox" {
		t.Fatalf("expected procedure from template, got %+v", procedures)
	}

	_, err = f.svc.CompleteRegistration(f.ctx, f.admin, pre.ID, service.CompleteRegistrationInput{
		Classification: repo.ClassificationGold,
		Phone:          "81900000000",
		CityID:         &f.city.ID,
		CollaboratorID: &f.joaoC.ID,
	})
	if verr := expectValidation(t, err, ""); verr.Message != "cadastro do paciente já está completo" {
		t.Fatalf("unexpected message %q", verr.Message)
	}
	if !contains(f.recorder.consultations, "closed_procedure") || f.recorder.procedures != 1 {
		t.Fatalf("metrics not recorded: %v / %d", f.recorder.consultations, f.recorder.procedures)
	}
}
