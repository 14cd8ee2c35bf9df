package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/repo"
)

type CreateTaskInput struct {
	Title          string            `json:"title"`
	Description    *string           `json:"description"`
	CollaboratorID uuid.UUID         `json:"collaboratorId"`
	PatientID      *uuid.UUID        `json:"patientId"`
	Priority       repo.TaskPriority `json:"priority"`
	DueDate        *Date             `json:"dueDate"`
	Recurrence     *string           `json:"recurrence"`
}

type TaskStatusInput struct {
	Status repo.TaskStatus `json:"status"`
}

var taskPatch = patchSpec{
	"title":          {column: "title", decode: text},
	"description":    {column: "description", decode: optText},
	"collaboratorId": {column: "collaborator_id", decode: requiredUUID},
	"patientId":      {column: "patient_id", decode: optUUID},
	"priority":       {column: "priority", decode: enum(repo.TaskPriority.Valid)},
	"status":         {column: "status", decode: enum(repo.TaskStatus.Valid)},
	"dueDate":        {column: "due_date", decode: optDate},
	"recurrence":     {column: "recurrence", decode: optText},
}

// ListTasks devolve as tarefas do colaborador (todas, para o admin).
func (s *ClinicService) ListTasks(ctx context.Context, p auth.Principal, filter repo.TaskFilter) ([]repo.AdminTask, error) {
	scoped, err := scope(p)
	if err != nil {
		return nil, err
	}
	if scoped != nil {
		filter.CollaboratorID = scoped
	}
	return s.store.ListTasks(ctx, filter)
}

func (s *ClinicService) AdminListTasks(ctx context.Context, p auth.Principal, filter repo.TaskFilter) ([]repo.AdminTask, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, filter)
}

func (s *ClinicService) CreateTask(ctx context.Context, p auth.Principal, in CreateTaskInput) (repo.AdminTask, error) {
	if err := requireAdmin(p); err != nil {
		return repo.AdminTask{}, err
	}

	var errs issues
	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs.add("title", "obrigatório")
	}
	if in.CollaboratorID == uuid.Nil {
		errs.add("collaboratorId", "obrigatório")
	}
	priority := in.Priority
	if priority == "" {
		priority = repo.PriorityMedium
	}
	if !priority.Valid() {
		errs.add("priority", "valor inválido: "+string(priority))
	}
	if err := errs.err(); err != nil {
		return repo.AdminTask{}, err
	}

	var task repo.AdminTask
	err := s.store.WithTx(ctx, func(st Store) error {
		if err := checkPatientRefs(ctx, st, nil, &in.CollaboratorID); err != nil {
			return err
		}
		if in.PatientID != nil {
			if _, err := st.GetPatient(ctx, *in.PatientID); errors.Is(err, repo.ErrNotFound) {
				return invalid("paciente não encontrado")
			} else if err != nil {
				return err
			}
		}
		createdBy := p.UserID
		var err error
		task, err = st.CreateTask(ctx, repo.CreateTaskParams{
			Title:          title,
			Description:    trimmed(in.Description),
			CollaboratorID: in.CollaboratorID,
			PatientID:      in.PatientID,
			CreatedBy:      &createdBy,
			Priority:       priority,
			Status:         repo.TaskPending,
			DueDate:        in.DueDate.ptr(),
			Recurrence:     trimmed(in.Recurrence),
		})
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "task_created", "Tarefa \""+task.Title+"\" criada", "admin_task", task.ID)
	})
	return task, err
}

func (s *ClinicService) AdminUpdateTask(ctx context.Context, p auth.Principal, id uuid.UUID, patch Patch) (repo.AdminTask, error) {
	if err := requireAdmin(p); err != nil {
		return repo.AdminTask{}, err
	}
	set, err := taskPatch.build(patch)
	if err != nil {
		return repo.AdminTask{}, err
	}
	if v, ok := set.Get("collaborator_id"); ok {
		collaboratorID := v.(uuid.UUID)
		if err := checkPatientRefs(ctx, s.store, nil, &collaboratorID); err != nil {
			return repo.AdminTask{}, err
		}
	}
	return s.updateTask(ctx, p, id, set)
}

// UpdateTaskStatus muda o andamento de uma tarefa do próprio colaborador.
func (s *ClinicService) UpdateTaskStatus(ctx context.Context, p auth.Principal, id uuid.UUID, in TaskStatusInput) (repo.AdminTask, error) {
	if !in.Status.Valid() {
		return repo.AdminTask{}, &ValidationError{Message: "dados inválidos", Issues: []Issue{{Field: "status", Message: "valor inválido: " + string(in.Status)}}}
	}
	var set repo.UpdateSet
	set.Set("status", in.Status)
	return s.updateTask(ctx, p, id, set)
}

// updateTask preenche completed_at ao concluir e limpa ao reabrir.
func (s *ClinicService) updateTask(ctx context.Context, p auth.Principal, id uuid.UUID, set repo.UpdateSet) (repo.AdminTask, error) {
	scoped, err := scope(p)
	if err != nil {
		return repo.AdminTask{}, err
	}
	now := s.now()

	var task repo.AdminTask
	err = s.store.WithTx(ctx, func(st Store) error {
		current, err := st.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if !owns(scoped, &current.CollaboratorID) {
			return ErrForbidden
		}
		if set.Len() == 0 {
			task = current
			return nil
		}
		if v, ok := set.Get("status"); ok {
			next := v.(repo.TaskStatus)
			switch {
			case next == repo.TaskCompleted && current.Status != repo.TaskCompleted:
				set.Set("completed_at", &now)
			case next != repo.TaskCompleted && current.Status == repo.TaskCompleted:
				set.Set("completed_at", (*time.Time)(nil))
			}
		}
		task, err = st.UpdateTask(ctx, id, set)
		if err != nil {
			return err
		}
		return logActivity(ctx, st, p, "task_updated", "Tarefa \""+task.Title+"\" atualizada", "admin_task", id)
	})
	return task, err
}
