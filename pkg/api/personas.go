package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"personagrid/pkg/model"
)

var handleRe = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)

type personaPayload struct {
	DisplayName       string   `json:"displayName"`
	PersonalityTraits []string `json:"personalityTraits"`
	Bio               string   `json:"bio,omitempty"`
	SocialProfiles    []struct {
		Network string `json:"network"`
		Handle  string `json:"handle"`
	} `json:"socialProfiles,omitempty"`
}

func (p personaPayload) validate() string {
	if len(p.DisplayName) < 3 || len(p.DisplayName) > 60 {
		return "displayName must be 3-60 characters"
	}
	if len(p.PersonalityTraits) < 3 || len(p.PersonalityTraits) > 8 {
		return "personalityTraits must contain 3-8 entries"
	}
	for _, t := range p.PersonalityTraits {
		if len(t) < 2 || len(t) > 40 {
			return "each personality trait must be 2-40 characters"
		}
	}
	if len(p.Bio) > 280 {
		return "bio must be at most 280 characters"
	}
	if len(p.SocialProfiles) > 3 {
		return "at most 3 social profiles"
	}
	for _, sp := range p.SocialProfiles {
		if !model.ValidPlatform(sp.Network) {
			return "invalid social network"
		}
		if !handleRe.MatchString(sp.Handle) {
			return "invalid social handle"
		}
	}
	return ""
}

func (p personaPayload) toModel(orgID string) model.Persona {
	persona := model.Persona{
		OrganizationID:    orgID,
		DisplayName:       p.DisplayName,
		PersonalityTraits: p.PersonalityTraits,
		Bio:               p.Bio,
		IsActive:          true,
	}
	for _, sp := range p.SocialProfiles {
		persona.SocialProfiles = append(persona.SocialProfiles, model.SocialProfile{
			Network: sp.Network,
			Handle:  sp.Handle,
		})
	}
	return persona
}

func (h *Handler) handlePersonas(w http.ResponseWriter, r *http.Request, org model.Organization) {
	switch r.Method {
	case http.MethodGet:
		personas, err := h.Store.ListPersonas(org.ID, false)
		if err != nil {
			http.Error(w, "failed to list personas", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"personas": personas})
	case http.MethodPost:
		var req personaPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if msg := req.validate(); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		persona, err := h.Store.CreatePersona(req.toModel(org.ID))
		if err != nil {
			http.Error(w, "failed to create persona", http.StatusInternalServerError)
			return
		}
		_ = h.Store.AppendAudit(model.AuditEntry{
			Actor: org.ID, Action: "persona_create", Target: persona.ID, Timestamp: time.Now(),
		})
		writeJSON(w, http.StatusCreated, map[string]model.Persona{"persona": persona})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePersonaSubtree serves /api/v1/personas/{id} and
// /api/v1/personas/{id}/tasks.
func (h *Handler) handlePersonaSubtree(w http.ResponseWriter, r *http.Request, org model.Organization) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/personas/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handlePersonaByID(w, r, org, parts[0])
	case len(parts) == 2 && parts[1] == "tasks":
		h.handlePersonaTasks(w, r, org, parts[0])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handlePersonaByID(w http.ResponseWriter, r *http.Request, org model.Organization, id string) {
	persona, ok, err := h.Store.GetPersona(id)
	if err != nil {
		http.Error(w, "failed to load persona", http.StatusInternalServerError)
		return
	}
	if !ok || persona.OrganizationID != org.ID {
		http.Error(w, "persona not found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]model.Persona{"persona": persona})
	case http.MethodPatch:
		var req struct {
			DisplayName       string   `json:"displayName,omitempty"`
			PersonalityTraits []string `json:"personalityTraits,omitempty"`
			Bio               *string  `json:"bio,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.DisplayName != "" {
			if len(req.DisplayName) < 3 || len(req.DisplayName) > 60 {
				http.Error(w, "displayName must be 3-60 characters", http.StatusBadRequest)
				return
			}
			persona.DisplayName = req.DisplayName
		}
		if req.PersonalityTraits != nil {
			if len(req.PersonalityTraits) < 3 || len(req.PersonalityTraits) > 8 {
				http.Error(w, "personalityTraits must contain 3-8 entries", http.StatusBadRequest)
				return
			}
			persona.PersonalityTraits = req.PersonalityTraits
		}
		if req.Bio != nil {
			if len(*req.Bio) > 280 {
				http.Error(w, "bio must be at most 280 characters", http.StatusBadRequest)
				return
			}
			persona.Bio = *req.Bio
		}
		updated, err := h.Store.UpdatePersona(persona)
		if err != nil {
			http.Error(w, "failed to update persona", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]model.Persona{"persona": updated})
	case http.MethodDelete:
		if err := h.Store.DeletePersona(id); err != nil {
			http.Error(w, "failed to delete persona", http.StatusInternalServerError)
			return
		}
		_ = h.Store.AppendAudit(model.AuditEntry{
			Actor: org.ID, Action: "persona_delete", Target: id, Timestamp: time.Now(),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePersonaTasks(w http.ResponseWriter, r *http.Request, org model.Organization, personaID string) {
	persona, ok, err := h.Store.GetPersona(personaID)
	if err != nil {
		http.Error(w, "failed to load persona", http.StatusInternalServerError)
		return
	}
	// Tasks are visible for the organization's own personas and for global
	// ones it can act through.
	if !ok || (!persona.Global() && persona.OrganizationID != org.ID) {
		http.Error(w, "persona not found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		tasks, err := h.Store.ListTasks(personaID, 50)
		if err != nil {
			http.Error(w, "failed to list tasks", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
	case http.MethodPost:
		var req struct {
			Platform     string                 `json:"platform"`
			TaskType     string                 `json:"taskType"`
			Payload      map[string]interface{} `json:"payload"`
			ScheduledFor string                 `json:"scheduledFor,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if !model.ValidPlatform(req.Platform) || !model.ValidTaskType(req.TaskType) {
			http.Error(w, "invalid platform or taskType", http.StatusBadRequest)
			return
		}
		var sched *time.Time
		if req.ScheduledFor != "" {
			t, err := time.Parse(time.RFC3339, req.ScheduledFor)
			if err != nil {
				http.Error(w, "invalid scheduledFor timestamp", http.StatusBadRequest)
				return
			}
			sched = &t
		}
		status := model.TaskStatusPending
		if sched != nil {
			status = model.TaskStatusScheduled
		}
		task, err := h.Store.CreateTask(model.Task{
			PersonaID:    personaID,
			Platform:     req.Platform,
			TaskType:     req.TaskType,
			Payload:      req.Payload,
			Status:       status,
			ScheduledFor: sched,
		})
		if err != nil {
			http.Error(w, "failed to create task", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]model.Task{"task": task})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskStatus serves PATCH /api/v1/tasks/{id}/status.
func (h *Handler) handleTaskStatus(w http.ResponseWriter, r *http.Request, org model.Organization) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/"), "/")
	if len(parts) != 2 || parts[1] != "status" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	task, ok, err := h.Store.GetTask(parts[0])
	if err != nil {
		http.Error(w, "failed to load task", http.StatusInternalServerError)
		return
	}
	if ok {
		persona, pok, perr := h.Store.GetPersona(task.PersonaID)
		ok = perr == nil && pok && (persona.Global() || persona.OrganizationID == org.ID)
	}
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !model.ValidTaskStatus(req.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	updated, ok, err := h.Store.UpdateTaskStatus(task.ID, req.Status)
	if err != nil || !ok {
		http.Error(w, "failed to update task", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Task{"task": updated})
}
