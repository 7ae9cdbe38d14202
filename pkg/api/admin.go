package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"personagrid/pkg/auth"
	"personagrid/pkg/command"
	"personagrid/pkg/model"
	"personagrid/pkg/store"
)

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	admin, ok, err := h.Store.GetAdminByEmail(req.Email)
	if err != nil {
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	token, _ := auth.GenerateAdmin(admin.ID, admin.Email, tokenTTL)
	writeJSON(w, http.StatusOK, map[string]interface{}{"admin": admin, "token": token})
}

func (h *Handler) handleAdminMe(w http.ResponseWriter, r *http.Request, admin model.Admin) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Admin{"admin": admin})
}

func (h *Handler) handleAdminOrganizations(w http.ResponseWriter, r *http.Request, _ model.Admin) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orgs, err := h.Store.ListOrganizations()
	if err != nil {
		http.Error(w, "failed to list organizations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"organizations": orgs})
}

// handleAdminOrganizationSubtree serves
// PATCH /api/v1/admin/organizations/{id}/toggle.
func (h *Handler) handleAdminOrganizationSubtree(w http.ResponseWriter, r *http.Request, admin model.Admin) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/organizations/"), "/")
	if len(parts) != 2 || parts[1] != "toggle" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	org, ok, err := h.Store.GetOrganization(parts[0])
	if err != nil {
		http.Error(w, "failed to load organization", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "organization not found", http.StatusNotFound)
		return
	}
	org.IsActive = !org.IsActive
	updated, err := h.Store.UpdateOrganization(org)
	if err != nil {
		http.Error(w, "failed to update organization", http.StatusInternalServerError)
		return
	}
	_ = h.Store.AppendAudit(model.AuditEntry{
		Actor: admin.ID, Action: "organization_toggle", Target: org.ID,
		Detail: activeDetail(updated.IsActive), Timestamp: time.Now(),
	})
	writeJSON(w, http.StatusOK, map[string]model.Organization{"organization": updated})
}

func (h *Handler) handleAdminPersonas(w http.ResponseWriter, r *http.Request, admin model.Admin) {
	switch r.Method {
	case http.MethodGet:
		personas, err := h.Store.ListPersonas("", true)
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
		// Empty organization id makes the persona global.
		persona, err := h.Store.CreatePersona(req.toModel(""))
		if err != nil {
			http.Error(w, "failed to create persona", http.StatusInternalServerError)
			return
		}
		_ = h.Store.AppendAudit(model.AuditEntry{
			Actor: admin.ID, Action: "global_persona_create", Target: persona.ID, Timestamp: time.Now(),
		})
		writeJSON(w, http.StatusCreated, map[string]model.Persona{"persona": persona})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAdminPersonaSubtree serves /api/v1/admin/personas/{id} and
// /api/v1/admin/personas/{id}/toggle-status.
func (h *Handler) handleAdminPersonaSubtree(w http.ResponseWriter, r *http.Request, admin model.Admin) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/personas/"), "/")
	toggle := len(parts) == 2 && parts[1] == "toggle-status"
	if !(len(parts) == 1 && parts[0] != "") && !toggle {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	persona, ok, err := h.Store.GetPersona(parts[0])
	if err != nil {
		http.Error(w, "failed to load persona", http.StatusInternalServerError)
		return
	}
	if !ok || !persona.Global() {
		http.Error(w, "global persona not found", http.StatusNotFound)
		return
	}

	if toggle {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		persona.IsActive = !persona.IsActive
		updated, err := h.Store.UpdatePersona(persona)
		if err != nil {
			http.Error(w, "failed to update persona", http.StatusInternalServerError)
			return
		}
		_ = h.Store.AppendAudit(model.AuditEntry{
			Actor: admin.ID, Action: "global_persona_toggle", Target: persona.ID,
			Detail: activeDetail(updated.IsActive), Timestamp: time.Now(),
		})
		writeJSON(w, http.StatusOK, map[string]model.Persona{"persona": updated})
		return
	}

	switch r.Method {
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
			persona.DisplayName = req.DisplayName
		}
		if req.PersonalityTraits != nil {
			persona.PersonalityTraits = req.PersonalityTraits
		}
		if req.Bio != nil {
			persona.Bio = *req.Bio
		}
		updated, err := h.Store.UpdatePersona(persona)
		if err != nil {
			http.Error(w, "failed to update persona", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]model.Persona{"persona": updated})
	case http.MethodDelete:
		if err := h.Store.DeletePersona(persona.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "global persona not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to delete persona", http.StatusInternalServerError)
			return
		}
		_ = h.Store.AppendAudit(model.AuditEntry{
			Actor: admin.ID, Action: "global_persona_delete", Target: persona.ID, Timestamp: time.Now(),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleAdminCommandPreview(w http.ResponseWriter, r *http.Request, _ model.Admin) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req command.AdminCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	preview, err := h.Pipeline.PreviewAdminCommand(r.Context(), req)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) handleAdminCommandConfirm(w http.ResponseWriter, r *http.Request, _ model.Admin) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var conf command.Confirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	tasks, err := h.Pipeline.ConfirmAdminCommand(r.Context(), conf)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	h.broadcastTasks(AdminChannel, tasks)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"tasks": tasks})
}

func (h *Handler) handleAdminCommandLog(w http.ResponseWriter, r *http.Request, _ model.Admin) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.Pipeline.Log.Recent(100)
	if err != nil {
		http.Error(w, "failed to read command log", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *Handler) handleAdminAudit(w http.ResponseWriter, r *http.Request, _ model.Admin) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.Store.ListAudit(50)
	if err != nil {
		http.Error(w, "failed to list audit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func activeDetail(active bool) string {
	if active {
		return "activated"
	}
	return "deactivated"
}
