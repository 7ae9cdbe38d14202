package api

import (
	"encoding/json"
	"net/http"

	"personagrid/pkg/command"
	"personagrid/pkg/model"
)

func (h *Handler) handleSmartCreate(w http.ResponseWriter, r *http.Request, org model.Organization) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req command.SmartCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	tasks, assigned, err := h.Pipeline.CreateSmartCommand(r.Context(), org.ID, req)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	h.broadcastTasks(org.ID, tasks)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"tasks":            tasks,
		"assignedPersonas": assigned,
	})
}

func (h *Handler) handleSmartPreview(w http.ResponseWriter, r *http.Request, org model.Organization) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req command.SmartCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	preview, err := h.Pipeline.PreviewSmartCommand(r.Context(), org.ID, req)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) handleSmartConfirm(w http.ResponseWriter, r *http.Request, org model.Organization) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var conf command.Confirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	tasks, err := h.Pipeline.ConfirmSmartCommand(r.Context(), org.ID, conf)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	h.broadcastTasks(org.ID, tasks)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"tasks": tasks})
}

// handleDraft re-fetches a live server-side draft after a client refresh.
func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request, _ model.Organization) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("draftId")
	if id == "" {
		http.Error(w, "draftId is required", http.StatusBadRequest)
		return
	}
	if h.Pipeline.Drafts == nil {
		http.Error(w, "drafts disabled", http.StatusNotFound)
		return
	}
	preview, ok := h.Pipeline.Drafts.Get(id)
	if !ok {
		http.Error(w, "draft not found or expired", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *Handler) broadcastTasks(channel string, tasks []model.Task) {
	if h.Hub == nil || len(tasks) == 0 {
		return
	}
	h.Hub.Broadcast(channel, WSMessage{Type: "task_created", Payload: tasks})
}
