package command

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"personagrid/pkg/llm"
	"personagrid/pkg/model"
	"personagrid/pkg/store"
)

const minCommandLength = 10

// Pipeline coordinates the analyzer, matcher and generator into the
// preview/confirm workflow for both caller types. Drafts and Log are
// optional; a nil draft cache skips server-side draft retention and a nil
// command log records nothing.
type Pipeline struct {
	Store  store.Store
	LLM    llm.Client
	Drafts *DraftCache
	Log    *CommandLog
}

// AdminCommandRequest is the super-admin preview payload. Platform and task
// type are optional overrides applied on top of the analysis.
type AdminCommandRequest struct {
	Command      string `json:"command"`
	Platform     string `json:"platform,omitempty"`
	TaskType     string `json:"taskType,omitempty"`
	ScheduledFor string `json:"scheduledFor,omitempty"`
}

// SmartCommandRequest is the organization flow payload. Platform and task
// type are required; no analyzer runs on this path.
type SmartCommandRequest struct {
	Prompt       string `json:"prompt"`
	Platform     string `json:"platform"`
	TaskType     string `json:"taskType"`
	ScheduledFor string `json:"scheduledFor,omitempty"`
}

// PersonaPreview is one persona's generated draft content.
type PersonaPreview struct {
	PersonaID         string   `json:"personaId"`
	DisplayName       string   `json:"displayName"`
	PersonalityTraits []string `json:"personalityTraits"`
	GeneratedContent  string   `json:"generatedContent"`
}

// Preview is the assembled draft returned to the caller for editing. It is
// held client-side between preview and confirm; the server keeps a time-boxed
// copy under DraftID purely as a refresh convenience.
type Preview struct {
	DraftID         string           `json:"draftId,omitempty"`
	OriginalCommand string           `json:"originalCommand,omitempty"`
	OriginalPrompt  string           `json:"originalPrompt,omitempty"`
	AnalyzedIntent  string           `json:"analyzedIntent,omitempty"`
	Platform        string           `json:"platform"`
	TaskType        string           `json:"taskType"`
	ScheduledFor    string           `json:"scheduledFor,omitempty"`
	Previews        []PersonaPreview `json:"previews"`
}

// ConfirmationEntry is one approved, possibly edited persona draft.
type ConfirmationEntry struct {
	PersonaID string `json:"personaId"`
	Content   string `json:"content"`
}

// Confirmation is the user-approved version of a preview, submitted to
// create tasks.
type Confirmation struct {
	Platform      string              `json:"platform"`
	TaskType      string              `json:"taskType"`
	ScheduledFor  string              `json:"scheduledFor,omitempty"`
	Confirmations []ConfirmationEntry `json:"confirmations"`
}

// PreviewAdminCommand analyzes a free-text command and generates draft
// content for every global persona.
func (p *Pipeline) PreviewAdminCommand(ctx context.Context, req AdminCommandRequest) (Preview, error) {
	if len(req.Command) < minCommandLength {
		return Preview{}, validationErr("command must be at least %d characters", minCommandLength)
	}
	if err := validateOverrides(req.Platform, req.TaskType); err != nil {
		return Preview{}, err
	}
	if _, err := parseSchedule(req.ScheduledFor); err != nil {
		return Preview{}, err
	}
	if err := p.requireLLM(); err != nil {
		return Preview{}, err
	}

	analysis, err := AnalyzeCommand(ctx, p.LLM, req.Command)
	if err != nil {
		return Preview{}, err
	}
	p.Log.record("admin", "analysis", req.Command,
		fmt.Sprintf("intent=%q platform=%s taskType=%s all=%t", analysis.Intent, analysis.Platform, analysis.TaskType, analysis.TargetAllPersonas))

	platform := req.Platform
	if platform == "" {
		platform = analysis.Platform
	}
	taskType := req.TaskType
	if taskType == "" {
		taskType = analysis.TaskType
	}

	personas, err := p.Store.ListPersonas("", true)
	if err != nil {
		return Preview{}, err
	}
	if len(personas) == 0 {
		return Preview{}, notFoundErr("no global personas available; create global personas first")
	}

	preview := Preview{
		OriginalCommand: req.Command,
		AnalyzedIntent:  analysis.Intent,
		Platform:        platform,
		TaskType:        taskType,
		ScheduledFor:    req.ScheduledFor,
		Previews:        p.generateAll(ctx, personas, analysis.Intent, platform),
	}
	if p.Drafts != nil {
		preview.DraftID = p.Drafts.Put(preview)
	}
	_ = p.Store.AppendAudit(model.AuditEntry{
		Actor: "admin", Action: "command_preview", Target: preview.DraftID,
		Detail: fmt.Sprintf("%d personas", len(preview.Previews)), Timestamp: time.Now(),
	})
	return preview, nil
}

// ConfirmAdminCommand persists one task per approved entry. Every persona id
// must resolve to a global persona; any violation aborts the whole confirm
// before anything is written.
func (p *Pipeline) ConfirmAdminCommand(ctx context.Context, conf Confirmation) ([]model.Task, error) {
	return p.confirm(ctx, conf, Scope{GlobalOnly: true}, ScopeAbortAll, map[string]interface{}{"source": "admin_command"})
}

// PreviewSmartCommand matches the prompt against the organization's persona
// set (its own plus global) and generates per-persona draft content.
func (p *Pipeline) PreviewSmartCommand(ctx context.Context, orgID string, req SmartCommandRequest) (Preview, error) {
	if err := validateSmartRequest(req); err != nil {
		return Preview{}, err
	}
	if err := p.requireLLM(); err != nil {
		return Preview{}, err
	}
	personas, matched, err := p.matchForOrg(ctx, orgID, req.Prompt)
	if err != nil {
		return Preview{}, err
	}

	preview := Preview{
		OriginalPrompt: req.Prompt,
		Platform:       req.Platform,
		TaskType:       req.TaskType,
		ScheduledFor:   req.ScheduledFor,
		Previews:       make([]PersonaPreview, 0, len(matched)),
	}
	if req.TaskType == model.TaskTypePost {
		preview.Previews = p.generateAll(ctx, matched, req.Prompt, req.Platform)
	} else {
		// Non-post tasks carry the prompt through untouched.
		for _, persona := range matched {
			preview.Previews = append(preview.Previews, PersonaPreview{
				PersonaID:         persona.ID,
				DisplayName:       persona.DisplayName,
				PersonalityTraits: persona.PersonalityTraits,
				GeneratedContent:  req.Prompt,
			})
		}
	}
	if p.Drafts != nil {
		preview.DraftID = p.Drafts.Put(preview)
	}
	_ = p.Store.AppendAudit(model.AuditEntry{
		Actor: orgID, Action: "smart_command_preview", Target: preview.DraftID,
		Detail: fmt.Sprintf("%d of %d personas matched", len(matched), len(personas)), Timestamp: time.Now(),
	})
	return preview, nil
}

// ConfirmSmartCommand persists one task per approved entry that is still in
// scope for the organization. Out-of-scope entries are silently skipped.
func (p *Pipeline) ConfirmSmartCommand(ctx context.Context, orgID string, conf Confirmation) ([]model.Task, error) {
	return p.confirm(ctx, conf, Scope{OrganizationID: orgID}, ScopeSkipInvalid, nil)
}

// CreateSmartCommand is the one-shot path: match, generate and persist
// without a preview step. Returns the created tasks and the display names of
// the personas they were assigned to.
func (p *Pipeline) CreateSmartCommand(ctx context.Context, orgID string, req SmartCommandRequest) ([]model.Task, []string, error) {
	if err := validateSmartRequest(req); err != nil {
		return nil, nil, err
	}
	if err := p.requireLLM(); err != nil {
		return nil, nil, err
	}
	sched, _ := parseSchedule(req.ScheduledFor)
	_, matched, err := p.matchForOrg(ctx, orgID, req.Prompt)
	if err != nil {
		return nil, nil, err
	}

	tasks := make([]model.Task, 0, len(matched))
	names := make([]string, 0, len(matched))
	for _, persona := range matched {
		content := req.Prompt
		if req.TaskType == model.TaskTypePost {
			content = GeneratePersonaContent(ctx, p.LLM, req.Prompt, req.Platform, persona)
		}
		task, err := p.Store.CreateTask(newTask(persona.ID, req.Platform, req.TaskType, content, sched, nil))
		if err != nil {
			return tasks, names, err
		}
		tasks = append(tasks, task)
		names = append(names, persona.DisplayName)
	}
	return tasks, names, nil
}

// matchForOrg loads the candidate set and runs the matcher, collapsing to
// all candidates when the match fails or maps to nothing. The collapse
// happens here, at the orchestration boundary, and is logged.
func (p *Pipeline) matchForOrg(ctx context.Context, orgID, prompt string) (candidates, matched []model.Persona, err error) {
	candidates, err = p.Store.ListPersonas(orgID, true)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, notFoundErr("no personas available; create at least one persona first")
	}

	ids, matchErr := MatchPersonas(ctx, p.LLM, prompt, candidates)
	switch {
	case matchErr != nil:
		log.Printf("persona match failed, falling back to all %d candidates: %v", len(candidates), matchErr)
		p.Log.record("smart", "match_fallback", prompt, fmt.Sprintf("candidates=%d reason=%v", len(candidates), matchErr))
		return candidates, candidates, nil
	case len(ids) == 0:
		log.Printf("persona match selected nobody, falling back to all %d candidates", len(candidates))
		p.Log.record("smart", "match_fallback", prompt, fmt.Sprintf("candidates=%d reason=empty match", len(candidates)))
		return candidates, candidates, nil
	}

	p.Log.record("smart", "match", prompt, fmt.Sprintf("matched=%d of %d", len(ids), len(candidates)))
	byID := make(map[string]bool, len(ids))
	for _, id := range ids {
		byID[id] = true
	}
	for _, persona := range candidates {
		if byID[persona.ID] {
			matched = append(matched, persona)
		}
	}
	return candidates, matched, nil
}

// generateAll fans out one generation call per persona and joins. Results
// land positionally, so the previews list preserves persona order no matter
// which call finishes first. A single failure degrades that entry only.
func (p *Pipeline) generateAll(ctx context.Context, personas []model.Persona, intent, platform string) []PersonaPreview {
	previews := make([]PersonaPreview, len(personas))
	g, ctx := errgroup.WithContext(ctx)
	for i, persona := range personas {
		g.Go(func() error {
			previews[i] = PersonaPreview{
				PersonaID:         persona.ID,
				DisplayName:       persona.DisplayName,
				PersonalityTraits: persona.PersonalityTraits,
				GeneratedContent:  GeneratePersonaContent(ctx, p.LLM, intent, platform, persona),
			}
			return nil
		})
	}
	_ = g.Wait()
	return previews
}

func (p *Pipeline) confirm(ctx context.Context, conf Confirmation, sc Scope, policy ScopePolicy, extraPayload map[string]interface{}) ([]model.Task, error) {
	if !model.ValidPlatform(conf.Platform) {
		return nil, validationErr("invalid platform %q", conf.Platform)
	}
	if !model.ValidTaskType(conf.TaskType) {
		return nil, validationErr("invalid task type %q", conf.TaskType)
	}
	sched, err := parseSchedule(conf.ScheduledFor)
	if err != nil {
		return nil, err
	}

	entries := conf.Confirmations
	if policy == ScopeAbortAll {
		// All-or-nothing: reject the whole confirm before writing anything.
		for _, entry := range entries {
			if err := p.checkScope(entry.PersonaID, sc); err != nil {
				return nil, err
			}
		}
	}

	tasks := make([]model.Task, 0, len(entries))
	for _, entry := range entries {
		if policy == ScopeSkipInvalid {
			if err := p.checkScope(entry.PersonaID, sc); err != nil {
				log.Printf("confirm skipping out-of-scope persona %s", entry.PersonaID)
				continue
			}
		}
		task, err := p.Store.CreateTask(newTask(entry.PersonaID, conf.Platform, conf.TaskType, entry.Content, sched, extraPayload))
		if err != nil {
			// Earlier tasks stay persisted; there is no transaction across
			// the batch.
			return tasks, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// requireLLM rejects the flows that need a model call when the server runs
// without a configured provider (dev mode without an API key).
func (p *Pipeline) requireLLM() error {
	if p.LLM == nil {
		return upstreamErr(nil, "AI service is not configured")
	}
	return nil
}

func (p *Pipeline) checkScope(personaID string, sc Scope) error {
	persona, ok, err := p.Store.GetPersona(personaID)
	if err != nil {
		return err
	}
	if !ok || !InScope(persona, sc) {
		if sc.GlobalOnly {
			return notFoundErr("global persona %s not found", personaID)
		}
		return notFoundErr("persona %s not found", personaID)
	}
	return nil
}

func newTask(personaID, platform, taskType, content string, sched *time.Time, extraPayload map[string]interface{}) model.Task {
	payload := map[string]interface{}{"content": content}
	for k, v := range extraPayload {
		payload[k] = v
	}
	status := model.TaskStatusPending
	if sched != nil {
		status = model.TaskStatusScheduled
	}
	return model.Task{
		PersonaID:    personaID,
		Platform:     platform,
		TaskType:     taskType,
		Payload:      payload,
		Status:       status,
		ScheduledFor: sched,
	}
}

func validateSmartRequest(req SmartCommandRequest) error {
	if req.Prompt == "" || req.Platform == "" || req.TaskType == "" {
		return validationErr("missing required fields: prompt, platform, taskType")
	}
	if !model.ValidPlatform(req.Platform) {
		return validationErr("invalid platform %q", req.Platform)
	}
	if !model.ValidTaskType(req.TaskType) {
		return validationErr("invalid task type %q", req.TaskType)
	}
	if _, err := parseSchedule(req.ScheduledFor); err != nil {
		return err
	}
	return nil
}

func validateOverrides(platform, taskType string) error {
	if platform != "" && !model.ValidPlatform(platform) {
		return validationErr("invalid platform %q", platform)
	}
	if taskType != "" && !model.ValidTaskType(taskType) {
		return validationErr("invalid task type %q", taskType)
	}
	return nil
}

func parseSchedule(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, validationErr("invalid scheduledFor timestamp %q", s)
	}
	return &t, nil
}
