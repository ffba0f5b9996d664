// Package api exposes HTTP handlers for the scheduling service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/scheduling/internal/auth"
	"example.com/scheduling/internal/domain"
	"example.com/scheduling/internal/schedule"
)

// Handler coordinates HTTP requests with the scheduling engine.
type Handler struct {
	engine      *schedule.Engine
	horizonDays int
}

// NewHandler builds a Handler. horizonDays bounds recurrence expansion when
// the request omits an explicit until date.
func NewHandler(engine *schedule.Engine, horizonDays int) *Handler {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &Handler{engine: engine, horizonDays: horizonDays}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/check-conflict", h.checkConflict)
	mux.HandleFunc("/v1/activities/recurring", h.createRecurring)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/participants/", h.participantByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivity(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/reconcile"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.reconcileActivity(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, rest)
	case http.MethodDelete:
		h.deleteActivity(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) participantByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/participants/")
	id, ok := strings.CutSuffix(rest, "/recount")
	if !ok || id == "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	h.recountParticipant(w, r, id)
}

func (h *Handler) checkConflict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeScheduleRead, auth.ScopeScheduleWrite) {
		return
	}

	var req CheckConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	candidate, err := req.Activity.candidate()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	decision, err := h.engine.CheckConflict(r.Context(), candidate, req.ExcludeID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDecisionView(decision))
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeScheduleWrite) {
		return
	}

	var req ActivityPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	candidate, err := req.candidate()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	activity, decision, err := h.engine.Create(r.Context(), candidate)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !decision.OK {
		writeJSON(w, http.StatusOK, CreateActivityResponse{Decision: toDecisionView(decision)})
		return
	}

	view := toActivityView(*activity)
	writeJSON(w, http.StatusCreated, CreateActivityResponse{
		Activity: &view,
		Decision: toDecisionView(decision),
	})
}

func (h *Handler) createRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !requireScope(w, r, auth.ScopeScheduleWrite) {
		return
	}

	var req RecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	template, err := req.Template.candidate()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	weekdays, err := parseWeekdays(req.Weekdays)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	start := template.StartsAt
	until := start.AddDate(0, 0, h.horizonDays)
	if req.Until != "" {
		until, err = time.Parse(dateLayout, req.Until)
		if err != nil {
			writeEngineError(w, domain.Invalid("until", "expected YYYY-MM-DD"))
			return
		}
	}

	candidates, err := schedule.Expand(template, start, until, weekdays)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	result, err := h.engine.CommitBatch(r.Context(), candidates, req.Confirmed)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := BatchResponse{State: string(result.State)}
	switch result.State {
	case schedule.BatchCommitted:
		resp.Activities = make([]ActivityView, 0, len(result.Committed))
		for _, a := range result.Committed {
			resp.Activities = append(resp.Activities, toActivityView(a))
		}
		writeJSON(w, http.StatusCreated, resp)
	case schedule.BatchAwaitingConfirmation:
		resp.PendingCount = len(candidates)
		writeJSON(w, http.StatusOK, resp)
	default:
		resp.RejectedAt = &result.RejectedAt
		decision := toDecisionView(result.Decision)
		resp.Decision = &decision
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) reconcileActivity(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeScheduleWrite) {
		return
	}

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	update, err := req.update()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	activity, decision, err := h.engine.Reconcile(r.Context(), id, update)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !decision.OK {
		writeJSON(w, http.StatusOK, ReconcileResponse{Decision: toDecisionView(decision)})
		return
	}

	view := toActivityView(*activity)
	writeJSON(w, http.StatusOK, ReconcileResponse{
		Activity: &view,
		Decision: toDecisionView(decision),
	})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeScheduleRead, auth.ScopeScheduleWrite) {
		return
	}

	activity, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeScheduleWrite) {
		return
	}

	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recountParticipant(w http.ResponseWriter, r *http.Request, id string) {
	if !requireScope(w, r, auth.ScopeScheduleWrite) {
		return
	}

	apply := r.URL.Query().Get("apply") == "true"
	result, err := h.engine.RecountParticipant(r.Context(), id, apply)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecountResponse{
		ParticipantID: result.ParticipantID,
		Stored:        result.Stored,
		Computed:      result.Computed,
		Drift:         result.Drift,
		Applied:       result.Applied,
	})
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return false
}

const dateLayout = "2006-01-02"

// ActivityPayload carries an activity's fields as a calendar date plus
// wall-clock times.
type ActivityPayload struct {
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	VenueID        string   `json:"venue_id,omitempty"`
	AssetIDs       []string `json:"asset_ids,omitempty"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	Points         int      `json:"points"`
}

func (p ActivityPayload) candidate() (schedule.Candidate, error) {
	day, err := time.Parse(dateLayout, p.Date)
	if err != nil {
		return schedule.Candidate{}, domain.Invalid("date", "expected YYYY-MM-DD")
	}
	startMin, err := schedule.ToMinutes(p.StartTime)
	if err != nil {
		return schedule.Candidate{}, err
	}
	endMin, err := schedule.ToMinutes(p.EndTime)
	if err != nil {
		return schedule.Candidate{}, err
	}

	c := schedule.Candidate{
		Title:          strings.TrimSpace(p.Title),
		StartsAt:       day.Add(time.Duration(startMin) * time.Minute),
		EndsAt:         day.Add(time.Duration(endMin) * time.Minute),
		VenueID:        p.VenueID,
		AssetIDs:       p.AssetIDs,
		ParticipantIDs: p.ParticipantIDs,
		Points:         p.Points,
	}
	if err := c.Validate(); err != nil {
		return schedule.Candidate{}, err
	}
	return c, nil
}

// CheckConflictRequest is the payload for POST /v1/activities/check-conflict.
type CheckConflictRequest struct {
	Activity  ActivityPayload `json:"activity"`
	ExcludeID string          `json:"exclude_id,omitempty"`
}

// RecurringRequest is the payload for POST /v1/activities/recurring. The
// template's date is the first day of the expansion window.
type RecurringRequest struct {
	Template  ActivityPayload `json:"template"`
	Until     string          `json:"until,omitempty"`
	Weekdays  []string        `json:"weekdays"`
	Confirmed bool            `json:"confirmed"`
}

// ReconcileRequest is the proposed state for POST /v1/activities/{id}/reconcile.
type ReconcileRequest struct {
	ActivityPayload
	Status string `json:"status"`
}

func (r ReconcileRequest) update() (schedule.ActivityUpdate, error) {
	c, err := r.ActivityPayload.candidate()
	if err != nil {
		return schedule.ActivityUpdate{}, err
	}
	return schedule.ActivityUpdate{
		Title:          c.Title,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		VenueID:        c.VenueID,
		AssetIDs:       c.AssetIDs,
		ParticipantIDs: c.ParticipantIDs,
		Status:         domain.Status(r.Status),
		Points:         c.Points,
	}, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, domain.Invalid("weekdays", "unknown weekday "+name)
		}
		out = append(out, wd)
	}
	return out, nil
}

// DecisionView reports the guard's verdict.
type DecisionView struct {
	OK                    bool   `json:"ok"`
	FailedCheck           string `json:"failed_check,omitempty"`
	Reason                string `json:"reason,omitempty"`
	ConflictingActivityID string `json:"conflicting_activity_id,omitempty"`
	ConflictingResourceID string `json:"conflicting_resource_id,omitempty"`
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ActivityID     string    `json:"activity_id"`
	Title          string    `json:"title"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	VenueID        string    `json:"venue_id,omitempty"`
	AssetIDs       []string  `json:"asset_ids,omitempty"`
	ParticipantIDs []string  `json:"participant_ids,omitempty"`
	Status         string    `json:"status"`
	Points         int       `json:"points"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateActivityResponse describes the response body for create.
type CreateActivityResponse struct {
	Activity *ActivityView `json:"activity,omitempty"`
	Decision DecisionView  `json:"decision"`
}

// BatchResponse packages a recurring commit outcome.
type BatchResponse struct {
	State        string         `json:"state"`
	Activities   []ActivityView `json:"activities,omitempty"`
	PendingCount int            `json:"pending_count,omitempty"`
	RejectedAt   *int           `json:"rejected_at,omitempty"`
	Decision     *DecisionView  `json:"decision,omitempty"`
}

// ReconcileResponse describes the response body for reconcile.
type ReconcileResponse struct {
	Activity *ActivityView `json:"activity,omitempty"`
	Decision DecisionView  `json:"decision"`
}

// RecountResponse reports a points audit for one participant.
type RecountResponse struct {
	ParticipantID string `json:"participant_id"`
	Stored        int    `json:"stored"`
	Computed      int    `json:"computed"`
	Drift         int    `json:"drift"`
	Applied       bool   `json:"applied"`
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage is temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toDecisionView(d schedule.Decision) DecisionView {
	return DecisionView{
		OK:                    d.OK,
		FailedCheck:           string(d.FailedCheck),
		Reason:                d.Reason,
		ConflictingActivityID: d.ConflictingActivityID,
		ConflictingResourceID: d.ConflictingResourceID,
	}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:     a.ID,
		Title:          a.Title,
		StartsAt:       a.StartsAt,
		EndsAt:         a.EndsAt,
		VenueID:        a.VenueID,
		AssetIDs:       a.AssetIDs,
		ParticipantIDs: a.ParticipantIDs,
		Status:         string(a.Status),
		Points:         a.Points,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
