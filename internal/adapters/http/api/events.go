package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/battle64/internal/domain/model"
	"github.com/okian/battle64/internal/domain/types"
)

const maxSubmissionBytes = 64 << 10

// submissionRequest mirrors the OpenAPI schema for POST /events/{eventID}/submissions.
type submissionRequest struct {
	SubmissionID      string          `json:"submission_id"`
	UserID            string          `json:"user_id"`
	Username          string          `json:"username"`
	Time              json.RawMessage `json:"time"`
	Verified          bool            `json:"verified"`
	SubmittedAt       string          `json:"submitted_at"`
	DocumentationType string          `json:"documentation_type"`
	MediaURL          string          `json:"media_url"`
	LivestreamURL     string          `json:"livestream_url"`
	Notes             string          `json:"notes"`
}

// rawTime accepts the time as a string, a bare JSON number or null.
// Whatever arrives is kept verbatim; normalization happens later.
func (r *submissionRequest) rawTime() (string, error) {
	raw := bytes.TrimSpace(r.Time)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", errors.New("time must be a string, a number or null")
		}
		return n.String(), nil
	}
}

func (r *submissionRequest) toEntry() (model.RaceEntry, error) {
	raw, err := r.rawTime()
	if err != nil {
		return model.RaceEntry{}, err
	}
	entry := model.RaceEntry{
		ID:                strings.TrimSpace(r.SubmissionID),
		UserID:            strings.TrimSpace(r.UserID),
		Username:          r.Username,
		RawTime:           raw,
		Verified:          r.Verified,
		DocumentationType: model.DocumentationType(strings.ToLower(strings.TrimSpace(r.DocumentationType))),
		MediaURL:          r.MediaURL,
		LivestreamURL:     r.LivestreamURL,
		Notes:             r.Notes,
	}
	if s := strings.TrimSpace(r.SubmittedAt); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return model.RaceEntry{}, fmt.Errorf("invalid submitted_at; must be RFC3339: %w", err)
		}
		entry.SubmissionDate = ts.UTC()
	}
	return entry, nil
}

type submissionResponse struct {
	Status         string `json:"status"`
	ID             string `json:"id"`
	Duplicate      bool   `json:"duplicate"`
	NormalizedTime string `json:"normalized_time"`
	ValidFormat    bool   `json:"valid_format"`
}

type eventsResponse struct {
	Events []types.EventSummary `json:"events"`
}

// EventsHandler handles event listing and submission intake.
type EventsHandler struct {
	submissions SubmissionDependencies
	events      EventListDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(submissions SubmissionDependencies, events EventListDependencies) *EventsHandler {
	return &EventsHandler{submissions: submissions, events: events}
}

// HandlePostSubmission handles POST /events/{eventID}/submissions requests.
func (h *EventsHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_submission"

	var req submissionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := req.toEntry()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.submissions.Submit(r.Context(), r.PathValue("eventID"), entry)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	resp := submissionResponse{
		Status:         "accepted",
		ID:             res.ID,
		Duplicate:      res.Duplicate,
		NormalizedTime: res.NormalizedTime,
		ValidFormat:    res.ValidFormat,
	}
	if res.Duplicate {
		resp.Status = "duplicate"
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// HandleListEvents handles GET /events requests.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	events, err := h.events.Events(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if events == nil {
		events = []types.EventSummary{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}
