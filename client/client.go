package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/carebridge/carelog/internal/domain/carelog"
)

// Remote is the HTTP client for the care log API. All methods translate
// failures into *Error so callers can branch on the kind instead of status
// codes.
type Remote struct {
	http *resty.Client
}

// Option customises the Remote at construction time.
type Option func(*Remote)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Remote) { r.http.SetTimeout(d) }
}

// NewRemote builds a Remote against baseURL. The token is sent as a bearer
// credential on every request.
func NewRemote(baseURL, token string, opts ...Option) *Remote {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	r := &Remote{http: rc}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type apiErrorBody struct {
	Message string   `json:"message"`
	Missing []string `json:"missing"`
}

// classify converts a resty outcome into a nil or *Error result. Transport
// failures and 5xx/429 responses are transient; 404 means the draft identity
// could not be resolved; everything else rejected the submitted payload.
func classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &Error{Kind: KindTransient, Op: op, Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}

	var body apiErrorBody
	_ = json.Unmarshal(resp.Body(), &body)
	cause := fmt.Errorf("server returned %d: %s", resp.StatusCode(), body.Message)

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
		return &Error{Kind: KindTransient, Op: op, Err: cause}
	case resp.StatusCode() == http.StatusNotFound:
		return &Error{Kind: KindIdentity, Op: op, Err: cause}
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return &Error{Kind: KindSubmission, Op: op, Missing: body.Missing, Err: cause}
	default:
		return &Error{Kind: KindSubmission, Op: op, Err: cause}
	}
}

// withRetry runs fn with exponential backoff until it succeeds, returns a
// non-transient error, or the context is cancelled.
func withRetry(ctx context.Context, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(exp, ctx))
}

type createDraftBody struct {
	CareRecipientID uuid.UUID           `json:"care_recipient_id"`
	LogDate         string              `json:"log_date,omitempty"`
	Sections        carelog.SectionData `json:"sections"`
}

// CreateDraft registers a new draft for the recipient and date.
func (r *Remote) CreateDraft(ctx context.Context, recipientID uuid.UUID, logDate string, sections carelog.SectionData) (*carelog.CareLogDraft, error) {
	var d carelog.CareLogDraft
	resp, err := r.http.R().SetContext(ctx).
		SetBody(createDraftBody{CareRecipientID: recipientID, LogDate: logDate, Sections: sections}).
		SetResult(&d).
		Post("/api/v1/care-logs")
	if cerr := classify("create draft", resp, err); cerr != nil {
		return nil, cerr
	}
	return &d, nil
}

// Draft fetches a draft by id.
func (r *Remote) Draft(ctx context.Context, id uuid.UUID) (*carelog.CareLogDraft, error) {
	var d carelog.CareLogDraft
	resp, err := r.http.R().SetContext(ctx).
		SetResult(&d).
		Get("/api/v1/care-logs/" + id.String())
	if cerr := classify("get draft", resp, err); cerr != nil {
		return nil, cerr
	}
	return &d, nil
}

// Today fetches the authenticated caregiver's active draft for the given
// date, retrying transient failures.
func (r *Remote) Today(ctx context.Context, date string) (*carelog.CareLogDraft, error) {
	var d carelog.CareLogDraft
	err := withRetry(ctx, func() error {
		resp, err := r.http.R().SetContext(ctx).
			SetQueryParam("date", date).
			SetResult(&d).
			Get("/api/v1/care-logs/caregiver/today")
		return classify("load today", resp, err)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ByRecipientDate fetches the active draft for a recipient on a given date,
// retrying transient failures.
func (r *Remote) ByRecipientDate(ctx context.Context, recipientID uuid.UUID, date string) (*carelog.CareLogDraft, error) {
	var d carelog.CareLogDraft
	err := withRetry(ctx, func() error {
		resp, err := r.http.R().SetContext(ctx).
			SetResult(&d).
			Get("/api/v1/care-logs/recipient/" + recipientID.String() + "/date/" + date)
		return classify("load by recipient", resp, err)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type saveBody struct {
	Sections carelog.SectionData `json:"sections"`
}

// SaveSections persists the full nested document, last write wins.
func (r *Remote) SaveSections(ctx context.Context, id uuid.UUID, sections carelog.SectionData) (*carelog.CareLogDraft, error) {
	var d carelog.CareLogDraft
	resp, err := r.http.R().SetContext(ctx).
		SetBody(saveBody{Sections: sections}).
		SetResult(&d).
		Patch("/api/v1/care-logs/" + id.String())
	if cerr := classify("save sections", resp, err); cerr != nil {
		return nil, cerr
	}
	return &d, nil
}

type submitSectionBody struct {
	Section string `json:"section"`
}

type submitSectionResult struct {
	CompletedSections map[string]carelog.SectionAudit `json:"completed_sections"`
}

// SubmitSection shares one submission group with family and returns the
// server's full completed-sections map.
func (r *Remote) SubmitSection(ctx context.Context, id uuid.UUID, group string) (map[string]carelog.SectionAudit, error) {
	var out submitSectionResult
	resp, err := r.http.R().SetContext(ctx).
		SetBody(submitSectionBody{Section: group}).
		SetResult(&out).
		Post("/api/v1/care-logs/" + id.String() + "/submit-section")
	if cerr := classify("submit section", resp, err); cerr != nil {
		return nil, cerr
	}
	return out.CompletedSections, nil
}

// Submit finalises the draft.
func (r *Remote) Submit(ctx context.Context, id uuid.UUID) (*carelog.CareLogDraft, error) {
	var d carelog.CareLogDraft
	resp, err := r.http.R().SetContext(ctx).
		SetResult(&d).
		Post("/api/v1/care-logs/" + id.String() + "/submit")
	if cerr := classify("submit", resp, err); cerr != nil {
		return nil, cerr
	}
	return &d, nil
}

// HistoryPage is one page of a draft's audit trail.
type HistoryPage struct {
	Data    []carelog.HistoryEntry `json:"data"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
	HasMore bool                   `json:"has_more"`
}

// History fetches a page of the draft's audit trail.
func (r *Remote) History(ctx context.Context, id uuid.UUID, limit, offset int) (*HistoryPage, error) {
	var page HistoryPage
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":  fmt.Sprintf("%d", limit),
			"offset": fmt.Sprintf("%d", offset),
		}).
		SetResult(&page).
		Get("/api/v1/care-logs/" + id.String() + "/history")
	if cerr := classify("history", resp, err); cerr != nil {
		return nil, cerr
	}
	return &page, nil
}

type alertsResult struct {
	Alerts []carelog.VitalAlert `json:"alerts"`
}

// Alerts asks the server to classify the draft's stored vitals.
func (r *Remote) Alerts(ctx context.Context, id uuid.UUID, age int, gender string) ([]carelog.VitalAlert, error) {
	var out alertsResult
	resp, err := r.http.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"age":    fmt.Sprintf("%d", age),
			"gender": gender,
		}).
		SetResult(&out).
		Get("/api/v1/care-logs/" + id.String() + "/alerts")
	if cerr := classify("alerts", resp, err); cerr != nil {
		return nil, cerr
	}
	return out.Alerts, nil
}
