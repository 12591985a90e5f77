package record

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/doyensec/safeurl"
	"github.com/microcosm-cc/bluemonday"

	"github.com/daap14/caseentry/internal/metrics"
)

// Mode selects how much the submitter learns about delivery.
type Mode string

const (
	// ModeVerified reads the response status and reports non-2xx replies.
	ModeVerified Mode = "verified"
	// ModeOpaque never looks at the response. A submission counts as done
	// once the request was sent without a local error, so a failed delivery
	// cannot be told apart from a successful one.
	ModeOpaque Mode = "opaque"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeVerified || m == ModeOpaque
}

// TransportError means the request could not be dispatched at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "dispatching record: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DeliveryError means the endpoint answered with a non-2xx status. Only
// returned in ModeVerified. Reason is the start of the reply body as plain
// text, empty when the body had none.
type DeliveryError struct {
	StatusCode int
	Reason     string
}

func (e *DeliveryError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("endpoint rejected record: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("endpoint rejected record: HTTP %d: %s", e.StatusCode, e.Reason)
}

// maxReasonLen caps DeliveryError.Reason, in runes.
const maxReasonLen = 200

var replyPolicy = bluemonday.StrictPolicy()

// replyReason turns an endpoint reply, often an HTML error page, into a short
// single-line plain-text reason.
func replyReason(body []byte) string {
	text := html.UnescapeString(replyPolicy.Sanitize(string(body)))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxReasonLen {
		text = string([]rune(text)[:maxReasonLen]) + "..."
	}
	return text
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Submitter posts case records to the spreadsheet endpoint. Each record is
// sent exactly once: no retry, no idempotency key, no local copy.
type Submitter struct {
	endpoint string
	mode     Mode
	client   Doer
	recorder metrics.Recorder
	now      func() time.Time
}

// NewSubmitter creates a Submitter. An unknown mode falls back to ModeVerified.
func NewSubmitter(endpoint string, mode Mode, client Doer, recorder metrics.Recorder) *Submitter {
	if !mode.Valid() {
		mode = ModeVerified
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Submitter{
		endpoint: endpoint,
		mode:     mode,
		client:   client,
		recorder: recorder,
		now:      time.Now,
	}
}

// Mode returns the delivery mode in use.
func (s *Submitter) Mode() Mode {
	return s.mode
}

// NewHTTPClient builds the outbound client. With guard set, requests to
// private, loopback and link-local addresses and to ports other than 80 and
// 443 are refused. A zero timeout leaves the transport defaults in place.
func NewHTTPClient(guard bool, timeout time.Duration) *http.Client {
	if !guard {
		return &http.Client{Timeout: timeout}
	}

	builder := safeurl.GetConfigBuilder().
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443)
	if timeout > 0 {
		builder = builder.SetTimeout(timeout)
	}
	return safeurl.Client(builder.Build()).Client
}

// Submit normalizes and validates rec, then sends it as one multipart POST.
// It returns the validation error without sending anything when rec is
// incomplete, a *TransportError when the request could not be sent, and in
// ModeVerified a *DeliveryError for a non-2xx reply.
func (s *Submitter) Submit(ctx context.Context, rec CaseRecord) error {
	rec = Normalize(rec, s.now())
	if err := Validate(rec); err != nil {
		s.recorder.RecordSubmission("invalid", 0)
		return err
	}

	body, contentType, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.recorder.RecordSubmission("transport_error", latency)
		slog.Warn("record dispatch failed", "error", err)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if s.mode == ModeOpaque {
		s.recorder.RecordSubmission("dispatched", latency)
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reply, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		reason := replyReason(reply)
		s.recorder.RecordSubmission("rejected", latency)
		slog.Warn("record rejected by endpoint", "status", resp.StatusCode, "reason", reason)
		return &DeliveryError{StatusCode: resp.StatusCode, Reason: reason}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	s.recorder.RecordSubmission("delivered", latency)
	return nil
}

// encode writes the record as multipart/form-data in the endpoint's field order.
func encode(rec CaseRecord) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name  string
		value string
	}{
		{"date", rec.Date},
		{"institution", rec.Institution},
		{"doctor", rec.Doctor},
		{"patientName", rec.PatientName},
		{"status", string(rec.Status)},
		{"deviceNumber", rec.DeviceNumber},
		{"technician", rec.Technician},
		{"notes", rec.Notes},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
