package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/api/response"
	"github.com/daap14/caseentry/internal/record"
)

// RecordSubmitter forwards case records to the spreadsheet endpoint.
type RecordSubmitter interface {
	Submit(ctx context.Context, rec record.CaseRecord) error
	Mode() record.Mode
}

type submitResponse struct {
	Delivery string `json:"delivery"`
}

// RecordHandler handles case record submission.
type RecordHandler struct {
	submitter RecordSubmitter
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(submitter RecordSubmitter) *RecordHandler {
	return &RecordHandler{submitter: submitter}
}

// Submit handles POST /records. The record is sent once and not kept; the
// response says whether delivery was confirmed or only dispatched. A blank
// technician is filled with the caller's display name.
func (h *RecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var rec record.CaseRecord
	if !decodeJSON(w, r, &rec, requestID) {
		return
	}

	if snap := middleware.GetSnapshot(r.Context()); snap.Profile != nil {
		rec = rec.WithTechnician(snap.Profile.DisplayName)
	}

	err := h.submitter.Submit(r.Context(), rec)
	if err != nil {
		if writeValidation(w, err, requestID) {
			return
		}

		var transportErr *record.TransportError
		var deliveryErr *record.DeliveryError
		switch {
		case errors.As(err, &transportErr):
			response.Err(w, http.StatusBadGateway, "SUBMISSION_FAILED", "Could not reach the records endpoint", requestID)
		case errors.As(err, &deliveryErr):
			response.ErrWithDetails(w, http.StatusBadGateway, "SUBMISSION_REJECTED", "The records endpoint rejected the record",
				map[string]any{"upstreamStatus": deliveryErr.StatusCode, "upstreamReason": deliveryErr.Reason}, requestID)
		default:
			writeInternal(w, err, "Failed to submit record", requestID)
		}
		return
	}

	delivery := "delivered"
	if h.submitter.Mode() == record.ModeOpaque {
		delivery = "dispatched"
	}
	response.Success(w, http.StatusAccepted, submitResponse{Delivery: delivery}, requestID)
}
