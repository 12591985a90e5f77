// Package record validates case records and forwards them to the
// spreadsheet endpoint.
package record

import (
	"strings"
	"time"

	"github.com/daap14/caseentry/internal/validation"
)

// Status is the billing status of a case.
type Status string

const (
	StatusPrivate Status = "Private"
	StatusBilled  Status = "Billed"
)

// DateLayout is the format of CaseRecord.Date.
const DateLayout = "2006-01-02"

// CaseRecord is one case entry. It is built from form input, sent once, and
// never stored.
type CaseRecord struct {
	Date         string `json:"date"`
	Institution  string `json:"institution"`
	Doctor       string `json:"doctor"`
	PatientName  string `json:"patientName"`
	Status       Status `json:"status"`
	DeviceNumber string `json:"deviceNumber"`
	Technician   string `json:"technician"`
	Notes        string `json:"notes"`
}

// Validate fails when institution, doctor or patient name is blank, or when
// a status other than Private or Billed is given. Every other field is optional.
func Validate(rec CaseRecord) error {
	var errs validation.Errors

	errs.Required("institution", rec.Institution)
	errs.Required("doctor", rec.Doctor)
	errs.Required("patientName", rec.PatientName)

	if rec.Status != "" {
		errs.OneOf("status", string(rec.Status), string(StatusPrivate), string(StatusBilled))
	}

	return errs.Err()
}

// Normalize trims surrounding whitespace from every field and fills the form
// defaults of today's date and Private status. Field content is otherwise
// sent as entered.
func Normalize(rec CaseRecord, now time.Time) CaseRecord {
	out := CaseRecord{
		Date:         strings.TrimSpace(rec.Date),
		Institution:  strings.TrimSpace(rec.Institution),
		Doctor:       strings.TrimSpace(rec.Doctor),
		PatientName:  strings.TrimSpace(rec.PatientName),
		Status:       Status(strings.TrimSpace(string(rec.Status))),
		DeviceNumber: strings.TrimSpace(rec.DeviceNumber),
		Technician:   strings.TrimSpace(rec.Technician),
		Notes:        strings.TrimSpace(rec.Notes),
	}
	if out.Date == "" {
		out.Date = now.UTC().Format(DateLayout)
	}
	if out.Status == "" {
		out.Status = StatusPrivate
	}
	return out
}

// WithTechnician returns rec with Technician set to name when rec has none.
// The entry form prefills it with the signed-in user's display name.
func (rec CaseRecord) WithTechnician(name string) CaseRecord {
	if strings.TrimSpace(rec.Technician) == "" {
		rec.Technician = name
	}
	return rec
}
