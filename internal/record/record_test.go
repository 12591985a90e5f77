package record_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/caseentry/internal/record"
	"github.com/daap14/caseentry/internal/validation"
)

func completeRecord() record.CaseRecord {
	return record.CaseRecord{
		Date:         "2025-03-14",
		Institution:  "General Hospital",
		Doctor:       "Dr. Grey",
		PatientName:  "J. Doe",
		Status:       record.StatusBilled,
		DeviceNumber: "D-42",
		Technician:   "Pat",
		Notes:        "routine",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(r *record.CaseRecord)
		fields []string
	}{
		{"complete", func(*record.CaseRecord) {}, nil},
		{"only required fields", func(r *record.CaseRecord) {
			*r = record.CaseRecord{Institution: "H", Doctor: "D", PatientName: "P"}
		}, nil},
		{"missing institution", func(r *record.CaseRecord) { r.Institution = "" }, []string{"institution"}},
		{"missing doctor", func(r *record.CaseRecord) { r.Doctor = "  " }, []string{"doctor"}},
		{"missing patient", func(r *record.CaseRecord) { r.PatientName = "" }, []string{"patientName"}},
		{"all required missing", func(r *record.CaseRecord) { *r = record.CaseRecord{} }, []string{"institution", "doctor", "patientName"}},
		{"unknown status", func(r *record.CaseRecord) { r.Status = "Pending" }, []string{"status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			tt.modify(&rec)

			err := record.Validate(rec)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var verrs validation.Errors
			require.True(t, errors.As(err, &verrs))
			got := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				got = append(got, fe.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 9, 23, 30, 0, 0, time.UTC)
	out := record.Normalize(record.CaseRecord{Institution: "H", Doctor: "D", PatientName: "P"}, now)

	assert.Equal(t, "2025-07-09", out.Date)
	assert.Equal(t, record.StatusPrivate, out.Status)
}

func TestNormalize_KeepsGivenValues(t *testing.T) {
	t.Parallel()

	in := completeRecord()
	out := record.Normalize(in, time.Now())
	assert.Equal(t, in, out)
}

func TestNormalize_TrimsWhitespaceOnly(t *testing.T) {
	t.Parallel()

	in := record.CaseRecord{
		Institution:  "  <b>General</b> Hospital ",
		Doctor:       "Dr. Grey",
		PatientName:  "Ali <Veli> & Sons",
		DeviceNumber: "SN<A1>",
		Notes:        "\n BP<140 and HR>90, dose <5mg>, &lt;ok&gt;\t",
		Status:       " Billed ",
	}
	out := record.Normalize(in, time.Now())

	assert.Equal(t, "<b>General</b> Hospital", out.Institution)
	assert.Equal(t, "Ali <Veli> & Sons", out.PatientName)
	assert.Equal(t, "SN<A1>", out.DeviceNumber)
	assert.Equal(t, "BP<140 and HR>90, dose <5mg>, &lt;ok&gt;", out.Notes)
	assert.Equal(t, record.StatusBilled, out.Status)
}

func TestNormalize_BlankRequiredFieldFailsValidation(t *testing.T) {
	t.Parallel()

	rec := completeRecord()
	rec.Doctor = " \t "

	out := record.Normalize(rec, time.Now())
	assert.Empty(t, out.Doctor)
	assert.Error(t, record.Validate(out))
}

func TestWithTechnician(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		given string
		want  string
	}{
		{"blank takes display name", "", "Pat Tech"},
		{"whitespace takes display name", "  ", "Pat Tech"},
		{"entered value kept", "Sam", "Sam"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			rec.Technician = tt.given
			assert.Equal(t, tt.want, rec.WithTechnician("Pat Tech").Technician)
		})
	}
}
