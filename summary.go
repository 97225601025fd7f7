package sevexport

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/sevexport/internal/attachments"
	"github.com/agentstation/sevexport/pkg/period"
)

// Summary reports what an export run produced. It is written as
// ExportSummary.json next to the model files.
type Summary struct {
	RunID       string              `json:"run_id" yaml:"run_id"`
	Month       string              `json:"month" yaml:"month"`
	Window      period.Window       `json:"window" yaml:"window"`
	Folder      string              `json:"folder,omitempty" yaml:"folder,omitempty"`
	StartedAt   utc.Time            `json:"started_at" yaml:"started_at"`
	FinishedAt  utc.Time            `json:"finished_at" yaml:"finished_at"`
	Models      []ModelCount        `json:"models" yaml:"models"`
	Attachments []AttachmentRecord  `json:"attachments" yaml:"attachments"`
	Skipped     []SkippedAttachment `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Misses      []attachments.Miss  `json:"correlation_misses,omitempty" yaml:"correlation_misses,omitempty"`
}

// ModelCount is the number of records exported for a model.
type ModelCount struct {
	Model string `json:"model" yaml:"model"`
	Count int    `json:"count" yaml:"count"`
}

// AttachmentRecord describes a written attachment.
type AttachmentRecord struct {
	Source   string `json:"source" yaml:"source"`
	Kind     string `json:"kind" yaml:"kind"`
	FileName string `json:"file_name" yaml:"file_name"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
}

// SkippedAttachment describes an attachment that could not be downloaded.
type SkippedAttachment struct {
	Source      string `json:"source" yaml:"source"`
	Kind        string `json:"kind" yaml:"kind"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Reason      string `json:"reason" yaml:"reason"`
}

// Entities returns the total number of exported records.
func (s *Summary) Entities() int {
	total := 0
	for _, m := range s.Models {
		total += m.Count
	}
	return total
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.Time.IsZero() {
		return 0
	}
	return s.FinishedAt.Time.Sub(s.StartedAt.Time)
}
