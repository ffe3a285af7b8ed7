package queue

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errEmptyJob = errors.New("scan job has no text")

// ScanJob carries one document's recognized text to the worker. OCR happens
// on the publishing side so the worker never touches image data.
type ScanJob struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`    // file name or upload label
	Text      string    `json:"text"`
	BankHint  string    `json:"bankHint,omitempty"`  // see parser.ParseBankType
	Direction string    `json:"direction,omitempty"` // "income" or "expense"
	Timestamp time.Time `json:"timestamp"`
}

// NewScanJob creates a job with a fresh id.
func NewScanJob(source, text string) *ScanJob {
	return &ScanJob{
		ID:        uuid.NewString(),
		Source:    source,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (j *ScanJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// ScanJobFromJSON decodes a job and rejects jobs with no text.
func ScanJobFromJSON(data []byte) (*ScanJob, error) {
	var job ScanJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	if strings.TrimSpace(job.Text) == "" {
		return nil, errEmptyJob
	}
	return &job, nil
}
