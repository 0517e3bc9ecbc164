package domain

import "time"

// IngestStatus is the outcome of one ingest attempt.
type IngestStatus string

// Ingest outcomes recorded in the journal.
const (
	IngestStatusIngested  IngestStatus = "ingested"
	IngestStatusDuplicate IngestStatus = "duplicate"
	IngestStatusEmpty     IngestStatus = "empty"
	IngestStatusFailed    IngestStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s IngestStatus) IsValid() bool {
	switch s {
	case IngestStatusIngested, IngestStatusDuplicate, IngestStatusEmpty, IngestStatusFailed:
		return true
	default:
		return false
	}
}

// IngestRecord is one journal entry. Every ingest attempt produces one,
// successful or not.
type IngestRecord struct {
	ID       int64         `json:"id"`
	Source   string        `json:"source"`
	Path     string        `json:"path"`
	Title    string        `json:"title,omitempty"`
	BatchID  string        `json:"batch_id,omitempty"`
	Pages    int           `json:"pages"`
	Chunks   int           `json:"chunks"`
	Status   IngestStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}
