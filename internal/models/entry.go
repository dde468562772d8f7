package models

import "time"

// Entry is an accepted, immutable experience record. Entries are append-only:
// once admitted they are never mutated or deleted.
type Entry struct {
	ID          string    `json:"id"`
	AgentNumber int       `json:"agent_num"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags"`
	Type        string    `json:"type"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	Date        string    `json:"date"` // display form, "02 Jan 2006"
	SizeBytes   int       `json:"size_bytes"`
}

// EntrySummary is the shape returned by list queries. The full body lives in
// the rendered document, fetched separately by id.
type EntrySummary struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	Type  string   `json:"type"`
	Date  string   `json:"date"`
}

// Summary projects the entry onto its list-query shape.
func (e *Entry) Summary() EntrySummary {
	return EntrySummary{
		ID:    e.ID,
		Title: e.Title,
		Tags:  e.Tags,
		Type:  e.Type,
		Date:  e.Date,
	}
}

// Draft is a normalized submission that passed schema validation but has not
// yet been through the acceptance pipeline.
type Draft struct {
	AgentID  string
	Category string
	Title    string
	Content  string
	Tags     []string
	Type     string
}

// SubmissionResult is returned to the submitter on acceptance. The agent
// number is the only identity ever echoed back; the raw credential is not.
type SubmissionResult struct {
	ID          string `json:"id"`
	AgentNumber int    `json:"agent_num"`
}
