package model

import "time"

// Report is the rendered artifact of one audit (CLI scan/batch output)
type Report struct {
	CallID    string     `json:"call_id"`
	Source    string     `json:"source"`               // File path, URL, "stdin" or "webhook"
	AuditedAt time.Time  `json:"audited_at"`           // When the audit ran
	FetchMeta *FetchMeta `json:"fetch_meta,omitempty"` // HTTP metadata for URL sources

	Characters int     `json:"characters"`           // Transcript length after normalization
	Verdict    Verdict `json:"verdict"`
	Transcript string  `json:"transcript,omitempty"` // Only when output.include_transcript is set
}

// FetchMeta contains HTTP metadata from fetching a transcript URL
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Cached       bool              `json:"cached,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}
