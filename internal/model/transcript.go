package model

// TranscriptRecord is one normalized call transcript segment
type TranscriptRecord struct {
	CallID   string            `json:"call_id"`
	Text     string            `json:"text"`               // Lower-cased transcript text
	Source   string            `json:"source,omitempty"`   // File path, URL or "webhook"
	Metadata map[string]string `json:"metadata,omitempty"` // Flattened scalar metadata from the payload
}
