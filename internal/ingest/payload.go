// Package ingest normalizes inbound call-event payloads into a TranscriptRecord.
//
// Voice platforms deliver transcripts in several shapes. Normalize recognizes
// each of them so nothing downstream ever branches on payload layout.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/callaudit/internal/model"
)

// ErrInvalidPayload is returned when a payload is not JSON or carries no transcript field
var ErrInvalidPayload = errors.New("invalid payload")

// SourceWebhook marks records that arrived over HTTP
const SourceWebhook = "webhook"

// Payload is the canonical inbound shape
type Payload struct {
	CallID         string         `json:"call_id"`
	TranscriptText string         `json:"transcript_text"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// envelope is the union of every supported payload layout
type envelope struct {
	CallID         string          `json:"call_id"`
	ID             string          `json:"id"`
	TranscriptText *string         `json:"transcript_text"`
	Transcript     json.RawMessage `json:"transcript"`
	Metadata       map[string]any  `json:"metadata"`

	Message *struct {
		Transcript *string `json:"transcript"`
		Artifact   *struct {
			Transcript *string `json:"transcript"`
		} `json:"artifact"`
		Call *struct {
			ID string `json:"id"`
		} `json:"call"`
	} `json:"message"`

	Call *struct {
		CallID           string  `json:"call_id"`
		ID               string  `json:"id"`
		Transcript       *string `json:"transcript"`
		TranscriptObject []turn  `json:"transcript_object"`
	} `json:"call"`

	Messages []turn `json:"messages"`
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Message string `json:"message"`
}

func (t turn) text() string {
	if t.Content != "" {
		return t.Content
	}
	return t.Message
}

// Normalize decodes raw into a record with lower-cased text. A payload that
// carries a transcript field with empty text is valid; the auditor skips it.
// A missing call id is replaced with a random UUID.
func Normalize(raw []byte) (model.TranscriptRecord, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.TranscriptRecord{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	text, callID, ok := extract(&env)
	if !ok {
		return model.TranscriptRecord{}, fmt.Errorf("%w: no transcript field", ErrInvalidPayload)
	}

	if callID == "" {
		callID = uuid.NewString()
	}

	return model.TranscriptRecord{
		CallID:   callID,
		Text:     strings.ToLower(text),
		Source:   SourceWebhook,
		Metadata: flatten(env.Metadata),
	}, nil
}

// FromText builds a record from raw transcript text read outside the webhook
func FromText(text, source string) model.TranscriptRecord {
	return model.TranscriptRecord{
		CallID: uuid.NewString(),
		Text:   strings.ToLower(text),
		Source: source,
	}
}

func extract(env *envelope) (text, callID string, ok bool) {
	callID = firstNonEmpty(env.CallID, env.ID)

	switch {
	case env.TranscriptText != nil:
		return *env.TranscriptText, callID, true

	case len(env.Transcript) > 0:
		if t, ok := transcriptField(env.Transcript); ok {
			return t, callID, true
		}

	case env.Message != nil:
		m := env.Message
		if m.Call != nil {
			callID = firstNonEmpty(callID, m.Call.ID)
		}
		if m.Artifact != nil && m.Artifact.Transcript != nil {
			return *m.Artifact.Transcript, callID, true
		}
		if m.Transcript != nil {
			return *m.Transcript, callID, true
		}

	case env.Call != nil:
		c := env.Call
		callID = firstNonEmpty(callID, c.CallID, c.ID)
		if c.Transcript != nil {
			return *c.Transcript, callID, true
		}
		if c.TranscriptObject != nil {
			return joinTurns(c.TranscriptObject), callID, true
		}

	case env.Messages != nil:
		return joinTurns(env.Messages), callID, true
	}

	return "", callID, false
}

// transcriptField accepts "transcript" as a string or as a list of turns
func transcriptField(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var turns []turn
	if err := json.Unmarshal(raw, &turns); err == nil {
		return joinTurns(turns), true
	}
	return "", false
}

func joinTurns(turns []turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		text := strings.TrimSpace(t.text())
		if text == "" {
			continue
		}
		if t.Role != "" {
			text = t.Role + ": " + text
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

func flatten(meta map[string]any) map[string]string {
	if len(meta) == 0 {
		return nil
	}

	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch v := v.(type) {
		case string:
			out[k] = v
		case nil:
			out[k] = ""
		default:
			b, err := json.Marshal(v)
			if err != nil {
				out[k] = fmt.Sprint(v)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
