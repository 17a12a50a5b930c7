// Package reply validates raw model output against the three-field agent
// reply schema. Validation here is purely syntactic: whether the named agents
// actually exist is the caller's responsibility.
package reply

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Reply is a syntactically valid agent reply. All fields are
// whitespace-trimmed copies of the raw input fields.
type Reply struct {
	From    string
	To      string
	Content string
}

// wireReply mirrors the schema the model is instructed to emit. Pointer
// fields distinguish a missing key from an empty value.
type wireReply struct {
	From *string `json:"from"`
	To   *string `json:"to"`
	Body *string `json:"body"`
}

// Parse validates a raw model reply and returns its structured form, or nil
// when the input is empty, not valid UTF-8, not a JSON object, or missing any
// required field. It never panics, whatever the input.
func Parse(raw string) *Reply {
	if raw == "" || !utf8.ValidString(raw) {
		return nil
	}

	var wire wireReply
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil
	}
	if wire.From == nil || wire.To == nil || wire.Body == nil {
		return nil
	}

	return &Reply{
		From:    strings.TrimSpace(*wire.From),
		To:      strings.TrimSpace(*wire.To),
		Content: strings.TrimSpace(*wire.Body),
	}
}
