package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ValidReply(t *testing.T) {
	r := Parse(`{"from":"Builder","to":"Reviewer","body":"Draft is ready."}`)
	assert.NotNil(t, r)
	assert.Equal(t, "Builder", r.From)
	assert.Equal(t, "Reviewer", r.To)
	assert.Equal(t, "Draft is ready.", r.Content)
}

func TestParse_TrimsFields(t *testing.T) {
	r := Parse(`{"from":"  Builder ","to":"\tReviewer\n","body":"  hi  "}`)
	assert.NotNil(t, r)
	assert.Equal(t, "Builder", r.From)
	assert.Equal(t, "Reviewer", r.To)
	assert.Equal(t, "hi", r.Content)
}

func TestParse_EmptyFieldValuesAreStillValid(t *testing.T) {
	// Presence of all three keys is what matters syntactically; semantic
	// checks (does the agent exist) happen downstream.
	r := Parse(`{"from":"","to":"","body":""}`)
	assert.NotNil(t, r)
	assert.Empty(t, r.From)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty input", ""},
		{"not json", "I will now respond in JSON, promise."},
		{"markdown fenced", "```json\n{\"from\":\"A\",\"to\":\"B\",\"body\":\"x\"}\n```"},
		{"json array", `[{"from":"A","to":"B","body":"x"}]`},
		{"missing from", `{"to":"B","body":"x"}`},
		{"missing to", `{"from":"A","body":"x"}`},
		{"missing body", `{"from":"A","to":"B"}`},
		{"null field", `{"from":"A","to":"B","body":null}`},
		{"truncated", `{"from":"A","to":"B","body":"x`},
		{"invalid utf8", "{\"from\":\"\xff\xfe\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Parse(tt.raw))
		})
	}
}

func TestParse_ExtraKeysIgnored(t *testing.T) {
	r := Parse(`{"from":"A","to":"B","body":"x","mood":"chipper"}`)
	assert.NotNil(t, r)
	assert.Equal(t, "x", r.Content)
}
