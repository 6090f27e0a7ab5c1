package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	data := struct {
		Name     string
		Patterns []string
	}{Name: "economist", Patterns: []string{"cost", "budget"}}

	out, err = RenderTemplate(`{{title .Name}} cares about {{join ", " .Patterns}}`, data)
	require.NoError(t, err)
	assert.Equal(t, "Economist cares about cost, budget", out)

	// text/template must not escape prompt content
	out, err = RenderTemplate(`{{.}}`, "a < b & c")
	require.NoError(t, err)
	assert.Equal(t, "a < b & c", out)

	_, err = RenderTemplate("{{.Broken", nil)
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: "  id: a\n", want: "id: a"},
		{name: "yaml fence", in: "```yaml\nid: a\nname: b\n```", want: "id: a\nname: b"},
		{name: "bare fence", in: "```\n{\"id\":\"a\"}\n```\n", want: "{\"id\":\"a\"}"},
		{name: "unterminated", in: "```json\n{}", want: "{}"},
		{name: "only fence", in: "```", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "hello", FirstLine("\n  \n hello \nworld"))
	assert.Equal(t, "", FirstLine("   "))
}

func TestValidationHelpers(t *testing.T) {
	require.NoError(t, InRange("threshold", 0.5, 0, 1))

	err := InRange("threshold", 1.5, 0, 1)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "threshold", ve.Field)
	assert.Contains(t, err.Error(), "threshold")

	assert.NoError(t, Positive("max_ticks", 1))
	assert.Error(t, Positive("max_ticks", 0))
	assert.NoError(t, NonNegative("concurrency", 0))
	assert.Error(t, NonNegative("concurrency", -1))
}

func TestOneOf(t *testing.T) {
	require.NoError(t, OneOf("provider", "mock", "mock", "openai"))

	err := OneOf("provider", "cohere", "mock", "openai")
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "provider", verr.Field)
	assert.Equal(t, "cohere", verr.Value)
}
