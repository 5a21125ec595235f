package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ircevents/internal/engine"
)

func TestParseScenario_Full(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full
description: "every field"
delimiter: "\n"
read_size: 4
max_line: 512
policy: fail
chunks: ["PING :a\n"]
transport_error: "reset"
handlers:
  - name: all
    when: always
  - name: pings
    when: {field: command, equals: PING}
    fail: "nope"
expect:
  commands:
    all: [PING]
  replies: []
  malformed: 0
  pending: ""
  error: HANDLER
`))
	require.NoError(t, err)

	assert.Equal(t, "full", s.Name)
	assert.Equal(t, "\n", s.Delimiter)
	assert.Equal(t, 4, s.ReadSize)
	assert.Equal(t, 512, s.MaxLine)
	assert.Equal(t, PolicyFail, s.Policy)
	assert.Equal(t, "reset", s.TransportError)
	require.Len(t, s.Handlers, 2)
	assert.Equal(t, engine.Always(), s.Handlers[0].When.MatchSpec())
	assert.Equal(t, engine.FieldEquals("command", "PING"), s.Handlers[1].When.MatchSpec())
	assert.Equal(t, "nope", s.Handlers[1].Fail)
	require.NotNil(t, s.Expect.Malformed)
	assert.Equal(t, int64(0), *s.Expect.Malformed)
	require.NotNil(t, s.Expect.Pending)
	assert.Equal(t, "", *s.Expect.Pending)
	assert.Equal(t, "HANDLER", s.Expect.Error)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"unknown field", "name: x\ndescription: d\nchunk: [a]\n", "field chunk not found"},
		{"missing name", "description: d\nchunks: [a]\nhandlers: [{name: h, when: always}]\n", "name is required"},
		{"missing description", "name: x\nchunks: [a]\nhandlers: [{name: h, when: always}]\n", "description is required"},
		{"no chunks", "name: x\ndescription: d\nhandlers: [{name: h, when: always}]\n", "chunks"},
		{"no handlers", "name: x\ndescription: d\nchunks: [a]\n", "at least one handler"},
		{"bad condition", "name: x\ndescription: d\nchunks: [a]\nhandlers: [{name: h, when: sometimes}]\n", "unknown condition"},
		{"missing when", "name: x\ndescription: d\nchunks: [a]\nhandlers: [{name: h}]\n", "when is required"},
		{"unknown match field", "name: x\ndescription: d\nchunks: [a]\nhandlers: [{name: h, when: {field: colour, equals: red}}]\n", "unknown field"},
		{"duplicate handler", "name: x\ndescription: d\nchunks: [a]\nhandlers: [{name: h, when: always}, {name: h, when: always}]\n", "duplicate"},
		{"bad policy", "name: x\ndescription: d\npolicy: retry\nchunks: [a]\nhandlers: [{name: h, when: always}]\n", "unknown policy"},
		{"bad error code", "name: x\ndescription: d\nchunks: [a]\nhandlers: [{name: h, when: always}]\nexpect: {error: BOOM}\n", "unknown code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadScenario_ResolvesRulesRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	content := "name: x\ndescription: d\nrules: ../rules\nchunks: [a]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "../rules"), s.Rules)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_EmptyDir(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}
