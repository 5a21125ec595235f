package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ircevents/internal/engine"
)

const captureFixture = ":srv 001 me :Welcome\r\n" +
	":alice!a@h JOIN #go\r\n" +
	"PING :tok\r\n" +
	":bob!b@h PRIVMSG #go :hi\r\n" +
	":bad\r\n"

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type replayRun struct {
	output  string
	replies string
	err     error
}

func executeReplay(t *testing.T, format string, session string, args ...string) replayRun {
	t.Helper()
	out := &bytes.Buffer{}
	replies := &bytes.Buffer{}

	opts := &ReplayOptions{RootOptions: &RootOptions{Format: format}, Replies: replies}
	opts.SessionGenerator = engine.NewFixedGenerator(session)

	c := newReplayCommand(opts)
	c.SetOut(out)
	c.SetErr(&bytes.Buffer{})
	c.SetArgs(args)
	err := c.Execute()
	return replayRun{output: out.String(), replies: replies.String(), err: err}
}

func findHandler(s Summary, name string) (HandlerCount, bool) {
	for _, h := range s.Handlers {
		if h.Name == name {
			return h, true
		}
	}
	return HandlerCount{}, false
}

func TestReplay_WithRulesJSON(t *testing.T) {
	capture := writeCapture(t, captureFixture)
	run := executeReplay(t, "json", "replay-1", capture, "--rules", validRulesDir)
	require.NoError(t, run.err)

	var resp struct {
		Status    string  `json:"status"`
		SessionID string  `json:"session_id"`
		Data      Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(run.output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "replay-1", resp.SessionID)

	s := resp.Data
	assert.Equal(t, "replay-1", s.Session)
	assert.Equal(t, int64(5), s.Lines)
	assert.Equal(t, int64(1), s.Malformed)
	assert.Equal(t, 0, s.Pending)
	assert.Equal(t, "me", s.Nick)
	assert.Equal(t, []ChannelSummary{{Name: "#go", Members: 1}}, s.Channels)
	assert.Equal(t, map[string]int{"privmsg": 1, "joins": 1}, s.Counters)
	assert.Equal(t, 2, s.Replies)

	everything, ok := findHandler(s, "rule:everything")
	require.True(t, ok)
	assert.Equal(t, 4, everything.Calls)
	pong, ok := findHandler(s, "rule:pong")
	require.True(t, ok)
	assert.Equal(t, 1, pong.Calls)

	assert.Contains(t, run.replies, "PONG tok\r\n")
	assert.Contains(t, run.replies, "PRIVMSG #go :welcome alice\r\n")
}

func TestReplay_TextSummary(t *testing.T) {
	capture := writeCapture(t, "PING :a\r\nPING :b\r\nPING :c")
	run := executeReplay(t, "text", "replay-2", capture)
	require.NoError(t, run.err)

	assert.Contains(t, run.output, "Session replay-2")
	assert.Contains(t, run.output, "Lines: 2 (0 malformed)")
	assert.Contains(t, run.output, "Pending: 7 byte(s) without delimiter")
	assert.Contains(t, run.output, "✓ Stream dispatched")
	assert.Empty(t, run.replies)
}

func TestReplay_CustomDelimiter(t *testing.T) {
	capture := writeCapture(t, "PING :a\nPING :b\n")
	run := executeReplay(t, "json", "replay-3", capture, "--delimiter", `\n`, "--read-size", "3")
	require.NoError(t, run.err)

	var resp struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(run.output), &resp))
	assert.Equal(t, int64(2), resp.Data.Lines)
}

func TestReplay_MalformedFailPolicy(t *testing.T) {
	capture := writeCapture(t, captureFixture)
	run := executeReplay(t, "json", "replay-4", capture, "--policy", "fail")
	require.Error(t, run.err)
	assert.Equal(t, ExitFailure, GetExitCode(run.err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(run.output), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDispatch, resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MALFORMED_LINE", details["code"])
	assert.Equal(t, "parse", details["stage"])
	assert.Equal(t, float64(5), details["seq"])
	assert.Equal(t, ":bad", details["line"])
}

func TestReplay_LineTooLong(t *testing.T) {
	capture := writeCapture(t, "PING :a\r\nPRIVMSG #x :this line never ends")
	run := executeReplay(t, "text", "replay-5", capture, "--max-line", "10")
	require.Error(t, run.err)
	assert.Equal(t, ExitFailure, GetExitCode(run.err))
	assert.Contains(t, run.output, "Lines: 1 (0 malformed)")
	assert.Contains(t, run.output, "✗")
}

func TestReplay_RecordsTranscript(t *testing.T) {
	capture := writeCapture(t, captureFixture)
	db := filepath.Join(t.TempDir(), "irc.db")

	run := executeReplay(t, "text", "replay-6", capture, "--rules", validRulesDir, "--db", db)
	require.NoError(t, run.err)

	out := &bytes.Buffer{}
	cmd := NewTranscriptCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--db", db, "--session", "replay-6"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data TranscriptResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data.Lines, 5)
	assert.Equal(t, 1, resp.Data.Malformed)
	assert.Contains(t, resp.Data.Lines[2].Handlers, "rule:pong")
	assert.True(t, resp.Data.Lines[4].Malformed)
	assert.Empty(t, resp.Data.Lines[4].Handlers)
}

func TestReplay_SeqStartContinuesTranscript(t *testing.T) {
	capture := writeCapture(t, captureFixture)
	db := filepath.Join(t.TempDir(), "irc.db")

	run := executeReplay(t, "json", "replay-7", capture, "--rules", validRulesDir, "--db", db, "--seq-start", "500")
	require.NoError(t, run.err)

	var summary struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(run.output), &summary))
	assert.Equal(t, int64(5), summary.Data.Lines)

	out := &bytes.Buffer{}
	cmd := NewTranscriptCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--db", db, "--session", "replay-7"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data TranscriptResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data.Lines, 5)
	assert.Equal(t, int64(501), resp.Data.Lines[0].Seq)
	assert.Equal(t, int64(505), resp.Data.Lines[4].Seq)
	assert.Contains(t, resp.Data.Lines[2].Handlers, "rule:pong")

	out.Reset()
	cmd = NewTranscriptCommand(&RootOptions{Format: "json"})
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--db", db})
	require.NoError(t, cmd.Execute())

	var list struct {
		Data []SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(500), list.Data[0].SeqStart)
}

func TestReplay_CommandErrors(t *testing.T) {
	capture := writeCapture(t, captureFixture)

	tests := []struct {
		name string
		args []string
	}{
		{"missing_file", []string{filepath.Join(t.TempDir(), "missing.log")}},
		{"bad_policy", []string{capture, "--policy", "explode"}},
		{"bad_delimiter", []string{capture, "--delimiter", `\q`}},
		{"negative_seq_start", []string{capture, "--seq-start=-1"}},
		{"invalid_rules", []string{capture, "--rules", invalidRulesDir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := executeReplay(t, "text", "replay-err", tt.args...)
			require.Error(t, run.err)
			assert.Equal(t, ExitCommandError, GetExitCode(run.err))
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`\r\n`, "\r\n", false},
		{`\n`, "\n", false},
		{`|`, "|", false},
		{``, "\r\n", false},
		{`\x00`, "\x00", false},
		{`\q`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDelimiter(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
