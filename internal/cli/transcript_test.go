package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ircevents/internal/ircmsg"
	"github.com/roach88/ircevents/internal/store"
)

// seedTranscript writes a small session directly through the store.
func seedTranscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irc.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.BeginSession(ctx, store.Session{ID: "sess-a", Delimiter: []byte("\r\n")}))

	for i, raw := range []string{"PING :x", ":n!u@h PRIVMSG #c :hi", ":bad"} {
		rec := store.LineRecord{SessionID: "sess-a", Seq: int64(i + 1), Raw: []byte(raw)}
		if msg, err := ircmsg.Parse([]byte(raw)); err == nil {
			rec.Command = msg.Command
			rec.Message = msg
		} else {
			rec.Malformed = true
			rec.Error = err.Error()
		}
		require.NoError(t, st.WriteLine(ctx, rec))
	}
	require.NoError(t, st.WriteDispatch(ctx, store.DispatchRecord{SessionID: "sess-a", Seq: 1, HandlerID: 0, HandlerName: "pong"}))
	require.NoError(t, st.WriteDispatch(ctx, store.DispatchRecord{SessionID: "sess-a", Seq: 1, HandlerID: 1, HandlerName: "all"}))
	require.NoError(t, st.WriteDispatch(ctx, store.DispatchRecord{SessionID: "sess-a", Seq: 2, HandlerID: 1, HandlerName: "all"}))
	return path
}

func executeTranscript(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTranscriptCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTranscript_ListSessions(t *testing.T) {
	db := seedTranscript(t)

	output, err := executeTranscript(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, `sess-a  delimiter="\r\n"  lines=3`)
	assert.Contains(t, output, "PING")
	assert.Contains(t, output, "PRIVMSG")
	assert.Contains(t, output, "(malformed)")
}

func TestTranscript_ListSessionsJSON(t *testing.T) {
	db := seedTranscript(t)

	output, err := executeTranscript(t, "json", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data []SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "sess-a", resp.Data[0].ID)
	assert.Equal(t, 1, resp.Data[0].Commands["PING"])
	assert.Equal(t, 1, resp.Data[0].Commands["PRIVMSG"])
}

func TestTranscript_Session(t *testing.T) {
	db := seedTranscript(t)

	output, err := executeTranscript(t, "json", "--db", db, "--session", "sess-a")
	require.NoError(t, err)

	var resp struct {
		SessionID string           `json:"session_id"`
		Data      TranscriptResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "sess-a", resp.SessionID)
	require.Len(t, resp.Data.Lines, 3)
	assert.Equal(t, []string{"pong", "all"}, resp.Data.Lines[0].Handlers)
	assert.Equal(t, []string{"all"}, resp.Data.Lines[1].Handlers)
	assert.Empty(t, resp.Data.Lines[2].Handlers)
	assert.True(t, resp.Data.Lines[2].Malformed)
	assert.Equal(t, 3, resp.Data.Dispatches)
	assert.Equal(t, 1, resp.Data.Malformed)
}

func TestTranscript_SessionText(t *testing.T) {
	db := seedTranscript(t)

	output, err := executeTranscript(t, "text", "--db", db, "--session", "sess-a")
	require.NoError(t, err)
	assert.Contains(t, output, "Session: sess-a")
	assert.Contains(t, output, "[1] PING :x")
	assert.Contains(t, output, "[3] ✗ :bad")
	assert.Contains(t, output, "3 lines, 3 dispatches, 1 malformed")
}

func TestTranscript_CommandFilter(t *testing.T) {
	db := seedTranscript(t)

	output, err := executeTranscript(t, "json", "--db", db, "--session", "sess-a", "--command", "PRIVMSG")
	require.NoError(t, err)

	var resp struct {
		Data TranscriptResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Lines, 1)
	assert.Equal(t, int64(2), resp.Data.Lines[0].Seq)
	assert.Equal(t, 1, resp.Data.Dispatches)
}

func TestTranscript_UnknownSession(t *testing.T) {
	db := seedTranscript(t)

	output, err := executeTranscript(t, "text", "--db", db, "--session", "nope")
	require.NoError(t, err)
	assert.Contains(t, output, "No lines recorded for session: nope")
}

func TestTranscript_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	output, err := executeTranscript(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, output, "No sessions recorded.")
}

func TestTranscript_RequiresDB(t *testing.T) {
	_, err := executeTranscript(t, "text")
	require.Error(t, err)
}
