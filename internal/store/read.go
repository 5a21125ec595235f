package store

import (
	"context"
	"fmt"
)

// Sessions returns all sessions ordered by id.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, delimiter, seq_start
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Delimiter, &sess.SeqStart); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadLines returns every line of a session ordered by seq.
// Returns an empty slice (not nil) if the session has no lines.
func (s *Store) ReadLines(ctx context.Context, sessionID string) ([]LineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, raw, command, malformed, error, message_cbor
		FROM lines
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	lines := []LineRecord{}
	for rows.Next() {
		var (
			rec       LineRecord
			malformed int
			msgCBOR   []byte
		)
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Raw, &rec.Command, &malformed, &rec.Error, &msgCBOR); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		rec.Malformed = malformed != 0
		rec.Message, err = unmarshalMessage(msgCBOR)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rec.Seq, err)
		}
		lines = append(lines, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

// ReadDispatches returns every dispatch of a session ordered by seq, handler_id.
func (s *Store) ReadDispatches(ctx context.Context, sessionID string) ([]DispatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, handler_id, handler_name
		FROM dispatches
		WHERE session_id = ?
		ORDER BY seq ASC, handler_id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []DispatchRecord{}
	for rows.Next() {
		var rec DispatchRecord
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.HandlerID, &rec.HandlerName); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		dispatches = append(dispatches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return dispatches, nil
}

// CountByCommand returns line counts per command for a session.
// Malformed lines are counted under "".
func (s *Store) CountByCommand(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command, COUNT(*)
		FROM lines
		WHERE session_id = ?
		GROUP BY command
		ORDER BY command ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query command counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			cmd string
			n   int
		)
		if err := rows.Scan(&cmd, &n); err != nil {
			return nil, fmt.Errorf("scan command count: %w", err)
		}
		counts[cmd] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command counts: %w", err)
	}
	return counts, nil
}
