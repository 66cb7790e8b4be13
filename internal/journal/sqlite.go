package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store archives every inbound frame per session so an operator can review
// what the supervisor sent while the UI was detached. The archive is never
// consulted for projection: the supervisor's backfill stays the source of
// truth for rebuilding state.
type Store struct {
	db *sql.DB
}

type FrameRecord struct {
	SessionID  string
	Seq        int64
	Raw        string
	ReceivedAt time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS frames (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  raw_json TEXT NOT NULL,
  received_at TEXT NOT NULL,
  UNIQUE(session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_frames_session_seq ON frames(session_id, seq);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// AppendFrame records one raw inbound frame under the next local sequence
// number for the session. The seq is a local reading order, not a protocol
// field: the wire carries no sequence numbers.
func (s *Store) AppendFrame(ctx context.Context, sessionID string, raw []byte) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	seq, err := s.NextSeq(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO frames(session_id, seq, raw_json, received_at) VALUES (?, ?, ?, ?)`,
		sessionID, seq, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) NextSeq(ctx context.Context, sessionID string) (int64, error) {
	var maxSeq sql.NullInt64
	row := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM frames WHERE session_id=?`, sessionID)
	if err := row.Scan(&maxSeq); err != nil {
		return 0, err
	}
	if !maxSeq.Valid {
		return 1, nil
	}
	return maxSeq.Int64 + 1, nil
}

func (s *Store) ListFrames(ctx context.Context, sessionID string, fromSeq, limit int64) ([]FrameRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id, seq, raw_json, received_at
		 FROM frames WHERE session_id=? AND seq>=?
		 ORDER BY seq ASC LIMIT ?`,
		sessionID, fromSeq, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FrameRecord{}
	for rows.Next() {
		var rec FrameRecord
		var ts string
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Raw, &ts); err != nil {
			return nil, err
		}
		rec.ReceivedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneSession drops a session's archived frames, typically after the
// operator has reviewed and closed it.
func (s *Store) PruneSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM frames WHERE session_id=?`, sessionID)
	return err
}
