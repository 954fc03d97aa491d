package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SQLStore keeps sessions in the quiz_sessions table (see internal/db).
// Placeholders are $n, which both modernc sqlite and pgx accept.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, id string) (State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM quiz_sessions WHERE id=$1 AND expires_at > $2`,
		id, s.now().Unix())
	var sj string
	if err := row.Scan(&sj); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return State{}, ErrSessionNotFound
		}
		return State{}, err
	}
	var st State
	if err := json.Unmarshal([]byte(sj), &st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *SQLStore) Put(ctx context.Context, id string, st State, expiresAt time.Time) error {
	buf, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_sessions (id,state_json,updated_at,expires_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET state_json=EXCLUDED.state_json, updated_at=EXCLUDED.updated_at, expires_at=EXCLUDED.expires_at`,
		id, string(buf), s.now().Unix(), expiresAt.Unix())
	return err
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE id=$1`, id)
	return err
}

func (s *SQLStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE expires_at <= $1`, now.Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
