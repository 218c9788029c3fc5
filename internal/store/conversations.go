package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kestrel-aero/charterdesk/internal/rfp"
)

// Get loads a thread's conversation state. A missing thread is a normal
// outcome and returns (nil, nil); any other failure is a hard error.
func (s *Store) Get(ctx context.Context, threadID string) (*rfp.State, error) {
	var blob []byte
	err := s.db.QueryRow(ctx,
		`SELECT state FROM conversation_states WHERE thread_id = $1`,
		threadID,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", threadID, err)
	}

	var state rfp.State
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", threadID, err)
	}
	return &state, nil
}

// Set writes a whole-state replacement for the thread. The caller has
// already merged in memory; the store performs no merging of its own.
func (s *Store) Set(ctx context.Context, threadID string, state *rfp.State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", threadID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO conversation_states (thread_id, user_id, state, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (thread_id)
		DO UPDATE SET user_id = $2, state = $3, updated_at = now()`,
		threadID, state.UserID, blob,
	)
	if err != nil {
		return fmt.Errorf("set state %s: %w", threadID, err)
	}
	return nil
}

// Delete removes a thread's state. Deleting a missing thread is not an
// error.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM conversation_states WHERE thread_id = $1`, threadID); err != nil {
		return fmt.Errorf("delete state %s: %w", threadID, err)
	}
	return nil
}

// GetByUser returns every state belonging to a user, most recent first.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]*rfp.State, error) {
	rows, err := s.db.Query(ctx, `
		SELECT state FROM conversation_states
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get states for user %s: %w", userID, err)
	}
	defer rows.Close()

	var states []*rfp.State
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		var state rfp.State
		if err := json.Unmarshal(blob, &state); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

// Cleanup deletes states untouched for more than daysOld days and
// returns how many were removed. Run out-of-band as the TTL sweep.
func (s *Store) Cleanup(ctx context.Context, daysOld int) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM conversation_states
		WHERE updated_at < now() - make_interval(days => $1)`, daysOld)
	if err != nil {
		return 0, fmt.Errorf("cleanup states older than %d days: %w", daysOld, err)
	}
	n := tag.RowsAffected()
	if n > 0 {
		s.logger.Info("expired conversation states removed", zap.Int64("count", n))
	}
	return n, nil
}
