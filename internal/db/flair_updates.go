package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds ListUpdates when no limit is given.
const DefaultHistoryLimit = 20

// RecordUpdate appends an entry to the ledger. A zero ID is replaced with a new one.
func (db *DB) RecordUpdate(ctx context.Context, u *FlairUpdate) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO flair_updates (id, subreddit, comment_id, author, target_user, emails, letters,
		                            outcome, old_flair, new_flair, template_id, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		u.ID, u.Subreddit, u.CommentID, u.Author, u.TargetUser, u.Emails, u.Letters,
		u.Outcome, u.OldFlair, u.NewFlair, u.TemplateID, u.Error,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record flair update: %w", err)
	}
	return nil
}

// ListUpdates returns a user's most recent ledger entries, newest first. The user match is
// case-insensitive.
func (db *DB) ListUpdates(ctx context.Context, subreddit, user string, limit int) ([]FlairUpdate, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, subreddit, comment_id, author, target_user, emails, letters, outcome,
		        old_flair, new_flair, template_id, error, created_at
		 FROM flair_updates
		 WHERE subreddit = $1 AND lower(target_user) = lower($2)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		subreddit, user, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list flair updates: %w", err)
	}
	defer rows.Close()

	var updates []FlairUpdate
	for rows.Next() {
		var u FlairUpdate
		if err := rows.Scan(&u.ID, &u.Subreddit, &u.CommentID, &u.Author, &u.TargetUser,
			&u.Emails, &u.Letters, &u.Outcome, &u.OldFlair, &u.NewFlair, &u.TemplateID,
			&u.Error, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flair update: %w", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list flair updates: %w", err)
	}
	return updates, nil
}

// CountCommitted returns how many confirmations a comment already produced. The bot uses it
// to avoid double counting when a comment is seen again after a crash.
func (db *DB) CountCommitted(ctx context.Context, subreddit, commentID string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM flair_updates WHERE subreddit = $1 AND comment_id = $2 AND outcome = $3`,
		subreddit, commentID, OutcomeConfirmed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count flair updates: %w", err)
	}
	return n, nil
}
