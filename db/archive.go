package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"subsight/models"
)

// SavePost archives a post, idempotently on its Reddit post id. Returns true
// when a new row was created and false when the post was already saved; the
// existing row is never modified. The check-then-insert sequence runs in one
// transaction so concurrent saves of the same post cannot race a duplicate
// row past the unique constraint.
func (d *DB) SavePost(ctx context.Context, post models.Post) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if post.ID == "" || post.Title == "" || post.URL == "" {
		return false, fmt.Errorf("%w: id, title and url are required", models.ErrValidation)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin transaction: %v", models.ErrStorage, err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM reddit_posts WHERE post_id = ?", post.ID).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: check saved post: %v", models.ErrStorage, err)
	}

	insert := sqlbuilder.NewInsertBuilder()
	query, args := insert.InsertInto("reddit_posts").
		Cols("post_id", "title", "url", "score", "num_comments", "created_utc", "subreddit", "permalink").
		Values(post.ID, post.Title, post.URL, post.Score, post.NumComments, post.CreatedUTC, post.Subreddit, post.Permalink).
		Build()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		// A concurrent save may have won the race; treat the constraint hit
		// as already saved.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, nil
		}
		return false, fmt.Errorf("%w: insert post: %v", models.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit: %v", models.ErrStorage, err)
	}

	log.WithFields(log.Fields{
		"post_id":   post.ID,
		"subreddit": post.Subreddit,
	}).Info("Saved post")

	return true, nil
}
