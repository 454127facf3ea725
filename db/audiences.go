package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"subsight/models"
)

const writeTimeout = 5 * time.Second

// CreateAudience stores a named audience and its member subreddits in one
// transaction. Subreddit rows are created on first reference and reused
// thereafter; membership is idempotent. Either everything commits or nothing
// does.
func (d *DB) CreateAudience(ctx context.Context, name string, subreddits []string) (models.Audience, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Audience{}, fmt.Errorf("%w: audience name is required", models.ErrValidation)
	}

	// Trim member names and skip entries that end up empty.
	members := lo.FilterMap(subreddits, func(member string, _ int) (string, bool) {
		member = strings.TrimSpace(member)
		return member, member != ""
	})
	members = lo.Uniq(members)
	if len(members) == 0 {
		return models.Audience{}, fmt.Errorf("%w: at least one subreddit is required", models.ErrValidation)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Audience{}, fmt.Errorf("%w: begin transaction: %v", models.ErrStorage, err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM audiences WHERE name = ?", name).Scan(&existing)
	if err == nil {
		return models.Audience{}, fmt.Errorf("%w: audience %q", models.ErrConflict, name)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Audience{}, fmt.Errorf("%w: check audience name: %v", models.ErrStorage, err)
	}

	insertAudience := sqlbuilder.NewInsertBuilder()
	query, args := insertAudience.InsertInto("audiences").Cols("name").Values(name).Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Audience{}, fmt.Errorf("%w: insert audience: %v", models.ErrStorage, err)
	}
	audienceID, err := res.LastInsertId()
	if err != nil {
		return models.Audience{}, fmt.Errorf("%w: audience id: %v", models.ErrStorage, err)
	}

	for _, member := range members {
		subredditID, err := upsertSubreddit(ctx, tx, member)
		if err != nil {
			return models.Audience{}, err
		}

		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO audience_subreddits (audience_id, subreddit_id) VALUES (?, ?)",
			audienceID, subredditID,
		)
		if err != nil {
			return models.Audience{}, fmt.Errorf("%w: insert membership: %v", models.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Audience{}, fmt.Errorf("%w: commit: %v", models.ErrStorage, err)
	}

	log.WithFields(log.Fields{
		"audience":   name,
		"subreddits": members,
	}).Info("Created audience")

	return models.Audience{Name: name, Subreddits: members}, nil
}

// upsertSubreddit looks up a subreddit row by name and creates it on first
// reference.
func upsertSubreddit(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM subreddits WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: lookup subreddit: %v", models.ErrStorage, err)
	}

	insert := sqlbuilder.NewInsertBuilder()
	query, args := insert.InsertInto("subreddits").Cols("name").Values(name).Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: insert subreddit: %v", models.ErrStorage, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: subreddit id: %v", models.ErrStorage, err)
	}
	return id, nil
}

// GetAudience returns the audience with the given name and its member
// subreddit names.
func (d *DB) GetAudience(ctx context.Context, name string) (models.Audience, error) {
	var audienceID int64
	err := d.db.QueryRowContext(ctx, "SELECT id FROM audiences WHERE name = ?", name).Scan(&audienceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Audience{}, fmt.Errorf("%w: audience %q", models.ErrNotFound, name)
	}
	if err != nil {
		return models.Audience{}, fmt.Errorf("%w: lookup audience: %v", models.ErrStorage, err)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("subreddits.name").From("subreddits")
	sb.Join("audience_subreddits", "subreddits.id = audience_subreddits.subreddit_id")
	sb.Where(sb.Equal("audience_subreddits.audience_id", audienceID))
	sb.OrderBy("subreddits.id").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.Audience{}, fmt.Errorf("%w: query members: %v", models.ErrStorage, err)
	}
	defer rows.Close()

	audience := models.Audience{Name: name, Subreddits: []string{}}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return models.Audience{}, fmt.Errorf("%w: scan member: %v", models.ErrStorage, err)
		}
		audience.Subreddits = append(audience.Subreddits, member)
	}

	return audience, nil
}

// ListAudiences returns all audiences with their member subreddit names.
func (d *DB) ListAudiences(ctx context.Context) ([]models.Audience, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("audiences.name", "subreddits.name").From("audiences")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "audience_subreddits", "audiences.id = audience_subreddits.audience_id")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "subreddits", "subreddits.id = audience_subreddits.subreddit_id")
	sb.OrderBy("audiences.id").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query audiences: %v", models.ErrStorage, err)
	}
	defer rows.Close()

	audiences := []models.Audience{}
	index := map[string]int{}
	for rows.Next() {
		var name string
		var member sql.NullString
		if err := rows.Scan(&name, &member); err != nil {
			return nil, fmt.Errorf("%w: scan audience: %v", models.ErrStorage, err)
		}

		i, ok := index[name]
		if !ok {
			audiences = append(audiences, models.Audience{Name: name, Subreddits: []string{}})
			i = len(audiences) - 1
			index[name] = i
		}
		if member.Valid {
			audiences[i].Subreddits = append(audiences[i].Subreddits, member.String)
		}
	}

	return audiences, nil
}
