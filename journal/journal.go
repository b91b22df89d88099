// Package journal persists a snapshot of the feed cache to SQLite so
// the last-known feed renders before the first network round trip.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"huddle/cache"
	"huddle/models"
)

// Journal wraps the snapshot database.
type Journal struct {
	db *sql.DB
}

func Open(database string) (*Journal, error) {
	// Enable foreign keys and WAL mode
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", database))
	if err != nil {
		return nil, err
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// UpsertPosts writes the given posts, replacing rows with the same id.
func (j *Journal) UpsertPosts(ctx context.Context, posts []models.Post) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, post := range posts {
		reactions, err := json.Marshal(post.Reactions)
		if err != nil {
			return fmt.Errorf("marshalling reactions for post %s: %w", post.Id, err)
		}

		_, err = j.db.ExecContext(ctx, `
			INSERT INTO posts (id, author_id, author_name, author_avatar, content, privacy,
				reactions, total_reactions, comment_count, viewer_reaction, created_at, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				content = excluded.content,
				privacy = excluded.privacy,
				reactions = excluded.reactions,
				total_reactions = excluded.total_reactions,
				comment_count = excluded.comment_count,
				viewer_reaction = excluded.viewer_reaction,
				stored_at = excluded.stored_at`,
			post.Id,
			post.Author.Id,
			post.Author.Name,
			post.Author.Avatar,
			post.Content,
			post.Privacy,
			string(reactions),
			post.TotalReactions,
			post.CommentCount,
			post.ViewerReaction,
			post.CreatedAt,
			time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
	}

	return nil
}

// DeletePost removes a post from the snapshot.
func (j *Journal) DeletePost(ctx context.Context, postId string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := j.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", postId)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// LoadFeed reads the snapshot, newest first.
func (j *Journal) LoadFeed(ctx context.Context, limit int) ([]models.Post, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "author_id", "author_name", "author_avatar", "content", "privacy",
		"reactions", "total_reactions", "comment_count", "viewer_reaction", "created_at")
	sb.From("posts")
	sb.OrderBy("created_at").Desc()
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		var reactions string
		if err := rows.Scan(&post.Id, &post.Author.Id, &post.Author.Name, &post.Author.Avatar,
			&post.Content, &post.Privacy, &reactions, &post.TotalReactions,
			&post.CommentCount, &post.ViewerReaction, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if err := json.Unmarshal([]byte(reactions), &post.Reactions); err != nil {
			return nil, fmt.Errorf("unmarshalling reactions for post %s: %w", post.Id, err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// Warm seeds the feed cache from the snapshot and marks it stale, so a
// last-known feed is served immediately while the real fetch runs.
func (j *Journal) Warm(ctx context.Context, store *cache.Store, limit int) error {
	posts, err := j.LoadFeed(ctx, limit)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}

	// The network may have won the race; its result is newer than any
	// snapshot
	if _, ok := store.Get(cache.KeyFeed); ok {
		return nil
	}

	store.Set(cache.KeyFeed, func(prev interface{}) interface{} {
		return posts
	})
	store.Invalidate(cache.KeyFeed)

	log.WithFields(log.Fields{
		"posts": len(posts),
	}).Info("Warmed feed cache from journal")

	return nil
}

// Follow subscribes to feed cache changes and persists each new feed
// value until ctx is cancelled. Intended to run as its own goroutine.
func (j *Journal) Follow(ctx context.Context, store *cache.Store) {
	ch := store.Subscribe(cache.KeyFeed)
	defer store.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			cached, ok := store.Get(cache.KeyFeed)
			if !ok {
				continue
			}
			posts, ok := cached.([]models.Post)
			if !ok {
				continue
			}
			if err := j.UpsertPosts(ctx, posts); err != nil {
				log.Errorf("Error persisting feed snapshot: %v", err)
			}
		}
	}
}
