package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPostNotFound is returned when a post does not exist or belongs to
// another user.
var ErrPostNotFound = errors.New("post_not_found")

// PostRepository persists post records and their location lists.
type PostRepository interface {
	CreatePost(ctx context.Context, p *model.Post) error
	GetPost(ctx context.Context, postID, userID string) (*model.Post, error)
	// UpdatePost writes status, description, checkmark, schedule, reject
	// reason and locations back in one statement.
	UpdatePost(ctx context.Context, p *model.Post) error
	DeletePost(ctx context.Context, postID, userID string) error
	ListPosts(ctx context.Context, userID, status string) ([]model.Post, error)
}

type postRepo struct {
	pool *pgxpool.Pool
}

// NewPostRepo creates a new PostRepository.
func NewPostRepo(pool *pgxpool.Pool) PostRepository {
	return &postRepo{pool: pool}
}

func (r *postRepo) CreatePost(ctx context.Context, p *model.Post) error {
	locs, checkmark, err := encodePostJSON(p)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO posts (id, user_id, kind, ai_output, description, prompt, logo_url, status, checkmark, locations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = r.pool.QueryRow(ctx, q,
		p.ID, p.UserID, p.Kind, p.AIOutput, p.Description, p.Prompt, p.LogoURL, p.Status, checkmark, locs,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating post for user %s: %w", p.UserID, err)
	}
	return nil
}

func (r *postRepo) GetPost(ctx context.Context, postID, userID string) (*model.Post, error) {
	const q = `
		SELECT id, user_id, kind, ai_output, description, prompt, logo_url, status,
		       checkmark, locations, scheduled_date, reject_reason, created_at, updated_at
		FROM posts
		WHERE id = $1 AND user_id = $2
	`
	row := r.pool.QueryRow(ctx, q, postID, userID)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("fetching post %s: %w", postID, err)
	}
	return p, nil
}

func (r *postRepo) UpdatePost(ctx context.Context, p *model.Post) error {
	locs, checkmark, err := encodePostJSON(p)
	if err != nil {
		return err
	}
	const q = `
		UPDATE posts
		SET description = $3, status = $4, checkmark = $5, locations = $6,
		    scheduled_date = $7, reject_reason = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, q,
		p.ID, p.UserID, p.Description, p.Status, checkmark, locs, p.ScheduledDate, p.RejectReason,
	)
	if err != nil {
		return fmt.Errorf("updating post %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *postRepo) DeletePost(ctx context.Context, postID, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("deleting post %s: %w", postID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *postRepo) ListPosts(ctx context.Context, userID, status string) ([]model.Post, error) {
	const q = `
		SELECT id, user_id, kind, ai_output, description, prompt, logo_url, status,
		       checkmark, locations, scheduled_date, reject_reason, created_at, updated_at
		FROM posts
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID, status)
	if err != nil {
		return nil, fmt.Errorf("listing posts for user %s: %w", userID, err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post for user %s: %w", userID, err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func encodePostJSON(p *model.Post) (locations, checkmark []byte, err error) {
	locations, err = json.Marshal(p.Locations)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling post locations: %w", err)
	}
	checkmark, err = json.Marshal(p.Checkmark)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling post checkmark: %w", err)
	}
	return locations, checkmark, nil
}

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	var locs, checkmark []byte
	err := row.Scan(
		&p.ID, &p.UserID, &p.Kind, &p.AIOutput, &p.Description, &p.Prompt, &p.LogoURL,
		&p.Status, &checkmark, &locs, &p.ScheduledDate, &p.RejectReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(locs) > 0 {
		if err := json.Unmarshal(locs, &p.Locations); err != nil {
			return nil, fmt.Errorf("decoding post locations: %w", err)
		}
	}
	if len(checkmark) > 0 {
		if err := json.Unmarshal(checkmark, &p.Checkmark); err != nil {
			return nil, fmt.Errorf("decoding post checkmark: %w", err)
		}
	}
	return &p, nil
}
