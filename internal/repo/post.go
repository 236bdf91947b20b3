// Package repo contains all database access logic for the RideShare importer.
// Each resource has its own file with an interface and a Postgres implementation.
// Only SQL and type mapping live here.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
// Begin on a pgx.Tx opens a savepoint.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// pgForeignKeyViolation is the SQLSTATE raised when a row references a
// missing parent (e.g. metadata for a deleted post).
const pgForeignKeyViolation = "23503"

// PostRepo defines the persistence operations for posts and their metadata.
// The service layer depends on this interface, not the Postgres implementation.
type PostRepo interface {
	// Create inserts a new post and returns the persisted record. Any ID on
	// the input is ignored; the store assigns one.
	Create(ctx context.Context, post domain.Post) (domain.Post, error)

	// GetByID retrieves a single post. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Post, error)

	// Update overwrites title, body, status and published_at of an existing
	// post. Returns domain.ErrNotFound if no post with that ID exists.
	Update(ctx context.Context, post domain.Post) (domain.Post, error)

	// FindByMeta returns the oldest post whose metadata key equals value and
	// the number of posts that match. Returns domain.ErrNotFound if none do.
	FindByMeta(ctx context.Context, key, value string) (domain.Post, int, error)

	// SetMeta writes one metadata value. With createOnly an existing value is
	// left untouched; otherwise it is overwritten.
	// Returns domain.ErrNotFound if the post does not exist.
	SetMeta(ctx context.Context, postID uuid.UUID, key, value string, createOnly bool) error

	// GetMeta reads one metadata value. Returns domain.ErrNotFound if unset.
	GetMeta(ctx context.Context, postID uuid.UUID, key string) (string, error)

	// ListRides returns one page of imported posts, newest first, and the
	// total number of imported posts.
	ListRides(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error)

	// InTx runs fn with a PostRepo bound to one transaction. The writes made
	// through it are committed when fn returns nil and rolled back otherwise.
	// fn's error is returned unchanged.
	InTx(ctx context.Context, fn func(PostRepo) error) error
}

// pgPostRepo is the Postgres implementation of PostRepo.
type pgPostRepo struct {
	db db
}

// NewPostRepo constructs a PostRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostRepo(db db) PostRepo {
	return &pgPostRepo{db: db}
}

// InTx runs fn inside pgx.BeginFunc.
func (r *pgPostRepo) InTx(ctx context.Context, fn func(PostRepo) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgPostRepo{db: tx})
	})
}

// Create inserts a new post row and returns the full persisted record.
func (r *pgPostRepo) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	const q = `
		INSERT INTO posts (title, body, status, published_at)
		VALUES (@title, @body, @status, @published_at)
		RETURNING id, title, body, status, published_at, created_at, updated_at`

	args := pgx.NamedArgs{
		"title":        post.Title,
		"body":         post.Body,
		"status":       post.Status,
		"published_at": post.PublishedAt,
	}

	result, err := scanPost(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Post{}, fmt.Errorf("repo.PostRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a post by primary key.
func (r *pgPostRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	const q = `
		SELECT id, title, body, status, published_at, created_at, updated_at
		FROM posts
		WHERE id = @id`

	result, err := scanPost(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Post{}, fmt.Errorf("repo.PostRepo.GetByID: %w", err)
	}
	return result, nil
}

// Update overwrites the mutable fields of a post and returns the updated record.
func (r *pgPostRepo) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	const q = `
		UPDATE posts
		SET title        = @title,
		    body         = @body,
		    status       = @status,
		    published_at = @published_at,
		    updated_at   = now()
		WHERE id = @id
		RETURNING id, title, body, status, published_at, created_at, updated_at`

	args := pgx.NamedArgs{
		"id":           post.ID,
		"title":        post.Title,
		"body":         post.Body,
		"status":       post.Status,
		"published_at": post.PublishedAt,
	}

	result, err := scanPost(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Post{}, fmt.Errorf("repo.PostRepo.Update: %w", err)
	}
	return result, nil
}

// FindByMeta picks the oldest matching post; count(*) OVER () reports how many
// posts share the value so callers can detect legacy duplicates.
func (r *pgPostRepo) FindByMeta(ctx context.Context, key, value string) (domain.Post, int, error) {
	const q = `
		SELECT p.id, p.title, p.body, p.status, p.published_at, p.created_at, p.updated_at,
		       count(*) OVER ()
		FROM posts p
		JOIN post_meta m ON m.post_id = p.id
		WHERE m.meta_key = @key AND m.meta_value = @value
		ORDER BY p.created_at, p.id
		LIMIT 1`

	var (
		p     domain.Post
		id    pgtype.UUID
		count int64
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key, "value": value}).
		Scan(&id, &p.Title, &p.Body, &p.Status, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, 0, fmt.Errorf("repo.PostRepo.FindByMeta: %w", domain.ErrNotFound)
		}
		return domain.Post{}, 0, fmt.Errorf("repo.PostRepo.FindByMeta: %w", err)
	}
	p.ID = uuid.UUID(id.Bytes)
	return p, int(count), nil
}

// SetMeta upserts a single metadata row.
func (r *pgPostRepo) SetMeta(ctx context.Context, postID uuid.UUID, key, value string, createOnly bool) error {
	const insertOnly = `
		INSERT INTO post_meta (post_id, meta_key, meta_value)
		VALUES (@post_id, @key, @value)
		ON CONFLICT (post_id, meta_key) DO NOTHING`
	const overwrite = `
		INSERT INTO post_meta (post_id, meta_key, meta_value)
		VALUES (@post_id, @key, @value)
		ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`

	q := overwrite
	if createOnly {
		q = insertOnly
	}

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"post_id": postID, "key": key, "value": value})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("repo.PostRepo.SetMeta: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.PostRepo.SetMeta: %w", err)
	}
	return nil
}

// GetMeta reads a single metadata value.
func (r *pgPostRepo) GetMeta(ctx context.Context, postID uuid.UUID, key string) (string, error) {
	const q = `
		SELECT meta_value
		FROM post_meta
		WHERE post_id = @post_id AND meta_key = @key`

	var value string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"post_id": postID, "key": key}).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("repo.PostRepo.GetMeta: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("repo.PostRepo.GetMeta: %w", err)
	}
	return value, nil
}

// ListRides returns imported posts (those carrying an external id) ordered by
// published_at descending, one page at a time.
func (r *pgPostRepo) ListRides(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error) {
	const countQ = `
		SELECT count(*)
		FROM post_meta
		WHERE meta_key = @ext_key`

	const q = `
		SELECT p.id, ext.meta_value, COALESCE(svc.meta_value, ''), p.title, p.status,
		       p.published_at, COALESCE(geo.meta_value, '')
		FROM posts p
		JOIN post_meta ext ON ext.post_id = p.id AND ext.meta_key = @ext_key
		LEFT JOIN post_meta svc ON svc.post_id = p.id AND svc.meta_key = @svc_key
		LEFT JOIN post_meta geo ON geo.post_id = p.id AND geo.meta_key = @geo_key
		ORDER BY p.published_at DESC, p.id
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"ext_key": domain.MetaExternalID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.PostRepo.ListRides: count: %w", err)
	}

	args := pgx.NamedArgs{
		"ext_key": domain.MetaExternalID,
		"svc_key": domain.MetaServiceType,
		"geo_key": domain.MetaPolyline,
		"limit":   p.Limit,
		"offset":  p.Offset(),
	}
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.PostRepo.ListRides: %w", err)
	}
	defer rows.Close()

	rides := []domain.Ride{}
	for rows.Next() {
		var (
			ride domain.Ride
			id   pgtype.UUID
		)
		if err := rows.Scan(&id, &ride.ExternalID, &ride.ServiceLabel, &ride.Title, &ride.Status,
			&ride.PublishedAt, &ride.Polyline); err != nil {
			return nil, 0, fmt.Errorf("repo.PostRepo.ListRides: scan: %w", err)
		}
		ride.PostID = uuid.UUID(id.Bytes)
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.PostRepo.ListRides: rows: %w", err)
	}
	return rides, total, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanPost maps a single database row into a domain.Post.
func scanPost(s scanner) (domain.Post, error) {
	var (
		p  domain.Post
		id pgtype.UUID
	)
	err := s.Scan(&id, &p.Title, &p.Body, &p.Status, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	return p, nil
}
