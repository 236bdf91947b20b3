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

// PersonRepo defines the persistence operations for people and the
// post_people join table.
type PersonRepo interface {
	// Upsert inserts a person by (provider, externalID), or returns the
	// existing row. The name of the first import is preserved on conflict.
	Upsert(ctx context.Context, provider, externalID, name string) (domain.Person, error)

	// AddToPost links a person to a post. Linking twice is not an error.
	// Returns domain.ErrNotFound if either side does not exist.
	AddToPost(ctx context.Context, postID, personID uuid.UUID) error

	// ListByPost returns all people linked to a post, ordered by name.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]domain.Person, error)
}

// pgPersonRepo is the Postgres implementation of PersonRepo.
type pgPersonRepo struct {
	db db
}

// NewPersonRepo constructs a PersonRepo backed by the provided db connection.
func NewPersonRepo(db db) PersonRepo {
	return &pgPersonRepo{db: db}
}

// Upsert inserts a person or returns the existing row on identity conflict.
// DO UPDATE SET is a no-op write that makes RETURNING fire on conflict.
func (r *pgPersonRepo) Upsert(ctx context.Context, provider, externalID, name string) (domain.Person, error) {
	const q = `
		INSERT INTO people (provider, external_id, name)
		VALUES (@provider, @external_id, @name)
		ON CONFLICT (provider, external_id) DO UPDATE SET provider = EXCLUDED.provider
		RETURNING id, provider, external_id, name, created_at`

	args := pgx.NamedArgs{"provider": provider, "external_id": externalID, "name": name}
	result, err := scanPerson(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Person{}, fmt.Errorf("repo.PersonRepo.Upsert: %w", err)
	}
	return result, nil
}

// AddToPost links a person to a post. Idempotent via ON CONFLICT DO NOTHING.
func (r *pgPersonRepo) AddToPost(ctx context.Context, postID, personID uuid.UUID) error {
	const q = `
		INSERT INTO post_people (post_id, person_id)
		VALUES (@post_id, @person_id)
		ON CONFLICT (post_id, person_id) DO NOTHING`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"post_id": postID, "person_id": personID})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return fmt.Errorf("repo.PersonRepo.AddToPost: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.PersonRepo.AddToPost: %w", err)
	}
	return nil
}

// ListByPost returns all people linked to a post, ordered by name.
func (r *pgPersonRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]domain.Person, error) {
	const q = `
		SELECT pe.id, pe.provider, pe.external_id, pe.name, pe.created_at
		FROM people pe
		JOIN post_people pp ON pp.person_id = pe.id
		WHERE pp.post_id = @post_id
		ORDER BY pe.name, pe.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"post_id": postID})
	if err != nil {
		return nil, fmt.Errorf("repo.PersonRepo.ListByPost: %w", err)
	}
	defer rows.Close()

	people := []domain.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PersonRepo.ListByPost: scan: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PersonRepo.ListByPost: rows: %w", err)
	}
	return people, nil
}

// scanPerson maps a single database row into a domain.Person.
func scanPerson(s scanner) (domain.Person, error) {
	var (
		p  domain.Person
		id pgtype.UUID
	)
	err := s.Scan(&id, &p.Provider, &p.ExternalID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Person{}, domain.ErrNotFound
		}
		return domain.Person{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	return p, nil
}
