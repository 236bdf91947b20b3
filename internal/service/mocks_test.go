package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/repo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockPostRepo is a hand-written test double for repo.PostRepo.
// Each method is a function field; set only the ones a test needs.
type mockPostRepo struct {
	create     func(ctx context.Context, post domain.Post) (domain.Post, error)
	getByID    func(ctx context.Context, id uuid.UUID) (domain.Post, error)
	update     func(ctx context.Context, post domain.Post) (domain.Post, error)
	findByMeta func(ctx context.Context, key, value string) (domain.Post, int, error)
	setMeta    func(ctx context.Context, postID uuid.UUID, key, value string, createOnly bool) error
	getMeta    func(ctx context.Context, postID uuid.UUID, key string) (string, error)
	listRides  func(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error)
	// inTx defaults to running fn directly against the mock.
	inTx func(ctx context.Context, fn func(repo.PostRepo) error) error
}

func (m *mockPostRepo) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	return m.create(ctx, post)
}
func (m *mockPostRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	return m.getByID(ctx, id)
}
func (m *mockPostRepo) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	return m.update(ctx, post)
}
func (m *mockPostRepo) FindByMeta(ctx context.Context, key, value string) (domain.Post, int, error) {
	return m.findByMeta(ctx, key, value)
}
func (m *mockPostRepo) SetMeta(ctx context.Context, postID uuid.UUID, key, value string, createOnly bool) error {
	return m.setMeta(ctx, postID, key, value, createOnly)
}
func (m *mockPostRepo) GetMeta(ctx context.Context, postID uuid.UUID, key string) (string, error) {
	return m.getMeta(ctx, postID, key)
}
func (m *mockPostRepo) ListRides(ctx context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error) {
	return m.listRides(ctx, p)
}

func (m *mockPostRepo) InTx(ctx context.Context, fn func(repo.PostRepo) error) error {
	if m.inTx == nil {
		return fn(m)
	}
	return m.inTx(ctx, fn)
}

// compile-time check: mockPostRepo must satisfy repo.PostRepo.
var _ repo.PostRepo = (*mockPostRepo)(nil)

// mockPersonRepo is a hand-written test double for repo.PersonRepo.
type mockPersonRepo struct {
	upsert     func(ctx context.Context, provider, externalID, name string) (domain.Person, error)
	addToPost  func(ctx context.Context, postID, personID uuid.UUID) error
	listByPost func(ctx context.Context, postID uuid.UUID) ([]domain.Person, error)
}

func (m *mockPersonRepo) Upsert(ctx context.Context, provider, externalID, name string) (domain.Person, error) {
	return m.upsert(ctx, provider, externalID, name)
}
func (m *mockPersonRepo) AddToPost(ctx context.Context, postID, personID uuid.UUID) error {
	return m.addToPost(ctx, postID, personID)
}
func (m *mockPersonRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]domain.Person, error) {
	return m.listByPost(ctx, postID)
}

var _ repo.PersonRepo = (*mockPersonRepo)(nil)

// memPostRepo is an in-memory repo.PostRepo with the same create-if-absent
// and not-found semantics as the Postgres implementation. Import tests use it
// to check behaviour across whole runs, such as re-importing the same export.
type memPostRepo struct {
	posts map[uuid.UUID]domain.Post
	order []uuid.UUID
	meta  map[uuid.UUID]map[string]string

	creates int
	updates int
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{
		posts: map[uuid.UUID]domain.Post{},
		meta:  map[uuid.UUID]map[string]string{},
	}
}

func (m *memPostRepo) Create(_ context.Context, post domain.Post) (domain.Post, error) {
	post.ID = uuid.New()
	m.posts[post.ID] = post
	m.order = append(m.order, post.ID)
	m.meta[post.ID] = map[string]string{}
	m.creates++
	return post, nil
}

func (m *memPostRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPostRepo) Update(_ context.Context, post domain.Post) (domain.Post, error) {
	if _, ok := m.posts[post.ID]; !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	m.posts[post.ID] = post
	m.updates++
	return post, nil
}

func (m *memPostRepo) FindByMeta(_ context.Context, key, value string) (domain.Post, int, error) {
	var (
		first domain.Post
		count int
	)
	for _, id := range m.order {
		if m.meta[id][key] == value {
			if count == 0 {
				first = m.posts[id]
			}
			count++
		}
	}
	if count == 0 {
		return domain.Post{}, 0, domain.ErrNotFound
	}
	return first, count, nil
}

func (m *memPostRepo) SetMeta(_ context.Context, postID uuid.UUID, key, value string, createOnly bool) error {
	values, ok := m.meta[postID]
	if !ok {
		return domain.ErrNotFound
	}
	if !utf8.ValidString(value) {
		// Postgres TEXT columns refuse these too.
		return errors.New(`invalid byte sequence for encoding "UTF8"`)
	}
	if _, exists := values[key]; exists && createOnly {
		return nil
	}
	values[key] = value
	return nil
}

func (m *memPostRepo) GetMeta(_ context.Context, postID uuid.UUID, key string) (string, error) {
	v, ok := m.meta[postID][key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memPostRepo) ListRides(_ context.Context, p domain.PaginationParams) ([]domain.Ride, int64, error) {
	var all []domain.Ride
	for _, id := range m.order {
		ext, ok := m.meta[id][domain.MetaExternalID]
		if !ok {
			continue
		}
		post := m.posts[id]
		all = append(all, domain.Ride{
			PostID:       id,
			ExternalID:   ext,
			ServiceLabel: m.meta[id][domain.MetaServiceType],
			Title:        post.Title,
			Status:       post.Status,
			PublishedAt:  post.PublishedAt,
			Polyline:     m.meta[id][domain.MetaPolyline],
		})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].PublishedAt.After(all[j].PublishedAt) })

	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

// InTx runs fn against m and restores m's previous contents if fn fails.
func (m *memPostRepo) InTx(_ context.Context, fn func(repo.PostRepo) error) error {
	posts := maps.Clone(m.posts)
	order := slices.Clone(m.order)
	meta := make(map[uuid.UUID]map[string]string, len(m.meta))
	for id, values := range m.meta {
		meta[id] = maps.Clone(values)
	}
	creates, updates := m.creates, m.updates

	if err := fn(m); err != nil {
		m.posts, m.order, m.meta = posts, order, meta
		m.creates, m.updates = creates, updates
		return err
	}
	return nil
}

// postsByExternalID returns the ids of every post carrying externalID.
func (m *memPostRepo) postsByExternalID(externalID string) []uuid.UUID {
	var ids []uuid.UUID
	for _, id := range m.order {
		if m.meta[id][domain.MetaExternalID] == externalID {
			ids = append(ids, id)
		}
	}
	return ids
}

var _ repo.PostRepo = (*memPostRepo)(nil)
