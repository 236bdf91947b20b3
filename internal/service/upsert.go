package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/repo"
)

// Subscriber is notified after a trip has been persisted. Errors are logged
// by the Upserter and never fail the import.
type Subscriber interface {
	PostInserted(ctx context.Context, ev domain.PostEvent) error
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(ctx context.Context, ev domain.PostEvent) error

// PostInserted calls f.
func (f SubscriberFunc) PostInserted(ctx context.Context, ev domain.PostEvent) error {
	return f(ctx, ev)
}

// UpsertResult is the persisted post and whether it was newly created.
type UpsertResult struct {
	Post    domain.Post
	Created bool
}

// Upserter persists TripDocuments keyed by external id: the first import of
// an id creates a post, later imports update that same post.
//
// Each trip is written in one transaction, so a failed write leaves neither a
// post nor partial metadata behind. The lookup does not lock, so two
// concurrent imports of the same id can both create a post. One writer at a
// time is assumed.
type Upserter struct {
	posts       repo.PostRepo
	hooks       Hooks
	subscribers []Subscriber
	log         *slog.Logger
}

// NewUpserter constructs an Upserter. Only hooks.Post is used here.
func NewUpserter(posts repo.PostRepo, log *slog.Logger, hooks Hooks, subscribers ...Subscriber) *Upserter {
	return &Upserter{posts: posts, hooks: hooks, subscribers: subscribers, log: log}
}

// Upsert creates or updates the post for doc and writes its metadata in one
// transaction, then notifies subscribers. Store failures are wrapped in
// domain.ErrUpstreamWrite.
func (u *Upserter) Upsert(ctx context.Context, doc domain.TripDocument) (UpsertResult, error) {
	var res UpsertResult
	err := u.posts.InTx(ctx, func(posts repo.PostRepo) error {
		var err error
		res, err = u.write(ctx, posts, doc)
		return err
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("service.Upserter.Upsert: %w: %w", domain.ErrUpstreamWrite, err)
	}

	u.notify(ctx, domain.PostEvent{PostID: res.Post.ID, Created: res.Created, Document: doc})
	return res, nil
}

// write performs every store operation of one upsert through posts.
func (u *Upserter) write(ctx context.Context, posts repo.PostRepo, doc domain.TripDocument) (UpsertResult, error) {
	existingID, err := u.findExisting(ctx, posts, doc.ExternalID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("lookup: %w", err)
	}

	post := domain.Post{
		ID:          existingID,
		Status:      domain.PostStatusPublish,
		Title:       doc.Title,
		Body:        doc.Body,
		PublishedAt: doc.OccurredAt,
	}
	if u.hooks.Post != nil {
		post = u.hooks.Post(post, doc.Trip)
	}

	created := post.ID == uuid.Nil
	var saved domain.Post
	if created {
		saved, err = posts.Create(ctx, post)
	} else {
		saved, err = posts.Update(ctx, post)
	}
	if err != nil {
		return UpsertResult{}, err
	}

	if err := writeMeta(ctx, posts, saved.ID, doc); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Post: saved, Created: created}, nil
}

// findExisting returns the id of the post already carrying externalID, or
// uuid.Nil. When legacy runs left duplicates the oldest post wins.
func (u *Upserter) findExisting(ctx context.Context, posts repo.PostRepo, externalID string) (uuid.UUID, error) {
	existing, count, err := posts.FindByMeta(ctx, domain.MetaExternalID, externalID)
	if errors.Is(err, domain.ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	if count > 1 {
		u.log.WarnContext(ctx, "duplicate posts for external id; updating the oldest",
			"external_id", externalID,
			"post_id", existing.ID,
			"count", count,
		)
	}
	return existing.ID, nil
}

type metaWrite struct {
	key        string
	value      string
	createOnly bool
}

// writeMeta records identity fields once and refreshes the archival copy
// and route on every import.
func writeMeta(ctx context.Context, posts repo.PostRepo, postID uuid.UUID, doc domain.TripDocument) error {
	writes := []metaWrite{
		{domain.MetaProvider, domain.Provider, true},
		{domain.MetaExternalID, doc.ExternalID, true},
		{domain.MetaServiceType, doc.ServiceLabel, true},
		{domain.MetaRawImport, doc.RawJSON, false},
	}
	if doc.Polyline != "" {
		writes = append(writes,
			metaWrite{domain.MetaPolyline, doc.Polyline, false},
			metaWrite{domain.MetaGeoPublic, "1", false},
		)
	}
	for _, w := range writes {
		if err := posts.SetMeta(ctx, postID, w.key, w.value, w.createOnly); err != nil {
			return fmt.Errorf("meta %s: %w", w.key, err)
		}
	}
	return nil
}

// notify delivers ev to every subscriber, isolating their failures.
func (u *Upserter) notify(ctx context.Context, ev domain.PostEvent) {
	for i, s := range u.subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					u.log.ErrorContext(ctx, "subscriber panicked",
						"subscriber", i, "post_id", ev.PostID, "external_id", ev.Document.ExternalID, "panic", r)
				}
			}()
			if err := s.PostInserted(ctx, ev); err != nil {
				u.log.WarnContext(ctx, "subscriber failed",
					"subscriber", i, "post_id", ev.PostID, "external_id", ev.Document.ExternalID, "error", err)
			}
		}()
	}
}
