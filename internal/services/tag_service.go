package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mapesa/internal/amqp"
	"mapesa/internal/core"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoTags       = errors.New("at least one tag is required")
	ErrTooManyIDs   = errors.New("too many tag ids requested")
	ErrTagNotOwned  = errors.New("tag not found for user")
)

// TagStore is the tag repository as seen by the service.
type TagStore interface {
	InsertTags(ctx context.Context, tags ...core.NewTag) ([]core.InsertedTag, error)
	LinkTagToTransaction(ctx context.Context, link core.NewTransactionTag) ([]core.TransactionTag, error)
	ListTagsForUser(ctx context.Context, userID int64) ([]core.TagRow, error)
	GetTagsByIDs(ctx context.Context, userID int64, tagIDs []int64) ([][]core.TagRow, error)
}

// EventPublisher announces tag changes. It is optional.
type EventPublisher interface {
	PublishTagLinked(ctx context.Context, msg *amqp.TagLinkedMessage) error
}

// TagService validates input, calls the repository and publishes events
type TagService struct {
	tags         TagStore
	events       EventPublisher
	maxLookupIDs int
}

func NewTagService(tags TagStore, events EventPublisher, maxLookupIDs int) *TagService {
	return &TagService{
		tags:         tags,
		events:       events,
		maxLookupIDs: maxLookupIDs,
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// CreateTags stores tags for userID; any owner set on the input is replaced.
func (s *TagService) CreateTags(ctx context.Context, userID int64, tags []core.NewTag) ([]core.InsertedTag, error) {
	if len(tags) == 0 {
		return nil, invalid(ErrNoTags)
	}

	owned := make([]core.NewTag, len(tags))
	for i, t := range tags {
		t.UserID = userID
		if err := t.Validate(); err != nil {
			return nil, invalid(fmt.Errorf("tag %d: %w", i, err))
		}
		owned[i] = t
	}

	inserted, err := s.tags.InsertTags(ctx, owned...)
	if err != nil {
		return nil, fmt.Errorf("create tags: %w", err)
	}

	return inserted, nil
}

// LinkTag attaches one of the user's tags to a transaction and publishes
// an event. A failed publish is logged; the link is already stored.
func (s *TagService) LinkTag(ctx context.Context, userID int64, link core.NewTransactionTag) ([]core.TransactionTag, error) {
	if err := link.Validate(); err != nil {
		return nil, invalid(err)
	}

	owned, err := s.tags.GetTagsByIDs(ctx, userID, []int64{link.TagID})
	if err != nil {
		return nil, fmt.Errorf("check tag owner: %w", err)
	}
	if len(owned[0]) == 0 {
		return nil, fmt.Errorf("tag %d: %w", link.TagID, ErrTagNotOwned)
	}

	links, err := s.tags.LinkTagToTransaction(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("link tag: %w", err)
	}

	for _, l := range links {
		if err := s.publishTagLinked(ctx, l); err != nil {
			slog.ErrorContext(ctx, "Failed to publish tag linked message",
				"link_id", l.ID, "tag_id", l.TagID, "error", err)
		}
	}

	return links, nil
}

func (s *TagService) publishTagLinked(ctx context.Context, link core.TransactionTag) error {
	if s.events == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping tag linked message")
		return nil
	}
	return s.events.PublishTagLinked(ctx, amqp.NewTagLinkedMessage(link))
}

// ListUserTags returns the flat join rows for every tag the user owns.
func (s *TagService) ListUserTags(ctx context.Context, userID int64) ([]core.TagRow, error) {
	if userID <= 0 {
		return nil, invalid(core.ErrInvalidUser)
	}

	rows, err := s.tags.ListTagsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user tags: %w", err)
	}
	return rows, nil
}

// ListUserTagsGrouped is ListUserTags folded to one entry per tag.
func (s *TagService) ListUserTagsGrouped(ctx context.Context, userID int64) ([]core.TagWithTransactions, error) {
	rows, err := s.ListUserTags(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.GroupTagRows(rows), nil
}

// GetUserTags looks up tagIDs for the user, one result set per id in input
// order.
func (s *TagService) GetUserTags(ctx context.Context, userID int64, tagIDs []int64) ([][]core.TagRow, error) {
	if userID <= 0 {
		return nil, invalid(core.ErrInvalidUser)
	}
	if s.maxLookupIDs > 0 && len(tagIDs) > s.maxLookupIDs {
		return nil, invalid(fmt.Errorf("%w: %d > %d", ErrTooManyIDs, len(tagIDs), s.maxLookupIDs))
	}

	results, err := s.tags.GetTagsByIDs(ctx, userID, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("get user tags: %w", err)
	}
	return results, nil
}

// Close releases the event publisher if it holds a connection.
func (s *TagService) Close() error {
	if c, ok := s.events.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close tag service: %w", err)
		}
	}
	return nil
}
