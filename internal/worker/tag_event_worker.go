package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mapesa/internal/amqp"
	"mapesa/internal/core"
	"mapesa/internal/log"
)

// TagToucher updates a tag's last_modified column.
type TagToucher interface {
	TouchTag(ctx context.Context, tagID int64, at time.Time) error
}

// TagEventWorker applies tag linked events to the tag rows they refer to
type TagEventWorker struct {
	tags TagToucher
	now  func() time.Time
}

func NewTagEventWorker(tags TagToucher) *TagEventWorker {
	return &TagEventWorker{tags: tags, now: time.Now}
}

// HandleTagLinked marks the linked tag as modified at the link time. A tag
// deleted since the link was made is skipped so the message is not
// requeued forever.
func (w *TagEventWorker) HandleTagLinked(ctx context.Context, msg *amqp.TagLinkedMessage) error {
	at := msg.Timestamp
	if at.IsZero() {
		at = w.now()
	}

	fields := log.NewFields().
		WithComponent(log.ComponentWorker).
		WithOperation(log.OpTouch).
		WithLink(msg.LinkID, msg.TagID, msg.TransactionID)
	slog.InfoContext(ctx, "Processing tag linked message", fields.ToSlice()...)

	err := w.tags.TouchTag(ctx, msg.TagID, at)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Tag no longer exists, dropping event", fields.ToSlice()...)
		return nil
	}
	if err != nil {
		return fmt.Errorf("touch tag %d: %w", msg.TagID, err)
	}

	return nil
}
