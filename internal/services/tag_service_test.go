package services

import (
	"context"
	"errors"
	"testing"

	"mapesa/internal/amqp"
	"mapesa/internal/core"
)

type fakeTagStore struct {
	inserted []core.NewTag
	links    []core.NewTransactionTag
	rows     map[int64][]core.TagRow // by tag id
	err      error
	lookups  int
}

func newFakeTagStore() *fakeTagStore {
	return &fakeTagStore{rows: make(map[int64][]core.TagRow)}
}

func (f *fakeTagStore) own(userID, tagID int64) {
	f.rows[tagID] = []core.TagRow{{Tag: core.Tag{Record: core.Record{ID: tagID}, UserID: userID}}}
}

func (f *fakeTagStore) InsertTags(ctx context.Context, tags ...core.NewTag) ([]core.InsertedTag, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.InsertedTag, len(tags))
	for i, t := range tags {
		f.inserted = append(f.inserted, t)
		out[i] = core.InsertedTag{ID: int64(len(f.inserted)), Name: t.Name, Description: t.Description}
	}
	return out, nil
}

func (f *fakeTagStore) LinkTagToTransaction(ctx context.Context, link core.NewTransactionTag) ([]core.TransactionTag, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.links = append(f.links, link)
	return []core.TransactionTag{{ID: int64(len(f.links)), TagID: link.TagID, TransactionID: link.TransactionID}}, nil
}

func (f *fakeTagStore) ListTagsForUser(ctx context.Context, userID int64) ([]core.TagRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.TagRow
	for _, rows := range f.rows {
		for _, r := range rows {
			if r.Tag.UserID == userID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeTagStore) GetTagsByIDs(ctx context.Context, userID int64, tagIDs []int64) ([][]core.TagRow, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]core.TagRow, len(tagIDs))
	for i, id := range tagIDs {
		out[i] = []core.TagRow{}
		for _, r := range f.rows[id] {
			if r.Tag.UserID == userID {
				out[i] = append(out[i], r)
			}
		}
	}
	return out, nil
}

type fakePublisher struct {
	published []*amqp.TagLinkedMessage
	err       error
	closed    bool
}

func (p *fakePublisher) PublishTagLinked(ctx context.Context, msg *amqp.TagLinkedMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestTagService_CreateTags(t *testing.T) {
	tests := []struct {
		name    string
		tags    []core.NewTag
		wantErr error
	}{
		{"valid", []core.NewTag{{Name: "Groceries", Description: "Food spend"}}, nil},
		{"empty list", nil, ErrNoTags},
		{"blank name", []core.NewTag{{Name: "ok"}, {Name: "  "}}, core.ErrEmptyTagName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeTagStore()
			svc := NewTagService(store, nil, 100)

			_, err := svc.CreateTags(context.Background(), 7, tt.tags)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CreateTags() error = %v", err)
				}
				for _, in := range store.inserted {
					if in.UserID != 7 {
						t.Errorf("inserted tag owner = %d, want 7", in.UserID)
					}
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrInvalidInput) {
				t.Errorf("CreateTags() error = %v, want %v wrapped as invalid input", err, tt.wantErr)
			}
			if len(store.inserted) != 0 {
				t.Error("invalid input must not reach the store")
			}
		})
	}
}

func TestTagService_CreateTags_OverridesOwner(t *testing.T) {
	store := newFakeTagStore()
	svc := NewTagService(store, nil, 100)

	_, err := svc.CreateTags(context.Background(), 3, []core.NewTag{{Name: "Rent", UserID: 99}})
	if err != nil {
		t.Fatalf("CreateTags() error = %v", err)
	}
	if store.inserted[0].UserID != 3 {
		t.Errorf("owner = %d, want 3", store.inserted[0].UserID)
	}
}

func TestTagService_CreateTags_StoreError(t *testing.T) {
	store := newFakeTagStore()
	store.err = &core.PersistenceError{Op: "insert tags", Err: errors.New("disk full")}
	svc := NewTagService(store, nil, 100)

	_, err := svc.CreateTags(context.Background(), 1, []core.NewTag{{Name: "Rent"}})
	if !core.IsPersistence(err) {
		t.Errorf("CreateTags() error = %v, want PersistenceError", err)
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("storage failures are not invalid input")
	}
}

func TestTagService_LinkTag(t *testing.T) {
	t.Run("publishes event", func(t *testing.T) {
		store := newFakeTagStore()
		store.own(1, 10)
		pub := &fakePublisher{}
		svc := NewTagService(store, pub, 100)

		links, err := svc.LinkTag(context.Background(), 1, core.NewTransactionTag{TagID: 10, TransactionID: 42})
		if err != nil {
			t.Fatalf("LinkTag() error = %v", err)
		}
		if len(links) != 1 || links[0].TransactionID != 42 {
			t.Errorf("LinkTag() = %+v", links)
		}
		if len(pub.published) != 1 || pub.published[0].TagID != 10 || pub.published[0].LinkID != links[0].ID {
			t.Errorf("published = %+v", pub.published)
		}
	})

	t.Run("publish failure does not fail the link", func(t *testing.T) {
		store := newFakeTagStore()
		store.own(1, 10)
		svc := NewTagService(store, &fakePublisher{err: errors.New("circuit breaker is open")}, 100)

		if _, err := svc.LinkTag(context.Background(), 1, core.NewTransactionTag{TagID: 10, TransactionID: 42}); err != nil {
			t.Errorf("LinkTag() error = %v, want nil", err)
		}
		if len(store.links) != 1 {
			t.Errorf("links stored = %d, want 1", len(store.links))
		}
	})

	t.Run("without publisher", func(t *testing.T) {
		store := newFakeTagStore()
		store.own(1, 10)
		svc := NewTagService(store, nil, 100)

		if _, err := svc.LinkTag(context.Background(), 1, core.NewTransactionTag{TagID: 10, TransactionID: 42}); err != nil {
			t.Errorf("LinkTag() error = %v", err)
		}
	})

	t.Run("foreign tag", func(t *testing.T) {
		store := newFakeTagStore()
		store.own(2, 10)
		svc := NewTagService(store, nil, 100)

		_, err := svc.LinkTag(context.Background(), 1, core.NewTransactionTag{TagID: 10, TransactionID: 42})
		if !errors.Is(err, ErrTagNotOwned) {
			t.Errorf("LinkTag() error = %v, want ErrTagNotOwned", err)
		}
		if len(store.links) != 0 {
			t.Error("link to a foreign tag must not be stored")
		}
	})

	t.Run("invalid ids", func(t *testing.T) {
		store := newFakeTagStore()
		svc := NewTagService(store, nil, 100)

		_, err := svc.LinkTag(context.Background(), 1, core.NewTransactionTag{TagID: 0, TransactionID: 42})
		if !errors.Is(err, core.ErrInvalidLink) {
			t.Errorf("LinkTag() error = %v, want ErrInvalidLink", err)
		}
		if store.lookups != 0 {
			t.Error("invalid link must not reach the store")
		}
	})
}

func TestTagService_GetUserTags(t *testing.T) {
	store := newFakeTagStore()
	store.own(1, 10)
	svc := NewTagService(store, nil, 3)
	ctx := context.Background()

	got, err := svc.GetUserTags(ctx, 1, []int64{10, 999})
	if err != nil {
		t.Fatalf("GetUserTags() error = %v", err)
	}
	if len(got) != 2 || len(got[0]) != 1 || len(got[1]) != 0 {
		t.Errorf("GetUserTags() = %+v", got)
	}

	_, err = svc.GetUserTags(ctx, 1, []int64{1, 2, 3, 4})
	if !errors.Is(err, ErrTooManyIDs) {
		t.Errorf("GetUserTags() error = %v, want ErrTooManyIDs", err)
	}

	if _, err := svc.GetUserTags(ctx, 0, []int64{1}); !errors.Is(err, core.ErrInvalidUser) {
		t.Errorf("GetUserTags() error = %v, want ErrInvalidUser", err)
	}
}

func TestTagService_ListUserTagsGrouped(t *testing.T) {
	store := newFakeTagStore()
	tx := &core.Transaction{Record: core.Record{ID: 42}}
	store.rows[10] = []core.TagRow{
		{Tag: core.Tag{Record: core.Record{ID: 10}, UserID: 1}, Link: &core.TransactionTag{ID: 1, TagID: 10, TransactionID: 42}, Transaction: tx},
	}
	svc := NewTagService(store, nil, 100)

	grouped, err := svc.ListUserTagsGrouped(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListUserTagsGrouped() error = %v", err)
	}
	if len(grouped) != 1 || len(grouped[0].Transactions) != 1 || grouped[0].Transactions[0].ID != 42 {
		t.Errorf("ListUserTagsGrouped() = %+v", grouped)
	}
}

func TestTagService_Close(t *testing.T) {
	t.Run("nil publisher", func(t *testing.T) {
		if err := NewTagService(newFakeTagStore(), nil, 0).Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		if err := NewTagService(newFakeTagStore(), pub, 0).Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if !pub.closed {
			t.Error("publisher was not closed")
		}
	})
}
