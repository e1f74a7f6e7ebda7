package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mapesa/internal/core"
)

const defaultLookupConcurrency = 8

// TagRepository reads and writes tags and their links to transactions.
// It holds no connection of its own: every call asks the provider for one.
type TagRepository struct {
	provider    Provider
	concurrency int
}

type TagRepositoryOption func(*TagRepository)

// WithLookupConcurrency caps how many per-id queries GetTagsByIDs runs at once.
func WithLookupConcurrency(n int) TagRepositoryOption {
	return func(r *TagRepository) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewTagRepository(provider Provider, opts ...TagRepositoryOption) (*TagRepository, error) {
	if provider == nil {
		return nil, core.ErrUninitialized
	}

	r := &TagRepository{
		provider:    provider,
		concurrency: defaultLookupConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// TagRepositoryHolder keeps one TagRepository for every caller that shares
// the holder. The zero value is empty and ready to use.
type TagRepositoryHolder struct {
	mu   sync.Mutex
	repo *TagRepository
}

// GetOrCreate returns the held repository, building it from provider the
// first time. Without a held repository and without a provider it fails
// with core.ErrUninitialized.
func (h *TagRepositoryHolder) GetOrCreate(provider Provider, opts ...TagRepositoryOption) (*TagRepository, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.repo != nil {
		return h.repo, nil
	}

	repo, err := NewTagRepository(provider, opts...)
	if err != nil {
		return nil, err
	}
	h.repo = repo
	return repo, nil
}

// ForceInitialize replaces the held repository unconditionally. References
// obtained earlier keep pointing at the old instance.
func (h *TagRepositoryHolder) ForceInitialize(provider Provider, opts ...TagRepositoryOption) (*TagRepository, error) {
	repo, err := NewTagRepository(provider, opts...)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.repo = repo
	h.mu.Unlock()

	return repo, nil
}

// InsertTags inserts all tags in a single statement and returns them in
// input order with their assigned ids.
func (r *TagRepository) InsertTags(ctx context.Context, tags ...core.NewTag) ([]core.InsertedTag, error) {
	if len(tags) == 0 {
		return nil, errors.New("insert tags: at least one tag is required")
	}

	placeholders := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags)*3)
	for _, t := range tags {
		placeholders = append(placeholders, "(?, ?, ?)")
		args = append(args, t.Name, t.Description, t.UserID)
	}

	query := `INSERT INTO tag (name, description, user_id) VALUES ` +
		strings.Join(placeholders, ", ") +
		` RETURNING id, name, description`

	db := r.provider.DB()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("insert tags", err)
	}
	defer rows.Close()

	inserted := make([]core.InsertedTag, 0, len(tags))
	for rows.Next() {
		var t core.InsertedTag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, persistenceErr("scan inserted tag", err)
		}
		inserted = append(inserted, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("insert tags", err)
	}

	// RETURNING order is not guaranteed; ids grow with insertion order.
	slices.SortFunc(inserted, func(a, b core.InsertedTag) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	slog.InfoContext(ctx, "Tags inserted", "count", len(inserted))

	return inserted, nil
}

// LinkTagToTransaction records one tag-transaction association. Existence
// of either side is left to the foreign keys.
func (r *TagRepository) LinkTagToTransaction(ctx context.Context, link core.NewTransactionTag) ([]core.TransactionTag, error) {
	query := `
		INSERT INTO transaction_tag (tag_id, transaction_id)
		VALUES (?, ?)
		RETURNING id, tag_id, transaction_id
	`

	db := r.provider.DB()
	var tt core.TransactionTag
	err := db.QueryRowContext(ctx, query, link.TagID, link.TransactionID).
		Scan(&tt.ID, &tt.TagID, &tt.TransactionID)
	if err != nil {
		return nil, persistenceErr("link tag to transaction", err)
	}

	slog.InfoContext(ctx, "Tag linked to transaction",
		"link_id", tt.ID,
		"tag_id", tt.TagID,
		"transaction_id", tt.TransactionID)

	return []core.TransactionTag{tt}, nil
}

// ListTagsForUser returns every tag the user owns joined against its links
// and their transactions: one row per link, or a single row with nil
// Link/Transaction for an unlinked tag.
func (r *TagRepository) ListTagsForUser(ctx context.Context, userID int64) ([]core.TagRow, error) {
	rows, err := queryTagRows(ctx, r.provider.DB(), "t.user_id = ?", userID)
	if err != nil {
		return nil, persistenceErr("list tags for user", err)
	}

	slog.DebugContext(ctx, "Listed user tags", "user_id", userID, "row_count", len(rows))

	return rows, nil
}

// GetTagsByIDs runs one lookup per id, concurrently, and returns the
// result sets in the order of tagIDs. An id that does not exist or belongs
// to another user yields an empty set at its position.
func (r *TagRepository) GetTagsByIDs(ctx context.Context, userID int64, tagIDs []int64) ([][]core.TagRow, error) {
	results := make([][]core.TagRow, len(tagIDs))
	if len(tagIDs) == 0 {
		return results, nil
	}

	db := r.provider.DB()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, id := range tagIDs {
		g.Go(func() error {
			rows, err := queryTagRows(gctx, db, "t.user_id = ? AND t.id = ?", userID, id)
			if err != nil {
				return fmt.Errorf("tag %d: %w", id, err)
			}
			results[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, persistenceErr("get tags by ids", err)
	}

	slog.DebugContext(ctx, "Looked up tags by id", "user_id", userID, "count", len(tagIDs))

	return results, nil
}

// TouchTag sets last_modified on a tag. Nothing updates it automatically.
func (r *TagRepository) TouchTag(ctx context.Context, tagID int64, at time.Time) error {
	result, err := r.provider.DB().ExecContext(ctx,
		`UPDATE tag SET last_modified = ? WHERE id = ?`, at.UTC(), tagID)
	if err != nil {
		return persistenceErr("touch tag", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return persistenceErr("touch tag", err)
	}
	if n == 0 {
		return fmt.Errorf("tag %d: %w", tagID, core.ErrNotFound)
	}

	return nil
}

const tagRowSelect = `
	SELECT
		t.id, t.date_added, t.last_modified, t.name, t.description, t.user_id,
		tt.id, tt.tag_id, tt.transaction_id,
		tx.id, tx.date_added, tx.last_modified, tx.type, tx.source_message_id,
		tx.transaction_code, tx.transaction_amount, tx.subject,
		tx.subject_phone_number, tx.subject_account, tx.date_time, tx.balance,
		tx.transaction_cost, tx.location, tx.user_id
	FROM tag t
	LEFT JOIN transaction_tag tt ON t.id = tt.tag_id
	LEFT JOIN "transaction" tx ON tt.transaction_id = tx.id
`

func queryTagRows(ctx context.Context, db Querier, where string, args ...any) ([]core.TagRow, error) {
	query := tagRowSelect + " WHERE " + where + " ORDER BY t.id, tt.id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.TagRow, 0)
	for rows.Next() {
		row, err := scanTagRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func scanTagRow(rows *sql.Rows) (core.TagRow, error) {
	var (
		row     core.TagRow
		tagAdd  sql.NullTime
		tagMod  sql.NullTime
		linkID  sql.NullInt64
		linkTag sql.NullInt64
		linkTx  sql.NullInt64
		tx      nullTransaction
	)

	err := rows.Scan(
		&row.Tag.ID, &tagAdd, &tagMod, &row.Tag.Name, &row.Tag.Description, &row.Tag.UserID,
		&linkID, &linkTag, &linkTx,
		&tx.id, &tx.dateAdded, &tx.lastModified, &tx.typ, &tx.sourceMessageID,
		&tx.code, &tx.amount, &tx.subject,
		&tx.subjectPhone, &tx.subjectAccount, &tx.dateTime, &tx.balance,
		&tx.cost, &tx.location, &tx.userID,
	)
	if err != nil {
		return row, err
	}

	row.Tag.DateAdded = tagAdd.Time
	row.Tag.LastModified = tagMod.Time

	if linkID.Valid {
		row.Link = &core.TransactionTag{
			ID:            linkID.Int64,
			TagID:         linkTag.Int64,
			TransactionID: linkTx.Int64,
		}
	}
	row.Transaction = tx.toCore()

	return row, nil
}

// nullTransaction receives transaction columns from the nullable side of a
// left join.
type nullTransaction struct {
	id              sql.NullInt64
	dateAdded       sql.NullTime
	lastModified    sql.NullTime
	typ             sql.NullInt64
	sourceMessageID sql.NullInt64
	code            sql.NullString
	amount          sql.NullInt64
	subject         sql.NullString
	subjectPhone    sql.NullString
	subjectAccount  sql.NullString
	dateTime        sql.NullTime
	balance         sql.NullInt64
	cost            sql.NullInt64
	location        sql.NullString
	userID          sql.NullInt64
}

func (n nullTransaction) toCore() *core.Transaction {
	if !n.id.Valid {
		return nil
	}
	return &core.Transaction{
		Record: core.Record{
			ID:           n.id.Int64,
			DateAdded:    n.dateAdded.Time,
			LastModified: n.lastModified.Time,
		},
		Type:               n.typ.Int64,
		SourceMessageID:    n.sourceMessageID.Int64,
		TransactionCode:    n.code.String,
		TransactionAmount:  n.amount.Int64,
		Subject:            n.subject.String,
		SubjectPhoneNumber: stringPtr(n.subjectPhone),
		SubjectAccount:     stringPtr(n.subjectAccount),
		DateTime:           n.dateTime.Time,
		Balance:            int64Ptr(n.balance),
		TransactionCost:    n.cost.Int64,
		Location:           stringPtr(n.location),
		UserID:             int64Ptr(n.userID),
	}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func int64Ptr(i sql.NullInt64) *int64 {
	if !i.Valid {
		return nil
	}
	return &i.Int64
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}
