package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mapesa/internal/cache"
	"mapesa/internal/core"
)

// TransactionRepository stores transactions and their reference types.
// Types are immutable once created, so they are cached by name.
type TransactionRepository struct {
	provider Provider
	types    *cache.LRU[string, core.TransactionType]
}

func NewTransactionRepository(provider Provider) (*TransactionRepository, error) {
	if provider == nil {
		return nil, core.ErrUninitialized
	}
	return &TransactionRepository{
		provider: provider,
		types:    cache.NewLRU[string, core.TransactionType](64, time.Hour),
	}, nil
}

// EnsureType returns the transaction type with the given name, creating it
// when it does not exist yet.
func (r *TransactionRepository) EnsureType(ctx context.Context, name, description string) (core.TransactionType, error) {
	if tt, ok := r.types.Get(name); ok {
		return tt, nil
	}

	db := r.provider.DB()

	tt, err := scanTransactionType(db.QueryRowContext(ctx, `
		SELECT id, date_added, last_modified, name, description
		FROM transaction_type
		WHERE name = ?
	`, name))
	if err == nil {
		r.types.Set(name, tt)
		return tt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return tt, persistenceErr("get transaction type", err)
	}

	var id int64
	err = db.QueryRowContext(ctx, `
		INSERT INTO transaction_type (name, description)
		VALUES (?, ?)
		RETURNING id
	`, name, description).Scan(&id)
	if err != nil {
		return tt, persistenceErr("create transaction type", err)
	}

	tt, err = scanTransactionType(db.QueryRowContext(ctx, `
		SELECT id, date_added, last_modified, name, description
		FROM transaction_type
		WHERE id = ?
	`, id))
	if err != nil {
		return tt, persistenceErr("get transaction type", err)
	}

	slog.InfoContext(ctx, "Transaction type created", "id", tt.ID, "name", tt.Name)
	r.types.Set(name, tt)

	return tt, nil
}

func scanTransactionType(row *sql.Row) (core.TransactionType, error) {
	var (
		tt       core.TransactionType
		added    sql.NullTime
		modified sql.NullTime
	)
	err := row.Scan(&tt.ID, &added, &modified, &tt.Name, &tt.Description)
	tt.DateAdded = added.Time
	tt.LastModified = modified.Time
	return tt, err
}

// Insert stores one transaction. The transaction code is unique, so a
// repeated code fails with a constraint violation.
func (r *TransactionRepository) Insert(ctx context.Context, t core.NewTransaction) (core.Transaction, error) {
	query := `
		INSERT INTO "transaction" (
			type, source_message_id, transaction_code, transaction_amount, subject,
			subject_phone_number, subject_account, date_time, balance,
			transaction_cost, location, user_id
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	db := r.provider.DB()
	var id int64
	err := db.QueryRowContext(ctx, query,
		t.Type, t.SourceMessageID, t.TransactionCode, t.TransactionAmount, t.Subject,
		nullString(t.SubjectPhoneNumber), nullString(t.SubjectAccount), t.DateTime.UTC(),
		nullInt64(t.Balance), t.TransactionCost, nullString(t.Location), nullInt64(t.UserID),
	).Scan(&id)
	if err != nil {
		return core.Transaction{}, persistenceErr("insert transaction", err)
	}

	// Timestamps are read back with a plain SELECT so every dialect reports
	// their declared column type.
	tx, err := scanTransaction(db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM "transaction" WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, persistenceErr("get transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"transaction_code", tx.TransactionCode,
		"amount", tx.TransactionAmount)

	return tx, nil
}

// GetByCode looks a transaction up by its unique code.
func (r *TransactionRepository) GetByCode(ctx context.Context, code string) (core.Transaction, error) {
	tx, err := scanTransaction(r.provider.DB().QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM "transaction" WHERE transaction_code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return tx, fmt.Errorf("transaction %s: %w", code, core.ErrNotFound)
	}
	if err != nil {
		return tx, persistenceErr("get transaction by code", err)
	}
	return tx, nil
}

const transactionColumns = `id, date_added, last_modified, type, source_message_id,
	transaction_code, transaction_amount, subject, subject_phone_number,
	subject_account, date_time, balance, transaction_cost, location, user_id`

func scanTransaction(row *sql.Row) (core.Transaction, error) {
	var n nullTransaction
	err := row.Scan(
		&n.id, &n.dateAdded, &n.lastModified, &n.typ, &n.sourceMessageID,
		&n.code, &n.amount, &n.subject, &n.subjectPhone,
		&n.subjectAccount, &n.dateTime, &n.balance, &n.cost, &n.location, &n.userID,
	)
	if err != nil {
		return core.Transaction{}, err
	}
	return *n.toCore(), nil
}
