package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mapesa/internal/core"
)

var ErrMissingType = errors.New("transaction type is required")

// TransactionStore is the part of the transaction repository the service
// needs.
type TransactionStore interface {
	EnsureType(ctx context.Context, name, description string) (core.TransactionType, error)
	Insert(ctx context.Context, t core.NewTransaction) (core.Transaction, error)
	GetByCode(ctx context.Context, code string) (core.Transaction, error)
}

// RecordTransaction is a manually entered transaction. The type is given by
// name and created on first use.
type RecordTransaction struct {
	Type               string    `json:"type"`
	SourceMessageID    int64     `json:"sourceMessageId"`
	TransactionCode    string    `json:"transactionCode"`
	TransactionAmount  int64     `json:"transactionAmount"`
	Subject            string    `json:"subject"`
	SubjectPhoneNumber *string   `json:"subjectPhoneNumber,omitempty"`
	SubjectAccount     *string   `json:"subjectAccount,omitempty"`
	DateTime           time.Time `json:"dateTime"`
	Balance            *int64    `json:"balance,omitempty"`
	TransactionCost    int64     `json:"transactionCost"`
	Location           *string   `json:"location,omitempty"`
}

type TransactionService struct {
	txs TransactionStore
}

func NewTransactionService(txs TransactionStore) *TransactionService {
	return &TransactionService{txs: txs}
}

// Record stores a transaction owned by userID. A repeated transaction code
// fails with the store's constraint violation.
func (s *TransactionService) Record(ctx context.Context, userID int64, req RecordTransaction) (core.Transaction, error) {
	if userID <= 0 {
		return core.Transaction{}, invalid(core.ErrInvalidUser)
	}
	typeName := strings.ToLower(strings.TrimSpace(req.Type))
	if typeName == "" {
		return core.Transaction{}, invalid(ErrMissingType)
	}

	nt := core.NewTransaction{
		SourceMessageID:    req.SourceMessageID,
		TransactionCode:    strings.TrimSpace(req.TransactionCode),
		TransactionAmount:  req.TransactionAmount,
		Subject:            strings.TrimSpace(req.Subject),
		SubjectPhoneNumber: req.SubjectPhoneNumber,
		SubjectAccount:     req.SubjectAccount,
		DateTime:           req.DateTime,
		Balance:            req.Balance,
		TransactionCost:    req.TransactionCost,
		Location:           req.Location,
		UserID:             &userID,
	}
	if err := nt.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}

	typ, err := s.txs.EnsureType(ctx, typeName, typeName)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve transaction type: %w", err)
	}
	nt.Type = typ.ID

	tx, err := s.txs.Insert(ctx, nt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", tx.ID,
		"transaction_code", tx.TransactionCode,
		"user_id", userID)

	return tx, nil
}

// Get returns the user's transaction with the given code. Another user's
// transaction is reported as not found.
func (s *TransactionService) Get(ctx context.Context, userID int64, code string) (core.Transaction, error) {
	if userID <= 0 {
		return core.Transaction{}, invalid(core.ErrInvalidUser)
	}

	tx, err := s.txs.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if tx.UserID == nil || *tx.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", code, core.ErrNotFound)
	}
	return tx, nil
}
