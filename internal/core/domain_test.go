package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTagValidate(t *testing.T) {
	tests := []struct {
		name    string
		tag     NewTag
		wantErr error
	}{
		{"valid", NewTag{Name: "Groceries", Description: "Food spend", UserID: 1}, nil},
		{"empty description allowed", NewTag{Name: "Rent", UserID: 1}, nil},
		{"blank name", NewTag{Name: "  ", UserID: 1}, ErrEmptyTagName},
		{"name too long", NewTag{Name: strings.Repeat("a", 129), UserID: 1}, ErrTagNameTooLong},
		{"name exactly 128", NewTag{Name: strings.Repeat("a", 128), UserID: 1}, nil},
		{"description too long", NewTag{Name: "x", Description: strings.Repeat("d", 256), UserID: 1}, ErrTagDescTooLong},
		{"missing user", NewTag{Name: "x"}, ErrInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tag.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewTransactionTagValidate(t *testing.T) {
	if err := (NewTransactionTag{TagID: 1, TransactionID: 42}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (NewTransactionTag{TagID: 0, TransactionID: 42}).Validate(); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("expected ErrInvalidLink, got %v", err)
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		TransactionCode: "QAB12CD34E",
		Subject:         "JOHN DOE",
		DateTime:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	noCode := good
	noCode.TransactionCode = ""
	if err := noCode.Validate(); !errors.Is(err, ErrEmptyTransactionID) {
		t.Fatalf("expected ErrEmptyTransactionID, got %v", err)
	}

	negCost := good
	negCost.TransactionCost = -1
	if err := negCost.Validate(); err == nil {
		t.Fatal("expected error for negative cost")
	}
}

func TestGroupTagRows(t *testing.T) {
	groceries := Tag{Record: Record{ID: 1}, Name: "Groceries", UserID: 1}
	rent := Tag{Record: Record{ID: 2}, Name: "Rent", UserID: 1}
	tx42 := &Transaction{Record: Record{ID: 42}, TransactionAmount: 123450}
	tx43 := &Transaction{Record: Record{ID: 43}, TransactionAmount: 50}

	rows := []TagRow{
		{Tag: groceries, Link: &TransactionTag{ID: 1, TagID: 1, TransactionID: 42}, Transaction: tx42},
		{Tag: rent},
		{Tag: groceries, Link: &TransactionTag{ID: 2, TagID: 1, TransactionID: 43}, Transaction: tx43},
	}

	grouped := GroupTagRows(rows)
	if len(grouped) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(grouped))
	}
	if grouped[0].Tag.ID != 1 || len(grouped[0].Transactions) != 2 {
		t.Errorf("groceries group = %+v", grouped[0])
	}
	if grouped[1].Tag.ID != 2 || grouped[1].Transactions == nil || len(grouped[1].Transactions) != 0 {
		t.Errorf("rent group should have empty non-nil transactions, got %+v", grouped[1])
	}
	if grouped[0].Total != 123500 || grouped[0].TotalDisplay != "Ksh1,235.00" {
		t.Errorf("groceries total = %d %q", grouped[0].Total, grouped[0].TotalDisplay)
	}
	if grouped[1].Total != 0 || grouped[1].TotalDisplay != "Ksh0.00" {
		t.Errorf("rent total = %d %q", grouped[1].Total, grouped[1].TotalDisplay)
	}

	if got := GroupTagRows(nil); got == nil || len(got) != 0 {
		t.Errorf("GroupTagRows(nil) = %v, want empty slice", got)
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := error(&PersistenceError{Op: "insert tags", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the driver error")
	}
	if !IsPersistence(err) {
		t.Error("IsPersistence should be true")
	}
	if IsPersistence(cause) {
		t.Error("IsPersistence should be false for a bare error")
	}
	if !strings.Contains(err.Error(), "insert tags") {
		t.Errorf("error message missing op: %q", err.Error())
	}
}
