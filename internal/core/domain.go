// Package core holds the domain types shared by storage, services and
// transport.
package core

import (
	"errors"
	"strings"
	"time"
)

// Record holds the columns every table carries.
type Record struct {
	ID           int64     `json:"id"`
	DateAdded    time.Time `json:"dateAdded"`
	LastModified time.Time `json:"lastModified"`
}

type (
	User struct {
		Record
		Username    string  `json:"username"`
		Email       string  `json:"email"`
		PhoneNumber *string `json:"phoneNumber,omitempty"`
		Password    string  `json:"-"`
	}

	NewUser struct {
		Username    string
		Email       string
		PhoneNumber *string
		Password    string // already hashed
	}

	TransactionType struct {
		Record
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	// Transaction is a single mobile-money movement. Amounts are minor
	// currency units.
	Transaction struct {
		Record
		Type               int64     `json:"type"`
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
		UserID             *int64    `json:"userId,omitempty"`
	}

	NewTransaction struct {
		Type               int64
		SourceMessageID    int64
		TransactionCode    string
		TransactionAmount  int64
		Subject            string
		SubjectPhoneNumber *string
		SubjectAccount     *string
		DateTime           time.Time
		Balance            *int64
		TransactionCost    int64
		Location           *string
		UserID             *int64
	}

	Tag struct {
		Record
		Name        string `json:"name"`
		Description string `json:"description"`
		UserID      int64  `json:"userId"`
	}

	NewTag struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		UserID      int64  `json:"userId"`
	}

	// InsertedTag is what a tag insert hands back.
	InsertedTag struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	// TransactionTag associates one tag with one transaction.
	TransactionTag struct {
		ID            int64 `json:"id"`
		TagID         int64 `json:"tagId"`
		TransactionID int64 `json:"transactionId"`
	}

	NewTransactionTag struct {
		TagID         int64 `json:"tagId"`
		TransactionID int64 `json:"transactionId"`
	}

	// TagRow is one row of tag LEFT JOIN transaction_tag LEFT JOIN
	// transaction. Link and Transaction are nil when the tag has no link.
	TagRow struct {
		Tag         Tag             `json:"tag"`
		Link        *TransactionTag `json:"transactionTag"`
		Transaction *Transaction    `json:"transaction"`
	}

	// TagWithTransactions is the grouped form of a set of TagRows. Total
	// sums the linked transaction amounts in minor units.
	TagWithTransactions struct {
		Tag          Tag           `json:"tag"`
		Transactions []Transaction `json:"transactions"`
		Total        int64         `json:"total"`
		TotalDisplay string        `json:"totalDisplay"`
	}
)

var (
	ErrEmptyTagName       = errors.New("tag name is required")
	ErrTagNameTooLong     = errors.New("tag name must be 128 characters or less")
	ErrTagDescTooLong     = errors.New("tag description must be 255 characters or less")
	ErrInvalidUser        = errors.New("user id must be positive")
	ErrInvalidLink        = errors.New("tag id and transaction id must be positive")
	ErrEmptyTransactionID = errors.New("transaction code is required")
)

func (t NewTag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyTagName
	}
	if len(t.Name) > 128 {
		return ErrTagNameTooLong
	}
	if len(t.Description) > 255 {
		return ErrTagDescTooLong
	}
	if t.UserID <= 0 {
		return ErrInvalidUser
	}
	return nil
}

func (l NewTransactionTag) Validate() error {
	if l.TagID <= 0 || l.TransactionID <= 0 {
		return ErrInvalidLink
	}
	return nil
}

func (t NewTransaction) Validate() error {
	if strings.TrimSpace(t.TransactionCode) == "" {
		return ErrEmptyTransactionID
	}
	if strings.TrimSpace(t.Subject) == "" {
		return errors.New("subject is required")
	}
	if t.DateTime.IsZero() {
		return errors.New("date time is required")
	}
	if t.TransactionCost < 0 {
		return errors.New("transaction cost cannot be negative")
	}
	return nil
}

// GroupTagRows folds flat join rows into one entry per tag, in the order
// each tag is first seen. Tags without links get an empty, non-nil list.
func GroupTagRows(rows []TagRow) []TagWithTransactions {
	grouped := make([]TagWithTransactions, 0)
	index := make(map[int64]int)

	for _, row := range rows {
		i, ok := index[row.Tag.ID]
		if !ok {
			i = len(grouped)
			index[row.Tag.ID] = i
			grouped = append(grouped, TagWithTransactions{
				Tag:          row.Tag,
				Transactions: []Transaction{},
			})
		}
		if row.Transaction != nil {
			grouped[i].Transactions = append(grouped[i].Transactions, *row.Transaction)
			grouped[i].Total += row.Transaction.TransactionAmount
		}
	}

	for i := range grouped {
		grouped[i].TotalDisplay = FormatAmount(grouped[i].Total)
	}

	return grouped
}
