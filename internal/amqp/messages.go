package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"mapesa/internal/core"
)

// TagLinkedMessage announces a new tag-transaction link. Consumers load
// whatever else they need from storage.
type TagLinkedMessage struct {
	LinkID        int64     `json:"link_id"`
	TagID         int64     `json:"tag_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTagLinkedMessage(link core.TransactionTag) *TagLinkedMessage {
	return &TagLinkedMessage{
		LinkID:        link.ID,
		TagID:         link.TagID,
		TransactionID: link.TransactionID,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TagLinkedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TagLinkedMessageFromJSON decodes a message and rejects ones that could
// never be handled.
func TagLinkedMessageFromJSON(data []byte) (*TagLinkedMessage, error) {
	var msg TagLinkedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TagID <= 0 || msg.TransactionID <= 0 {
		return nil, errors.New("tag linked message: tag_id and transaction_id are required")
	}
	return &msg, nil
}
