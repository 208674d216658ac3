package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const KindActivity = "activity"

// Item is an outbox entry waiting to be delivered to its sink.
type Item struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	key []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Kind == "" {
		i.Kind = KindActivity
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
