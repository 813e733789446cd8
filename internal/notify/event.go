package notify

import (
	"encoding/json"
	"time"

	"github.com/rzbill/podium/internal/rankstore"
)

// Notification is the rendered board-change event as appended to a channel
// log and delivered to subscribers.
type Notification struct {
	Channel   string            `json:"channel"`
	TopN      []rankstore.Entry `json:"topN"`
	EmittedAt time.Time         `json:"emittedAt"`
	Digest    string            `json:"digest"`
}

// EncodeNotification serializes a notification payload.
func EncodeNotification(n Notification) ([]byte, error) {
	return json.Marshal(n)
}

// DecodeNotification parses a notification payload.
func DecodeNotification(b []byte) (Notification, error) {
	var n Notification
	err := json.Unmarshal(b, &n)
	return n, err
}
