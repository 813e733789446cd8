package projection

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

// partitionLease is the stored claim on one partition.
type partitionLease struct {
	Owner       string `json:"owner"`
	ExpiresAtMs int64  `json:"expiresAtMs"`
}

// LeaseManager hands out TTL-bounded partition ownership within a consumer
// group. A partition has at most one live owner; an owner renews by
// re-acquiring, and a lease whose owner stopped renewing is taken over
// after expiry.
type LeaseManager struct {
	db    *pebblestore.DB
	group string
	owner string
	ttl   time.Duration
	now   func() time.Time
}

// NewLeaseManager builds a lease manager for one consumer identity.
func NewLeaseManager(db *pebblestore.DB, group, owner string, ttl time.Duration) *LeaseManager {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &LeaseManager{db: db, group: group, owner: owner, ttl: ttl, now: time.Now}
}

// Owner returns the consumer identity this manager acquires for.
func (m *LeaseManager) Owner() string { return m.owner }

// TTL returns the lease duration.
func (m *LeaseManager) TTL() time.Duration { return m.ttl }

func (m *LeaseManager) key(partition uint32) []byte {
	var part [4]byte
	binary.BigEndian.PutUint32(part[:], partition)
	k := make([]byte, 0, len("lease/")+len(m.group)+1+4)
	k = append(k, "lease/"...)
	k = append(k, m.group...)
	k = append(k, '/')
	return append(k, part[:]...)
}

// Acquire claims or renews a partition. Returns false when another owner
// holds a live lease.
func (m *LeaseManager) Acquire(partition uint32) (bool, error) {
	key := m.key(partition)
	nowMs := m.now().UnixMilli()

	cur, err := m.db.Get(key)
	if err != nil && !errors.Is(err, pebblestore.ErrNotFound) {
		return false, err
	}
	if err == nil {
		var l partitionLease
		if json.Unmarshal(cur, &l) == nil && l.Owner != m.owner && l.ExpiresAtMs > nowMs {
			return false, nil
		}
	}
	b, err := json.Marshal(partitionLease{Owner: m.owner, ExpiresAtMs: nowMs + m.ttl.Milliseconds()})
	if err != nil {
		return false, err
	}
	if err := m.db.Set(key, b); err != nil {
		return false, err
	}
	return true, nil
}

// Release drops a partition lease when this manager owns it.
func (m *LeaseManager) Release(partition uint32) error {
	key := m.key(partition)
	cur, err := m.db.Get(key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var l partitionLease
	if json.Unmarshal(cur, &l) != nil || l.Owner != m.owner {
		return nil
	}
	return m.db.Delete(key)
}

// Holder reports the current live owner of a partition, if any.
func (m *LeaseManager) Holder(partition uint32) (string, bool) {
	cur, err := m.db.Get(m.key(partition))
	if err != nil {
		return "", false
	}
	var l partitionLease
	if json.Unmarshal(cur, &l) != nil || l.ExpiresAtMs <= m.now().UnixMilli() {
		return "", false
	}
	return l.Owner, true
}
