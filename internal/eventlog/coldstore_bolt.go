package eventlog

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"
)

// BoltColdStore keeps offloaded aggregates in a local bbolt file, one
// bucket per aggregate kind
type BoltColdStore struct {
	db *bolt.DB
}

func NewBoltColdStore(path string) (*BoltColdStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	return &BoltColdStore{db: db}, nil
}

func (b *BoltColdStore) Put(
	_ context.Context, id AggregateID, record *ColdRecord,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(id[0]))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id.Key()), data)
	})
}

// Get retrieves an offloaded record, or nil when none exists
func (b *BoltColdStore) Get(
	_ context.Context, id AggregateID,
) (*ColdRecord, error) {
	var record *ColdRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(id[0]))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(id.Key()))
		if data == nil {
			return nil
		}
		record = &ColdRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (b *BoltColdStore) Close() error {
	return b.db.Close()
}
