// Package boltstore persists the items of an IndexedContainer in a bbolt
// database.
//
// Items are stored one per key in a bucket. The key is the item id formatted
// with fmt.Sprint and the value is a JSON object holding one entry per
// property, so items loaded back always have string ids.
package boltstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/CrimsonAS/qgrid/container"
	"github.com/golang/glog"
	bolt "go.etcd.io/bbolt"
)

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load adds every item stored in bucket to c. Stored values for properties c
// doesn't have are ignored. A missing bucket loads nothing.
func (s *Store) Load(bucket string, c *container.IndexedContainer) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(v, &raw); err != nil {
				return fmt.Errorf("item %s: %w", k, err)
			}

			values := make(map[interface{}]interface{})
			for _, pid := range c.PropertyIDs() {
				data, exists := raw[fmt.Sprint(pid)]
				if !exists {
					continue
				}
				value := reflect.New(c.Type(pid))
				if err := json.Unmarshal(data, value.Interface()); err != nil {
					return fmt.Errorf("item %s property %v: %w", k, pid, err)
				}
				values[pid] = value.Elem().Interface()
			}
			return c.AddItemWithValues(string(k), values)
		})
	})
}

// Put stores one item of c.
func (s *Store) Put(bucket string, c container.Indexed, itemID interface{}) error {
	it := c.Item(itemID)
	if it == nil {
		return fmt.Errorf("%w: %v", container.ErrNoSuchItem, itemID)
	}
	values := make(map[string]interface{})
	for _, pid := range it.PropertyIDs() {
		values[fmt.Sprint(pid)] = it.Property(pid).Value()
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(fmt.Sprint(itemID)), data)
	})
}

func (s *Store) Delete(bucket string, itemID interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(fmt.Sprint(itemID)))
	})
}

// Track keeps bucket up to date with changes to c until the returned
// registration is removed. Write failures are logged.
func (s *Store) Track(bucket string, c *container.IndexedContainer) container.Registration {
	items := c.AddItemSetChangeListener(func(e container.ItemSetChange) {
		for _, id := range e.ItemIDs {
			var err error
			switch e.Kind {
			case container.ItemsAdded:
				err = s.Put(bucket, c, id)
			case container.ItemsRemoved:
				err = s.Delete(bucket, id)
			}
			if err != nil {
				glog.Warningf("boltstore: persisting item %v failed: %s", id, err)
			}
		}
	})
	values := c.AddValueChangeListener(func(e container.ValueChange) {
		if err := s.Put(bucket, c, e.ItemID); err != nil {
			glog.Warningf("boltstore: persisting item %v failed: %s", e.ItemID, err)
		}
	})
	return container.RegistrationFunc(func() {
		items.Remove()
		values.Remove()
	})
}
