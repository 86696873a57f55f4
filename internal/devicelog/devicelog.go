// Package devicelog keeps a history of every gamepad that has been plugged
// in, keyed by platform and identity string.
package devicelog

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/soar/padmap/gamepad"
)

const bucketDevices = "devices"

// Record is one known device.
type Record struct {
	ID        string           `json:"id" csv:"id"`
	Platform  gamepad.Platform `json:"platform" csv:"platform"`
	Profile   string           `json:"profile" csv:"profile"`
	Buttons   int              `json:"buttons" csv:"buttons"`
	Axes      int              `json:"axes" csv:"axes"`
	Connects  int              `json:"connects" csv:"connects"`
	FirstSeen time.Time        `json:"first_seen" csv:"first_seen"`
	LastSeen  time.Time        `json:"last_seen" csv:"last_seen"`
}

// Key returns the bucket key of a device.
func Key(d gamepad.Descriptor) string {
	return string(d.Platform) + "|" + d.ID
}

// Store is a bbolt backed device history.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create history directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open history %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketDevices))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create devices bucket")
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Observe records a connect of d bound to profile.
func (s *Store) Observe(d gamepad.Descriptor, profile string) error {
	now := s.now().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketDevices))
		key := []byte(Key(d))

		r := Record{FirstSeen: now}
		if v := b.Get(key); v != nil {
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "decode %s", key)
			}
		}
		r.ID = d.ID
		r.Platform = d.Platform
		r.Profile = profile
		r.Buttons = d.Buttons
		r.Axes = d.Axes
		r.Connects++
		r.LastSeen = now

		v, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put(key, v)
	})
}

// List returns every record, most recently seen first.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketDevices)).ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "decode %s", k)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastSeen.After(records[j].LastSeen)
	})
	return records, nil
}

// WriteCSV writes the history as CSV with a header row.
func (s *Store) WriteCSV(w io.Writer) error {
	records, err := s.List()
	if err != nil {
		return err
	}
	return gocsv.Marshal(&records, w)
}

// Pads looks up the descriptor bound to a slot.
type Pads interface {
	State(slot int) (gamepad.StateInfo, bool)
}

// Handler returns a gamepad.Handler that records Connected events. Write
// failures are logged.
func (s *Store) Handler(pads Pads) gamepad.Handler {
	return func(e gamepad.Event) {
		if e.Kind != gamepad.Connected {
			return
		}
		st, ok := pads.State(e.Slot)
		if !ok {
			return
		}
		if err := s.Observe(st.Descriptor, e.Profile); err != nil {
			log.Error().Err(err).Str("id", st.Descriptor.ID).Msg("record device failed")
		}
	}
}
