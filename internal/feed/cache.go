package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const cacheBucket = "feeds"

// cacheEntry holds HTTP cache metadata and the body for a single feed URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	Body         []byte    `json:"body"`
}

// cache is a bbolt file keyed by a hash of the feed URL. The database is
// opened per operation so concurrent runs do not hold the file lock.
type cache struct {
	path string
}

func newCache(path string) *cache {
	if path == "" {
		return nil
	}
	return &cache{path: path}
}

func (c *cache) open() (*bolt.DB, error) {
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open feed cache %s: %w", c.path, err)
	}
	return db, nil
}

func (c *cache) load(url string) (cacheEntry, bool, error) {
	var entry cacheEntry
	db, err := c.open()
	if err != nil {
		return entry, false, err
	}
	defer db.Close()

	found := false
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cacheBucket))
		if b == nil {
			return nil
		}
		raw := b.Get(cacheKey(url))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("corrupt cache entry: %w", err)
		}
		found = entry.URL == url
		return nil
	})
	return entry, found, err
}

func (c *cache) save(entry cacheEntry) error {
	db, err := c.open()
	if err != nil {
		return err
	}
	defer db.Close()

	entry.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		if err != nil {
			return fmt.Errorf("unable to create bucket %s: %w", cacheBucket, err)
		}
		return b.Put(cacheKey(entry.URL), data)
	})
}

func cacheKey(url string) []byte {
	sum := sha256.Sum256([]byte(url))
	return []byte(hex.EncodeToString(sum[:8]))
}
