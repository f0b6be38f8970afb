/*
	Package registry persists the metadata of every pixel set: its grid descriptor,
	an optional vendor file backing it, and the SHA-1 digest of its pixels.  Digests
	are indexed so pixel sets with identical content can be found.
*/
package registry

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang/groupcache/lru"

	"github.com/janelia-flyem/pixels/dvid"
)

// DefaultCacheEntries is the number of decoded records kept in memory.
const DefaultCacheEntries = 1024

var (
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("pixels not registered")

	recordPrefix = []byte("p/")
	digestPrefix = []byte("d/")
)

func recordKey(id uint64) []byte {
	k := make([]byte, len(recordPrefix)+8)
	copy(k, recordPrefix)
	binary.BigEndian.PutUint64(k[len(recordPrefix):], id)
	return k
}

// digestKey is the index key for a pixel set: prefix, digest, then big-endian id.
func digestKey(digest []byte, id uint64) []byte {
	k := make([]byte, 0, len(digestPrefix)+len(digest)+8)
	k = append(k, digestPrefix...)
	k = append(k, digest...)
	return binary.BigEndian.AppendUint64(k, id)
}

// badgerLogger routes badger's logging through the dvid log.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{})   { dvid.Errorf(format, args...) }
func (badgerLogger) Warningf(format string, args ...interface{}) { dvid.Warningf(format, args...) }
func (badgerLogger) Infof(format string, args ...interface{})    { dvid.Debugf(format, args...) }
func (badgerLogger) Debugf(format string, args ...interface{})   { dvid.Debugf(format, args...) }

// Registry is a persistent, concurrency-safe store of pixel set records.
type Registry struct {
	path string
	db   *badger.DB

	mu    sync.Mutex
	cache *lru.Cache
}

// Open opens the registry database at path, creating it if necessary.
func Open(path string, readOnly bool) (*Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if readOnly {
			return nil, fmt.Errorf("no registry at %s", path)
		}
		dvid.Infof("Registry not already at path (%s). Creating directory...\n", path)
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("can't make registry directory at %s: %w", path, err)
		}
	}
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{}).
		WithNumVersionsToKeep(1).
		WithSyncWrites(false).
		WithValueThreshold(100).
		WithReadOnly(readOnly)

	timedLog := dvid.NewTimeLog()
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open registry @ %s: %w", path, err)
	}
	timedLog.Infof("Opened registry @ %s", path)
	return &Registry{
		path:  path,
		db:    db,
		cache: lru.New(DefaultCacheEntries),
	}, nil
}

func (r *Registry) String() string {
	return "registry @ " + r.path
}

// Close flushes and closes the database.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Registry) cached(id uint64) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	return v.(*Record), true
}

func (r *Registry) setCached(rec *Record) {
	r.mu.Lock()
	r.cache.Add(rec.ID, rec)
	r.mu.Unlock()
}

func (r *Registry) uncache(id uint64) {
	r.mu.Lock()
	r.cache.Remove(id)
	r.mu.Unlock()
}

func getRecord(txn *badger.Txn, id uint64) (*Record, error) {
	item, err := txn.Get(recordKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := new(Record)
	err = item.Value(func(val []byte) error {
		_, err := rec.UnmarshalMsg(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bad record for pixels %d: %w", id, err)
	}
	return rec, nil
}

// Put stores a record, replacing any existing record for the same id and keeping
// the digest index current.  The record version is set to RecordVersion.
func (r *Registry) Put(rec *Record) error {
	if err := rec.Grid.Validate(); err != nil {
		return fmt.Errorf("can't register pixels %d: %w", rec.ID, err)
	}
	stored := *rec
	stored.Version = RecordVersion
	value, err := stored.MarshalMsg(nil)
	if err != nil {
		return err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		old, err := getRecord(txn, rec.ID)
		if err != nil {
			return err
		}
		if old != nil && len(old.Digest) != 0 && !bytes.Equal(old.Digest, stored.Digest) {
			if err := txn.Delete(digestKey(old.Digest, old.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set(recordKey(rec.ID), value); err != nil {
			return err
		}
		if len(stored.Digest) != 0 {
			return txn.Set(digestKey(stored.Digest, stored.ID), []byte{})
		}
		return nil
	})
	if err != nil {
		r.uncache(rec.ID)
		return err
	}
	r.setCached(&stored)
	dvid.Debugf("Registered %s\n", &stored)
	return nil
}

// Get returns the record for id or ErrNotFound.  The returned record must not
// be modified.
func (r *Registry) Get(id uint64) (*Record, error) {
	if rec, found := r.cached(id); found {
		return rec, nil
	}
	var rec *Record
	err := r.db.View(func(txn *badger.Txn) (err error) {
		rec, err = getRecord(txn, id)
		return
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("pixels %d: %w", id, ErrNotFound)
	}
	r.setCached(rec)
	return rec, nil
}

// Delete removes the record for id and its digest index entry.  Deleting an
// unregistered id is not an error.
func (r *Registry) Delete(id uint64) error {
	r.uncache(id)
	return r.db.Update(func(txn *badger.Txn) error {
		old, err := getRecord(txn, id)
		if err != nil || old == nil {
			return err
		}
		if len(old.Digest) != 0 {
			if err := txn.Delete(digestKey(old.Digest, id)); err != nil {
				return err
			}
		}
		return txn.Delete(recordKey(id))
	})
}

// IDs returns every registered id in ascending order.
func (r *Registry) IDs() ([]uint64, error) {
	var ids []uint64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			ids = append(ids, binary.BigEndian.Uint64(k[len(recordPrefix):]))
		}
		return nil
	})
	return ids, err
}

// FindByDigest returns the ids of all pixel sets with the given digest in
// ascending order.
func (r *Registry) FindByDigest(digest []byte) ([]uint64, error) {
	if len(digest) == 0 {
		return nil, fmt.Errorf("empty digest")
	}
	prefix := append(append([]byte{}, digestPrefix...), digest...)
	var ids []uint64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			if len(k) != len(prefix)+8 {
				continue
			}
			ids = append(ids, binary.BigEndian.Uint64(k[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// DuplicateSet is a group of pixel sets with identical content.
type DuplicateSet struct {
	Digest []byte
	IDs    []uint64
}

func (d DuplicateSet) String() string {
	return fmt.Sprintf("%s: %v", hex.EncodeToString(d.Digest), d.IDs)
}

// Duplicates returns every digest shared by more than one pixel set, ordered
// by digest.
func (r *Registry) Duplicates() ([]DuplicateSet, error) {
	byDigest := make(map[string][]uint64)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = digestPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			if len(k) < len(digestPrefix)+8 {
				continue
			}
			split := len(k) - 8
			digest := string(k[len(digestPrefix):split])
			byDigest[digest] = append(byDigest[digest], binary.BigEndian.Uint64(k[split:]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var dups []DuplicateSet
	for digest, ids := range byDigest {
		if len(ids) > 1 {
			dups = append(dups, DuplicateSet{Digest: []byte(digest), IDs: ids})
		}
	}
	sort.Slice(dups, func(i, j int) bool {
		return bytes.Compare(dups[i].Digest, dups[j].Digest) < 0
	})
	return dups, nil
}
