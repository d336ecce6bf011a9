// Package graphstore persists the citation graph and device records in BadgerDB.
package graphstore

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// Key prefixes. Edge keys are stored twice, once per direction, so a node's
// edges can be removed without scanning the whole graph.
const (
	prefixNode     byte = 'n'
	prefixOutgoing byte = 'o'
	prefixIncoming byte = 'i'
	prefixRecord   byte = 'r'
	separator      byte = 0x00
)

// Store implements ports.GraphStore on top of BadgerDB.
//
// Safe for concurrent use from multiple goroutines.
type Store struct {
	db *badger.DB
}

// Open opens or creates the graph database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory creates a graph database that is discarded on Close.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	opts = opts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(8 << 20).
		WithIndexCacheSize(4 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrGraphStoreFailed.Error()), "dir", opts.Dir)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
	}
	return nil
}

// Reset drops every node, edge and record.
func (s *Store) Reset() error {
	if err := s.db.DropAll(); err != nil {
		return zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
	}
	return nil
}

// LoadGraph reads every node and edge into a new graph.
func (s *Store) LoadGraph() (*domain.CitationGraph, error) {
	g := domain.NewCitationGraph()
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, []byte{prefixNode}, func(rest []byte) {
			g.AddNode(string(rest))
		}); err != nil {
			return err
		}
		return scanPrefix(txn, []byte{prefixOutgoing}, func(rest []byte) {
			citing, cited, ok := splitPair(rest)
			if ok {
				g.AddEdges(citing, cited)
			}
		})
	})
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
	}
	return g, nil
}

// SaveGraph replaces the persisted nodes and edges with those of g.
// Device records are left untouched. Only keys that differ from the stored
// graph are written, through a write batch that splits itself below the
// transaction size limit.
func (s *Store) SaveGraph(g *domain.CitationGraph) error {
	want := make(map[string]struct{})
	for _, id := range g.Nodes() {
		want[string(nodeKey(id))] = struct{}{}
	}
	for _, e := range g.Edges() {
		want[string(pairKey(prefixOutgoing, e.Citing, e.Cited))] = struct{}{}
		want[string(pairKey(prefixIncoming, e.Cited, e.Citing))] = struct{}{}
	}

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		for _, prefix := range []byte{prefixNode, prefixOutgoing, prefixIncoming} {
			if err := scanPrefix(txn, []byte{prefix}, func(rest []byte) {
				key := append([]byte{prefix}, rest...)
				if _, ok := want[string(key)]; ok {
					delete(want, string(key))
					return
				}
				stale = append(stale, key)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
	}
	if len(stale) == 0 && len(want) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
		}
	}
	for key := range want {
		if err := wb.Set([]byte(key), nil); err != nil {
			return zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
		}
	}
	if err := wb.Flush(); err != nil {
		return zerr.Wrap(err, domain.ErrGraphStoreFailed.Error())
	}
	return nil
}

// GetRecord returns the record for id, or nil when it is unknown.
func (s *Store) GetRecord(id string) (*domain.DeviceRecord, error) {
	var rec *domain.DeviceRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &domain.DeviceRecord{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrGraphStoreFailed.Error()), "id", id)
	}
	return rec, nil
}

// PutRecord stores rec under its identifier.
func (s *Store) PutRecord(rec *domain.DeviceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphStoreFailed.Error()), "id", rec.ID)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(nodeKey(rec.ID), nil); err != nil {
			return err
		}
		return txn.Set(recordKey(rec.ID), data)
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphStoreFailed.Error()), "id", rec.ID)
	}
	return nil
}

// DeleteRecord removes the record for id. The node and its edges remain.
func (s *Store) DeleteRecord(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(id))
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphStoreFailed.Error()), "id", id)
	}
	return nil
}

// DeleteNode removes the record, the node and every edge touching id.
func (s *Store) DeleteNode(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var outgoing, incoming []string
		if err := scanPrefix(txn, pairPrefix(prefixOutgoing, id), func(rest []byte) {
			outgoing = append(outgoing, string(rest))
		}); err != nil {
			return err
		}
		if err := scanPrefix(txn, pairPrefix(prefixIncoming, id), func(rest []byte) {
			incoming = append(incoming, string(rest))
		}); err != nil {
			return err
		}

		for _, cited := range outgoing {
			if err := deleteKeys(txn, pairKey(prefixOutgoing, id, cited), pairKey(prefixIncoming, cited, id)); err != nil {
				return err
			}
		}
		for _, citing := range incoming {
			if err := deleteKeys(txn, pairKey(prefixOutgoing, citing, id), pairKey(prefixIncoming, id, citing)); err != nil {
				return err
			}
		}
		return deleteKeys(txn, nodeKey(id), recordKey(id))
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphStoreFailed.Error()), "id", id)
	}
	return nil
}

func nodeKey(id string) []byte {
	return append([]byte{prefixNode}, id...)
}

func recordKey(id string) []byte {
	return append([]byte{prefixRecord}, id...)
}

// pairKey is prefix + from + 0x00 + to.
func pairKey(prefix byte, from, to string) []byte {
	key := make([]byte, 0, 1+len(from)+1+len(to))
	key = append(key, prefix)
	key = append(key, from...)
	key = append(key, separator)
	return append(key, to...)
}

func pairPrefix(prefix byte, from string) []byte {
	key := make([]byte, 0, 1+len(from)+1)
	key = append(key, prefix)
	key = append(key, from...)
	return append(key, separator)
}

func splitPair(rest []byte) (from, to string, ok bool) {
	for i, b := range rest {
		if b == separator {
			return string(rest[:i]), string(rest[i+1:]), true
		}
	}
	return "", "", false
}

// scanPrefix calls fn with the remainder of every key under prefix.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(rest []byte)) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		fn(it.Item().KeyCopy(nil)[len(prefix):])
	}
	return nil
}

func deleteKeys(txn *badger.Txn, keys ...[]byte) error {
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
