package badger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// DocumentStore implements storage.DocumentStore on a BadgerDB backend.
// It is the identifier-keyed index used to hydrate search results and
// resolve chunk-to-parent references.
type DocumentStore struct {
	backend *Backend
	seq     *badger.Sequence
	logger  *slog.Logger
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore opens the document store on the backend.
func NewDocumentStore(backend *Backend) (storage.DocumentStore, error) {
	seq, err := backend.GetSequence(docSeqName)
	if err != nil {
		return nil, err
	}

	return &DocumentStore{
		backend: backend,
		seq:     seq,
		logger:  slog.Default().With("component", "docstore"),
	}, nil
}

// Close releases the insertion-order sequence.
func (s *DocumentStore) Close() error {
	return s.seq.Release()
}

// Put appends the given documents. Records failing validation are logged and
// skipped; the rest of the batch is appended as one atomic unit. Duplicate
// identifiers accumulate; the identifier index points at the most recent one.
func (s *DocumentStore) Put(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	accepted := make([]*core.Document, 0, len(docs))
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				s.logger.Warn("rejecting record", "err", err)
				continue
			}

			seq, err := s.seq.Next()
			if err != nil {
				return err
			}

			value := storage.MarshalDocument(doc)
			if err := tx.Set(makeDocRecordKey(seq), value); err != nil {
				return err
			}
			if err := tx.Set(makeDocIDKey(doc.Id), marshalSeq(seq)); err != nil {
				return err
			}

			accepted = append(accepted, doc)
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Get retrieves a document by identifier.
func (s *DocumentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocIDKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		var seq uint64
		if err := item.Value(func(val []byte) error {
			var vErr error
			seq, vErr = unmarshalSeq(val)
			return vErr
		}); err != nil {
			return err
		}

		record, err := tx.Get(makeDocRecordKey(seq))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return record.Value(func(val []byte) error {
			var uErr error
			result, uErr = storage.UnmarshalDocument(val)
			return uErr
		})
	}, false)
	return result, err
}

// Scan streams every stored record in insertion order within one read
// transaction. Cancellation is honored between records.
func (s *DocumentStore) Scan(ctx context.Context, fn func(doc *core.Document) error) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocRecordPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *core.Document
			if err := iter.Item().Value(func(val []byte) error {
				var uErr error
				doc, uErr = storage.UnmarshalDocument(val)
				return uErr
			}); err != nil {
				return err
			}

			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Len returns the number of stored records.
func (s *DocumentStore) Len(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocRecordPrefix()
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
