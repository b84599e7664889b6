package badger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// VectorStore implements storage.VectorStore on a BadgerDB backend.
// Several vector stores can share one backend; each is namespaced by name
// and forms an independent retrieval branch.
type VectorStore struct {
	backend *Backend
	name    string
	seq     *badger.Sequence
	logger  *slog.Logger
	dim     int // established embedding dimensionality, 0 until first accept
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore opens the named vector store on the backend.
// The store's embedding dimensionality survives restarts: it is read back
// from the backend if records were accepted in a previous run.
func NewVectorStore(backend *Backend, name string) (storage.VectorStore, error) {
	seq, err := backend.GetSequence(vectorSeqName(name))
	if err != nil {
		return nil, err
	}

	s := &VectorStore{
		backend: backend,
		name:    name,
		seq:     seq,
		logger:  slog.Default().With("component", "vectorstore", "store", name),
	}

	if err := s.loadDimension(); err != nil {
		seq.Release()
		return nil, err
	}

	return s, nil
}

// Close releases the insertion-order sequence.
func (s *VectorStore) Close() error {
	return s.seq.Release()
}

// Append extends the store with the given documents in insertion order.
// Records failing per-record validation (missing or non-finite embedding,
// dimensionality mismatch) are logged and skipped; the rest of the batch is
// appended as one atomic unit. No identifier-collision check is performed.
func (s *VectorStore) Append(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	accepted := make([]*core.Document, 0, len(docs))
	// The established dimensionality is tracked locally until the
	// transaction commits: a failed first append must not leave s.dim set
	// while the persisted dim key was discarded with the transaction.
	dim := s.dim
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := core.ValidateDocument(doc); err != nil {
				s.logger.Warn("rejecting record", "err", err)
				continue
			}
			if err := core.ValidateVector(doc.Vector); err != nil {
				s.logger.Warn("rejecting record", "id", doc.Id, "err", err)
				continue
			}
			if dim == 0 {
				if err := s.storeDimension(tx, len(doc.Vector)); err != nil {
					return err
				}
				dim = len(doc.Vector)
			} else if len(doc.Vector) != dim {
				s.logger.Warn("rejecting record", "id", doc.Id,
					"err", core.ErrDimensionMismatch, "want", dim, "got", len(doc.Vector))
				continue
			}

			seq, err := s.seq.Next()
			if err != nil {
				return err
			}

			value := storage.MarshalDocument(doc)
			if err := tx.Set(makeVectorRecordKey(s.name, seq), value); err != nil {
				return err
			}
			// The id index points at the most recent record for an id;
			// earlier duplicates stay reachable through Scan.
			if err := tx.Set(makeVectorIDKey(s.name, doc.Id), marshalSeq(seq)); err != nil {
				return err
			}

			accepted = append(accepted, doc)
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	s.dim = dim
	return accepted, nil
}

// Get retrieves a stored document by identifier.
func (s *VectorStore) Get(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorIDKey(s.name, id))
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

		record, err := tx.Get(makeVectorRecordKey(s.name, seq))
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

// Scan streams every stored (index, id, embedding) triple in insertion order
// within one read transaction, so a search snapshot never mixes pre- and
// post-append state. Cancellation is honored between records.
func (s *VectorStore) Scan(ctx context.Context, fn storage.ScanFunc) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorRecordPrefix(s.name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		index := 0
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

			if err := fn(index, doc.Id, doc.Vector); err != nil {
				return err
			}
			index++
		}
		return nil
	}, false)
}

// Len returns the number of stored records.
func (s *VectorStore) Len(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorRecordPrefix(s.name)
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

// Dimension returns the store's established embedding dimensionality,
// or 0 if no record has been accepted yet.
func (s *VectorStore) Dimension(ctx context.Context) (int, error) {
	return s.dim, nil
}

// loadDimension reads the persisted dimensionality, if any.
func (s *VectorStore) loadDimension() error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorDimKey(s.name))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			seq, vErr := unmarshalSeq(val)
			if vErr != nil {
				return vErr
			}
			s.dim = int(seq)
			return nil
		})
	}, false)
}

// storeDimension writes the dim key within the append transaction that
// accepts the first record. The caller commits the value to s.dim only
// after the transaction has committed.
func (s *VectorStore) storeDimension(tx *badger.Txn, dim int) error {
	return tx.Set(makeVectorDimKey(s.name), marshalSeq(uint64(dim)))
}
