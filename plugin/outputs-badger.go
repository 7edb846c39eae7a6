package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Mt "github.com/maroda/ritornello/types"
)

type BadgerJournal struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Mt.Event
}

func NewBadgerJournal(path string, batchSize int) (*BadgerJournal, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerJournal failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerJournal opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerJournal{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Mt.Event, 0, batchSize),
	}, nil
}

// WriteEvent queues up a batch of events,
// when batchsize is reached, it calls Flush()
// which calls WriteBatch() with the new batch
func (bj *BadgerJournal) WriteEvent(ev *Mt.Event) error {
	bj.MU.Lock()
	defer bj.MU.Unlock()

	bj.Buffer = append(bj.Buffer, ev)
	if len(bj.Buffer) >= bj.BatchSize {
		return bj.flushLocked() // private Flush that does not lock
	}
	return nil
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (bj *BadgerJournal) WriteBatch(evs []*Mt.Event) error {
	wb := bj.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, ev := range evs {
		k := EventKey(ev)
		v := EventEncode(ev)
		if err := wb.Set(k, v); err != nil {
			slog.Error("BadgerJournal failed to set key in batch",
				slog.Any("error", err),
				slog.Time("eventTime", ev.Timestamp),
				slog.String("source", ev.SourceID))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerJournal failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (bj *BadgerJournal) Flush() error {
	bj.MU.Lock()
	defer bj.MU.Unlock()

	if len(bj.Buffer) == 0 {
		return nil
	}

	return bj.flushLocked()
}

// flushLocked mimics Flush without locking, called by WriteEvent
func (bj *BadgerJournal) flushLocked() error {
	err := bj.WriteBatch(bj.Buffer) // Delegate to WriteBatch
	bj.Buffer = bj.Buffer[:0]       // Clear but keep capacity
	return err
}

// Close returns a Flush error but still attempts to close
func (bj *BadgerJournal) Close() error {
	slog.Info("BadgerJournal closing, flushing buffer",
		slog.Int("bufferSize", len(bj.Buffer)))
	flushErr := bj.Flush()
	closeErr := bj.DB.Close()

	if flushErr != nil {
		slog.Error("BadgerJournal failed to flush on close", slog.Any("error", flushErr))
		return fmt.Errorf("flush failed, close may have failed: %v", flushErr)
	}

	if closeErr != nil {
		slog.Error("BadgerJournal failed to close database", slog.Any("error", closeErr))
		return fmt.Errorf("close failed: %v", closeErr)
	}

	slog.Info("BadgerJournal closed successfully")
	return nil
}

func (bj *BadgerJournal) Type() string { return "BadgerDB" }

// EventKey creates a composite key
// timestamp + first eight letters of the source ID
func EventKey(ev *Mt.Event) []byte {
	key := make([]byte, 8+8)

	// Using positive BigEndian integer to convert timestamp
	// so keys can be sorted chronologically by BadgerDB
	binary.BigEndian.PutUint64(key[0:8], uint64(ev.Timestamp.UnixNano()))

	// Keep source name at eight chars
	sBytes := []byte(ev.SourceID)
	n := len(sBytes)
	if n > 8 {
		n = 8
	}
	copy(key[8:8+n], sBytes[:n])

	return key
}

// EventEncode serializes the event struct for data storage
func EventEncode(ev *Mt.Event) []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	enc.Encode(ev)
	return buf.Bytes()
}

// EventDecode deserializes the event data
func EventDecode(data []byte) (*Mt.Event, error) {
	var ev Mt.Event
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	err := dec.Decode(&ev)
	return &ev, err
}

// QueryRange retrieves events within a time range
func (bj *BadgerJournal) QueryRange(start, end time.Time) ([]*Mt.Event, error) {
	var events []*Mt.Event

	err := bj.Replay(func(ev *Mt.Event) error {
		if ev.Timestamp.After(start) && ev.Timestamp.Before(end) {
			events = append(events, ev)
		}
		return nil
	})

	slog.Info("BadgerJournal QueryRange successful", slog.Int("count", len(events)))

	return events, err
}

// Replay walks every stored event oldest-first. The keys sort
// chronologically, so iteration order is ingest order.
func (bj *BadgerJournal) Replay(fn func(ev *Mt.Event) error) error {
	// db.View() callback
	// BadgerDB provides a transaction in which to get item.Value()
	return bj.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			// item.Value() callback
			// BadgerDB passes bytes to the anon func
			err := item.Value(func(val []byte) error {
				ev, err := EventDecode(val)
				if err != nil {
					slog.Error("BadgerJournal failed to decode event", slog.Any("error", err))
					return fmt.Errorf("event decode error: %w", err)
				}
				return fn(ev)
			})
			if err != nil {
				slog.Error("BadgerJournal callback failure", slog.Any("error", err))
				return fmt.Errorf("item data error: %w", err)
			}
		}
		return nil
	})
}
