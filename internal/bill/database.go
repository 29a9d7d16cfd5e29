package bill

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	billBucketName    = "bills"
	receiptBucketName = "receipts"
)

// DB defines the interface for database operations
type DB interface {
	// InsertBill stores a new bill. It never replaces a bill with the same ID.
	InsertBill(bill *Bill) error

	// ListBills returns all bills
	ListBills() ([]*Bill, error)

	// SaveReceipt saves an uploaded receipt's metadata
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves receipt metadata by key
	GetReceipt(key string) (*Receipt, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{billBucketName, receiptBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucketName, key string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", bucketName, err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

func (b *BoltDB) get(bucketName, key string, v any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s %s: %w", bucketName, key, ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

// InsertBill saves a new bill, failing with ErrInvalidBill when its ID is taken
func (b *BoltDB) InsertBill(bill *Bill) error {
	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("marshaling bill: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(billBucketName))
		if bucket.Get([]byte(bill.ID)) != nil {
			return fmt.Errorf("%w: bill %s already exists", ErrInvalidBill, bill.ID)
		}
		return bucket.Put([]byte(bill.ID), data)
	})
}

// ListBills returns all bills in key order
func (b *BoltDB) ListBills() ([]*Bill, error) {
	bills := make([]*Bill, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(billBucketName)).ForEach(func(k, v []byte) error {
			var bill Bill
			if err := json.Unmarshal(v, &bill); err != nil {
				return fmt.Errorf("unmarshaling bill %s: %w", k, err)
			}
			bills = append(bills, &bill)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// SaveReceipt saves receipt metadata to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.put(receiptBucketName, receipt.Key, receipt)
}

// GetReceipt retrieves receipt metadata by key
func (b *BoltDB) GetReceipt(key string) (*Receipt, error) {
	var receipt Receipt
	if err := b.get(receiptBucketName, key, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
