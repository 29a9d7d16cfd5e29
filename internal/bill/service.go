package bill

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the data-access layer the views talk to
type Store interface {
	// ListBills returns the bills submitted by email
	ListBills(ctx context.Context, email string) ([]Bill, error)

	// UploadReceipt stores a receipt image for email and returns where it lives
	UploadReceipt(ctx context.Context, email, filename string, data []byte) (Receipt, error)

	// Receipt returns a receipt uploaded by email. Receipts of other
	// users are reported as ErrNotFound.
	Receipt(ctx context.Context, email, key string) (Receipt, error)

	// CreateBill persists a new bill and returns the stored version.
	// An existing bill is never replaced.
	CreateBill(ctx context.Context, bill Bill) (Bill, error)
}

// IDGenerator generates unique IDs for bills and receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// FilePathPrefix is the URL prefix under which receipt files are served
const FilePathPrefix = "/files/"

// Service is the local Store backed by a DB and a file Storage
type Service struct {
	db          DB
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

var _ Store = (*Service)(nil)

// NewService creates a new Service with UUID ids and the wall clock
func NewService(db DB, storage Storage) *Service {
	return NewServiceWithDeps(db, storage, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ListBills returns the bills belonging to email
func (s *Service) ListBills(ctx context.Context, email string) ([]Bill, error) {
	all, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}

	bills := make([]Bill, 0, len(all))
	for _, b := range all {
		if email == "" || strings.EqualFold(b.Email, email) {
			bills = append(bills, *b)
		}
	}
	return bills, nil
}

// UploadReceipt validates and stores a receipt image
func (s *Service) UploadReceipt(ctx context.Context, email, filename string, data []byte) (Receipt, error) {
	if err := ValidateReceiptFilename(filename); err != nil {
		return Receipt{}, err
	}

	key := s.idGenerator.Generate()

	stored, err := s.storage.Save(storedName(key, filename), data)
	if err != nil {
		return Receipt{}, fmt.Errorf("saving file: %w", err)
	}

	receipt := Receipt{
		Key:         key,
		URL:         FilePathPrefix + key,
		FileName:    filepath.Base(filename),
		ContentType: ContentTypeFor(filename),
		Email:       email,
	}
	if err := s.db.SaveReceipt(&receipt); err != nil {
		if delErr := s.storage.Delete(stored); delErr != nil {
			slog.Warn("Failed to clean up receipt file", "file", stored, "error", delErr)
		}
		return Receipt{}, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Debug("Receipt uploaded", "key", key, "email", email, "size", len(data))
	return receipt, nil
}

// Receipt returns the receipt stored under key when email uploaded it
func (s *Service) Receipt(ctx context.Context, email, key string) (Receipt, error) {
	receipt, err := s.db.GetReceipt(key)
	if err != nil {
		return Receipt{}, fmt.Errorf("getting receipt: %w", err)
	}
	if email == "" || !strings.EqualFold(receipt.Email, email) {
		return Receipt{}, fmt.Errorf("receipt %s of another user: %w", key, ErrNotFound)
	}
	return *receipt, nil
}

// CreateBill stores a new bill, defaulting its ID and status
func (s *Service) CreateBill(ctx context.Context, bill Bill) (Bill, error) {
	if bill.Email == "" {
		return Bill{}, fmt.Errorf("%w: email is required", ErrInvalidBill)
	}
	if bill.Name == "" {
		return Bill{}, fmt.Errorf("%w: name is required", ErrInvalidBill)
	}
	if bill.Date.IsZero() {
		return Bill{}, fmt.Errorf("%w: date is required", ErrInvalidBill)
	}

	now := s.timeSource.Now()
	if bill.ID == "" {
		bill.ID = s.idGenerator.Generate()
	}
	if bill.Status == "" {
		bill.Status = StatusPending
	}
	bill.CreatedAt = now
	bill.UpdatedAt = now

	if err := s.db.InsertBill(&bill); err != nil {
		return Bill{}, fmt.Errorf("saving bill to database: %w", err)
	}
	return bill, nil
}

// storedName is the storage name of a receipt file: its key plus the original extension
func storedName(key, filename string) string {
	return key + strings.ToLower(filepath.Ext(filename))
}

// ReceiptFile returns the data and content type of an uploaded receipt
func (s *Service) ReceiptFile(ctx context.Context, key string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(key)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(storedName(receipt.Key, receipt.FileName))
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}
