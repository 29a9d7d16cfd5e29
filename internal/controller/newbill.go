package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/scanning"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/view"
)

var (
	// ErrNoFile is returned when a bill is submitted without an accepted receipt
	ErrNoFile = errors.New("no receipt attached")

	// ErrAlreadySubmitted is returned when a form is submitted a second time
	ErrAlreadySubmitted = errors.New("bill already submitted")
)

// FormState is the position of a BillForm in its lifecycle
type FormState int

const (
	StateEmpty FormState = iota
	StateFileAttached
	StateFileRejected
	StateSubmitted
)

func (s FormState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFileAttached:
		return "file attached"
	case StateFileRejected:
		return "file rejected"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// BillForm drives the bill creation form
type BillForm struct {
	store     bill.Store
	user      session.User
	navigator route.Navigator
	scanner   scanning.Scanner

	state    FormState
	receipt  bill.Receipt
	rejected bool
	form     view.NewBillForm
	err      string
}

// NewBillForm creates an empty BillForm for user. scanner may be nil.
func NewBillForm(store bill.Store, user session.User, navigator route.Navigator, scanner scanning.Scanner) *BillForm {
	return &BillForm{
		store:     store,
		user:      user,
		navigator: navigator,
		scanner:   scanner,
	}
}

// Restore puts back the values typed so far and the receipt attached by an
// earlier request. The receipt is read from the store; keys the user did not
// upload leave the form without a file.
func (c *BillForm) Restore(ctx context.Context, key string, form view.NewBillForm) error {
	c.form = form
	if key == "" {
		return nil
	}

	receipt, err := c.store.Receipt(ctx, c.user.Email, key)
	if err != nil {
		if !errors.Is(err, bill.ErrNotFound) {
			c.err = errorMessage(err)
		}
		return fmt.Errorf("restoring receipt: %w", err)
	}
	c.receipt = receipt
	c.state = StateFileAttached
	return nil
}

// State returns the current state of the form
func (c *BillForm) State() FormState {
	return c.state
}

// Receipt returns the attached receipt, if any
func (c *BillForm) Receipt() bill.Receipt {
	return c.receipt
}

// ChangeFile handles a newly selected receipt file. Files that are not
// jpg, jpeg or png are rejected with bill.ErrInvalidFormat and nothing is
// stored; a receipt attached before stays attached.
func (c *BillForm) ChangeFile(ctx context.Context, filename string, data []byte) (bill.Receipt, error) {
	if c.state == StateSubmitted {
		return bill.Receipt{}, ErrAlreadySubmitted
	}

	if err := bill.ValidateReceiptFilename(filename); err != nil {
		c.reject()
		return bill.Receipt{}, err
	}

	receipt, err := c.store.UploadReceipt(ctx, c.user.Email, filename, data)
	if err != nil {
		if errors.Is(err, bill.ErrInvalidFormat) {
			c.reject()
		}
		c.err = errorMessage(err)
		return bill.Receipt{}, fmt.Errorf("uploading receipt: %w", err)
	}

	c.receipt = receipt
	c.state = StateFileAttached
	c.rejected = false
	c.err = ""
	c.prefill(ctx, filename, data)
	return receipt, nil
}

// reject flags the last selected file as refused
func (c *BillForm) reject() {
	c.rejected = true
	if c.state != StateFileAttached {
		c.state = StateFileRejected
	}
}

// prefill copies what the scanner read from the receipt into empty form fields
func (c *BillForm) prefill(ctx context.Context, filename string, data []byte) {
	if c.scanner == nil {
		return
	}

	scanned, err := c.scanner.ScanReceipt(ctx, data, bill.ContentTypeFor(filename))
	if err != nil {
		slog.Warn("Failed to scan receipt", "filename", filename, "error", err)
		return
	}

	if c.form.Name == "" {
		c.form.Name = scanned.Name
	}
	if c.form.Type == "" && slices.Contains(bill.ExpenseTypes, scanned.Type) {
		c.form.Type = scanned.Type
	}
	if c.form.Date == "" {
		c.form.Date = scanned.Date
	}
	if c.form.Amount == "" && scanned.Amount > 0 {
		c.form.Amount = decimal.NewFromFloat(scanned.Amount).StringFixed(2)
	}
	if c.form.VAT == "" && scanned.VAT > 0 {
		c.form.VAT = decimal.NewFromFloat(scanned.VAT).StringFixed(2)
	}
}

// Submit creates the bill from the form values and the attached receipt,
// then moves back to the bills list.
func (c *BillForm) Submit(ctx context.Context, form view.NewBillForm) error {
	c.form = form

	switch c.state {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateFileAttached:
	default:
		c.err = "Veuillez joindre un justificatif"
		return ErrNoFile
	}

	b, err := c.build(form)
	if err != nil {
		c.err = err.Error()
		return err
	}

	if _, err := c.store.CreateBill(ctx, b); err != nil {
		slog.Error("Error creating bill", "email", c.user.Email, "error", err)
		c.err = errorMessage(err)
		return fmt.Errorf("creating bill: %w", err)
	}

	c.state = StateSubmitted
	c.err = ""
	c.navigator.Navigate(route.PathBills)
	return nil
}

func (c *BillForm) build(form view.NewBillForm) (bill.Bill, error) {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return bill.Bill{}, fmt.Errorf("%w: name is required", bill.ErrInvalidBill)
	}

	date, err := bill.ParseDate(strings.TrimSpace(form.Date))
	if err != nil {
		return bill.Bill{}, fmt.Errorf("%w: %v", bill.ErrInvalidBill, err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(form.Amount))
	if err != nil {
		return bill.Bill{}, fmt.Errorf("%w: invalid amount %q", bill.ErrInvalidBill, form.Amount)
	}

	vat := decimal.Zero
	if s := strings.TrimSpace(form.VAT); s != "" {
		if vat, err = decimal.NewFromString(s); err != nil {
			return bill.Bill{}, fmt.Errorf("%w: invalid VAT %q", bill.ErrInvalidBill, form.VAT)
		}
	}

	pct := bill.DefaultPct
	if s := strings.TrimSpace(form.Pct); s != "" {
		if pct, err = strconv.Atoi(s); err != nil {
			return bill.Bill{}, fmt.Errorf("%w: invalid percentage %q", bill.ErrInvalidBill, form.Pct)
		}
	}

	return bill.Bill{
		ID:         c.receipt.Key,
		Status:     bill.StatusPending,
		Email:      c.user.Email,
		Type:       form.Type,
		Name:       name,
		Amount:     amount,
		Date:       date,
		VAT:        vat,
		Pct:        pct,
		Commentary: form.Commentary,
		FileURL:    c.receipt.URL,
		FileName:   c.receipt.FileName,
	}, nil
}

// Page returns the form as it should currently be displayed
func (c *BillForm) Page() view.NewBillPage {
	return view.NewBillPage{
		Layout:       view.Layout{User: c.user, Active: route.PathNewBill},
		Form:         c.form,
		Receipt:      c.receipt,
		FileRejected: c.rejected,
		Error:        c.err,
	}
}
