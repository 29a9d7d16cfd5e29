// Package controller holds the behaviour behind the employee views: it talks
// to the bill store, builds the pages and decides where to navigate next.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/view"
)

// receiptPreviewWidth is the width in pixels of the receipt image in the preview dialog
const receiptPreviewWidth = 500

// BillList drives the list of an employee's bills
type BillList struct {
	store     bill.Store
	user      session.User
	navigator route.Navigator
}

// NewBillList creates a BillList for user
func NewBillList(store bill.Store, user session.User, navigator route.Navigator) *BillList {
	return &BillList{
		store:     store,
		user:      user,
		navigator: navigator,
	}
}

func (c *BillList) layout() view.Layout {
	return view.Layout{User: c.user, Active: route.PathBills}
}

// Loading returns the page shown while bills are being fetched
func (c *BillList) Loading() view.BillsPage {
	return view.BillsPage{Layout: c.layout(), Loading: true}
}

// Page fetches the user's bills and returns them sorted by date, most recent
// first. A failed fetch returns the error state carrying the failure message;
// a fetch still running when ctx expires returns the loading state.
func (c *BillList) Page(ctx context.Context) view.BillsPage {
	bills, err := c.store.ListBills(ctx, c.user.Email)
	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Bills still loading", "email", c.user.Email)
		return c.Loading()
	}
	if err != nil {
		slog.Error("Error listing bills", "email", c.user.Email, "error", err)
		return view.BillsPage{Layout: c.layout(), Error: errorMessage(err)}
	}
	return view.BillsPage{Layout: c.layout(), Bills: bill.SortByDate(bills)}
}

// PreviewReceipt returns the bills page with the receipt of billID open in a dialog
func (c *BillList) PreviewReceipt(ctx context.Context, billID string) (view.BillsPage, error) {
	page := c.Page(ctx)
	if page.Error != "" || page.Loading {
		return page, nil
	}

	for _, b := range page.Bills {
		if b.ID == billID {
			page.Modal = &view.ReceiptModal{
				BillID:   b.ID,
				FileURL:  b.FileURL,
				FileName: b.FileName,
				Width:    receiptPreviewWidth,
			}
			return page, nil
		}
	}
	return page, fmt.Errorf("bill %s: %w", billID, bill.ErrNotFound)
}

// NewBill moves to the bill creation view
func (c *BillList) NewBill() {
	c.navigator.Navigate(route.PathNewBill)
}

// errorMessage is the text shown to users for a store failure. Remote
// failures keep their own message; anything else is reported as a server error.
func errorMessage(err error) string {
	var remoteErr *bill.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Error()
	}
	return (&bill.RemoteError{StatusCode: http.StatusInternalServerError}).Error()
}
