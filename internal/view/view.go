// Package view renders the application's HTML pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/app.css
var Stylesheet []byte

var pages = map[string]*template.Template{}

func init() {
	layout := template.Must(template.ParseFS(templatesFS, "templates/layout.html"))
	for _, name := range []string{"login", "bills", "loading", "error", "newbill", "dashboard"} {
		pages[name] = template.Must(template.Must(layout.Clone()).ParseFS(templatesFS, "templates/"+name+".html"))
	}
}

func render(w io.Writer, name string, data any) error {
	if err := pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return nil
}

// Layout is shared by every page: the signed-in user and the highlighted view
type Layout struct {
	User   session.User
	Active route.Path
}

// Hash returns the fragment of the active view
func (l Layout) Hash() string {
	return route.Hash(l.Active)
}

// LoginPage is the sign-in form
type LoginPage struct {
	Layout
	Error string
}

// ReceiptModal is the dialog previewing a bill's receipt
type ReceiptModal struct {
	BillID   string
	FileURL  string
	FileName string
	Width    int
}

// BillsPage is the list of an employee's bills. Exactly one of Loading,
// Error or Bills is shown.
type BillsPage struct {
	Layout
	Loading bool
	Error   string
	Bills   []bill.Bill
	Modal   *ReceiptModal
}

// NewBillForm holds the values typed into the new bill form
type NewBillForm struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// NewBillPage is the bill creation form
type NewBillPage struct {
	Layout
	Form         NewBillForm
	Receipt      bill.Receipt
	FileRejected bool
	Error        string
}

// ExpenseTypes lists the options of the expense type select
func (NewBillPage) ExpenseTypes() []string {
	return bill.ExpenseTypes
}

// ErrorPage shows a failure message
type ErrorPage struct {
	Layout
	Message string
}

// DashboardPage is the administrator landing page
type DashboardPage struct {
	Layout
}

// Login renders the sign-in page
func Login(w io.Writer, p LoginPage) error {
	return render(w, "login", p)
}

// Bills renders the bills page, or its loading or error state
func Bills(w io.Writer, p BillsPage) error {
	switch {
	case p.Loading:
		return render(w, "loading", p)
	case p.Error != "":
		return Error(w, ErrorPage{Layout: p.Layout, Message: p.Error})
	default:
		return render(w, "bills", p)
	}
}

// NewBill renders the bill creation form
func NewBill(w io.Writer, p NewBillPage) error {
	return render(w, "newbill", p)
}

// Error renders an error page carrying the message verbatim
func Error(w io.Writer, p ErrorPage) error {
	return render(w, "error", p)
}

// Dashboard renders the administrator landing page
func Dashboard(w io.Writer, p DashboardPage) error {
	return render(w, "dashboard", p)
}
