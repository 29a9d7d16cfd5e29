// Package history prints an employee's bills outside the web app.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/zombor/billed/internal/bill"
)

// Lister is the read side of a bill.Store
type Lister interface {
	ListBills(ctx context.Context, email string) ([]bill.Bill, error)
}

// Summary totals a list of bills
type Summary struct {
	Count    int                 `json:"count"`
	Total    decimal.Decimal     `json:"total"`
	ByStatus map[bill.Status]int `json:"byStatus"`
}

// Report is what the history command prints
type Report struct {
	Email   string      `json:"email,omitempty"`
	Bills   []bill.Bill `json:"bills"`
	Summary Summary     `json:"summary"`
}

// Load fetches the bills of email, most recent first. An empty email loads every bill.
func Load(ctx context.Context, l Lister, email string) (Report, error) {
	bills, err := l.ListBills(ctx, email)
	if err != nil {
		return Report{}, fmt.Errorf("loading bills: %w", err)
	}
	bills = bill.SortByDate(bills)
	return Report{Email: email, Bills: bills, Summary: Summarize(bills)}, nil
}

// Summarize counts bills per status and adds up their amounts
func Summarize(bills []bill.Bill) Summary {
	s := Summary{Total: decimal.Zero, ByStatus: make(map[bill.Status]int)}
	for _, b := range bills {
		s.Count++
		s.Total = s.Total.Add(b.Amount)
		s.ByStatus[b.Status]++
	}
	return s
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	acceptedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	refusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var columns = []struct {
	title string
	width int
}{
	{"Date", 12},
	{"Type", 24},
	{"Nom", 28},
	{"Montant", 12},
	{"Statut", 12},
}

func statusStyle(s bill.Status) lipgloss.Style {
	switch s {
	case bill.StatusAccepted:
		return acceptedStyle
	case bill.StatusRefused:
		return refusedStyle
	default:
		return pendingStyle
	}
}

func cell(style lipgloss.Style, col int, text string) string {
	width := columns[col].width
	if len([]rune(text)) > width-1 {
		text = string([]rune(text)[:width-2]) + "…"
	}
	return style.Width(width).Render(text)
}

// WriteText prints the report as a table
func WriteText(w io.Writer, r Report) error {
	if len(r.Bills) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("Aucune note de frais"))
		return err
	}

	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = cell(headerStyle, i, c.title)
	}
	if _, err := fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cells...)); err != nil {
		return err
	}

	for _, b := range r.Bills {
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			cell(lipgloss.NewStyle(), 0, b.Date.String()),
			cell(lipgloss.NewStyle(), 1, b.Type),
			cell(lipgloss.NewStyle(), 2, b.Name),
			cell(lipgloss.NewStyle(), 3, b.Amount.StringFixed(2)+" €"),
			cell(statusStyle(b.Status), 4, b.Status.Label()),
		)
		if _, err := fmt.Fprintln(w, row); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d notes, total %s €", r.Summary.Count, r.Summary.Total.StringFixed(2))))
	return err
}

// WriteJSON prints the report as indented JSON
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
