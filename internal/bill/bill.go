package bill

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the review state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// Label returns the text shown to employees for a status
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refusé"
	default:
		return string(s)
	}
}

// DefaultPct is the percentage applied when the form leaves it empty
const DefaultPct = 20

// ExpenseTypes lists the categories offered by the new bill form
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// Bill is an employee expense-reimbursement record
type Bill struct {
	ID         string          `json:"id"`
	Status     Status          `json:"status"`
	Email      string          `json:"email"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"date"`
	VAT        decimal.Decimal `json:"vat"`
	Pct        int             `json:"pct"`
	Commentary string          `json:"commentary,omitempty"`
	FileURL    string          `json:"fileUrl"`
	FileName   string          `json:"fileName"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Receipt is an uploaded receipt file waiting to be attached to a bill
type Receipt struct {
	Key         string `json:"key"`
	URL         string `json:"fileUrl"`
	FileName    string `json:"fileName"`
	ContentType string `json:"content_type"`
	Email       string `json:"email,omitempty"`
}

// Date is a calendar date encoded as YYYY-MM-DD
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	dateLayout,
	"2006/01/02",
	"02/01/2006",
}

// ParseDate parses a calendar date in one of the recognized formats
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a date string in any recognized format
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
