// Package route names the application's views and tracks navigation between them.
package route

import "sync"

// Path identifies a view. Paths are addressed as URL fragments on the client
// (#employee/bills) and as URL paths on the server (/employee/bills).
type Path string

const (
	PathLogin     Path = ""
	PathBills     Path = "employee/bills"
	PathNewBill   Path = "employee/bill/new"
	PathDashboard Path = "admin/dashboard"
)

// Hash returns the fragment form of a path
func Hash(p Path) string {
	return "#" + string(p)
}

// URL returns the server path serving a view
func URL(p Path) string {
	return "/" + string(p)
}

// Location is the current position in the application
type Location struct {
	Path Path
	Hash string
}

// Navigator moves the application to another view
type Navigator interface {
	Navigate(p Path)
}

// History is a Navigator that remembers every location visited
type History struct {
	mu      sync.Mutex
	entries []Location
}

// NewHistory creates a History positioned at start
func NewHistory(start Path) *History {
	return &History{entries: []Location{{Path: start, Hash: Hash(start)}}}
}

// Navigate records p as the current location
func (h *History) Navigate(p Path) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Location{Path: p, Hash: Hash(p)})
}

// Location returns the current location
func (h *History) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Len returns the number of locations recorded, including the start
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Navigated reports whether Navigate was called since the History was created
func (h *History) Navigated() bool {
	return h.Len() > 1
}
