package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/billed/internal/bill"
)

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes an API error carrying the code of err
func writeJSONError(w http.ResponseWriter, err error, message string) {
	writeJSON(w, apiStatus(err), map[string]string{
		"error": message,
		"code":  bill.ErrorCode(err),
	})
}

// apiStatus maps a store error to an HTTP status
func apiStatus(err error) int {
	switch {
	case errors.Is(err, bill.ErrInvalidFormat), errors.Is(err, bill.ErrInvalidBill):
		return http.StatusBadRequest
	case errors.Is(err, bill.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// requireEmail writes a 400 when the email query parameter is missing
func requireEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "email is required",
		})
		return "", false
	}
	return email, true
}

// handleAPIListBills returns the bills of the email query parameter
func (s *Server) handleAPIListBills(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	bills, err := s.store.ListBills(r.Context(), email)
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		writeJSONError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleAPIGetReceipt returns a receipt uploaded by the email query parameter
func (s *Server) handleAPIGetReceipt(w http.ResponseWriter, r *http.Request) {
	email, ok := requireEmail(w, r)
	if !ok {
		return
	}

	receipt, err := s.store.Receipt(r.Context(), email, r.PathValue("key"))
	if err != nil {
		if errors.Is(err, bill.ErrNotFound) {
			writeJSONError(w, err, "Receipt not found")
			return
		}
		slog.Error("Error getting receipt", "key", r.PathValue("key"), "error", err)
		writeJSONError(w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleAPICreateBill stores a bill posted as JSON
func (s *Server) handleAPICreateBill(w http.ResponseWriter, r *http.Request) {
	var b bill.Bill
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&b); err != nil {
		slog.Info("Rejected bill body", "error", err)
		writeJSONError(w, bill.ErrInvalidBill, "Invalid bill")
		return
	}

	created, err := s.store.CreateBill(r.Context(), b)
	if err != nil {
		slog.Error("Error creating bill", "email", b.Email, "error", err)
		writeJSONError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleAPIUploadReceipt stores a receipt image sent as a multipart form
func (s *Server) handleAPIUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "File is too large. Maximum size is 50MB.",
		})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "No file was selected",
		})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Error reading file",
		})
		return
	}

	receipt, err := s.store.UploadReceipt(r.Context(), r.FormValue("email"), header.Filename, data)
	if err != nil {
		slog.Info("Receipt rejected", "filename", header.Filename, "error", err)
		writeJSONError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}
