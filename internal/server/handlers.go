package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/controller"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/view"
)

const (
	sessionCookieName = "billed_session"

	// maxFormSize bounds multipart uploads; phone photos are rarely above a few MB
	maxFormSize = int64(50 << 20)
)

// userHandler is an HTTP handler that needs the signed-in user
type userHandler func(w http.ResponseWriter, r *http.Request, user session.User)

// currentUser returns the user of the session cookie, if valid
func (s *Server) currentUser(r *http.Request) (session.User, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return session.User{}, false
	}
	user, err := s.sessions.Parse(cookie.Value)
	if err != nil {
		slog.Debug("Rejected session cookie", "error", err)
		return session.User{}, false
	}
	return user, true
}

// requireUser redirects to the login page when there is no valid session
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(r)
		if !ok {
			http.Redirect(w, r, route.URL(route.PathLogin), http.StatusSeeOther)
			return
		}
		next(w, r, user)
	}
}

// requireRole only lets users of the given type through
func (s *Server) requireRole(userType session.UserType, next userHandler) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, user session.User) {
		if user.Type != userType {
			slog.Warn("Forbidden view", "email", user.Email, "type", user.Type, "path", r.URL.Path)
			renderError(w, user, http.StatusForbidden)
			return
		}
		next(w, r, user)
	})
}

func (s *Server) requireEmployee(next userHandler) http.HandlerFunc {
	return s.requireRole(session.Employee, next)
}

func (s *Server) requireAdmin(next userHandler) http.HandlerFunc {
	return s.requireRole(session.Admin, next)
}

// renderError writes the error page for an HTTP status
func renderError(w http.ResponseWriter, user session.User, code int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	page := view.ErrorPage{
		Layout:  view.Layout{User: user},
		Message: (&bill.RemoteError{StatusCode: code}).Error(),
	}
	if err := view.Error(w, page); err != nil {
		slog.Error("Error rendering page", "error", err)
	}
}

// renderPage writes a rendered page with the given status
func renderPage(w http.ResponseWriter, code int, render func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := render(w); err != nil {
		slog.Error("Error rendering page", "error", err)
	}
}

// followNavigation redirects to the location a controller navigated to.
// It reports whether a redirect was written.
func followNavigation(w http.ResponseWriter, r *http.Request, history *route.History) bool {
	if !history.Navigated() {
		return false
	}
	http.Redirect(w, r, route.URL(history.Location().Path), http.StatusSeeOther)
	return true
}

// handleStaticCSS serves the stylesheet
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(view.Stylesheet)
}

// handleLoginPage shows the sign-in forms, or sends signed-in users home
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if user, ok := s.currentUser(r); ok {
		http.Redirect(w, r, route.URL(user.Home()), http.StatusSeeOther)
		return
	}
	renderPage(w, http.StatusOK, func(out io.Writer) error {
		return view.Login(out, view.LoginPage{})
	})
}

// handleLogin issues the session cookie
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	user := session.User{
		Type:  session.UserType(r.FormValue("type")),
		Email: strings.TrimSpace(r.FormValue("email")),
	}
	if user.Type != session.Employee && user.Type != session.Admin {
		user.Type = session.Employee
	}
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		renderPage(w, http.StatusBadRequest, func(out io.Writer) error {
			return view.Login(out, view.LoginPage{Error: "Veuillez saisir un email valide"})
		})
		return
	}

	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		slog.Error("Error issuing session", "email", user.Email, "error", err)
		renderError(w, session.User{}, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("User signed in", "email", user.Email, "type", user.Type)
	http.Redirect(w, r, route.URL(user.Home()), http.StatusSeeOther)
}

// handleLogout clears the session cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, route.URL(route.PathLogin), http.StatusSeeOther)
}

// handleBills shows the employee's bills
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request, user session.User) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.FetchTimeout)
	defer cancel()

	list := controller.NewBillList(s.store, user, route.NewHistory(route.PathBills))
	page := list.Page(ctx)
	if page.Loading {
		// Ask the browser to try again while the store catches up
		w.Header().Set("Refresh", "2")
	}
	renderPage(w, http.StatusOK, func(out io.Writer) error {
		return view.Bills(out, page)
	})
}

// handleReceiptPreview shows the bills with one receipt open in a dialog
func (s *Server) handleReceiptPreview(w http.ResponseWriter, r *http.Request, user session.User) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.FetchTimeout)
	defer cancel()

	list := controller.NewBillList(s.store, user, route.NewHistory(route.PathBills))
	page, err := list.PreviewReceipt(ctx, r.PathValue("id"))
	if errors.Is(err, bill.ErrNotFound) {
		renderError(w, user, http.StatusNotFound)
		return
	}
	renderPage(w, http.StatusOK, func(out io.Writer) error {
		return view.Bills(out, page)
	})
}

// newBillForm rebuilds the form controller from a request
func (s *Server) newBillForm(r *http.Request, user session.User, history *route.History) *controller.BillForm {
	form := controller.NewBillForm(s.store, user, history, s.opts.Scanner)
	if err := form.Restore(r.Context(), r.FormValue("receipt-key"), formValues(r)); err != nil {
		slog.Warn("Receipt not restored", "email", user.Email, "key", r.FormValue("receipt-key"), "error", err)
	}
	return form
}

// formValues reads the typed values of the new bill form
func formValues(r *http.Request) view.NewBillForm {
	return view.NewBillForm{
		Type:       r.FormValue("expense-type"),
		Name:       r.FormValue("expense-name"),
		Date:       r.FormValue("datepicker"),
		Amount:     r.FormValue("amount"),
		VAT:        r.FormValue("vat"),
		Pct:        r.FormValue("pct"),
		Commentary: r.FormValue("commentary"),
	}
}

// handleNewBillPage shows the empty bill creation form
func (s *Server) handleNewBillPage(w http.ResponseWriter, r *http.Request, user session.User) {
	form := controller.NewBillForm(s.store, user, route.NewHistory(route.PathNewBill), s.opts.Scanner)
	renderPage(w, http.StatusOK, func(out io.Writer) error {
		return view.NewBill(out, form.Page())
	})
}

// attachFile passes the uploaded file, if any, to the form.
// It reports whether a file was present.
func attachFile(r *http.Request, form *controller.BillForm) (bool, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	if header.Filename == "" {
		return false, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return true, err
	}
	_, err = form.ChangeFile(r.Context(), header.Filename, data)
	return true, err
}

// parseForm parses a multipart or urlencoded form body
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormSize)
	}
	return r.ParseForm()
}

// handleAttachFile attaches a receipt and shows the form again
func (s *Server) handleAttachFile(w http.ResponseWriter, r *http.Request, user session.User) {
	if err := parseForm(w, r); err != nil {
		slog.Error("Error parsing form", "error", err)
		renderError(w, user, http.StatusBadRequest)
		return
	}

	form := s.newBillForm(r, user, route.NewHistory(route.PathNewBill))
	status := http.StatusOK
	if _, err := attachFile(r, form); err != nil {
		slog.Info("Receipt not attached", "email", user.Email, "error", err)
		status = http.StatusUnprocessableEntity
	}
	renderPage(w, status, func(out io.Writer) error {
		return view.NewBill(out, form.Page())
	})
}

// handleSubmitBill creates the bill and goes back to the list
func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request, user session.User) {
	if err := parseForm(w, r); err != nil {
		slog.Error("Error parsing form", "error", err)
		renderError(w, user, http.StatusBadRequest)
		return
	}

	history := route.NewHistory(route.PathNewBill)
	form := s.newBillForm(r, user, history)

	if _, err := attachFile(r, form); err != nil {
		slog.Info("Receipt not attached", "email", user.Email, "error", err)
		renderPage(w, http.StatusUnprocessableEntity, func(out io.Writer) error {
			return view.NewBill(out, form.Page())
		})
		return
	}

	if err := form.Submit(r.Context(), formValues(r)); err != nil {
		slog.Info("Bill not submitted", "email", user.Email, "error", err)
		renderPage(w, http.StatusUnprocessableEntity, func(out io.Writer) error {
			return view.NewBill(out, form.Page())
		})
		return
	}

	slog.Info("Bill submitted", "email", user.Email, "receipt", form.Receipt().Key)
	followNavigation(w, r, history)
}

// handleDashboard shows the administrator landing page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user session.User) {
	renderPage(w, http.StatusOK, func(out io.Writer) error {
		return view.Dashboard(out, view.DashboardPage{Layout: view.Layout{User: user, Active: route.PathDashboard}})
	})
}

// handleReceiptFile serves an uploaded receipt image
func (s *Server) handleReceiptFile(w http.ResponseWriter, r *http.Request) {
	if s.opts.Files == nil {
		http.NotFound(w, r)
		return
	}

	data, contentType, err := s.opts.Files.ReceiptFile(r.Context(), r.PathValue("key"))
	if errors.Is(err, bill.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("Error reading receipt file", "key", r.PathValue("key"), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(data)
}
