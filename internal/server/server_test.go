package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
)

var _ = Describe("Server", func() {
	var (
		store       *memStore
		issuer      *session.Issuer
		opts        Options
		server      *Server
		ghttpServer *ghttp.Server
		client      *http.Client
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(store, issuer, opts, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
	}

	newRequest := func(method, path string, body *strings.Reader) *http.Request {
		var req *http.Request
		var err error
		if body == nil {
			req, err = http.NewRequest(method, ghttpServer.URL()+path, nil)
		} else {
			req, err = http.NewRequest(method, ghttpServer.URL()+path, body)
		}
		Expect(err).NotTo(HaveOccurred())
		return req
	}

	signIn := func(req *http.Request, user session.User) {
		token, _, err := issuer.Issue(user)
		Expect(err).NotTo(HaveOccurred())
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}

	employee := session.User{Type: session.Employee, Email: "employee@test.tld"}
	admin := session.User{Type: session.Admin, Email: "admin@test.tld"}

	do := func(req *http.Request) *http.Response {
		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		store = newMemStore()
		var err error
		issuer, err = session.NewIssuer("test-secret", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		opts = Options{Files: store}
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	Describe("static assets", func() {
		It("should serve the stylesheet", func() {
			resp := do(newRequest(http.MethodGet, "/static/app.css", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/css"))
			resp.Body.Close()
		})
	})

	Describe("login page", func() {
		It("should show both sign-in forms", func() {
			resp := do(newRequest(http.MethodGet, "/", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := readBody(resp)
			Expect(body).To(ContainSubstring(`data-testid="form-employee"`))
			Expect(body).To(ContainSubstring(`data-testid="form-admin"`))
		})

		It("should send a signed-in employee to the bills", func() {
			req := newRequest(http.MethodGet, "/", nil)
			signIn(req, employee)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/employee/bills"))
			resp.Body.Close()
		})

		It("should send a signed-in admin to the dashboard", func() {
			req := newRequest(http.MethodGet, "/", nil)
			signIn(req, admin)
			resp := do(req)
			Expect(resp.Header.Get("Location")).To(Equal("/admin/dashboard"))
			resp.Body.Close()
		})

		It("should ignore a forged cookie", func() {
			req := newRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "forged"})
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})

	Describe("POST /login", func() {
		login := func(values url.Values) *http.Response {
			req := newRequest(http.MethodPost, "/login", strings.NewReader(values.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return do(req)
		}

		It("should issue a session cookie and go to the bills", func() {
			resp := login(url.Values{"email": {"employee@test.tld"}, "type": {"Employee"}})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/employee/bills"))

			var cookie *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == sessionCookieName {
					cookie = c
				}
			}
			Expect(cookie).NotTo(BeNil())
			Expect(cookie.HttpOnly).To(BeTrue())
			user, err := issuer.Parse(cookie.Value)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(Equal(employee))
		})

		It("should send admins to the dashboard", func() {
			resp := login(url.Values{"email": {"admin@test.tld"}, "type": {"Admin"}})
			Expect(resp.Header.Get("Location")).To(Equal("/admin/dashboard"))
			resp.Body.Close()
		})

		It("should refuse an invalid email", func() {
			resp := login(url.Values{"email": {"nobody"}, "type": {"Employee"}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(readBody(resp)).To(ContainSubstring(`data-testid="login-error"`))
		})
	})

	Describe("POST /logout", func() {
		It("should clear the session cookie", func() {
			req := newRequest(http.MethodPost, "/logout", nil)
			signIn(req, employee)
			resp := do(req)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/"))
			Expect(resp.Cookies()).To(ContainElement(HaveField("MaxAge", BeNumerically("<", 0))))
		})
	})

	Describe("GET /employee/bills", func() {
		BeforeEach(func() {
			for _, b := range []struct{ id, date, email string }{
				{"b", "2003-03-03", employee.Email},
				{"d", "2001-01-01", employee.Email},
				{"a", "2004-04-04", employee.Email},
				{"x", "2010-10-10", "someone@else.tld"},
			} {
				date, err := bill.ParseDate(b.date)
				Expect(err).NotTo(HaveOccurred())
				store.bills = append(store.bills, bill.Bill{ID: b.id, Name: b.id, Date: date, Email: b.email, Status: bill.StatusPending, FileURL: "/files/" + b.id})
			}
		})

		It("should send visitors to the login page", func() {
			resp := do(newRequest(http.MethodGet, "/employee/bills", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/"))
			resp.Body.Close()
		})

		It("should forbid administrators", func() {
			req := newRequest(http.MethodGet, "/employee/bills", nil)
			signIn(req, admin)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			Expect(readBody(resp)).To(ContainSubstring("Erreur 403"))
		})

		When("an employee is signed in", func() {
			var body string

			JustBeforeEach(func() {
				req := newRequest(http.MethodGet, "/employee/bills", nil)
				signIn(req, employee)
				resp := do(req)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body = readBody(resp)
			})

			It("should list the employee's bills from latest to earliest", func() {
				a := strings.Index(body, "2004-04-04")
				b := strings.Index(body, "2003-03-03")
				d := strings.Index(body, "2001-01-01")
				Expect(a).To(BeNumerically(">", 0))
				Expect(a).To(BeNumerically("<", b))
				Expect(b).To(BeNumerically("<", d))
				Expect(body).NotTo(ContainSubstring("2010-10-10"))
			})

			It("should highlight the bills icon", func() {
				Expect(body).To(MatchRegexp(`data-testid="icon-window"\s+class="active-icon"`))
				Expect(body).NotTo(MatchRegexp(`data-testid="icon-mail"\s+class="active-icon"`))
			})

			It("should show an eye icon per bill", func() {
				Expect(strings.Count(body, `data-testid="icon-eye"`)).To(Equal(3))
			})

			When("the store answers 404", func() {
				BeforeEach(func() {
					store.listErr = &bill.RemoteError{StatusCode: http.StatusNotFound}
				})

				It("should show Erreur 404", func() {
					Expect(body).To(ContainSubstring(`data-testid="error-message">Erreur 404<`))
				})
			})

			When("the store answers 500", func() {
				BeforeEach(func() {
					store.listErr = &bill.RemoteError{StatusCode: http.StatusInternalServerError}
				})

				It("should show Erreur 500", func() {
					Expect(body).To(ContainSubstring("Erreur 500"))
				})
			})
		})

		When("the store is slow", func() {
			BeforeEach(func() {
				store.block = true
				opts.FetchTimeout = 20 * time.Millisecond
				setupServer()
			})

			It("should show the loading page and ask for a refresh", func() {
				req := newRequest(http.MethodGet, "/employee/bills", nil)
				signIn(req, employee)
				resp := do(req)
				Expect(resp.Header.Get("Refresh")).NotTo(BeEmpty())
				Expect(readBody(resp)).To(ContainSubstring("Loading..."))
			})
		})
	})

	Describe("GET /employee/bills/{id}/receipt", func() {
		BeforeEach(func() {
			date, err := bill.ParseDate("2004-04-04")
			Expect(err).NotTo(HaveOccurred())
			store.bills = []bill.Bill{{ID: "a", Name: "a", Date: date, Email: employee.Email, FileURL: "/files/a", FileName: "a.jpg"}}
		})

		It("should open the receipt dialog", func() {
			req := newRequest(http.MethodGet, "/employee/bills/a/receipt", nil)
			signIn(req, employee)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := readBody(resp)
			Expect(body).To(ContainSubstring(`role="dialog"`))
			Expect(body).To(ContainSubstring(`src="/files/a"`))
		})

		It("should answer 404 for an unknown bill", func() {
			req := newRequest(http.MethodGet, "/employee/bills/zzz/receipt", nil)
			signIn(req, employee)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(readBody(resp)).To(ContainSubstring("Erreur 404"))
		})
	})

	Describe("new bill form", func() {
		post := func(path string, fields map[string]string, filename string, data []byte) *http.Response {
			body, contentType := multipartBody(fields, filename, data)
			req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+path, body)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", contentType)
			signIn(req, employee)
			return do(req)
		}

		fields := func() map[string]string {
			return map[string]string{
				"expense-type": "Transports",
				"expense-name": "Vol Paris Londres",
				"datepicker":   "2022-03-02",
				"amount":       "348",
				"vat":          "70",
				"pct":          "20",
				"commentary":   "séminaire",
			}
		}

		It("should show the empty form", func() {
			req := newRequest(http.MethodGet, "/employee/bill/new", nil)
			signIn(req, employee)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := readBody(resp)
			Expect(body).To(ContainSubstring(`data-testid="form-new-bill"`))
			Expect(body).To(MatchRegexp(`data-testid="icon-mail"\s+class="active-icon"`))
		})

		Describe("attaching a file", func() {
			It("should reject files that are not images", func() {
				resp := post("/employee/bill/new/file", fields(), "wrong-img.txt", []byte("text"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(readBody(resp)).To(ContainSubstring(`data-testid="error-format"`))
				Expect(store.uploads).To(BeZero())
			})

			It("should keep an accepted image in the form", func() {
				resp := post("/employee/bill/new/file", fields(), "test.jpg", []byte("image"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := readBody(resp)
				Expect(body).To(ContainSubstring(`name="receipt-key" value="k1"`))
				Expect(body).NotTo(ContainSubstring(`data-testid="error-format"`))
				Expect(store.uploads).To(Equal(1))
			})
		})

		Describe("submitting", func() {
			It("should create the bill once and go back to the list", func() {
				resp := post("/employee/bill/new", fields(), "test.jpg", []byte("image"))
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
				Expect(resp.Header.Get("Location")).To(Equal("/employee/bills"))
				resp.Body.Close()

				Expect(store.created).To(HaveLen(1))
				created := store.created[0]
				Expect(created.ID).To(Equal("k1"))
				Expect(created.Email).To(Equal(employee.Email))
				Expect(created.Name).To(Equal("Vol Paris Londres"))
				Expect(created.Pct).To(Equal(20))
				Expect(created.FileURL).To(Equal("/files/k1"))
			})

			It("should use a receipt attached earlier", func() {
				store.receipts["k7"] = bill.Receipt{Key: "k7", URL: "/files/k7", FileName: "k7.png", Email: employee.Email}
				f := fields()
				f["receipt-key"] = "k7"
				resp := post("/employee/bill/new", f, "", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
				resp.Body.Close()
				Expect(store.created).To(HaveLen(1))
				Expect(store.created[0].ID).To(Equal("k7"))
			})

			It("should take the file details from the stored receipt", func() {
				store.receipts["k7"] = bill.Receipt{Key: "k7", URL: "/files/k7", FileName: "k7.png", Email: employee.Email}
				f := fields()
				f["receipt-key"] = "k7"
				f["file-url"] = "https://elsewhere.test.tld/x.png"
				f["file-name"] = "x.png"
				resp := post("/employee/bill/new", f, "", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
				resp.Body.Close()
				Expect(store.created).To(HaveLen(1))
				Expect(store.created[0].FileURL).To(Equal("/files/k7"))
				Expect(store.created[0].FileName).To(Equal("k7.png"))
			})

			It("should not use the receipt of another employee", func() {
				store.receipts["k8"] = bill.Receipt{Key: "k8", URL: "/files/k8", FileName: "k8.png", Email: "other@test.tld"}
				store.bills = []bill.Bill{{ID: "k8", Email: "other@test.tld", Name: "Hôtel"}}
				f := fields()
				f["receipt-key"] = "k8"
				resp := post("/employee/bill/new", f, "", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(readBody(resp)).To(ContainSubstring(`data-testid="form-error"`))
				Expect(store.created).To(BeEmpty())
				Expect(store.bills).To(ConsistOf(HaveField("Email", "other@test.tld")))
			})

			It("should refuse a bill without a receipt", func() {
				resp := post("/employee/bill/new", fields(), "", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(readBody(resp)).To(ContainSubstring(`data-testid="form-error"`))
				Expect(store.created).To(BeEmpty())
			})

			It("should refuse a receipt in the wrong format", func() {
				resp := post("/employee/bill/new", fields(), "invoice.pdf", []byte("pdf"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(readBody(resp)).To(ContainSubstring(`data-testid="error-format"`))
				Expect(store.created).To(BeEmpty())
			})
		})
	})

	Describe("GET /admin/dashboard", func() {
		It("should welcome administrators", func() {
			req := newRequest(http.MethodGet, "/admin/dashboard", nil)
			signIn(req, admin)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(ContainSubstring("admin@test.tld"))
		})

		It("should forbid employees", func() {
			req := newRequest(http.MethodGet, "/admin/dashboard", nil)
			signIn(req, employee)
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			resp.Body.Close()
		})
	})

	Describe("GET /files/{key}", func() {
		BeforeEach(func() {
			store.files["k1"] = []byte("image")
		})

		It("should serve the receipt", func() {
			resp := do(newRequest(http.MethodGet, "/files/k1", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(readBody(resp)).To(Equal("image"))
		})

		It("should answer 404 for an unknown key", func() {
			resp := do(newRequest(http.MethodGet, "/files/nope", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		When("no file source is configured", func() {
			BeforeEach(func() {
				opts.Files = nil
				setupServer()
			})

			It("should answer 404", func() {
				resp := do(newRequest(http.MethodGet, "/files/k1", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			opts.BasicAuth = BasicAuth{Username: "user", Password: "pass"}
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp := do(newRequest(http.MethodGet, "/", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			resp.Body.Close()
		})

		It("should reject wrong credentials", func() {
			req := newRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth("user", "wrong")
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp.Body.Close()
		})

		It("should accept the right credentials", func() {
			req := newRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth("user", "pass")
			resp := do(req)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should leave the stylesheet public", func() {
			resp := do(newRequest(http.MethodGet, "/static/app.css", nil))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})

	Describe("JSON API", func() {
		apiDo := func(req *http.Request) *http.Response {
			req.SetBasicAuth("svc", "secret")
			return do(req)
		}

		When("basic auth is not configured", func() {
			It("should not serve the API", func() {
				Expect(server.APIEnabled()).To(BeFalse())
				resp := do(newRequest(http.MethodGet, "/api/bills?email=a%40test.tld", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()

				req := newRequest(http.MethodPost, "/api/bills", strings.NewReader(`{"email":"a@test.tld","name":"Taxi","date":"2022-03-02"}`))
				resp = do(req)
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed).Or(Equal(http.StatusNotFound)))
				resp.Body.Close()
				Expect(store.created).To(BeEmpty())
			})
		})

		When("basic auth is configured", func() {
			BeforeEach(func() {
				opts.BasicAuth = BasicAuth{Username: "svc", Password: "secret"}
				setupServer()
			})

			It("should be served", func() {
				Expect(server.APIEnabled()).To(BeTrue())
			})

			It("should answer CORS preflights", func() {
				resp := do(newRequest(http.MethodOptions, "/api/bills", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
				resp.Body.Close()
			})

			It("should reject calls without credentials", func() {
				resp := do(newRequest(http.MethodGet, "/api/bills?email=a%40test.tld", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})

			It("should list the bills of an email", func() {
				date, err := bill.ParseDate("2022-03-02")
				Expect(err).NotTo(HaveOccurred())
				store.bills = []bill.Bill{
					{ID: "1", Name: "a", Date: date, Email: "a@test.tld"},
					{ID: "2", Name: "b", Date: date, Email: "b@test.tld"},
				}

				resp := apiDo(newRequest(http.MethodGet, "/api/bills?email=a%40test.tld", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				var bills []bill.Bill
				Expect(json.Unmarshal([]byte(readBody(resp)), &bills)).To(Succeed())
				Expect(bills).To(HaveLen(1))
				Expect(bills[0].ID).To(Equal("1"))
			})

			It("should refuse to list bills without an email", func() {
				store.bills = []bill.Bill{{ID: "1", Name: "a", Email: "a@test.tld"}}
				resp := apiDo(newRequest(http.MethodGet, "/api/bills", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				body := readBody(resp)
				Expect(body).To(ContainSubstring("email is required"))
				Expect(body).NotTo(ContainSubstring("a@test.tld"))
			})

			It("should report store failures with a status", func() {
				store.listErr = bill.ErrNotFound
				resp := apiDo(newRequest(http.MethodGet, "/api/bills?email=a%40test.tld", nil))
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				Expect(readBody(resp)).To(ContainSubstring(bill.CodeNotFound))
			})

			It("should create a bill", func() {
				req := newRequest(http.MethodPost, "/api/bills", strings.NewReader(`{"email":"a@test.tld","name":"Taxi","date":"2022-03-02","amount":"12.5"}`))
				req.Header.Set("Content-Type", "application/json")
				resp := apiDo(req)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var created bill.Bill
				Expect(json.Unmarshal([]byte(readBody(resp)), &created)).To(Succeed())
				Expect(created.Status).To(Equal(bill.StatusPending))
				Expect(created.Amount.String()).To(Equal("12.5"))
			})

			It("should refuse to replace an existing bill", func() {
				store.bills = []bill.Bill{{ID: "k1", Email: "b@test.tld", Name: "Hôtel"}}
				req := newRequest(http.MethodPost, "/api/bills", strings.NewReader(`{"id":"k1","email":"a@test.tld","name":"Taxi","date":"2022-03-02"}`))
				resp := apiDo(req)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)).To(ContainSubstring(bill.CodeInvalidBill))
				Expect(store.bills).To(ConsistOf(HaveField("Email", "b@test.tld")))
			})

			It("should reject a malformed bill", func() {
				req := newRequest(http.MethodPost, "/api/bills", strings.NewReader(`{"date":"not a date"}`))
				resp := apiDo(req)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)).To(ContainSubstring(bill.CodeInvalidBill))
			})

			It("should store a receipt", func() {
				body, contentType := multipartBody(map[string]string{"email": "a@test.tld"}, "bus.png", []byte("image"))
				req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/receipts", body)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", contentType)
				resp := apiDo(req)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var receipt bill.Receipt
				Expect(json.Unmarshal([]byte(readBody(resp)), &receipt)).To(Succeed())
				Expect(receipt.Key).To(Equal("k1"))
				Expect(receipt.URL).To(Equal("/files/k1"))
			})

			It("should reject a receipt in the wrong format", func() {
				body, contentType := multipartBody(map[string]string{"email": "a@test.tld"}, "notes.txt", []byte("text"))
				req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/receipts", body)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", contentType)
				resp := apiDo(req)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(readBody(resp)).To(ContainSubstring(bill.CodeInvalidFormat))
			})

			Describe("GET /api/receipts/{key}", func() {
				BeforeEach(func() {
					store.receipts["k5"] = bill.Receipt{Key: "k5", URL: "/files/k5", FileName: "taxi.png", Email: "a@test.tld"}
				})

				It("should return a receipt to its owner", func() {
					resp := apiDo(newRequest(http.MethodGet, "/api/receipts/k5?email=a%40test.tld", nil))
					Expect(resp.StatusCode).To(Equal(http.StatusOK))
					var receipt bill.Receipt
					Expect(json.Unmarshal([]byte(readBody(resp)), &receipt)).To(Succeed())
					Expect(receipt.FileName).To(Equal("taxi.png"))
				})

				It("should hide it from other emails", func() {
					resp := apiDo(newRequest(http.MethodGet, "/api/receipts/k5?email=b%40test.tld", nil))
					Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
					Expect(readBody(resp)).To(ContainSubstring(bill.CodeNotFound))
				})

				It("should require an email", func() {
					resp := apiDo(newRequest(http.MethodGet, "/api/receipts/k5", nil))
					Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
					resp.Body.Close()
				})
			})
		})
	})
})
