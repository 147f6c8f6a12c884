package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) ParseImage(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type testServer struct {
	*Server
	finance *services.FinanceService
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) testServer {
	t.Helper()
	repo := storage.NewRepository(storage.NewMemoryStore(), nil)
	overviews := cache.NewLRUCache[core.MonthOverview](16, time.Hour)
	finance := services.NewFinanceService(repo, nil, overviews, nil)
	deps := Dependencies{
		Finance:  finance,
		Profiles: services.NewProfileService(repo, nil),
		Scanner:  services.NewReceiptScanner(fakeOCR{text: "Fresh Supermarket\nTotal ₹ 450.00"}, nil),
		Caches:   map[string]StatsSource{"overviews": overviews},
	}
	if mutate != nil {
		mutate(&deps)
	}
	return testServer{Server: NewServer(":0", deps), finance: finance}
}

func (ts testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

// data decodes the "data" member of an envelope into v.
func data(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := ts.do(t, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	ts = newTestServer(t, func(d *Dependencies) { d.Store = fakePinger{err: errors.New("down")} })
	if rr := ts.do(t, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
}

func TestResponsesCarryRequestIDAndSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do(t, http.MethodGet, "/api/profiles", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
}

func TestProfileLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	var st services.ProfileState
	rr := ts.do(t, http.MethodGet, "/api/profiles", "")
	data(t, rr, &st)
	if len(st.Profiles) != 1 || st.Current != services.DefaultProfile {
		t.Fatalf("initial state = %+v", st)
	}

	rr = ts.do(t, http.MethodPost, "/api/profiles", `{"name":"Mom"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	data(t, rr, &st)
	if st.Current != "Mom" {
		t.Fatalf("new profile not selected: %+v", st)
	}

	if rr = ts.do(t, http.MethodPost, "/api/profiles", `{"name":"Mom"}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate status=%d", rr.Code)
	}
	if rr = ts.do(t, http.MethodPost, "/api/profiles", `{"name":"profiles"}`); rr.Code != http.StatusConflict {
		t.Errorf("reserved name status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodPut, "/api/profiles/Default/select", "")
	data(t, rr, &st)
	if st.Current != services.DefaultProfile {
		t.Errorf("select: %+v", st)
	}

	rr = ts.do(t, http.MethodDelete, "/api/profiles/Default", "")
	data(t, rr, &st)
	if st.Current != "Mom" || len(st.Profiles) != 1 {
		t.Errorf("delete current: %+v", st)
	}

	if rr = ts.do(t, http.MethodDelete, "/api/profiles/Mom", ""); rr.Code != http.StatusConflict {
		t.Errorf("deleting last profile status=%d", rr.Code)
	}
	if rr = ts.do(t, http.MethodGet, "/api/profiles/Nobody/snapshot", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown profile status=%d", rr.Code)
	}
}

func TestRecordsAndDashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	base := "/api/profiles/Default"

	if rr := ts.do(t, http.MethodPut, base+"/month", `{"month":"2024-06"}`); rr.Code != http.StatusOK {
		t.Fatalf("set month status=%d body=%s", rr.Code, rr.Body)
	}

	rr := ts.do(t, http.MethodPost, base+"/incomes", `{"type":"Bonus","amount":12000,"freqMonths":12,"startMonth":"2024-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add income status=%d body=%s", rr.Code, rr.Body)
	}

	rr = ts.do(t, http.MethodPost, base+"/expenses", "title=Fuel&amount=600&category=Petrol&startMonth=2024-01")
	if rr.Code != http.StatusCreated {
		t.Fatalf("add expense status=%d body=%s", rr.Code, rr.Body)
	}
	var expense core.Expense
	data(t, rr, &expense)
	if expense.ID == "" || expense.Person != core.DefaultMember {
		t.Errorf("expense = %+v", expense)
	}

	for _, plan := range []string{
		`{"category":"Petrol","monthlyPlanned":500,"startMonth":"2024-01"}`,
		`{"category":"Petrol","monthlyPlanned":800,"startMonth":"2024-04"}`,
	} {
		if rr = ts.do(t, http.MethodPost, base+"/budgets", plan); rr.Code != http.StatusCreated {
			t.Fatalf("add budget status=%d body=%s", rr.Code, rr.Body)
		}
	}

	var ov core.MonthOverview
	rr = ts.do(t, http.MethodGet, base+"/dashboard?month=2024-05", "")
	data(t, rr, &ov)
	if ov.Month != "2024-05" || ov.Income != 1000 || ov.Expenses != 600 {
		t.Errorf("overview = %+v", ov)
	}
	if len(ov.Budgets.Categories) != 1 || ov.Budgets.Categories[0].Planned != 800 {
		t.Errorf("budgets = %+v", ov.Budgets)
	}

	if rr = ts.do(t, http.MethodGet, base+"/dashboard?month=May", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad month status=%d", rr.Code)
	}

	// Validation failures leave the snapshot untouched.
	if rr = ts.do(t, http.MethodPost, base+"/expenses", `{"title":"","amount":10}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty title status=%d", rr.Code)
	}
	if rr = ts.do(t, http.MethodPut, base+"/expenses/nope", `{"title":"x","amount":10}`); rr.Code != http.StatusNotFound {
		t.Errorf("update unknown status=%d", rr.Code)
	}

	rr = ts.do(t, http.MethodDelete, base+"/expenses/"+expense.ID, "")
	var snap core.Snapshot
	data(t, rr, &snap)
	if len(snap.Expenses) != 0 {
		t.Errorf("expense not removed: %+v", snap.Expenses)
	}
}

func TestRemoveMemberReassignsExpenses(t *testing.T) {
	ts := newTestServer(t, nil)
	base := "/api/profiles/Default"

	ts.do(t, http.MethodPost, base+"/members", `{"name":"Wife"}`)
	for i := 0; i < 3; i++ {
		ts.do(t, http.MethodPost, base+"/expenses", `{"title":"Gym","amount":50,"person":"Wife"}`)
	}

	rr := ts.do(t, http.MethodDelete, base+"/members/Wife", "")
	var removal memberRemoval
	data(t, rr, &removal)
	if removal.Reassigned != 3 {
		t.Errorf("reassigned = %d", removal.Reassigned)
	}
	for _, e := range removal.Snapshot.Expenses {
		if e.Person != core.DefaultMember {
			t.Errorf("expense still owned by %q", e.Person)
		}
	}

	if rr = ts.do(t, http.MethodDelete, base+"/members/Me", ""); rr.Code != http.StatusConflict {
		t.Errorf("removing Me status=%d", rr.Code)
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestImportCSV(t *testing.T) {
	ts := newTestServer(t, nil)
	csv := "Date,Description,Amount,Type\n15/03/2024,Coffee,1200,POS Purchase\n16/03/2024,Salary,5000,CREDIT\n"

	body, contentType := multipartBody(t, "file", "statement.csv", csv)
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/Default/import/csv", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body)
	}
	var result services.ImportResult
	data(t, rr, &result)
	if result.Imported != 1 || result.Rows != 2 {
		t.Errorf("result = %+v", result)
	}

	snap, _ := ts.finance.Snapshot(context.Background(), services.DefaultProfile)
	if len(snap.Expenses) != 1 || snap.Expenses[0].StartMonth != "2024-03" || snap.Expenses[0].Category != core.DefaultCategory {
		t.Errorf("imported = %+v", snap.Expenses)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/profiles/Default/import/csv", strings.NewReader("Date,Amount,Type\n"))
	req.Header.Set("Content-Type", "text/csv")
	rr = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty statement status=%d", rr.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) { d.MaxUploadBytes = 16 })
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/Default/import/csv", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status=%d", rr.Code)
	}
}

func TestScanReceipt(t *testing.T) {
	ts := newTestServer(t, nil)
	image := base64.StdEncoding.EncodeToString([]byte("fake-png"))

	rr := ts.do(t, http.MethodPost, "/api/profiles/Default/receipts/scan", `{"image":"data:image/png;base64,`+image+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("scan status=%d body=%s", rr.Code, rr.Body)
	}
	var result services.ScanResult
	data(t, rr, &result)
	if !result.AmountFound || result.Expense.Amount != 450 || result.Expense.Category != "Groceries" {
		t.Errorf("scan = %+v", result)
	}

	ts = newTestServer(t, func(d *Dependencies) {
		d.Scanner = services.NewReceiptScanner(fakeOCR{err: errors.New("quota")}, nil)
	})
	rr = ts.do(t, http.MethodPost, "/api/profiles/Default/receipts/scan", `{"image":"`+image+`"}`)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("ocr failure status=%d", rr.Code)
	}

	ts = newTestServer(t, func(d *Dependencies) { d.Scanner = nil })
	rr = ts.do(t, http.MethodPost, "/api/profiles/Default/receipts/scan", `{"image":"`+image+`"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured scanner status=%d", rr.Code)
	}
}

func TestBackupRoundTripAndReset(t *testing.T) {
	ts := newTestServer(t, nil)
	base := "/api/profiles/Default"
	ts.do(t, http.MethodPost, base+"/expenses", `{"title":"Rent","amount":900,"category":"Rent"}`)

	rr := ts.do(t, http.MethodGet, base+"/backup", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Content-Disposition"), "fintrack-Default.json") {
		t.Fatalf("export status=%d headers=%v", rr.Code, rr.Header())
	}
	backup := rr.Body.String()
	before, _ := ts.finance.Snapshot(context.Background(), services.DefaultProfile)

	ts.do(t, http.MethodPost, base+"/reset", "")
	after, _ := ts.finance.Snapshot(context.Background(), services.DefaultProfile)
	if len(after.Expenses) != 0 {
		t.Fatalf("reset kept expenses: %+v", after.Expenses)
	}

	if rr = ts.do(t, http.MethodPost, base+"/backup", `{"month":"2024-01"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("incomplete backup status=%d", rr.Code)
	}

	if rr = ts.do(t, http.MethodPost, base+"/backup", backup); rr.Code != http.StatusOK {
		t.Fatalf("restore status=%d body=%s", rr.Code, rr.Body)
	}
	restored, _ := ts.finance.Snapshot(context.Background(), services.DefaultProfile)
	if len(restored.Expenses) != 1 || restored.Expenses[0] != before.Expenses[0] {
		t.Errorf("restored = %+v, want %+v", restored.Expenses, before.Expenses)
	}
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) {
		d.Limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1})
	})
	base := "/api/profiles/Default"

	if rr := ts.do(t, http.MethodPost, base+"/categories", `{"name":"Travel"}`); rr.Code != http.StatusCreated {
		t.Fatalf("first mutation status=%d", rr.Code)
	}
	rr := ts.do(t, http.MethodPost, base+"/categories", `{"name":"Books"}`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Errorf("second mutation status=%d", rr.Code)
	}
	if rr = ts.do(t, http.MethodGet, base+"/snapshot", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}
}

func TestAuthRoutesWhenDisabled(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodGet, "/auth/me", "")
	var s session
	data(t, rr, &s)
	if s.AuthEnabled || s.Authenticated {
		t.Errorf("session = %+v", s)
	}
	if rr = ts.do(t, http.MethodGet, "/auth/login", ""); rr.Code != http.StatusNotFound {
		t.Errorf("login without provider status=%d", rr.Code)
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/api/profiles/Default/dashboard", "")
	ts.do(t, http.MethodGet, "/api/profiles/Default/dashboard", "")

	rr := ts.do(t, http.MethodGet, "/api/metrics", "")
	var m metricsResponse
	data(t, rr, &m)
	if m.Requests.TotalRequests < 2 {
		t.Errorf("requests = %+v", m.Requests)
	}
	if c := m.Caches["overviews"]; c.Hits != 1 || c.Size != 1 {
		t.Errorf("overview cache = %+v", c)
	}
}
