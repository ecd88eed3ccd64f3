package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/slowvak/midel/internal/catalog"
	"github.com/slowvak/midel/internal/issue"
	"github.com/slowvak/midel/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testCatalog = `[
  {"year": 2024, "publications": [
    {"id": "2024_smith_deep", "title": "Deep Learning for CT", "url": "https://example.org/a.pdf", "type": "journal", "status": "published"},
    {"id": "2024_jones_seg", "title": "Segmentation Pending", "url": "path", "type": "journal", "status": "in_process"}
  ]},
  {"year": "older", "publications": [
    {"id": "2019_lee_old", "title": "Old Work", "url": "https://example.org/old", "type": "conference", "status": "published"}
  ]}
]`

func newTestServer(t *testing.T, catalogJSON string) (*Server, http.Handler) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publications.json")
	if catalogJSON != "" {
		if err := os.WriteFile(path, []byte(catalogJSON), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	b, err := issue.NewBuilder("slowvak/MIDeL")
	if err != nil {
		t.Fatal(err)
	}
	s := New(Config{
		CatalogPath:  path,
		Issues:       b,
		LoginLimiter: rate.NewLimiter(rate.Inf, 1),
	})
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// login performs a login and returns the session cookies it set.
func login(t *testing.T, h http.Handler, username string) []*http.Cookie {
	t.Helper()
	rec := do(t, h, postForm("/login", url.Values{"username": {username}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d", rec.Code)
	}
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == userCookie || c.Name == sessionCookie {
			out = append(out, c)
		}
	}
	return out
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestHealthz(t *testing.T) {
	_, h := newTestServer(t, testCatalog)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestIndex(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantShown  []string
	}{
		{"all", "", http.StatusOK, []string{"2024_smith_deep", "2024_jones_seg", "2019_lee_old"}},
		{"search", "?q=deep", http.StatusOK, []string{"2024_smith_deep"}},
		{"status in process", "?status=in_process", http.StatusOK, []string{"2024_jones_seg"}},
		{"bad status", "?status=retracted", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, testCatalog)
			rec := do(t, h, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var shown []string
			parse(t, rec).Find("li.publication").Each(func(_ int, s *goquery.Selection) {
				if _, hidden := s.Attr("hidden"); !hidden {
					shown = append(shown, s.AttrOr("data-id", ""))
				}
			})
			if strings.Join(shown, ",") != strings.Join(tt.wantShown, ",") {
				t.Errorf("shown = %v, want %v", shown, tt.wantShown)
			}
		})
	}
}

func TestIndex_LoadError(t *testing.T) {
	_, h := newTestServer(t, "")
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := parse(t, rec)
	if doc.Find("#publications-error").Text() != render.LoadErrorMessage {
		t.Error("load error message missing")
	}
	if doc.Find("section.year-group").Length() != 0 {
		t.Error("no publications should render on load error")
	}
}

func TestLoginFlow(t *testing.T) {
	_, h := newTestServer(t, testCatalog)

	rejected := do(t, h, postForm("/login", url.Values{"username": {"mallory"}}))
	for _, c := range rejected.Result().Cookies() {
		if c.Name == userCookie && c.Value != "" {
			t.Error("rejected login must not set a session")
		}
	}

	cookies := login(t, h, "SlowVak")
	if len(cookies) != 2 {
		t.Fatalf("cookies = %v, want user and session", cookies)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	doc := parse(t, do(t, h, req))
	if doc.Find("#submit-publication").Length() != 1 {
		t.Error("submission form should show after login")
	}

	out := do(t, h, postForm("/logout", nil, cookies...))
	cleared := 0
	for _, c := range out.Result().Cookies() {
		if (c.Name == userCookie || c.Name == sessionCookie) && c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Errorf("logout cleared %d cookies, want 2", cleared)
	}
}

func TestCheckTitle(t *testing.T) {
	_, h := newTestServer(t, testCatalog)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/submit/check?title="+url.QueryEscape("  deep learning for ct "), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res catalog.CheckResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Duplicate || len(res.Matches) != 1 || res.Matches[0].ID != "2024_smith_deep" {
		t.Errorf("check = %+v", res)
	}
}

func TestSubmit(t *testing.T) {
	valid := url.Values{
		"title":  {"A New Paper"},
		"author": {"Doe"},
		"year":   {"2025"},
		"url":    {"https://example.org/new"},
	}
	dup := url.Values{
		"title":  {"deep learning for ct"},
		"author": {"Smith"},
		"year":   {"2024"},
		"url":    {"https://example.org/a"},
	}
	withConfirm := url.Values{}
	for k, v := range dup {
		withConfirm[k] = v
	}
	withConfirm.Set("confirm_duplicate", "1")

	tests := []struct {
		name       string
		form       url.Values
		loggedIn   bool
		wantStatus int
	}{
		{"not logged in", valid, false, http.StatusForbidden},
		{"valid", valid, true, http.StatusSeeOther},
		{"missing fields", url.Values{"title": {"X"}}, true, http.StatusBadRequest},
		{"duplicate", dup, true, http.StatusConflict},
		{"duplicate confirmed", withConfirm, true, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, testCatalog)
			var cookies []*http.Cookie
			if tt.loggedIn {
				cookies = login(t, h, "slowvak")
			}
			rec := do(t, h, postForm("/submit", tt.form, cookies...))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Code == http.StatusSeeOther {
				loc := rec.Header().Get("Location")
				if !strings.HasPrefix(loc, "https://github.com/slowvak/MIDeL/issues/new?") {
					t.Errorf("Location = %q", loc)
				}
			}
			if tt.wantStatus == http.StatusConflict {
				if parse(t, rec).Find(`input[name="confirm_duplicate"]`).Length() != 1 {
					t.Error("conflict page should offer confirmation")
				}
			}
		})
	}
}

func TestPreview(t *testing.T) {
	_, h := newTestServer(t, testCatalog)
	cookies := login(t, h, "slowvak")
	rec := do(t, h, postForm("/submit/preview", url.Values{
		"title":  {"Preview Me"},
		"author": {"Doe"},
		"year":   {"2020"},
		"url":    {"https://example.org/p"},
	}, cookies...))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	doc := parse(t, rec)
	if doc.Find("h1").Text() != "Add publication: Preview Me" {
		t.Errorf("h1 = %q", doc.Find("h1").Text())
	}
	if !strings.Contains(doc.Find("#issue-preview").Text(), "older") {
		t.Error("a 2020 paper should be proposed for the older group")
	}
}

func TestSubmit_ShortDuplicateTitle(t *testing.T) {
	_, h := newTestServer(t, `[{"year": 2023, "publications": [
		{"id": "2023_ng_ai", "title": "AI", "url": "https://example.org/ai", "type": "journal", "status": "published"}
	]}]`)
	cookies := login(t, h, "slowvak")
	form := url.Values{
		"title":  {"ai"},
		"author": {"Ng"},
		"year":   {"2023"},
		"url":    {"https://example.org/ai2"},
	}

	rec := do(t, h, postForm("/submit", form, cookies...))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if got := parse(t, rec).Find(".duplicate-warning li").Text(); got != "AI (2023)" {
		t.Errorf("listed match = %q, want %q", got, "AI (2023)")
	}

	form.Set("confirm_duplicate", "true")
	rec = do(t, h, postForm("/submit", form, cookies...))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("confirmed status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if body := loc.Query().Get("body"); !strings.Contains(body, "already listed") {
		t.Errorf("issue body should carry the override note:\n%s", body)
	}
}

func TestExport_DefaultsToJSON(t *testing.T) {
	_, h := newTestServer(t, testCatalog)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "midel-publications.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var got []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("body is not JSON: %v\n%s", err, rec.Body.String())
	}
	if len(got) != 2 || got[0].ID != "2024_smith_deep" || got[1].ID != "2019_lee_old" {
		t.Errorf("exported = %+v", got)
	}
}

func TestExport(t *testing.T) {
	_, h := newTestServer(t, testCatalog)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/export?format=bibtex", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "midel-publications.bib") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "@misc{2024_smith_deep,") {
		t.Errorf("bibtex missing active entry:\n%s", body)
	}
	if strings.Contains(body, "2024_jones_seg") {
		t.Error("placeholder entries must not be exported")
	}

	bad := do(t, h, httptest.NewRequest(http.MethodGet, "/export?format=docx", nil))
	if bad.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", bad.Code)
	}
}

func TestRawCatalog(t *testing.T) {
	_, h := newTestServer(t, testCatalog)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/publications.json", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != testCatalog {
		t.Errorf("GET /publications.json = %d", rec.Code)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s, _ := newTestServer(t, testCatalog)
	ctx, cancel := context.WithCancel(context.Background())

	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("ListenAndServe() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	defer client.CloseIdleConnections()
	resp, err := client.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
