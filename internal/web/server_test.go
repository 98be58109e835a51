package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/ibreport/internal/config"
	"github.com/JonMunkholm/ibreport/internal/logging"
	"github.com/JonMunkholm/ibreport/internal/report"
	"github.com/JonMunkholm/ibreport/internal/runlog"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T, maxUpload int64) (*Server, *runlog.Memory) {
	t.Helper()
	rec := runlog.NewMemory(0)
	limiter := report.NewLimiter(2, 0)
	runner := report.NewRunner(report.RunnerConfig{WorkDir: t.TempDir()},
		report.WithLogger(logging.Discard()),
		report.WithRecorder(rec),
		report.WithLimiter(limiter),
	)
	cfg := config.ServerConfig{MaxUploadSize: maxUpload, ResultsDir: t.TempDir()}
	return NewServer(cfg, runner, rec, limiter), rec
}

// installedBase renders an installed-base download with the customer in
// column 45.
func installedBase(customers ...string) string {
	var b strings.Builder
	line := func(customer string) {
		cells := make([]string, 46)
		cells[45] = customer
		b.WriteString(strings.Join(cells, ";"))
		b.WriteString("\n")
	}
	line("CUSTOMER")
	for _, c := range customers {
		line(c)
	}
	return b.String()
}

type formFile struct {
	field, name, content string
}

func multipartBody(t *testing.T, files []formFile, args ...string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, f.content)
	}
	for _, a := range args {
		if err := mw.WriteField("arg", a); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, 1<<20)
	rr := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Runs == nil || resp.Runs.MaxConcurrent != 2 {
		t.Errorf("health = %+v", resp)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestListScripts(t *testing.T) {
	s, _ := newTestServer(t, 1<<20)
	rr := do(s, httptest.NewRequest(http.MethodGet, "/api/scripts", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var scripts []ScriptInfo
	if err := json.NewDecoder(rr.Body).Decode(&scripts); err != nil {
		t.Fatal(err)
	}
	found := map[string]ScriptInfo{}
	for _, sc := range scripts {
		found[sc.Name] = sc
	}
	if !found["insert_customer_data"].NeedsSource {
		t.Error("insert_customer_data should need a source file")
	}
	if found["readme"].NeedsInput {
		t.Error("readme should not need an input file")
	}
	if found["extract_regional_data"].MinArgs != 1 {
		t.Errorf("extract_regional_data min args = %d", found["extract_regional_data"].MinArgs)
	}
}

func TestRunAndDownload(t *testing.T) {
	s, rec := newTestServer(t, 1<<20)

	body, ctype := multipartBody(t, []formFile{{"infile", "ib.csv", installedBase("X", "X", "Y")}}, "DE")
	req := httptest.NewRequest(http.MethodPost, "/api/run/abc_analysis", body)
	req.Header.Set("Content-Type", ctype)
	rr := do(s, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp RunResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	wantFiles := []FileLink{{
		Name: "ABC-analysis-DE.csv",
		URL:  "/api/runs/" + resp.RunID + "/files/ABC-analysis-DE.csv",
	}}
	if diff := cmp.Diff(wantFiles, resp.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	file := do(s, httptest.NewRequest(http.MethodGet, resp.Files[0].URL, nil))
	if file.Code != http.StatusOK {
		t.Fatalf("download status = %d", file.Code)
	}
	if !strings.HasPrefix(file.Body.String(), "customer;machines;<10;10-50;>50;A;B;C\n") {
		t.Errorf("download body = %q", file.Body.String())
	}
	if ct := file.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	runs, _ := rec.List(req.Context(), 0)
	if len(runs) != 1 || runs[0].Status != runlog.StatusSucceeded {
		t.Fatalf("recorded runs = %+v", runs)
	}

	list := do(s, httptest.NewRequest(http.MethodGet, "/api/runs?limit=5", nil))
	var listed []runlog.Run
	if err := json.NewDecoder(list.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID.String() != resp.RunID {
		t.Errorf("GET /api/runs = %+v", listed)
	}

	one := do(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID, nil))
	if one.Code != http.StatusOK {
		t.Errorf("GET run status = %d", one.Code)
	}
}

func TestRunWithSource(t *testing.T) {
	s, _ := newTestServer(t, 1<<20)

	orders := strings.Repeat(";", 19) + "EK;AG\n" + strings.Repeat(";", 19) + "1;2\n"
	customers := "ID;NAME;COUNTRY\n1;Acme;DE\n2;Beta;AT\n"
	body, ctype := multipartBody(t, []formFile{
		{"infile", "orders.csv", orders},
		{"source", "customers.csv", customers},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/run/insert_customer_data", body)
	req.Header.Set("Content-Type", ctype)
	rr := do(s, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp RunResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 || resp.Files[0].Name != "orders-with-customers.csv" {
		t.Fatalf("files = %+v", resp.Files)
	}
	file := do(s, httptest.NewRequest(http.MethodGet, resp.Files[0].URL, nil))
	if !strings.Contains(file.Body.String(), "1;Acme;DE;2;Beta;AT") {
		t.Errorf("joined result = %q", file.Body.String())
	}
}

func TestRunReadmeWithoutBody(t *testing.T) {
	s, _ := newTestServer(t, 1<<20)
	rr := do(s, httptest.NewRequest(http.MethodPost, "/api/run/readme", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp RunResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Message, "machine_analysis") {
		t.Errorf("readme message = %q", resp.Message)
	}
}

func TestRunErrors(t *testing.T) {
	upload := []formFile{{"infile", "ib.csv", installedBase("X")}}

	tests := []struct {
		name       string
		path       string
		files      []formFile
		maxUpload  int64
		wantStatus int
		wantCode   string
	}{
		{"unknown script", "/api/run/nope", upload, 1 << 20, http.StatusNotFound, "RPT001"},
		{"missing region", "/api/run/extract_regional_data", upload, 1 << 20, http.StatusBadRequest, "RPT002"},
		{"missing infile", "/api/run/abc_analysis", nil, 1 << 20, http.StatusBadRequest, "FILE004"},
		{"missing source", "/api/run/insert_customer_data", upload, 1 << 20, http.StatusBadRequest, "FILE004"},
		{"too large", "/api/run/abc_analysis", upload, 64, http.StatusRequestEntityTooLarge, "FILE001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.maxUpload)
			body, ctype := multipartBody(t, tt.files)
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", ctype)

			rr := do(s, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if got := decodeError(t, rr).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestRunFileErrors(t *testing.T) {
	s, _ := newTestServer(t, 1<<20)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"invalid id", "/api/runs/not-a-uuid/files/x.csv", http.StatusBadRequest},
		{"unknown run", "/api/runs/" + uuid.NewString() + "/files/x.csv", http.StatusNotFound},
		{"unknown run detail", "/api/runs/" + uuid.NewString(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}

	// a recorded run only serves its own outputs
	body, ctype := multipartBody(t, []formFile{{"infile", "ib.csv", installedBase("X")}})
	req := httptest.NewRequest(http.MethodPost, "/api/run/abc_analysis", body)
	req.Header.Set("Content-Type", ctype)
	var resp RunResponse
	json.NewDecoder(do(s, req).Body).Decode(&resp)

	rr := do(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.RunID+"/files/secret.csv", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("foreign file status = %d, want 404", rr.Code)
	}
	if got := decodeError(t, rr).Code; got != "RUN004" {
		t.Errorf("code = %q, want RUN004", got)
	}
}

func TestAPIKey(t *testing.T) {
	rec := runlog.NewMemory(0)
	runner := report.NewRunner(report.RunnerConfig{WorkDir: t.TempDir()},
		report.WithLogger(logging.Discard()), report.WithRecorder(rec))
	cfg := config.ServerConfig{MaxUploadSize: 1 << 20, ResultsDir: t.TempDir(), APIKeys: []string{"secret"}}
	s := NewServer(cfg, runner, rec, nil)

	if rr := do(s, httptest.NewRequest(http.MethodGet, "/api/scripts", nil)); rr.Code != http.StatusUnauthorized {
		t.Errorf("without key status = %d, want 401", rr.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/scripts", nil)
	req.Header.Set("X-API-Key", "secret")
	if rr := do(s, req); rr.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rr.Code)
	}
	if rr := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rr.Code)
	}
}
