package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/usecase/scan"
)

type fakeScanner struct {
	records []domain.IntelRecord
	raw     []domain.RawItem
	last    *scan.Report
	runs    int
}

func (f *fakeScanner) Run(_ context.Context, trigger string) scan.Report {
	f.runs++
	r := scan.Report{ID: "scan-1", Trigger: trigger, Fetched: 3}
	f.last = &r
	return r
}

func (f *fakeScanner) Active() []domain.IntelRecord { return f.records }
func (f *fakeScanner) RawItems() []domain.RawItem   { return f.raw }
func (f *fakeScanner) LastReport() (scan.Report, bool) {
	if f.last == nil {
		return scan.Report{}, false
	}
	return *f.last, true
}

func newRouter(s *fakeScanner) http.Handler {
	r := chi.NewRouter()
	NewHandler(s, zerolog.Nop()).Mount(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("некорректный JSON %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code
}

func sample() []domain.IntelRecord {
	return []domain.IntelRecord{
		{URL: "a", Threat: 4, Loc: "Sudan"},
		{URL: "b", Threat: 9, Loc: "Ukraine"},
		{URL: "c", Threat: 8, Loc: "Western Ukraine"},
	}
}

func TestListIntelSortsAndFilters(t *testing.T) {
	h := newRouter(&fakeScanner{records: sample()})

	var resp intelResponse
	if code := do(t, h, http.MethodGet, "/api/v1/intel", &resp); code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", code)
	}
	if resp.Count != 3 || resp.Records[0].URL != "b" || resp.Records[2].URL != "a" {
		t.Fatalf("неожиданный порядок %+v", resp.Records)
	}

	resp = intelResponse{}
	do(t, h, http.MethodGet, "/api/v1/intel?loc=UKR&limit=1", &resp)
	if resp.Count != 1 || resp.Records[0].URL != "b" {
		t.Fatalf("неожиданный результат фильтра %+v", resp.Records)
	}
}

func TestListIntelRejectsBadLimit(t *testing.T) {
	h := newRouter(&fakeScanner{})
	if code := do(t, h, http.MethodGet, "/api/v1/intel?limit=abc", nil); code != http.StatusBadRequest {
		t.Fatalf("ожидали 400, получили %d", code)
	}
}

func TestStatusReflectsCache(t *testing.T) {
	s := &fakeScanner{}
	h := newRouter(s)

	var resp statusResponse
	do(t, h, http.MethodGet, "/api/v1/status", &resp)
	if resp.Status != scan.StatusIdle || resp.LastScan != nil {
		t.Fatalf("пустой кэш должен давать IDLE, получили %+v", resp)
	}

	s.records = sample()
	if code := do(t, h, http.MethodPost, "/api/v1/scan", nil); code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", code)
	}
	resp = statusResponse{}
	do(t, h, http.MethodGet, "/api/v1/status", &resp)
	if resp.Status != scan.StatusOnline || resp.Records != 3 || resp.Critical != 2 {
		t.Fatalf("неожиданный статус %+v", resp)
	}
	if resp.LastScan == nil || resp.LastScan.ID != "scan-1" || resp.LastScan.Trigger != scan.TriggerManual {
		t.Fatalf("ожидали последний скан в статусе")
	}
}

func TestRawFeed(t *testing.T) {
	h := newRouter(&fakeScanner{raw: []domain.RawItem{{Title: "t", URL: "u"}}})
	var resp rawResponse
	do(t, h, http.MethodGet, "/api/v1/raw", &resp)
	if resp.Count != 1 || resp.Items[0].Title != "t" {
		t.Fatalf("неожиданная сырая лента %+v", resp)
	}
}
