package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/worklog"
)

type fakeService struct {
	report       *models.CheckReport
	checkErr     error
	lastHeadless *bool

	publishReq  worklog.PublishRequest
	publishResp *worklog.PublishResponse
	publishErr  error

	missing    []models.SyncResult
	missingErr error

	generateReq worklog.GenerateRequest
	draft       *models.Draft
	generateErr error

	drafts   map[string]*models.Draft
	syncs    []models.SyncResult
	settings map[string]string
	closed   int
	defaults worklog.Options
}

func newFake() *fakeService {
	return &fakeService{drafts: map[string]*models.Draft{}, settings: map[string]string{}}
}

func (f *fakeService) CheckLogs(_ context.Context, headless bool) (*models.CheckReport, error) {
	f.lastHeadless = &headless
	return f.report, f.checkErr
}

func (f *fakeService) PublishNote(_ context.Context, req worklog.PublishRequest) (*worklog.PublishResponse, error) {
	f.publishReq = req
	return f.publishResp, f.publishErr
}

func (f *fakeService) PublishMissing(_ context.Context, headless bool) ([]models.SyncResult, error) {
	f.lastHeadless = &headless
	return f.missing, f.missingErr
}

func (f *fakeService) GenerateDraft(_ context.Context, req worklog.GenerateRequest) (*models.Draft, error) {
	f.generateReq = req
	return f.draft, f.generateErr
}

func (f *fakeService) ListDrafts(string) ([]models.DraftMetadata, error) {
	var out []models.DraftMetadata
	for p, d := range f.drafts {
		out = append(out, models.DraftMetadata{Path: p, Checksum: d.Checksum})
	}
	return out, nil
}

func (f *fakeService) ReadDraft(path string) (*models.Draft, error) {
	d, ok := f.drafts[path]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return d, nil
}

func (f *fakeService) DeleteDraft(path string) error {
	if _, ok := f.drafts[path]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.drafts, path)
	return nil
}

func (f *fakeService) SyncHistory(limit, offset int) ([]models.SyncResult, int, error) {
	return f.syncs, len(f.syncs), nil
}

func (f *fakeService) SetSetting(key, value string) error {
	if key != "xuexitong.username" {
		return fmt.Errorf("%w: unknown setting %q", apperr.ErrInvalidInput, key)
	}
	f.settings[key] = value
	return nil
}

func (f *fakeService) CloseBrowser()             { f.closed++ }
func (f *fakeService) Options() worklog.Options { return f.defaults }

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCheckLogs(t *testing.T) {
	svc := newFake()
	svc.defaults.Headless = true
	svc.report = &models.CheckReport{MissingDates: []string{"20260128"}, FoundTitlesCount: 2, CheckedCount: 3}
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodGet, "/logs/check", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var report models.CheckReport
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if len(report.MissingDates) != 1 || report.MissingDates[0] != "20260128" {
		t.Errorf("report = %+v", report)
	}
	if !*svc.lastHeadless {
		t.Error("headless should default to config")
	}

	do(t, router, http.MethodGet, "/logs/check?headless=false", nil)
	if *svc.lastHeadless {
		t.Error("headless query not honoured")
	}

	if w := do(t, router, http.MethodGet, "/logs/check?headless=maybe", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad headless = %d", w.Code)
	}
}

func TestCheckLogs_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing credentials", apperr.ErrMissingCredentials, http.StatusPreconditionFailed},
		{"launch", &apperr.LaunchError{Err: errors.New("no chromium")}, http.StatusServiceUnavailable},
		{"auth", &apperr.AuthenticationError{URL: "https://passport2.chaoxing.com/login", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"editor", &apperr.EditorUnreachableError{LastURL: "https://note.chaoxing.com/pc/index"}, http.StatusBadGateway},
		{"deadline", fmt.Errorf("check: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFake()
			svc.checkErr = tc.err
			w := do(t, NewRouter(svc, false, "", nil), http.MethodGet, "/logs/check", nil)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestPublishNote(t *testing.T) {
	svc := newFake()
	svc.publishResp = &worklog.PublishResponse{Success: true, Date: "20260128", Title: "工作日志 2026-01-28"}
	router := NewRouter(svc, false, "", nil)

	headless := false
	w := do(t, router, http.MethodPost, "/notes/publish", PublishNoteRequest{Content: "- 修复登录", Date: "2026-01-28", Headless: &headless, SilentNotify: true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.publishReq.Content != "- 修复登录" || svc.publishReq.Headless || !svc.publishReq.SilentNotify {
		t.Errorf("request = %+v", svc.publishReq)
	}
	var resp worklog.PublishResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Title != "工作日志 2026-01-28" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestPublishNote_Failures(t *testing.T) {
	svc := newFake()
	router := NewRouter(svc, false, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/notes/publish", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d", w.Code)
	}

	svc.publishErr = &apperr.PublishError{Title: "工作日志 2026-01-28", Err: errors.New("save: no match")}
	w = do(t, router, http.MethodPost, "/notes/publish", PublishNoteRequest{Content: "x"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("publish error = %d", w.Code)
	}
	var body errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error == "" || body.Error == "internal error" {
		t.Errorf("cause should reach the client: %q", body.Error)
	}
}

func TestPublishMissing(t *testing.T) {
	svc := newFake()
	svc.missing = []models.SyncResult{
		{Date: "20260126", Success: true},
		{Date: "20260127", Success: false, Error: "save: no match"},
	}
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodPost, "/notes/publish-missing", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PublishMissingResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Succeeded != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGenerateDraft(t *testing.T) {
	svc := newFake()
	svc.draft = &models.Draft{Path: "daily/2026-01-28.md", Title: "工作日志 2026-01-28", Kind: models.DraftDaily}
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodPost, "/drafts/generate", GenerateDraftRequest{Kind: models.DraftDaily, Date: "2026-01-28"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.generateReq.Date != "2026-01-28" {
		t.Errorf("request = %+v", svc.generateReq)
	}

	svc.generateErr = fmt.Errorf("draft %s: %w", "daily/2026-01-28.md", apperr.ErrAlreadyExists)
	if w := do(t, router, http.MethodPost, "/drafts/generate", GenerateDraftRequest{Kind: models.DraftDaily}); w.Code != http.StatusConflict {
		t.Errorf("exists = %d", w.Code)
	}
	svc.generateErr = fmt.Errorf("llm: %w", apperr.ErrNotConfigured)
	if w := do(t, router, http.MethodPost, "/drafts/generate", GenerateDraftRequest{Kind: models.DraftDaily}); w.Code != http.StatusPreconditionFailed {
		t.Errorf("not configured = %d", w.Code)
	}
}

func TestDrafts_ReadListDelete(t *testing.T) {
	svc := newFake()
	svc.drafts["daily/2026-01-28.md"] = &models.Draft{Path: "daily/2026-01-28.md", Title: "工作日志 2026-01-28", Checksum: "abc"}
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodGet, "/drafts", nil)
	var list DraftListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list.Drafts) != 1 {
		t.Fatalf("list = %d %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/drafts/daily%2F2026-01-28.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get encoded = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/drafts/daily/2026-01-28.md", nil)
	var d models.Draft
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Title != "工作日志 2026-01-28" {
		t.Errorf("draft = %+v", d)
	}

	if w := do(t, router, http.MethodDelete, "/drafts/daily/2026-01-28.md", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/drafts/daily/2026-01-28.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/drafts/daily/2026-01-28.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d", w.Code)
	}
}

func TestListSyncs_EmptyIsArray(t *testing.T) {
	router := NewRouter(newFake(), false, "", nil)
	w := do(t, router, http.MethodGet, "/syncs?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"syncs":[]`)) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPutSetting(t *testing.T) {
	svc := newFake()
	router := NewRouter(svc, false, "", nil)

	if w := do(t, router, http.MethodPut, "/settings/xuexitong.username", SettingRequest{Value: "13800000000"}); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.settings["xuexitong.username"] != "13800000000" {
		t.Errorf("settings = %v", svc.settings)
	}
	if w := do(t, router, http.MethodPut, "/settings/app.port", SettingRequest{Value: "1"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown key = %d", w.Code)
	}
}

func TestCloseBrowser(t *testing.T) {
	svc := newFake()
	w := do(t, NewRouter(svc, false, "", nil), http.MethodPost, "/browser/close", nil)
	if w.Code != http.StatusOK || svc.closed != 1 {
		t.Errorf("status = %d closed = %d", w.Code, svc.closed)
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := newFake()
	svc.report = &models.CheckReport{MissingDates: []string{}}
	router := NewRouter(svc, true, "secret", nil)

	if w := do(t, router, http.MethodGet, "/logs/check", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/logs/check", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/logs/check", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d", w.Code)
	}
}

func TestEventsMountedBehindAuth(t *testing.T) {
	sse := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	router := NewRouter(newFake(), true, "secret", sse)
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("events without token = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTeapot {
		t.Errorf("events with token = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/events?access_token=secret", nil); w.Code != http.StatusTeapot {
		t.Errorf("events with query token = %d", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGET(t *testing.T) {
	h := AuthMiddleware(true, "secret")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/notes/publish?access_token=secret", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Errorf("POST with query token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/notes/publish", nil)
	req.Header.Set("Authorization", "bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("lower-case scheme = %d", w.Code)
	}
}
