package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	mu      sync.Mutex
	outcome domain.ResolutionOutcome
	queries []application.Query
}

func (f *fakeResolver) Resolve(_ context.Context, query application.Query) domain.ResolutionOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	return f.outcome
}

func (f *fakeResolver) lastQuery(t *testing.T) application.Query {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.queries)
	return f.queries[len(f.queries)-1]
}

type fakeHistory struct {
	cleared   []string
	exportErr error
}

func (f *fakeHistory) History(key string) application.SessionHistory {
	return application.SessionHistory{
		SessionKey:   domain.NormalizeSessionKey(key),
		Exchanges:    []domain.Exchange{{ID: "ex-1", Question: "Apa itu kompos?", Tier: domain.OutcomeLocal}},
		MemoryLength: 1,
	}
}

func (f *fakeHistory) Clear(key string) int {
	f.cleared = append(f.cleared, key)
	if key == "" {
		return 3
	}
	return 1
}

func (f *fakeHistory) Export(_ context.Context, key string) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	return "/tmp/exports/chat_history_" + domain.NormalizeSessionKey(key) + ".json", nil
}

type fakeStatus struct {
	limit int
}

func (f *fakeStatus) Status(_ context.Context, limit int) application.SystemStatus {
	f.limit = limit
	return application.SystemStatus{Online: true, CredentialCount: 2, UsableCount: 1, Strategy: "conversation"}
}

type testAPI struct {
	router   *gin.Engine
	resolver *fakeResolver
	history  *fakeHistory
	status   *fakeStatus
	uploads  string
}

var testNow = time.Unix(1700000000, 0)

func newTestAPI(t *testing.T, outcome domain.ResolutionOutcome, maxUpload int64) *testAPI {
	t.Helper()

	api := &testAPI{
		resolver: &fakeResolver{outcome: outcome},
		history:  &fakeHistory{},
		status:   &fakeStatus{},
		uploads:  filepath.Join(t.TempDir(), "uploads"),
	}
	handlers := NewHandlers(api.resolver, api.history, api.status, Config{UploadDir: api.uploads, MaxUploadBytes: maxUpload}, nil)
	handlers.now = func() time.Time { return testNow }
	api.router = NewRouter(handlers)
	return api
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *filePart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if file != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChatJSONReturnsOutcome(t *testing.T) {
	t.Parallel()

	outcome := domain.ExternalOutcome("Nitrogen matters.", []domain.Reference{{Title: "Paddy", Year: "2021", Authors: "A", URL: "u"}})
	api := newTestAPI(t, outcome, 0)

	rec := api.do(jsonRequest(http.MethodPost, "/api/chat", `{"session_id":"s1","message":"  Pupuk apa?  "}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	body := decode[chatResponse](t, rec)
	assert.Equal(t, outcome.Text(), body.Response)
	assert.Equal(t, domain.OutcomeExternal, body.Tier)
	assert.Len(t, body.References, 1)
	assert.Equal(t, "s1", body.SessionID)

	query := api.resolver.lastQuery(t)
	assert.Equal(t, "Pupuk apa?", query.Message)
	assert.Equal(t, "s1", query.SessionKey)
	assert.Nil(t, query.Attachment)
}

func TestChatDefaultsSessionAndEmptyReferences(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("Siram pagi hari."), 0)

	rec := api.do(jsonRequest(http.MethodPost, "/api/chat", `{"message":"Kapan menyiram?"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"references":[]`)
	assert.Equal(t, domain.DefaultSessionKey, decode[chatResponse](t, rec).SessionID)
}

func TestChatRejectsBadInput(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("unused"), 0)

	for _, body := range []string{`{"message":"   "}`, `not json`, ``} {
		rec := api.do(jsonRequest(http.MethodPost, "/api/chat", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, api.resolver.queries)
}

func TestChatFailureStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind domain.ErrorKind
		want int
	}{
		{kind: domain.ErrorKindRetryBudgetExceeded, want: http.StatusServiceUnavailable},
		{kind: domain.ErrorKindPoolExhausted, want: http.StatusServiceUnavailable},
		{kind: domain.ErrorKindFatal, want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			api := newTestAPI(t, domain.FailureOutcome(tt.kind, "service unavailable"), 0)
			rec := api.do(jsonRequest(http.MethodPost, "/api/chat", `{"message":"hi"}`))

			assert.Equal(t, tt.want, rec.Code)
			body := decode[errorResponse](t, rec)
			assert.Equal(t, "service unavailable", body.Error)
			assert.Equal(t, tt.kind, body.Kind)
		})
	}
}

func TestChatMultipartWithImage(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("Daun terkena jamur."), 0)
	image := []byte("\x89PNG fake image")

	rec := api.do(multipartRequest(t,
		map[string]string{"session_id": "farm", "message": "Kenapa daunnya?"},
		&filePart{name: "../daun padi.png", contentType: "image/png", data: image},
	))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[chatResponse](t, rec)
	assert.Equal(t, "/uploads/1700000000_daun_padi.png", body.FileURL)

	saved, err := os.ReadFile(filepath.Join(api.uploads, "1700000000_daun_padi.png"))
	require.NoError(t, err)
	assert.Equal(t, image, saved)

	query := api.resolver.lastQuery(t)
	assert.Equal(t, "[FILE_UPLOADED:/uploads/1700000000_daun_padi.png] Kenapa daunnya?", query.Message)
	require.NotNil(t, query.Attachment)
	assert.Equal(t, "image/png", query.Attachment.MIMEType)
	assert.Equal(t, image, query.Attachment.Data)

	served := api.do(httptest.NewRequest(http.MethodGet, body.FileURL, nil))
	assert.Equal(t, http.StatusOK, served.Code)
}

func TestChatMultipartFileOnlyZip(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("Arsip diterima."), 0)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	for _, name := range []string{"a.txt", "b/c.csv"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, "data")
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	rec := api.do(multipartRequest(t, nil, &filePart{name: "data.zip", contentType: "application/zip", data: archive.Bytes()}))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[chatResponse](t, rec)
	assert.Equal(t, []string{"a.txt", "b/c.csv"}, body.ZipContents)

	query := api.resolver.lastQuery(t)
	assert.Equal(t, "[FILE_UPLOADED:/uploads/1700000000_data.zip]", query.Message)
	assert.Nil(t, query.Attachment)
}

func TestChatMultipartRejections(t *testing.T) {
	t.Parallel()

	t.Run("disallowed type", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t, domain.LocalOutcome("unused"), 0)
		rec := api.do(multipartRequest(t, map[string]string{"message": "run this"},
			&filePart{name: "tool.exe", contentType: "application/octet-stream", data: []byte("MZ")}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, api.resolver.queries)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t, domain.LocalOutcome("unused"), 256)
		rec := api.do(multipartRequest(t, map[string]string{"message": "big"},
			&filePart{name: "big.txt", contentType: "text/plain", data: bytes.Repeat([]byte("x"), 4096)}))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, api.resolver.queries)
	})

	t.Run("no message no file", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t, domain.LocalOutcome("unused"), 0)
		rec := api.do(multipartRequest(t, map[string]string{"session_id": "x"}, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("unused"), 0)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/history?session_id=s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[application.SessionHistory](t, rec)
	assert.Equal(t, "s1", history.SessionKey)
	assert.Len(t, history.Exchanges, 1)
	assert.Equal(t, 1, history.MemoryLength)

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/history?session_id=s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":1}`, rec.Body.String())

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	assert.JSONEq(t, `{"cleared":3}`, rec.Body.String())
	assert.Equal(t, []string{"s1", ""}, api.history.cleared)
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("unused"), 0)
	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/export?session_id=s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"filename":"/tmp/exports/chat_history_s1.json"}`, rec.Body.String())

	api.history.exportErr = errors.New("disk full")
	rec = api.do(httptest.NewRequest(http.MethodGet, "/api/export", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestStatusAndMetrics(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, domain.LocalOutcome("unused"), 0)

	rec := api.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[application.SystemStatus](t, rec)
	assert.True(t, status.Online)
	assert.Equal(t, 2, status.CredentialCount)
	assert.Equal(t, application.DefaultModelListLimit, api.status.limit)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\a\hasil.xls`:  "hasil.xls",
		"catatan panen (1).txt": "catatan_panen_1_.txt",
		"...":                   "upload",
	}
	for input, want := range tests {
		assert.Equal(t, want, sanitizeFilename(input), input)
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	server := NewServer("127.0.0.1:0", http.NotFoundHandler(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
