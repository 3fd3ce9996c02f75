package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SleepSheepQwQ/userdata-server/config"
	"github.com/SleepSheepQwQ/userdata-server/internal/store"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

// fakeDirectory 模拟数据访问层并记录调用
type fakeDirectory struct {
	records    []store.UserRecord
	total      int64
	distinct   map[string]int64
	lookups    []string
	countCalls int
}

func (f *fakeDirectory) CountAll(_ context.Context) int64 {
	f.countCalls++
	return f.total
}

func (f *fakeDirectory) CountDistinct(_ context.Context, field string) int64 {
	f.countCalls++
	return f.distinct[field]
}

func (f *fakeDirectory) Lookup(_ context.Context, field, value string) []store.UserRecord {
	f.lookups = append(f.lookups, field+"="+value)
	if f.records == nil {
		return []store.UserRecord{}
	}
	return f.records
}

func newTestRouter(dir *fakeDirectory) *Router {
	cfgStore := config.NewStore(config.Config{StoragePath: "/tmp/users.db", Port: 8099})
	return NewRouter(cfgStore, dir, zap.NewNop())
}

func do(rt *Router, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, r)
	return w
}

// =============================================================================
// 🧪 路由表测试
// =============================================================================

func TestRouter_Root(t *testing.T) {
	rt := newTestRouter(&fakeDirectory{})

	w := do(rt, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User Data Server Running", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestRouter_Config(t *testing.T) {
	rt := newTestRouter(&fakeDirectory{})

	w := do(rt, http.MethodGet, "/config", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var got config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "/tmp/users.db", got.StoragePath)
	assert.Equal(t, 8099, got.Port)
}

func TestRouter_ConfigReflectsStore(t *testing.T) {
	cfgStore := config.NewStore(config.Config{StoragePath: "a", Port: 1})
	rt := NewRouter(cfgStore, &fakeDirectory{}, zap.NewNop())

	cfgStore.Set(config.Config{StoragePath: "b", Port: 2})

	w := do(rt, http.MethodGet, "/config", "")
	var got config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, config.Config{StoragePath: "b", Port: 2}, got)
}

func TestRouter_NotFound(t *testing.T) {
	rt := newTestRouter(&fakeDirectory{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/missing"},
		{http.MethodGet, "/query"}, // query 只接受 POST
		{http.MethodPost, "/"},
		{http.MethodPost, "/missing"},
	} {
		w := do(rt, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Not Found", w.Body.String())
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	rt := newTestRouter(&fakeDirectory{})

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := do(rt, method, "/", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "Method Not Allowed", w.Body.String())
	}
}

// =============================================================================
// 🧪 /query 测试
// =============================================================================

func TestRouter_Query_MatchReproducesStoredValues(t *testing.T) {
	email := "a@x.com"
	phone := "5551234"
	dir := &fakeDirectory{
		records: []store.UserRecord{{Email: &email, Phone: &phone, QQ: nil}},
	}
	rt := newTestRouter(dir)

	w := do(rt, http.MethodPost, "/query", "phone=5551234")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`[{"email":"a@x.com","phone":"5551234","qq":null}]`,
		strings.TrimSpace(w.Body.String()))
	assert.Equal(t, []string{"phone=5551234"}, dir.lookups)
}

func TestRouter_Query_NoMatch(t *testing.T) {
	rt := newTestRouter(&fakeDirectory{})

	w := do(rt, http.MethodPost, "/query", "phone=0000000")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestRouter_Query_NoRecognizedKeySkipsStorage(t *testing.T) {
	dir := &fakeDirectory{}
	rt := newTestRouter(dir)

	w := do(rt, http.MethodPost, "/query", "password=hunter2&name=bob")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	assert.Empty(t, dir.lookups, "storage must not be queried")
}

func TestRouter_Query_EmptyBody(t *testing.T) {
	dir := &fakeDirectory{}
	rt := newTestRouter(dir)

	w := do(rt, http.MethodPost, "/query", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	assert.Empty(t, dir.lookups)
}

func TestRouter_Query_PrecedencePhoneOverQQOverEmail(t *testing.T) {
	dir := &fakeDirectory{}
	rt := newTestRouter(dir)

	do(rt, http.MethodPost, "/query", "email=a@x.com&qq=10001&phone=5551234")
	require.Equal(t, []string{"phone=5551234"}, dir.lookups)

	dir.lookups = nil
	do(rt, http.MethodPost, "/query", "email=a@x.com&qq=10001")
	require.Equal(t, []string{"qq=10001"}, dir.lookups)

	dir.lookups = nil
	do(rt, http.MethodPost, "/query", "email=a@x.com")
	require.Equal(t, []string{"email=a@x.com"}, dir.lookups)
}

func TestRouter_Query_NoPercentDecoding(t *testing.T) {
	dir := &fakeDirectory{}
	rt := newTestRouter(dir)

	do(rt, http.MethodPost, "/query", "email=a%40x.com")

	// 值保持字面形式，不做百分号解码
	require.Equal(t, []string{"email=a%40x.com"}, dir.lookups)
}

// =============================================================================
// 🧪 /stats 测试
// =============================================================================

func TestRouter_Stats(t *testing.T) {
	dir := &fakeDirectory{
		total:    3,
		distinct: map[string]int64{"phone": 2, "qq": 1, "email": 3},
	}
	rt := newTestRouter(dir)

	w := do(rt, http.MethodPost, "/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "Total Records: 3")
	assert.Contains(t, body, "Unique Phones: 2")
	assert.Contains(t, body, "Unique QQs: 1")
	assert.Contains(t, body, "Unique Emails: 3")
}
