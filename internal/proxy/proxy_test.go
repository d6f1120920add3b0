package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, backend string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(backend, 5*time.Second, zerolog.New(zerolog.NewTestWriter(t)))
	t.Cleanup(h.Client.CloseIdleConnections)
	h.Register(r)
	return r
}

func do(r http.Handler, method, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, Path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestForward_RelaysJSON(t *testing.T) {
	var gotBody []byte
	var gotCT string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"names":["beanery.com"]}`))
	}))
	defer backend.Close()

	w := do(newRouter(t, backend.URL), http.MethodPost, "{ \"message\" : \"coffee shop\" }")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"names":["beanery.com"]}`, w.Body.String())
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, `{"message":"coffee shop"}`, string(gotBody))
}

func TestForward_EmptyBodySendsEmptyObject(t *testing.T) {
	var gotBody []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer backend.Close()

	w := do(newRouter(t, backend.URL), http.MethodPost, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{}", string(gotBody))
}

func TestForward_RelaysStatusAndNonJSONBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer backend.Close()

	w := do(newRouter(t, backend.URL), http.MethodPost, `{"message":"x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "upstream exploded", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestForward_MissingContentTypeDefaultsToJSON(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	w := do(newRouter(t, backend.URL), http.MethodPost, `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func failureBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestForward_BackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	w := do(newRouter(t, url), http.MethodPost, `{"message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	body := failureBody(t, w)
	assert.Equal(t, "Proxy failed", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestForward_InvalidJSONFails(t *testing.T) {
	called := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer backend.Close()

	w := do(newRouter(t, backend.URL), http.MethodPost, `{"message":`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Proxy failed", failureBody(t, w)["error"])
	assert.False(t, called)
}

func TestPreflight(t *testing.T) {
	w := do(newRouter(t, "http://127.0.0.1:1"), http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}
