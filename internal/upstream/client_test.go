package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finmcp/finmcp/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(opts Options) *Client {
	opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(opts)
}

func TestDoSendsSingleRequestWithHeadersQueryAndBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/operation-history/acc-1", r.URL.Path)
		assert.Equal(t, "on", r.Header.Get("sandbox"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Len(t, r.Header.Get("X-Request-Id"), 26)
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 50, body["records"])
		_, _ = w.Write([]byte(`[{"id":"op-1"}]`))
	}))
	defer srv.Close()

	c := newTestClient(Options{Service: "bank"})
	var out []map[string]any
	err := c.JSON(context.Background(), "modulbank history", Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/v1/operation-history/acc-1",
		Header: map[string]string{"sandbox": "on"},
		Query:  url.Values{"page": {"1"}},
		Body:   map[string]int{"records": 50, "skip": 0},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "op-1", out[0]["id"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoNon2xxUsesStatusMessageAndDoesNotRetry(t *testing.T) {
	for _, status := range []int{401, 403, 500} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := newTestClient(Options{
				Service:       "tax",
				StatusMessage: func(s int, _ []byte) string { return fmt.Sprintf("API-ФНС вернула ошибку: %d", s) },
			})
			_, err := c.Do(context.Background(), "egr", Request{URL: srv.URL})
			require.Error(t, err)

			var ue *core.UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, status, ue.StatusCode)
			assert.Equal(t, fmt.Sprintf("API-ФНС вернула ошибку: %d", status), ue.Message)
			assert.Equal(t, core.RPCInternalError, core.MapError(err).RPCCode)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestDoTransportFailureIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := newTestClient(Options{Service: "arbitr", FailureMessage: "Не удалось выполнить поиск"})
	_, err := c.Do(context.Background(), "search", Request{URL: addr})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, "Не удалось выполнить поиск", core.MapError(err).Message)
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(Options{Service: "bank", Timeout: 50 * time.Millisecond})
	_, err := c.Do(context.Background(), "statement", Request{URL: srv.URL, FailureMessage: "Не удалось получить выписку"})
	require.Error(t, err)
	assert.Equal(t, "Не удалось получить выписку", core.MapError(err).Message)
}

func TestJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	c := newTestClient(Options{Service: "tax", FailureMessage: "generic"})
	var out map[string]any
	err := c.JSON(context.Background(), "search", Request{URL: srv.URL}, &out)
	require.Error(t, err)
	var ue *core.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "generic", ue.Message)
}

func TestDoInvalidURLIsInternal(t *testing.T) {
	c := newTestClient(Options{Service: "tax"})
	_, err := c.Do(context.Background(), "search", Request{URL: "http://[::1"})
	require.Error(t, err)
	assert.Equal(t, "internal_error", core.MapError(err).Code)
}

func TestDoRejectsOversizedBody(t *testing.T) {
	payload := make([]byte, 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := newTestClient(Options{Service: "tax", FailureMessage: "Не удалось получить выписку"})

	c.maxBody = int64(len(payload))
	body, err := c.Do(context.Background(), "vyp", Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, body, len(payload), "a body exactly at the limit is returned whole")

	c.maxBody = int64(len(payload)) - 1
	body, err = c.Do(context.Background(), "vyp", Request{URL: srv.URL})
	require.Error(t, err)
	assert.Nil(t, body)
	var ue *core.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusOK, ue.StatusCode)
	assert.Equal(t, "Не удалось получить выписку", ue.Message)
}
