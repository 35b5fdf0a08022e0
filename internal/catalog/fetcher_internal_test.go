package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper — its a mock for http.RoundTripper.
type mockRoundTripper struct {
	response *http.Response
	err      error
}

func (m *mockRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return m.response, m.err
}

func pageJSON(ids ...int) string {
	items := make([]string, 0, len(ids))
	for _, id := range ids {
		items = append(items, fmt.Sprintf(
			`{"id": %d, "title": "PLA %d", "handle": "pla-%d", "variants": [{"id": %d, "title": "Red", "available": true, "price": "10.00"}]}`,
			id, id, id, id*10))
	}
	return `{"products": [` + strings.Join(items, ",") + `]}`
}

// newCatalogServer serves pages from the map; missing pages are empty, failPage answers 500.
func newCatalogServer(t *testing.T, pages map[int]string, failPage int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/products.json" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "250", r.URL.Query().Get("limit"))

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		if page == failPage {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		body, ok := pages[page]
		if !ok {
			body = `{"products": []}`
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func newTestFetcher(baseURL string) *Fetcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFetcher(logger, baseURL, Options{PageDelay: time.Millisecond, RequestTimeout: time.Second})
}

func TestFetch(t *testing.T) {
	t.Run("all pages until an empty one", func(t *testing.T) {
		srv, calls := newCatalogServer(t, map[int]string{
			1: pageJSON(1, 2),
			2: pageJSON(3),
		}, 0)

		products, err := newTestFetcher(srv.URL).Fetch(t.Context())

		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, "1", products[0].ID.String())
		assert.Equal(t, "3", products[2].ID.String())
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("partial catalog when a later page fails", func(t *testing.T) {
		srv, _ := newCatalogServer(t, map[int]string{
			1: pageJSON(1),
			2: pageJSON(2),
			3: pageJSON(3),
			5: pageJSON(5),
		}, 4)

		products, err := newTestFetcher(srv.URL).Fetch(t.Context())

		require.NoError(t, err)
		require.Len(t, products, 3)
		for i, p := range products {
			assert.Equal(t, strconv.Itoa(i+1), p.ID.String())
		}
	})

	t.Run("first page fails", func(t *testing.T) {
		srv, _ := newCatalogServer(t, nil, 1)

		products, err := newTestFetcher(srv.URL).Fetch(t.Context())

		require.ErrorIs(t, err, ErrFetch)
		assert.Nil(t, products)
	})

	t.Run("empty catalog", func(t *testing.T) {
		srv, _ := newCatalogServer(t, nil, 0)

		products, err := newTestFetcher(srv.URL).Fetch(t.Context())

		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("max pages caps the sweep", func(t *testing.T) {
		srv, calls := newCatalogServer(t, map[int]string{
			1: pageJSON(1), 2: pageJSON(2), 3: pageJSON(3),
		}, 0)
		f := newTestFetcher(srv.URL)
		f.opts.MaxPages = 2

		products, err := f.Fetch(t.Context())

		require.NoError(t, err)
		assert.Len(t, products, 2)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("canceled context", func(t *testing.T) {
		srv, _ := newCatalogServer(t, map[int]string{1: pageJSON(1)}, 0)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := newTestFetcher(srv.URL).Fetch(ctx)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrFetch)
	})
}

func TestFetch_PagesAreSpaced(t *testing.T) {
	const delay = 50 * time.Millisecond

	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()

		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = io.WriteString(w, pageJSON(1))
		case "2":
			_, _ = io.WriteString(w, pageJSON(2))
		default:
			_, _ = io.WriteString(w, `{"products": []}`)
		}
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := NewFetcher(logger, srv.URL, Options{PageDelay: delay, RequestTimeout: time.Second})

	products, err := f.Fetch(t.Context())
	require.NoError(t, err)
	assert.Len(t, products, 2)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 3)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), delay-5*time.Millisecond, "gap before page %d", i+1)
	}
}

func TestFetchPage(t *testing.T) {
	testCases := []struct {
		name           string
		mockResponse   *http.Response
		mockError      error
		baseURL        string
		expectedCount  int
		expectedErrMsg string
	}{
		{
			name: "Successful request (200 OK)",
			mockResponse: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(pageJSON(7))),
			},
			baseURL:       "http://test.com",
			expectedCount: 1,
		},
		{
			name: "Server Error (500)",
			mockResponse: &http.Response{
				StatusCode: http.StatusInternalServerError,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(strings.NewReader("Error")),
			},
			baseURL:        "http://test.com",
			expectedErrMsg: "status code error: [500]",
		},
		{
			name: "Malformed JSON",
			mockResponse: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"products": [`)),
			},
			baseURL:        "http://test.com",
			expectedErrMsg: "failed to decode page 1",
		},
		{
			name:           "Network error",
			mockError:      errors.New("connection failed"),
			baseURL:        "http://test.com",
			expectedErrMsg: "connection failed",
		},
		{
			name:           "Invalid base URL",
			baseURL:        "://invalid-url",
			expectedErrMsg: "failed to parse base URL",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFetcher(tc.baseURL)
			f.client = &http.Client{
				Transport: &mockRoundTripper{response: tc.mockResponse, err: tc.mockError},
			}

			products, err := f.fetchPage(t.Context(), 1)

			if tc.expectedErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)
			assert.Len(t, products, tc.expectedCount)
		})
	}
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(slog.Default(), "http://test.com", Options{PageDelay: -time.Second})

	assert.Equal(t, DefaultPageSize, f.opts.PageSize)
	assert.Equal(t, DefaultRequestTimeout, f.opts.RequestTimeout)
	assert.Equal(t, DefaultMaxPages, f.opts.MaxPages)
	assert.Zero(t, f.opts.PageDelay)
	assert.Equal(t, "http://test.com", f.BaseURL())
}
