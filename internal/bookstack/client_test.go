package bookstack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at a test server with a tiny request
// interval so tests stay fast.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:            server.URL,
		TokenID:            "test-id",
		TokenSecret:        "test-secret",
		Timeout:            5 * time.Second,
		MinRequestInterval: time.Millisecond,
	})
	return client, server
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_AuthHeader(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
	}))

	err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Token test-id:test-secret", gotAuth)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		check      func(t *testing.T, err error)
	}{
		{
			name:       "401 yields auth error",
			statusCode: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
			},
		},
		{
			name:       "404 on detail fetch yields not-found error",
			statusCode: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNotFound(err))
			},
		},
		{
			name:       "429 yields rate limit error",
			statusCode: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var rlErr *RateLimitError
				require.ErrorAs(t, err, &rlErr)
			},
		},
		{
			name:       "500 yields generic API error with parsed body",
			statusCode: http.StatusInternalServerError,
			body:       `{"error": "something broke"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
				assert.Contains(t, apiErr.Message, "something broke")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))

			_, err := client.GetShelves(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_NetworkErrorHasNoStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(Config{
		BaseURL:            server.URL,
		TokenID:            "id",
		TokenSecret:        "secret",
		MinRequestInterval: time.Millisecond,
	})
	server.Close()

	err := client.TestConnection(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Error(t, apiErr.Err)
}

func TestClient_FindShelf(t *testing.T) {
	t.Run("matches case-insensitively", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Home Docs", r.URL.Query().Get("search"))
			writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{
				{"id": 3, "name": "HOME docs", "slug": "home-docs"},
			}})
		}))

		shelf, err := client.FindShelf(context.Background(), "Home Docs")
		require.NoError(t, err)
		require.NotNil(t, shelf)
		assert.Equal(t, 3, shelf.ID)
	})

	t.Run("empty search result is absent, not an error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
		}))

		shelf, err := client.FindShelf(context.Background(), "Missing")
		require.NoError(t, err)
		assert.Nil(t, shelf)
	})

	t.Run("non-matching results are absent", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{
				{"id": 1, "name": "Something Else", "slug": "something-else"},
			}})
		}))

		shelf, err := client.FindShelf(context.Background(), "Home Docs")
		require.NoError(t, err)
		assert.Nil(t, shelf)
	})
}

func TestClient_FindOrCreateShelf_Idempotent(t *testing.T) {
	var creates atomic.Int32
	var created atomic.Bool

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			if created.Load() {
				writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{
					{"id": 1, "name": "Home Docs", "slug": "home-docs"},
				}})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
		case r.Method == http.MethodPost:
			creates.Add(1)
			created.Store(true)
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 1, "name": "Home Docs", "slug": "home-docs"})
		}
	}))

	ctx := context.Background()
	first, err := client.FindOrCreateShelf(ctx, "Home Docs", "desc")
	require.NoError(t, err)
	second, err := client.FindOrCreateShelf(ctx, "Home Docs", "desc")
	require.NoError(t, err)

	assert.Equal(t, int32(1), creates.Load(), "second call must not create a duplicate shelf")
	assert.Equal(t, first.ID, second.ID)
}

func TestClient_FindOrCreateBook_CachesResult(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"id": 7, "name": "Areas", "slug": "areas"},
		}})
	}))

	ctx := context.Background()
	book, err := client.FindOrCreateBook(ctx, "Areas", "")
	require.NoError(t, err)
	assert.Equal(t, 7, book.ID)
	requestsAfterFirst := requests.Load()

	again, err := client.FindOrCreateBook(ctx, "areas", "")
	require.NoError(t, err)
	assert.Equal(t, 7, again.ID)
	assert.Equal(t, requestsAfterFirst, requests.Load(), "cached book lookup must not hit the API")

	// After clearing the cache the remote instance is consulted again.
	client.ClearCache()
	_, err = client.FindOrCreateBook(ctx, "Areas", "")
	require.NoError(t, err)
	assert.Greater(t, requests.Load(), requestsAfterFirst)
}

func TestClient_FindChapter(t *testing.T) {
	t.Run("404 on empty book is an empty result", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		chapter, err := client.FindChapter(context.Background(), 12, "Ground Floor")
		require.NoError(t, err)
		assert.Nil(t, chapter)
	})

	t.Run("second lookup is served from cache", func(t *testing.T) {
		var requests atomic.Int32
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			assert.Equal(t, "/api/books/12/chapters", r.URL.Path)
			writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{
				{"id": 4, "book_id": 12, "name": "Ground Floor", "slug": "ground-floor"},
			}})
		}))

		ctx := context.Background()
		first, err := client.FindChapter(ctx, 12, "ground floor")
		require.NoError(t, err)
		require.NotNil(t, first)

		second, err := client.FindChapter(ctx, 12, "Ground Floor")
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, int32(1), requests.Load())
	})
}

func TestClient_CreateChapter_EndpointShape(t *testing.T) {
	t.Run("flat endpoint carries book_id in the body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chapters", r.URL.Path)
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, float64(12), payload["book_id"])
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 4, "book_id": 12, "name": "Attic", "slug": "attic"})
		}))

		chapter, err := client.CreateChapter(context.Background(), 12, "Attic", "")
		require.NoError(t, err)
		assert.Equal(t, 4, chapter.ID)
	})

	t.Run("nested endpoint puts the book in the path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/books/12/chapters", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 4, "book_id": 12, "name": "Attic", "slug": "attic"}`))
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL:             server.URL,
			TokenID:             "id",
			TokenSecret:         "secret",
			MinRequestInterval:  time.Millisecond,
			NestedChapterCreate: true,
		})

		chapter, err := client.CreateChapter(context.Background(), 12, "Attic", "")
		require.NoError(t, err)
		assert.Equal(t, 4, chapter.ID)
	})
}

func TestClient_CreateOrUpdatePage(t *testing.T) {
	t.Run("existing page is fully overwritten", func(t *testing.T) {
		var updated atomic.Bool
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet:
				writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{
					{"id": 9, "book_id": 12, "chapter_id": 4, "name": "Kitchen Overview", "slug": "kitchen-overview"},
				}})
			case r.Method == http.MethodPut:
				assert.Equal(t, "/api/pages/9", r.URL.Path)
				var payload map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "# New Content", payload["markdown"])
				updated.Store(true)
				writeJSON(t, w, http.StatusOK, map[string]any{"id": 9, "book_id": 12, "chapter_id": 4, "name": "Kitchen Overview", "slug": "kitchen-overview"})
			default:
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
		}))

		page, err := client.CreateOrUpdatePage(context.Background(), 4, "Kitchen Overview", "# New Content")
		require.NoError(t, err)
		assert.Equal(t, 9, page.ID)
		assert.True(t, updated.Load())
	})

	t.Run("absent page is created", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet:
				writeJSON(t, w, http.StatusOK, map[string]any{"data": []any{}})
			case r.Method == http.MethodPost:
				assert.Equal(t, "/api/chapters/4/pages", r.URL.Path)
				writeJSON(t, w, http.StatusOK, map[string]any{"id": 10, "book_id": 12, "chapter_id": 4, "name": "Kitchen Overview", "slug": "kitchen-overview"})
			default:
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
		}))

		page, err := client.CreateOrUpdatePage(context.Background(), 4, "Kitchen Overview", "# Content")
		require.NoError(t, err)
		assert.Equal(t, 10, page.ID)
	})
}

func TestClient_AssignBookToShelf(t *testing.T) {
	t.Run("success returns true", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/shelves/3/books", r.URL.Path)
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 3})
		}))

		assert.True(t, client.AssignBookToShelf(context.Background(), 7, 3))
	})

	t.Run("failure is swallowed and returns false", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		assert.False(t, client.AssignBookToShelf(context.Background(), 7, 3))
	})
}

func TestClient_RateLimiting(t *testing.T) {
	const interval = 120 * time.Millisecond

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:            server.URL,
		TokenID:            "id",
		TokenSecret:        "secret",
		MinRequestInterval: interval,
	})

	ctx := context.Background()
	require.NoError(t, client.TestConnection(ctx))

	start := time.Now()
	require.NoError(t, client.TestConnection(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, interval, "second request must wait out the minimum interval")
}

func TestClient_FindBook_WrapsErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.FindBook(context.Background(), "Areas")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}
