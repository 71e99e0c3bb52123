package openlibrary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librilane/book-import/internal/infrastructure/openlibrary"
)

func TestLookupBatchMapsResponses(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("bibkeys"), "ISBN:9780134190440")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
            "ISBN:9780134190440": {
                "title": "The Go Programming Language",
                "publishers": [{"name": "Addison-Wesley"}],
                "publish_date": "2015",
                "authors": [{"name": "Alan A. A. Donovan"}, {"name": "Brian W. Kernighan"}],
                "number_of_pages": 380,
                "subjects": [{"name": "Go (Computer program language)"}]
            }
        }`))
	}))
	defer server.Close()

	client := openlibrary.NewClient(openlibrary.Config{BaseURL: server.URL, RPS: 1000})

	found, err := client.LookupBatch(context.Background(), []string{"9780134190440", "9780000000404"})
	require.NoError(t, err)

	require.Len(t, found, 1)
	meta, ok := found["9780134190440"]
	require.True(t, ok)
	assert.Equal(t, "The Go Programming Language", meta.Title)
	assert.Equal(t, "Addison-Wesley", meta.Publisher)
	assert.Equal(t, []string{"Alan A. A. Donovan", "Brian W. Kernighan"}, meta.Authors)
	assert.Equal(t, 380, meta.PageCount)

	_, absent := found["9780000000404"]
	assert.False(t, absent)
}

func TestLookupBatchTransportFailureReportsAllAbsent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := openlibrary.NewClient(openlibrary.Config{BaseURL: server.URL, RPS: 1000, MaxRetries: 0})

	found, err := client.LookupBatch(context.Background(), []string{"9780134190440"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLookupBatchRejectsOverCapBatch(t *testing.T) {
	t.Parallel()

	client := openlibrary.NewClient(openlibrary.Config{BaseURL: "http://unused", RPS: 1000, BatchCap: 2})

	_, err := client.LookupBatch(context.Background(), []string{"1111111111", "2222222222", "3333333333"})
	assert.Error(t, err)
}

func TestLookupBatchHonorsCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := openlibrary.NewClient(openlibrary.Config{BaseURL: server.URL, RPS: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.LookupBatch(ctx, []string{"9780134190440"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupBatchEmptyInput(t *testing.T) {
	t.Parallel()

	client := openlibrary.NewClient(openlibrary.Config{BaseURL: "http://unused", RPS: 1000})

	found, err := client.LookupBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, found)
}
