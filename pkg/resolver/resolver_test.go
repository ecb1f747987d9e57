package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/coordnet/internal/store"
)

func TestResolveFollowsRedirectToFinalURL(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, final.URL+"/landing", http.StatusFound)
	}))
	defer short.Close()

	r := New(Options{RateLimit: 1000, Burst: 1000})
	res := r.Resolve(context.Background(), short.URL+"/a")

	assert.Equal(t, store.StatusResolved, res.Status)
	assert.Equal(t, final.URL+"/landing", res.CanonicalURL)
}

func TestResolveMarksServerErrorTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(Options{RateLimit: 1000, Burst: 1000})
	res := r.Resolve(context.Background(), srv.URL)

	assert.Equal(t, store.StatusTransientFailure, res.Status)
}

func TestResolveMarksNotFoundPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(Options{RateLimit: 1000, Burst: 1000})
	res := r.Resolve(context.Background(), srv.URL)

	assert.Equal(t, store.StatusPermanentFailure, res.Status)
}

func TestResolveRejectsMalformedURL(t *testing.T) {
	r := New(Options{RateLimit: 1000, Burst: 1000})
	res := r.Resolve(context.Background(), "not a url")
	assert.Equal(t, store.StatusPermanentFailure, res.Status)
}

type fakeCorpus struct {
	pending  []string
	recorded []store.ResolvedURL
}

func (f *fakeCorpus) PendingURLs(ctx context.Context, limit int) ([]string, error) {
	return f.pending, nil
}

func (f *fakeCorpus) RecordResolution(ctx context.Context, r store.ResolvedURL) error {
	f.recorded = append(f.recorded, r)
	return nil
}

func TestResolveAllDrainsPendingURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fc := &fakeCorpus{pending: []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}}
	r := New(Options{RateLimit: 1000, Burst: 1000})

	n, err := r.ResolveAll(context.Background(), fc, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, fc.recorded, 3)
}
