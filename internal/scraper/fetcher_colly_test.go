package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMergeCookies(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		pairs []Cookie
		want  string
	}{
		{name: "empty", want: ""},
		{name: "raw only", raw: "sid=1; theme=dark", want: "sid=1; theme=dark"},
		{name: "raw with trailing semicolon", raw: "sid=1; ", want: "sid=1"},
		{name: "pairs only", pairs: []Cookie{{Name: "sid", Value: "1"}, {Name: "lang", Value: "en"}}, want: "sid=1; lang=en"},
		{name: "raw then pairs", raw: "sid=1", pairs: []Cookie{{Name: "lang", Value: "en"}}, want: "sid=1; lang=en"},
		{name: "nameless pair skipped", pairs: []Cookie{{Value: "orphan"}, {Name: "ok", Value: "1"}}, want: "ok=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MergeCookies(tt.raw, tt.pairs))
		})
	}
}

func TestCollyFetcherFetch(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><h1>ok</h1></html>"))
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(FetchConfig{
		UserAgent:    "jobsift-test",
		Timeout:      5 * time.Second,
		Concurrency:  1,
		CookieHeader: "sid=abc",
	}, nil)
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL+"/jobs/detail/1")
	require.NoError(t, err)
	require.Equal(t, 200, page.StatusCode)
	require.Contains(t, string(page.Body), "<h1>ok</h1>")
	require.Equal(t, "sid=abc", gotCookie)
	require.Positive(t, page.Duration)
}

func TestCollyFetcherNonOKStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f, err := NewCollyFetcher(FetchConfig{UserAgent: "jobsift-test", Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)

	page, err := f.Fetch(context.Background(), srv.URL+"/jobs/detail/old")
	require.NoError(t, err)
	require.Equal(t, http.StatusGone, page.StatusCode)
}

func TestCollyFetcherHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte("late"))
	}))
	defer srv.Close()
	defer close(release)

	f, err := NewCollyFetcher(FetchConfig{UserAgent: "jobsift-test", Timeout: 10 * time.Second}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err = f.Fetch(ctx, srv.URL+"/jobs/detail/slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	// The deadline bounds the call even though the collector's own request
	// timeout is far longer.
	require.Less(t, time.Since(started), 5*time.Second)
}

func TestCollyFetcherInvalidateSession(t *testing.T) {
	f, err := NewCollyFetcher(FetchConfig{UserAgent: "jobsift-test", Timeout: time.Second}, nil)
	require.NoError(t, err)

	before := f.base
	f.InvalidateSession()
	require.NotSame(t, before, f.base)
}
