package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t testing.TB, attempts int) *Client {
	client, err := NewClient(ClientOptions{
		Headers:   map[string]string{"User-Agent": "foodpillory-test"},
		Timeout:   time.Second,
		Attempts:  attempts,
		RetryWait: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestFetchRetriesDroppedConnections(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			panic(http.ErrAbortHandler)
		}
		w.Write([]byte(r.Header.Get("User-Agent") + " " + r.URL.Query().Get("id")))
	}))
	defer server.Close()

	client := testClient(t, 4)
	body, err := client.Fetch(context.Background(), server.URL+"/WDetail.aspx", url.Values{"id": {"100"}})
	require.NoError(t, err)
	require.Equal(t, "foodpillory-test 100", string(body))
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	client := testClient(t, 4)
	_, err := client.Fetch(context.Background(), server.URL+"/WSearch.aspx", nil)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "expected NetworkError, got %v", err)
	require.Equal(t, server.URL+"/WSearch.aspx", netErr.Url)
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestFetchErrorStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(t, 3)

	_, err := client.Fetch(context.Background(), server.URL+"/missing", nil)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.StatusNotFound, netErr.Status)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	_, err = client.Fetch(context.Background(), server.URL+"/unavailable", nil)
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.StatusServiceUnavailable, netErr.Status)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchKeepsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("ASP.NET_SessionId")
		if err != nil {
			http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "session-1", Path: "/"})
			w.Write([]byte("new"))
			return
		}
		w.Write([]byte(cookie.Value))
	}))
	defer server.Close()

	client := testClient(t, 1)
	body, err := client.Fetch(context.Background(), server.URL+"/WSearch.aspx", url.Values{"page": {"1"}})
	require.NoError(t, err)
	require.Equal(t, "new", string(body))

	body, err = client.Fetch(context.Background(), server.URL+"/WSearch.aspx", url.Values{"page": {"2"}})
	require.NoError(t, err)
	require.Equal(t, "session-1", string(body))
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{
		Timeout:   20 * time.Millisecond,
		Attempts:  2,
		RetryWait: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), server.URL, nil)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
}
