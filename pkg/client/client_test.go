package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netboxlabs/orb-discovery/pkg/translate"
	"github.com/netboxlabs/orb-discovery/pkg/version"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestIngestBeforeInit(t *testing.T) {
	c := New(Options{})
	err := c.Ingest(context.Background(), "p", nil)
	require.ErrorIs(t, err, ErrClientNotInitialized)
}

func TestInitOnce(t *testing.T) {
	c := New(Options{})
	require.Error(t, c.Init("", "key"))
	// the failed first call sticks
	require.Error(t, c.Init("http://127.0.0.1:1", "key"))

	c = New(Options{})
	require.NoError(t, c.Init("http://first.invalid", "key"))
	require.NoError(t, c.Init("not a url", "key"))
	require.Equal(t, "http://first.invalid/ingest", c.endpoint)
}

func TestIngest(t *testing.T) {
	var got struct {
		path, key, requestID, agent string
		body                        []byte
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.key = r.Header.Get("X-Api-Key")
		got.requestID = r.Header.Get("X-Request-Id")
		got.agent = r.Header.Get("User-Agent")
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Options{})
	require.NoError(t, c.Init(srv.URL+"/", "secret"))

	entities := []translate.Entity{
		{Prefix: &translate.Prefix{Prefix: "10.0.0.0/29", Site: "lab"}},
		{IPAddress: &translate.IPAddress{Address: "10.0.0.1", Comments: "SSH: OPEN\n\n"}},
	}
	require.NoError(t, c.Ingest(context.Background(), "p", entities))

	require.Equal(t, "/ingest", got.path)
	require.Equal(t, "secret", got.key)
	require.NotEmpty(t, got.requestID)
	require.Equal(t, version.UserAgent(), got.agent)

	require.True(t, gjson.ValidBytes(got.body))
	body := gjson.ParseBytes(got.body)
	require.Equal(t, "orb-discovery", body.Get("producer_app_name").String())
	require.Equal(t, "10.0.0.0/29", body.Get("entities.0.prefix.prefix").String())
	require.Equal(t, "10.0.0.1", body.Get("entities.1.ip_address.address").String())
}

func TestIngestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad entities", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Options{})
	require.NoError(t, c.Init(srv.URL, "secret"))
	err := c.Ingest(context.Background(), "p", nil)
	require.ErrorContains(t, err, "unexpected status 400: bad entities")
}

func TestIngestSerialized(t *testing.T) {
	var inflight, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
	}))
	defer srv.Close()

	c := New(Options{})
	require.NoError(t, c.Init(srv.URL, "secret"))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Ingest(context.Background(), "p", nil)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&peak))
}
