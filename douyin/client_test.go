package douyin

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "fake net error" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func newTestClient(endpoints []string, maxRetries int, rt http.RoundTripper) (*Client, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	c := &Client{
		endpoints:  endpoints,
		maxRetries: maxRetries,
		reqTimeout: 2 * time.Second,
		abort:      10 * time.Second,
		httpc:      &http.Client{Transport: rt},
		sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
	}
	return c, sleeps
}

func TestFetchSuccessFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123", r.URL.Query().Get("aweme_id"))
		w.Write([]byte(`{"data":{"aweme_detail":{"author":{"nickname":"A"}}}}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient([]string{srv.URL + "/v?aweme_id=%s"}, 2, nil)
	outcome := c.Fetch(context.Background(), "123")

	require.True(t, outcome.OK())
	assert.Equal(t, "123", outcome.Info.ID)
	assert.Equal(t, "A", outcome.Info.Author)
	assert.Empty(t, *sleeps)
}

func TestFetchRetriesOnTimeout(t *testing.T) {
	var attempts int32
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, fakeNetErr{timeout: true}
	})

	c, sleeps := newTestClient([]string{"http://upstream.test/v?id=%s"}, 2, rt)
	outcome := c.Fetch(context.Background(), "1")

	assert.False(t, outcome.OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
	assert.Contains(t, outcome.Reason, "所有API端点请求均失败")
	assert.Contains(t, outcome.Reason, "请求超时")
}

func TestFetchRetriesOnNetworkError(t *testing.T) {
	var attempts int32
	rt := rtFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, &net.OpError{Op: "dial", Err: fakeNetErr{}}
	})

	c, _ := newTestClient([]string{"http://upstream.test/v?id=%s"}, 1, rt)
	outcome := c.Fetch(context.Background(), "1")

	assert.False(t, outcome.OK())
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Contains(t, outcome.Reason, "网络错误")
}

func TestFetchNoRetryOnHTTPError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient([]string{srv.URL + "/v?id=%s"}, 2, nil)
	outcome := c.Fetch(context.Background(), "1")

	assert.False(t, outcome.OK())
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Contains(t, outcome.Reason, "HTTP错误: 500")
}

func TestFetchEmptyBodyRetried(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
	}))
	defer srv.Close()

	c, _ := newTestClient([]string{srv.URL + "/v?id=%s"}, 2, nil)
	outcome := c.Fetch(context.Background(), "1")

	assert.False(t, outcome.OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Contains(t, outcome.Reason, "空响应")
}

func TestFetchBadJSONNoRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c, _ := newTestClient([]string{srv.URL + "/v?id=%s"}, 2, nil)
	outcome := c.Fetch(context.Background(), "1")

	assert.False(t, outcome.OK())
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Contains(t, outcome.Reason, "响应解析失败")
}

func TestFetchEndpointFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"aweme_detail":{"author":{"nickname":"B"}}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient([]string{
		srv.URL + "/bad?id=%s",
		srv.URL + "/good?id=%s",
	}, 0, nil)
	outcome := c.Fetch(context.Background(), "1")

	require.True(t, outcome.OK())
	assert.Equal(t, "B", outcome.Info.Author)
}

func TestFetchCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestClient([]string{
		srv.URL + "/a?id=%s",
		srv.URL + "/b?id=%s",
	}, 2, nil)
	outcome := c.Fetch(ctx, "1")

	assert.False(t, outcome.OK())
	assert.Contains(t, outcome.Reason, "请求被中止")
	// 取消后不再尝试后续端点
	assert.NotContains(t, outcome.Reason, "/b?id=")
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "http://a/v?id=9", buildURL("http://a/v?id=%s", "9"))
	assert.Equal(t, "http://a/v/9", buildURL("http://a/v/", "9"))
}
