package douyin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"dymeta/config"
	"dymeta/log"
	"dymeta/models"
)

const maxBodySize = 16 << 20

// Client 上游抖音元数据客户端。单个ID的获取永远返回FetchOutcome，
// 网络错误在内部消化为失败原因，不向调用方抛错。
type Client struct {
	endpoints  []string // 端点模板，%s处填视频ID，按顺序回退
	maxRetries int
	reqTimeout time.Duration
	abort      time.Duration
	httpc      *http.Client
	// 重试等待，可注入便于测试
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		endpoints:  cfg.Endpoints,
		maxRetries: cfg.MaxRetries,
		reqTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		abort:      time.Duration(cfg.EndpointAbort) * time.Second,
		httpc:      &http.Client{},
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch 逐端点尝试获取视频元数据，拿到响应体即短路返回。
// 全部端点失败时聚合每个端点的失败原因，方便排查。
func (c *Client) Fetch(ctx context.Context, videoID string) models.FetchOutcome {
	reasons := make([]string, 0, len(c.endpoints))
	for _, tpl := range c.endpoints {
		reqURL := buildURL(tpl, videoID)
		payload, reason, aborted := c.tryEndpoint(ctx, reqURL)
		if payload != nil {
			return models.Success(Normalize(payload, videoID))
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", tpl, reason))
		log.Warn("端点请求失败 %s: %s", tpl, reason)
		if aborted {
			break
		}
	}
	return models.Failure("所有API端点请求均失败: " + strings.Join(reasons, "; "))
}

func buildURL(tpl, videoID string) string {
	if strings.Contains(tpl, "%s") {
		return fmt.Sprintf(tpl, videoID)
	}
	return tpl + videoID
}

// tryEndpoint 单端点的有界重试：只有超时和网络错误重试，
// 重试前等待 attempt×1s；整个端点受abort总超时约束。
// 返回 aborted=true 表示调用方取消，不再尝试后续端点。
func (c *Client) tryEndpoint(parent context.Context, reqURL string) (interface{}, string, bool) {
	epCtx, cancel := context.WithTimeout(parent, c.abort)
	defer cancel()

	lastReason := "未知错误"
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug("第%d次重试: %s", attempt, reqURL)
			if err := c.sleep(epCtx, time.Duration(attempt)*time.Second); err != nil {
				if errors.Is(parent.Err(), context.Canceled) {
					return nil, "请求被中止", true
				}
				break
			}
		}

		body, err := c.doRequest(epCtx, reqURL)
		if err != nil {
			if errors.Is(parent.Err(), context.Canceled) {
				return nil, "请求被中止", true
			}
			class, msg := classify(err)
			lastReason = msg
			if class != errTimeout && class != errNetwork {
				break
			}
			// 端点总超时已到，重试没有意义
			if epCtx.Err() != nil {
				break
			}
			continue
		}
		if len(body) == 0 {
			lastReason = "空响应"
			continue
		}

		dec := json.NewDecoder(strings.NewReader(string(body)))
		dec.UseNumber()
		var payload interface{}
		if err := dec.Decode(&payload); err != nil {
			lastReason = fmt.Sprintf("响应解析失败: %v", err)
			break
		}
		return payload, "", false
	}
	return nil, lastReason, false
}

func (c *Client) doRequest(epCtx context.Context, reqURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(epCtx, c.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{StatusCode: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP错误: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

type errClass int

const (
	errTimeout errClass = iota
	errNetwork
	errHTTP
	errAborted
	errOther
)

// classify 错误分类，只用于决定是否重试和拼诊断信息
func classify(err error) (errClass, string) {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		return errHTTP, httpErr.Error()
	}
	if errors.Is(err, context.Canceled) {
		return errAborted, "请求被中止"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errTimeout, "请求超时"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errTimeout, "请求超时"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errNetwork, fmt.Sprintf("网络错误: %v", opErr)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return errNetwork, fmt.Sprintf("网络错误: %v", dnsErr)
	}
	return errOther, err.Error()
}
