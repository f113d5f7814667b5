package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/timeutil"
	"github.com/PuerkitoBio/goquery"
)

const (
	defaultPageSize      = 50
	defaultClientTimeout = 30 * time.Second
	maxResponseBytes     = 2 << 20 // 2MB
	maxErrorSnippetBytes = 512
	defaultUserAgent     = "DevPulseBot/1.0"

	providerLabelHN      = "Hacker News"
	providerLabelNewsAPI = "NewsAPI"
	providerLabelGNews   = "GNews"
)

// 支持的数据源选择值，对应 DEVPULSE_PROVIDER
const (
	ProviderHN      = "HN"
	ProviderNewsAPI = "NEWSAPI"
	ProviderGNews   = "GNEWS"
)

// HTTPClient 便于测试注入
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials 需要密钥的数据源所用的密钥，由外部配置提供
type Credentials struct {
	NewsAPIKey  string
	GNewsAPIKey string
}

type options struct {
	httpClient  HTTPClient
	baseURL     string
	now         func() time.Time
	windowHours int
	pageSize    int
	logger      logger.Logger
}

// Option 配置 Adapter
type Option func(*options)

func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout 使用默认 Transport、指定超时的 http.Client
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithBaseURL 覆盖上游地址（测试时指向 httptest）
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithWindowHours(h int) Option {
	return func(o *options) {
		if h > 0 {
			o.windowHours = h
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(defaultBaseURL string, opts []Option) options {
	o := options{
		httpClient:  &http.Client{Timeout: defaultClientTimeout},
		baseURL:     defaultBaseURL,
		now:         time.Now,
		windowHours: timeutil.DefaultWindowHours,
		pageSize:    defaultPageSize,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProvider 按配置选择数据源，只在启动时调用一次；未知值回落到 Hacker News
func NewProvider(kind string, creds Credentials, opts ...Option) Provider {
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case ProviderNewsAPI:
		return Bind[*articlesResponse](NewNewsAPIAdapter(creds.NewsAPIKey, opts...), DefaultQueryTerms)
	case ProviderGNews:
		return Bind[*articlesResponse](NewGNewsAdapter(creds.GNewsAPIKey, opts...), DefaultQueryTerms)
	case ProviderHN:
		return Bind[*hnSearchResponse](NewHackerNewsAdapter(opts...), DefaultQueryTerms)
	default:
		a := NewHackerNewsAdapter(opts...)
		a.opts.logger.Warn("unknown provider, falling back to hackernews", logger.String("provider", kind))
		return Bind[*hnSearchResponse](a, DefaultQueryTerms)
	}
}

// getJSON 发起一次 GET 并把响应解码到 dst；所有失败都包装成 TransportError
func getJSON(ctx context.Context, client HTTPClient, provider, rawURL string, header http.Header, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &TransportError{Provider: provider, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSnippetBytes))
		return &TransportError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(snippet))),
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(dst); err != nil {
		return &TransportError{Provider: provider, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// plainText 去掉 HTML 标签、解码实体并压缩空白
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
