package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/timeutil"
)

const newsAPIBaseURL = "https://newsapi.org"

// NewsAPIAdapter newsapi.org /v2/everything，需要 NEWSAPI_KEY
type NewsAPIAdapter struct {
	apiKey string
	opts   options
}

func NewNewsAPIAdapter(apiKey string, opts ...Option) *NewsAPIAdapter {
	return &NewsAPIAdapter{apiKey: strings.TrimSpace(apiKey), opts: newOptions(newsAPIBaseURL, opts)}
}

func (n *NewsAPIAdapter) Name() string {
	return "newsapi"
}

func (n *NewsAPIAdapter) FetchRaw(ctx context.Context, terms []string) (*articlesResponse, error) {
	if n.apiKey == "" {
		return nil, &ConfigError{Provider: n.Name(), Key: "NEWSAPI_KEY"}
	}
	n.opts.logger.Info("fetch NewsAPI everything...", logger.Int("page_size", n.opts.pageSize))

	from := timeutil.MinusHoursAt(n.opts.now(), n.opts.windowHours)
	q := url.Values{}
	q.Set("q", buildORQuery(terms))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("pageSize", strconv.Itoa(n.opts.pageSize))

	header := http.Header{}
	header.Set("X-Api-Key", n.apiKey)

	var out articlesResponse
	if err := getJSON(ctx, n.opts.httpClient, n.Name(), n.opts.baseURL+"/v2/everything?"+q.Encode(), header, &out); err != nil {
		return nil, err
	}
	// 200 但 status=error 的情况也按传输错误处理
	if out.Status != "" && out.Status != "ok" {
		return nil, &TransportError{Provider: n.Name(), Err: fmt.Errorf("%s: %s", out.Code, out.Message)}
	}
	return &out, nil
}

func (n *NewsAPIAdapter) Normalize(raw *articlesResponse) []DevelopmentItem {
	return normalizeArticles(raw, providerLabelNewsAPI, n.opts.now(), n.opts.logger)
}
