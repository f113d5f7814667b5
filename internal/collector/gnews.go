package collector

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/timeutil"
)

const gnewsBaseURL = "https://gnews.io"

// GNewsAdapter gnews.io /api/v4/search，需要 GNEWS_API_KEY
type GNewsAdapter struct {
	apiKey string
	opts   options
}

func NewGNewsAdapter(apiKey string, opts ...Option) *GNewsAdapter {
	return &GNewsAdapter{apiKey: strings.TrimSpace(apiKey), opts: newOptions(gnewsBaseURL, opts)}
}

func (g *GNewsAdapter) Name() string {
	return "gnews"
}

func (g *GNewsAdapter) FetchRaw(ctx context.Context, terms []string) (*articlesResponse, error) {
	if g.apiKey == "" {
		return nil, &ConfigError{Provider: g.Name(), Key: "GNEWS_API_KEY"}
	}
	g.opts.logger.Info("fetch GNews search...", logger.Int("page_size", g.opts.pageSize))

	from := timeutil.MinusHoursAt(g.opts.now(), g.opts.windowHours)
	q := url.Values{}
	q.Set("q", buildORQuery(terms))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("sortby", "publishedAt")
	q.Set("lang", "en")
	q.Set("max", strconv.Itoa(g.opts.pageSize))
	q.Set("apikey", g.apiKey)

	var out articlesResponse
	if err := getJSON(ctx, g.opts.httpClient, g.Name(), g.opts.baseURL+"/api/v4/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *GNewsAdapter) Normalize(raw *articlesResponse) []DevelopmentItem {
	return normalizeArticles(raw, providerLabelGNews, g.opts.now(), g.opts.logger)
}
