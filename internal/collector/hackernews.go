package collector

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/timeutil"
)

const hnBaseURL = "https://hn.algolia.com"

// HackerNewsAdapter 通过 Algolia 的 search_by_date 接口按时间倒序搜索 HN 故事，无需密钥
type HackerNewsAdapter struct {
	opts options
}

func NewHackerNewsAdapter(opts ...Option) *HackerNewsAdapter {
	return &HackerNewsAdapter{opts: newOptions(hnBaseURL, opts)}
}

func (h *HackerNewsAdapter) Name() string {
	return "hackernews"
}

type hnSearchResponse struct {
	Hits   []hnHit `json:"hits"`
	NbHits int     `json:"nbHits"`
}

type hnHit struct {
	ObjectID   string `json:"objectID"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	StoryTitle string `json:"story_title"`
	StoryURL   string `json:"story_url"`
	StoryText  string `json:"story_text"`
	Author     string `json:"author"`
	Points     int    `json:"points"`
	CreatedAt  string `json:"created_at"`
	CreatedAtI int64  `json:"created_at_i"`
}

func (h *HackerNewsAdapter) FetchRaw(ctx context.Context, terms []string) (*hnSearchResponse, error) {
	h.opts.logger.Info("fetch Hacker News search...", logger.Int("page_size", h.opts.pageSize))

	q := url.Values{}
	q.Set("query", buildORQuery(terms))
	q.Set("tags", "story")
	q.Set("hitsPerPage", strconv.Itoa(h.opts.pageSize))

	var out hnSearchResponse
	if err := getJSON(ctx, h.opts.httpClient, h.Name(), h.opts.baseURL+"/api/v1/search_by_date?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Normalize 丢弃缺标题或缺链接的条目，并额外按时间窗口自检一次（Algolia 的排序只是近似）
func (h *HackerNewsAdapter) Normalize(raw *hnSearchResponse) []DevelopmentItem {
	if raw == nil {
		return nil
	}
	now := h.opts.now()
	results := make([]DevelopmentItem, 0, len(raw.Hits))

	for _, hit := range raw.Hits {
		title := strings.TrimSpace(hit.Title)
		if title == "" {
			title = strings.TrimSpace(hit.StoryTitle)
		}
		itemURL := strings.TrimSpace(hit.URL)
		if itemURL == "" {
			itemURL = strings.TrimSpace(hit.StoryURL)
		}
		if title == "" || itemURL == "" {
			h.opts.logger.Debug("hackernews: drop hit without title or url", logger.String("object_id", hit.ObjectID))
			continue
		}

		publishedAt := now
		if hit.CreatedAtI > 0 {
			publishedAt = timeutil.FromEpoch(hit.CreatedAtI)
		} else if t, err := timeutil.ParseInstant(hit.CreatedAt); err == nil {
			publishedAt = t
		}
		if !timeutil.IsWithinWindowAt(now, publishedAt, h.opts.windowHours) {
			continue
		}

		id := strings.TrimSpace(hit.ObjectID)
		if id == "" {
			id = synthesizeID(publishedAt, title)
		}

		tags := []string{"hackernews"}
		if hit.Author != "" {
			tags = append(tags, "author:"+hit.Author)
		}

		results = append(results, DevelopmentItem{
			ID:          id,
			Title:       title,
			URL:         itemURL,
			Source:      sourceFromURL(itemURL, providerLabelHN),
			PublishedAt: publishedAt,
			Summary:     plainText(hit.StoryText),
			Tags:        tags,
		})
	}

	if len(results) == 0 {
		h.opts.logger.Info("hackernews: no items after normalize", logger.Int("hits", len(raw.Hits)))
	}
	return results
}
