package collector

import (
	"strings"
	"time"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/timeutil"
)

// articlesResponse NewsAPI 与 GNews 共用的 articles 结构
type articlesResponse struct {
	Status        string    `json:"status"`
	Code          string    `json:"code"`
	Message       string    `json:"message"`
	TotalResults  int       `json:"totalResults"`
	TotalArticles int       `json:"totalArticles"`
	Articles      []article `json:"articles"`
}

type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// normalizeArticles 不做时间窗口过滤，由 pipeline 统一处理
func normalizeArticles(raw *articlesResponse, label string, now time.Time, log logger.Logger) []DevelopmentItem {
	if raw == nil {
		return nil
	}
	results := make([]DevelopmentItem, 0, len(raw.Articles))
	for _, a := range raw.Articles {
		title := strings.TrimSpace(a.Title)
		itemURL := strings.TrimSpace(a.URL)
		// NewsAPI 对下架文章返回 "[Removed]" 占位
		if title == "" || itemURL == "" || title == "[Removed]" {
			log.Debug("drop article without usable title or url", logger.String("provider", label), logger.String("url", itemURL))
			continue
		}

		publishedAt := now
		if t, err := timeutil.ParseInstant(a.PublishedAt); err == nil {
			publishedAt = t
		}

		fallback := strings.TrimSpace(a.Source.Name)
		if fallback == "" {
			fallback = label
		}

		results = append(results, DevelopmentItem{
			ID:          synthesizeID(publishedAt, title),
			Title:       title,
			URL:         itemURL,
			Source:      sourceFromURL(itemURL, fallback),
			PublishedAt: publishedAt,
			Summary:     plainText(a.Description),
			Tags:        []string{label},
		})
	}
	return results
}
