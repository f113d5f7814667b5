package collector

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// DevelopmentItem 各数据源归一化后的统一结构
type DevelopmentItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Source       string    `json:"source"`
	PublishedAt  time.Time `json:"publishedAt"`
	RelativeTime string    `json:"relativeTime,omitempty"` // 只在最终输出前由 processor 填充
	Summary      string    `json:"summary,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
}

// Adapter 单个数据源的能力：一次网络请求拿到原始响应，再归一化
type Adapter[R any] interface {
	Name() string
	FetchRaw(ctx context.Context, terms []string) (R, error)
	Normalize(raw R) []DevelopmentItem
}

// Provider 抹掉原始响应类型后的数据源，pipeline 只依赖它
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]DevelopmentItem, error)
}

// Bind 把 Adapter 和查询词绑定成 Provider
func Bind[R any](a Adapter[R], terms []string) Provider {
	return &boundProvider[R]{adapter: a, terms: terms}
}

type boundProvider[R any] struct {
	adapter Adapter[R]
	terms   []string
}

func (b *boundProvider[R]) Name() string { return b.adapter.Name() }

func (b *boundProvider[R]) Fetch(ctx context.Context) ([]DevelopmentItem, error) {
	raw, err := b.adapter.FetchRaw(ctx, b.terms)
	if err != nil {
		return nil, err
	}
	return b.adapter.Normalize(raw), nil
}

// DefaultQueryTerms 默认的 AI 领域关键词
var DefaultQueryTerms = []string{"AI", "LLM", "GPT", "OpenAI", "Anthropic", "Claude", "Gemini", "machine learning"}

// buildORQuery 多词短语加引号，再用 OR 连接
func buildORQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.ContainsAny(t, " \t") {
			t = `"` + t + `"`
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " OR ")
}

// sourceFromURL 取 URL 的 hostname 并去掉 www. 前缀，解析失败时用 fallback
func sourceFromURL(raw, fallback string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return fallback
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// synthesizeID 上游没有稳定 ID 时，用发布时间 + 标题生成
func synthesizeID(publishedAt time.Time, title string) string {
	h := sha1.New()
	h.Write([]byte(publishedAt.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(title))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ValidItem 标题和 URL 都非空才保留
func ValidItem(it DevelopmentItem) bool {
	return strings.TrimSpace(it.Title) != "" && strings.TrimSpace(it.URL) != ""
}
