package processor

import (
	"sort"
	"strings"
	"time"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/timeutil"
)

// SimpleProcessor 对一次 pipeline 的存活条目做收尾：去重、标题过滤、排序、填充相对时间
type SimpleProcessor struct {
	now func() time.Time
}

func NewSimpleProcessor(now func() time.Time) *SimpleProcessor {
	if now == nil {
		now = time.Now
	}
	return &SimpleProcessor{now: now}
}

// Process 按固定顺序执行收尾步骤，不修改入参
func (p *SimpleProcessor) Process(items []collector.DevelopmentItem, query string) []collector.DevelopmentItem {
	out := Dedupe(items)
	out = FilterByQuery(out, query)
	SortByPublished(out)
	Annotate(out, p.now())
	return out
}

// Dedupe 以去掉首尾空白后的 URL 为键，保留第一次出现的条目
func Dedupe(items []collector.DevelopmentItem) []collector.DevelopmentItem {
	out := make([]collector.DevelopmentItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		key := strings.TrimSpace(it.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// FilterByQuery 标题包含 query（不区分大小写）才保留；空白 query 不过滤
func FilterByQuery(items []collector.DevelopmentItem, query string) []collector.DevelopmentItem {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]collector.DevelopmentItem, 0, len(items))
	for _, it := range items {
		if q == "" || strings.Contains(strings.ToLower(it.Title), q) {
			out = append(out, it)
		}
	}
	return out
}

// SortByPublished 按发布时间倒序，稳定排序
func SortByPublished(items []collector.DevelopmentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

func Annotate(items []collector.DevelopmentItem, now time.Time) {
	for i := range items {
		items[i].RelativeTime = timeutil.ClassifyRelativeAt(now, items[i].PublishedAt)
	}
}
