package collector

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/timeutil"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/developments.yaml
var defaultFixture []byte

const mockSourceLabel = "mock"

type fixtureFile struct {
	Items []fixtureRecord `yaml:"items"`
}

// fixtureRecord publishedAt 与 age 二选一，age 相对加载时刻计算
type fixtureRecord struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	URL         string   `yaml:"url"`
	Source      string   `yaml:"source"`
	PublishedAt string   `yaml:"publishedAt"`
	Age         string   `yaml:"age"`
	Summary     string   `yaml:"summary"`
	Tags        []string `yaml:"tags"`
}

// MockSource 本地演示数据，默认使用内嵌的 fixture，path 非空时改读该文件
type MockSource struct {
	path string
	opts options
}

func NewMockSource(path string, opts ...Option) *MockSource {
	return &MockSource{path: strings.TrimSpace(path), opts: newOptions("", opts)}
}

func (m *MockSource) Name() string {
	return mockSourceLabel
}

// Load 每次调用都重新解析并生成新的切片，调用方可以随意修改返回值
func (m *MockSource) Load() ([]DevelopmentItem, error) {
	data := defaultFixture
	if m.path != "" {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return nil, fmt.Errorf("read mock fixture %s: %w", m.path, err)
		}
		data = b
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse mock fixture: %w", err)
	}

	now := m.opts.now()
	results := make([]DevelopmentItem, 0, len(f.Items))
	for i, rec := range f.Items {
		it, err := rec.toItem(now)
		if err != nil {
			m.opts.logger.Debug("mock: drop fixture record", logger.Int("index", i), logger.Error(err))
			continue
		}
		if !ValidItem(it) {
			m.opts.logger.Debug("mock: drop fixture record without title or url", logger.Int("index", i))
			continue
		}
		results = append(results, it)
	}
	return results, nil
}

func (r fixtureRecord) toItem(now time.Time) (DevelopmentItem, error) {
	publishedAt := now
	switch {
	case strings.TrimSpace(r.PublishedAt) != "":
		t, err := timeutil.ParseInstant(r.PublishedAt)
		if err != nil {
			return DevelopmentItem{}, fmt.Errorf("publishedAt %q: %w", r.PublishedAt, err)
		}
		publishedAt = t
	case strings.TrimSpace(r.Age) != "":
		d, err := time.ParseDuration(strings.TrimSpace(r.Age))
		if err != nil {
			return DevelopmentItem{}, fmt.Errorf("age %q: %w", r.Age, err)
		}
		publishedAt = now.Add(-d)
	}

	title := strings.TrimSpace(r.Title)
	itemURL := strings.TrimSpace(r.URL)
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = synthesizeID(publishedAt, title)
	}
	source := strings.TrimSpace(r.Source)
	if source == "" {
		source = sourceFromURL(itemURL, mockSourceLabel)
	}

	var tags []string
	if len(r.Tags) > 0 {
		tags = append(tags, r.Tags...)
	}

	return DevelopmentItem{
		ID:          id,
		Title:       title,
		URL:         itemURL,
		Source:      source,
		PublishedAt: publishedAt,
		Summary:     plainText(r.Summary),
		Tags:        tags,
	}, nil
}
