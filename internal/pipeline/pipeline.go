// Package pipeline 一次完整的聚合：选择数据源、归一化、时间窗口、回落本地数据、收尾排序
package pipeline

import (
	"context"
	"time"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/metrics"
	"github.com/LJTian/DevPulse/internal/processor"
	"github.com/LJTian/DevPulse/internal/timeutil"
)

const (
	modeLive = "live"
	modeMock = "mock"
)

// MockLoader 本地演示数据来源
type MockLoader interface {
	Load() ([]collector.DevelopmentItem, error)
}

// Options 进程启动时解析一次，之后只读
type Options struct {
	MockConfigured bool
	ForcedMock     bool
	WindowHours    int
}

// Result UsedMock 表示本次结果来自本地数据
type Result struct {
	Items    []collector.DevelopmentItem `json:"items"`
	UsedMock bool                        `json:"usedMock"`
}

type Pipeline struct {
	provider  collector.Provider
	mock      MockLoader
	opts      Options
	now       func() time.Time
	log       logger.Logger
	metrics   *metrics.Metrics
	processor *processor.SimpleProcessor
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(provider collector.Provider, mock MockLoader, opts Options, options ...Option) *Pipeline {
	if opts.WindowHours <= 0 {
		opts.WindowHours = timeutil.DefaultWindowHours
	}
	p := &Pipeline{
		provider: provider,
		mock:     mock,
		opts:     opts,
		now:      time.Now,
		log:      logger.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	p.processor = processor.NewSimpleProcessor(p.now)
	return p
}

// MockMode 本次进程是否只走本地数据
func (p *Pipeline) MockMode() bool {
	return p.opts.MockConfigured || p.opts.ForcedMock
}

// FetchDevelopments 数据不可用不会返回错误，只会回落到本地数据；
// 唯一的错误是调用方取消了 ctx
func (p *Pipeline) FetchDevelopments(ctx context.Context, query string) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		items    []collector.DevelopmentItem
		usedMock bool
	)

	if p.MockMode() {
		reason := metrics.ReasonConfigured
		if p.opts.ForcedMock {
			reason = metrics.ReasonForced
		}
		p.metrics.RecordFallback(reason)
		p.log.Info("mock mode active, skip provider", logger.String("reason", reason))
		items, usedMock = p.loadMock(p.opts.ForcedMock), true
	} else {
		live, reason, err := p.fetchLive(ctx)
		if err != nil {
			return Result{}, err
		}
		if reason != "" {
			p.metrics.RecordFallback(reason)
			items, usedMock = p.loadMock(false), true
		} else {
			items = live
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	out := p.processor.Process(items, query)
	mode := modeLive
	if usedMock {
		mode = modeMock
	}
	p.metrics.RecordInvocation(mode, time.Since(start), len(out))
	p.log.Info("pipeline done",
		logger.String("mode", mode),
		logger.Int("items", len(out)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return Result{Items: out, UsedMock: usedMock}, nil
}

// fetchLive 返回窗口内的条目；reason 非空表示需要回落本地数据
func (p *Pipeline) fetchLive(ctx context.Context) ([]collector.DevelopmentItem, string, error) {
	name := p.provider.Name()
	items, err := p.provider.Fetch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		reason := metrics.ReasonTransportError
		if collector.IsConfigError(err) {
			reason = metrics.ReasonConfigError
		}
		p.log.Warn("provider fetch failed, fallback to mock data",
			logger.String("provider", name),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return nil, reason, nil
	}
	if len(items) == 0 {
		p.log.Info("provider returned no items, fallback to mock data", logger.String("provider", name))
		return nil, metrics.ReasonEmpty, nil
	}

	windowed := p.window(items)
	if len(windowed) == 0 {
		p.log.Info("no provider items inside window, fallback to mock data",
			logger.String("provider", name),
			logger.Int("fetched", len(items)),
			logger.Int("window_hours", p.opts.WindowHours),
		)
		return nil, metrics.ReasonWindowEmpty, nil
	}
	return windowed, "", nil
}

// loadMock 只有强制 mock 时窗口过滤为空才放弃过滤，返回完整演示数据
func (p *Pipeline) loadMock(forced bool) []collector.DevelopmentItem {
	if p.mock == nil {
		p.log.Error("mock source is not configured")
		return nil
	}
	all, err := p.mock.Load()
	if err != nil {
		p.log.Error("load mock fixture failed", logger.Error(err))
		return nil
	}
	windowed := p.window(all)
	if len(windowed) == 0 && forced {
		p.log.Info("forced mock: fixture outside window, keep full fixture", logger.Int("items", len(all)))
		return all
	}
	return windowed
}

func (p *Pipeline) window(items []collector.DevelopmentItem) []collector.DevelopmentItem {
	now := p.now()
	out := make([]collector.DevelopmentItem, 0, len(items))
	for _, it := range items {
		if timeutil.IsWithinWindowAt(now, it.PublishedAt, p.opts.WindowHours) {
			out = append(out, it)
		}
	}
	return out
}
