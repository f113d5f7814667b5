// Package session 持有当前会话的刷新任务和结果快照
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/LJTian/DevPulse/internal/pipeline"
	"github.com/LJTian/DevPulse/internal/processor"
	"github.com/LJTian/DevPulse/internal/storage"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ErrSuperseded 刷新结果已被更新的一次刷新取代，结果被丢弃
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// Fetcher pipeline 的最小依赖，便于测试替换
type Fetcher interface {
	FetchDevelopments(ctx context.Context, query string) (pipeline.Result, error)
}

// View 展示层看到的数据
type View struct {
	Items     []collector.DevelopmentItem `json:"items"`
	UsedMock  bool                        `json:"usedMock"`
	State     State                       `json:"state"`
	FetchedAt *time.Time                  `json:"fetchedAt,omitempty"`
	Error     string                      `json:"error,omitempty"`
}

type Session struct {
	fetcher Fetcher
	store   *storage.Snapshot
	log     logger.Logger
	now     func() time.Time

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	// done 当前最新一次刷新结束时关闭
	done chan struct{}
}

func New(fetcher Fetcher, store *storage.Snapshot, log logger.Logger) *Session {
	if store == nil {
		store = storage.NewSnapshot()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		fetcher: fetcher,
		store:   store,
		log:     log,
		now:     time.Now,
		state:   StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh 取消仍在进行的上一次刷新，重新跑一次 pipeline；
// 结果只有在仍是最新一次刷新时才写入快照，否则返回 ErrSuperseded
func (s *Session) Refresh(ctx context.Context) (View, error) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskID := uuid.NewString()
	log := s.log.With(logger.String("task_id", taskID))
	done := make(chan struct{})
	defer close(done)

	// generation 必须和取消上一次刷新在同一临界区内分配，保证加锁顺序与 generation 顺序一致
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	gen := s.store.NextGeneration()
	s.cancel = cancel
	s.gen = gen
	s.done = done
	s.state = StateLoading
	s.mu.Unlock()

	log.Info("refresh start")
	start := time.Now()
	res, err := s.fetcher.FetchDevelopments(taskCtx, "")
	if err != nil {
		if !s.store.FailIfLatest(gen, err) {
			log.Info("refresh superseded, drop error", logger.Error(err))
			return View{}, ErrSuperseded
		}
		s.finish(gen, StateError)
		log.Warn("refresh failed", logger.Error(err))
		return s.View(""), err
	}

	if !s.store.SaveIfLatest(gen, res, s.now()) {
		log.Info("refresh superseded, discard result", logger.Int("items", len(res.Items)))
		return View{}, ErrSuperseded
	}
	s.finish(gen, StateReady)
	log.Info("refresh done",
		logger.Int("items", len(res.Items)),
		logger.Bool("used_mock", res.UsedMock),
		logger.Duration("elapsed", time.Since(start)),
	)
	return s.View(""), nil
}

// finish 只有 gen 仍是最新一次刷新时才更新状态
func (s *Session) finish(gen uint64, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.state = state
	s.cancel = nil
	return true
}

// EnsureLoaded 还没有任何结果时先刷新一次；
// 本次刷新被更新的刷新取代时，等到最新一次刷新结束再返回
func (s *Session) EnsureLoaded(ctx context.Context) error {
	if _, ok := s.store.Load(); ok {
		return nil
	}
	_, err := s.Refresh(ctx)
	if !errors.Is(err, ErrSuperseded) {
		return err
	}
	return s.waitLatest(ctx)
}

// waitLatest 等待当前最新的刷新结束；期间又被取代时继续等待新的那一次
func (s *Session) waitLatest(ctx context.Context) error {
	for {
		s.mu.Lock()
		done, state := s.done, s.state
		s.mu.Unlock()
		if state != StateLoading || done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// View 在已处理好的快照上按标题过滤，不会重新调用 pipeline
func (s *Session) View(query string) View {
	state := s.State()
	rec, ok := s.store.Load()
	v := View{
		Items: []collector.DevelopmentItem{},
		State: state,
		Error: rec.LastError,
	}
	if !ok {
		return v
	}
	v.Items = processor.FilterByQuery(rec.Result.Items, query)
	v.UsedMock = rec.Result.UsedMock
	fetchedAt := rec.FetchedAt
	v.FetchedAt = &fetchedAt
	return v
}

// Close 取消仍在进行的刷新
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
