package storage

import (
	"sync"
	"time"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/pipeline"
)

// Record 会话中保存的最近一次结果
type Record struct {
	Result     pipeline.Result
	Generation uint64
	FetchedAt  time.Time
	// LastError 最近一次刷新失败的原因，成功后清空
	LastError string
}

// Snapshot 进程内的会话存储，只保留最新一次结果，不落盘
type Snapshot struct {
	mu         sync.RWMutex
	generation uint64
	record     Record
	hasResult  bool
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// NextGeneration 每次发起刷新前调用，之前拿到的 generation 随即失效
func (s *Snapshot) NextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Snapshot) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// SaveIfLatest 只有 gen 仍是最新一代时才写入，返回是否写入
func (s *Snapshot) SaveIfLatest(gen uint64, res pipeline.Result, fetchedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.record = Record{Result: res, Generation: gen, FetchedAt: fetchedAt}
	s.hasResult = true
	return true
}

// FailIfLatest 记录失败原因，保留上一次成功的结果
func (s *Snapshot) FailIfLatest(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || err == nil {
		return false
	}
	s.record.LastError = err.Error()
	return true
}

// Load ok 为 false 表示还没有任何成功的结果
func (s *Snapshot) Load() (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.record
	if s.hasResult {
		items := make([]collector.DevelopmentItem, len(rec.Result.Items))
		copy(items, rec.Result.Items)
		rec.Result.Items = items
	}
	return rec, s.hasResult
}
