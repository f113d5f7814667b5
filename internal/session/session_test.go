package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/DevPulse/internal/collector"
	"github.com/LJTian/DevPulse/internal/pipeline"
	"github.com/LJTian/DevPulse/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, query string) (pipeline.Result, error)

func (f fetchFunc) FetchDevelopments(ctx context.Context, query string) (pipeline.Result, error) {
	return f(ctx, query)
}

func resultOf(usedMock bool, titles ...string) pipeline.Result {
	items := make([]collector.DevelopmentItem, 0, len(titles))
	for _, t := range titles {
		items = append(items, collector.DevelopmentItem{Title: t, URL: "https://example.com/" + t, RelativeTime: "now"})
	}
	return pipeline.Result{Items: items, UsedMock: usedMock}
}

func TestRefreshStoresResult(t *testing.T) {
	var queries []string
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		queries = append(queries, q)
		return resultOf(true, "Claude news", "GPT news"), nil
	}), nil, nil)
	assert.Equal(t, StateIdle, s.State())

	v, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, v.State)
	assert.True(t, v.UsedMock)
	assert.Len(t, v.Items, 2)
	require.NotNil(t, v.FetchedAt)
	assert.Equal(t, []string{""}, queries)
}

func TestViewFiltersWithoutRefetch(t *testing.T) {
	calls := 0
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		calls++
		return resultOf(false, "Claude news", "GPT news", "More CLAUDE"), nil
	}), nil, nil)

	before := s.View("claude")
	assert.Equal(t, StateIdle, before.State)
	assert.NotNil(t, before.Items)
	assert.Empty(t, before.Items)
	assert.Nil(t, before.FetchedAt)

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	v := s.View("claude")
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Claude news", v.Items[0].Title)
	assert.Equal(t, "More CLAUDE", v.Items[1].Title)
	assert.Len(t, s.View("").Items, 3)
	assert.Equal(t, 1, calls)
}

func TestEnsureLoadedRefreshesOnce(t *testing.T) {
	calls := 0
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		calls++
		return resultOf(false, "a"), nil
	}), storage.NewSnapshot(), nil)

	require.NoError(t, s.EnsureLoaded(context.Background()))
	require.NoError(t, s.EnsureLoaded(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestRefreshErrorKeepsPreviousSnapshot(t *testing.T) {
	fail := false
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		if fail {
			return pipeline.Result{}, errors.New("boom")
		}
		return resultOf(false, "a"), nil
	}), nil, nil)

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	v, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, v.State)
	assert.Equal(t, "boom", v.Error)
	assert.Len(t, v.Items, 1)
}

func TestSupersededRefreshNeverOverwritesNewerSnapshot(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var firstCtxErr error

	var mu sync.Mutex
	call := 0
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			firstCtxErr = ctx.Err()
			// 模拟上游已返回、结果晚于新一次刷新到达
			return resultOf(false, "stale"), nil
		}
		return resultOf(false, "fresh"), nil
	}), nil, nil)

	type outcome struct {
		view View
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := s.Refresh(context.Background())
		done <- outcome{v, err}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh did not start")
	}

	v, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "fresh", v.Items[0].Title)

	close(release)
	var first outcome
	select {
	case first = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh did not finish")
	}
	assert.ErrorIs(t, first.err, ErrSuperseded)
	assert.ErrorIs(t, firstCtxErr, context.Canceled)

	after := s.View("")
	require.Len(t, after.Items, 1)
	assert.Equal(t, "fresh", after.Items[0].Title)
	assert.Equal(t, StateReady, after.State)
}

func TestCloseCancelsInFlightRefresh(t *testing.T) {
	started := make(chan struct{})
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		close(started)
		<-ctx.Done()
		return pipeline.Result{}, ctx.Err()
	}), nil, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background())
		errCh <- err
	}()
	<-started
	s.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not cancelled")
	}
	assert.Equal(t, StateError, s.State())
}

func TestConcurrentRefreshesLeaveLatestSnapshot(t *testing.T) {
	const rounds = 500
	const workers = 4

	for i := 0; i < rounds; i++ {
		s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
			return resultOf(false, "a"), nil
		}), nil, nil)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Refresh(context.Background())
			}()
		}
		wg.Wait()

		v := s.View("")
		require.Equal(t, StateReady, v.State, "round %d", i)
		require.Len(t, v.Items, 1, "round %d", i)
	}
}

func TestEnsureLoadedWaitsForNewerRefresh(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	secondStarted := make(chan struct{})
	releaseSecond := make(chan struct{})

	var mu sync.Mutex
	call := 0
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return resultOf(false, "stale"), nil
		}
		close(secondStarted)
		<-releaseSecond
		return resultOf(false, "fresh"), nil
	}), nil, nil)

	loaded := make(chan error, 1)
	go func() { loaded <- s.EnsureLoaded(context.Background()) }()
	<-firstStarted

	refreshed := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background())
		refreshed <- err
	}()
	<-secondStarted

	// 第一次刷新被取代后，EnsureLoaded 仍需等待第二次刷新
	close(releaseFirst)
	select {
	case err := <-loaded:
		t.Fatalf("EnsureLoaded returned before the newer refresh finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseSecond)
	select {
	case err := <-loaded:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureLoaded did not return")
	}
	require.NoError(t, <-refreshed)

	v := s.View("")
	assert.Equal(t, StateReady, v.State)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "fresh", v.Items[0].Title)
}

func TestEnsureLoadedHonoursContextWhileWaiting(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	secondStarted := make(chan struct{})
	block := make(chan struct{})
	defer close(block)

	var mu sync.Mutex
	call := 0
	s := New(fetchFunc(func(ctx context.Context, q string) (pipeline.Result, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return resultOf(false, "stale"), nil
		}
		close(secondStarted)
		<-block
		return resultOf(false, "fresh"), nil
	}), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	loaded := make(chan error, 1)
	go func() { loaded <- s.EnsureLoaded(ctx) }()
	<-firstStarted

	go func() { _, _ = s.Refresh(context.Background()) }()
	<-secondStarted
	close(releaseFirst)

	cancel()
	select {
	case err := <-loaded:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureLoaded ignored cancellation")
	}
}
