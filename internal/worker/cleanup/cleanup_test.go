package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// SessionSweeper インターフェースに対するモック実装
type mockSweeper struct {
	mu      sync.Mutex
	calls   int
	befores []time.Time
	revoked int64
	err     error
}

var _ SessionSweeper = (*mockSweeper)(nil)

func (m *mockSweeper) RevokeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.befores = append(m.befores, before)
	return m.revoked, m.err
}

func (m *mockSweeper) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRecorder struct {
	counts []int64
}

func (m *mockRecorder) RecordSessionsRevoked(count int64) {
	m.counts = append(m.counts, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestCleanupJob_Run_RevokesExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	sweeper := &mockSweeper{revoked: 5}
	recorder := &mockRecorder{}
	job := NewCleanupJob(sweeper, newTestLogger(&buf), recorder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("RevokeExpiredの呼び出し回数 = %d, want 1", sweeper.calls)
	}
	// 基準時刻はほぼ現在時刻であること
	if d := time.Since(sweeper.befores[0]); d < 0 || d > time.Minute {
		t.Errorf("before = %v", sweeper.befores[0])
	}
	if len(recorder.counts) != 1 || recorder.counts[0] != 5 {
		t.Errorf("記録された件数 = %v, want [5]", recorder.counts)
	}
	if !strings.Contains(buf.String(), "revoked_count") {
		t.Error("完了ログに件数が含まれること")
	}
}

func TestCleanupJob_Run_NoTargetsIsNotError(t *testing.T) {
	var buf bytes.Buffer
	sweeper := &mockSweeper{revoked: 0}
	job := NewCleanupJob(sweeper, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("対象なしでもエラーにならないこと: %v", err)
	}
}

func TestCleanupJob_Run_SweepFailure(t *testing.T) {
	var buf bytes.Buffer
	sweeper := &mockSweeper{err: errors.New("db down")}
	recorder := &mockRecorder{}
	job := NewCleanupJob(sweeper, newTestLogger(&buf), recorder)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("エラーが返ること")
	}
	if len(recorder.counts) != 0 {
		t.Error("失敗時にメトリクスを記録しないこと")
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	sweeper := &mockSweeper{revoked: 1}
	job := NewCleanupJob(sweeper, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回目の実行を待つ
	deadline := time.After(2 * time.Second)
	for sweeper.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("起動直後に1回実行されること")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセルで停止すること")
	}
}
