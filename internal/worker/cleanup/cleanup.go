// Package cleanup は期限切れセッションの自動無効化ジョブを提供する。
// refresh_token_expが過ぎたセッションのトークン素材をNULLにする
// 日次バッチ。行自体は監査用に残す。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionSweeper は期限切れセッションの一括無効化インターフェース。
type SessionSweeper interface {
	// RevokeExpired はbeforeより前に期限切れになったセッションの
	// トークン素材をNULLにし、件数を返す。
	RevokeExpired(ctx context.Context, before time.Time) (int64, error)
}

// RevokedRecorder は無効化件数のメトリクス記録インターフェース。
type RevokedRecorder interface {
	RecordSessionsRevoked(count int64)
}

// CleanupJob は期限切れセッションの自動無効化ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な処理を保証する。
type CleanupJob struct {
	sweeper  SessionSweeper
	logger   *slog.Logger
	recorder RevokedRecorder // nilの場合は記録しない
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sweeper SessionSweeper, logger *slog.Logger, recorder RevokedRecorder) *CleanupJob {
	return &CleanupJob{
		sweeper:  sweeper,
		logger:   logger,
		recorder: recorder,
	}
}

// Run は期限切れセッションを1回無効化する。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	revoked, err := j.sweeper.RevokeExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの無効化に失敗しました: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsRevoked(revoked)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("revoked_count", revoked),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでジョブを起動する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("セッションクリーンアップの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
