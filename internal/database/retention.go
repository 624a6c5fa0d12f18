package database

import (
	"context"
	"time"

	"github.com/gonglijing/alertfi/internal/status"
)

// CleanupReadingsBefore 删除早于 cutoff 的记录
// 时间戳格式不统一，逐条解析比较；无法解析的记录保留。
func (s *Store) CleanupReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	readings, err := s.ListReadings(ctx)
	if err != nil {
		return 0, err
	}

	var expired []int64
	for _, r := range readings {
		at, err := status.ParseTimestamp(r.Timestamp)
		if err != nil {
			continue
		}
		if at.Before(cutoff) {
			expired = append(expired, r.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM readings WHERE id = ?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var deleted int64
	for _, id := range expired {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// CleanupOldReadings 按保留天数清理，days<=0 不清理
func (s *Store) CleanupOldReadings(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return s.CleanupReadingsBefore(ctx, s.now().Add(-time.Duration(days)*24*time.Hour))
}

// RunRetention 定期清理，ctx 取消时退出
func (s *Store) RunRetention(ctx context.Context, days int, interval time.Duration) {
	if days <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	log.Info("retention cleanup started", "days", days, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deleted, err := s.CleanupOldReadings(ctx, days)
			if err != nil {
				log.Error("retention cleanup failed", err)
				continue
			}
			if deleted > 0 {
				log.Info("retention cleanup removed readings", "deleted", deleted)
			}
		case <-ctx.Done():
			log.Info("retention cleanup stopped")
			return
		}
	}
}
