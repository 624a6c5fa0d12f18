// Package snapshot 并行加载用户、探测器和记录三类集合
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gonglijing/alertfi/internal/models"
)

// Source 只读数据源
type Source interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListDetectors(ctx context.Context) ([]models.Detector, error)
	ListReadings(ctx context.Context) ([]models.Reading, error)
}

// Collection 集合名称
type Collection string

const (
	Users     Collection = "users"
	Detectors Collection = "detectors"
	Readings  Collection = "readings"
)

// Snapshot 一次加载的结果，单个集合失败不影响其他集合
type Snapshot struct {
	Users     []models.User
	Detectors []models.Detector
	Readings  []models.Reading
	Errors    map[Collection]error
	LoadedAt  time.Time
}

// Complete 三个集合是否都加载成功
func (s *Snapshot) Complete() bool {
	return len(s.Errors) == 0
}

// Err 合并所有失败原因，全部成功时返回 nil
func (s *Snapshot) Err() error {
	if s.Complete() {
		return nil
	}
	errs := make([]error, 0, len(s.Errors))
	for _, c := range []Collection{Users, Detectors, Readings} {
		if err, ok := s.Errors[c]; ok {
			errs = append(errs, fmt.Errorf("load %s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

// Failed 指定集合是否加载失败
func (s *Snapshot) Failed(c Collection) bool {
	_, ok := s.Errors[c]
	return ok
}

// Load 并行拉取三个集合
// 只有 ctx 被取消时才返回错误，其余失败记录在 Snapshot.Errors 中。
func Load(ctx context.Context, src Source, now time.Time) (*Snapshot, error) {
	var (
		users     []models.User
		detectors []models.Detector
		readings  []models.Reading
		errs      [3]error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, errs[0] = src.ListUsers(gctx)
		return nil
	})
	g.Go(func() error {
		detectors, errs[1] = src.ListDetectors(gctx)
		return nil
	})
	g.Go(func() error {
		readings, errs[2] = src.ListReadings(gctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Snapshot{
		Users:     nonNil(users),
		Detectors: nonNil(detectors),
		Readings:  nonNil(readings),
		Errors:    make(map[Collection]error),
		LoadedAt:  now,
	}
	for i, c := range []Collection{Users, Detectors, Readings} {
		if errs[i] != nil {
			s.Errors[c] = errs[i]
		}
	}
	return s, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
