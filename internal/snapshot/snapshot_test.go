package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gonglijing/alertfi/internal/models"
)

type fakeSource struct {
	users     []models.User
	detectors []models.Detector
	readings  []models.Reading
	fail      map[Collection]error
	block     bool
}

func (f *fakeSource) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) ListUsers(ctx context.Context) ([]models.User, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.users, f.fail[Users]
}

func (f *fakeSource) ListDetectors(ctx context.Context) ([]models.Detector, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.detectors, f.fail[Detectors]
}

func (f *fakeSource) ListReadings(ctx context.Context) ([]models.Reading, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if err := f.fail[Readings]; err != nil {
		return nil, err
	}
	return f.readings, nil
}

func TestLoad_Complete(t *testing.T) {
	src := &fakeSource{
		users:     []models.User{{ID: 1}},
		detectors: []models.Detector{{ID: 1, UserID: 1}},
		readings:  []models.Reading{{ID: 1, DetectorID: 1}},
	}
	now := time.Date(2025, 5, 27, 12, 0, 0, 0, time.UTC)
	s, err := Load(context.Background(), src, now)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !s.Complete() || s.Err() != nil {
		t.Fatalf("expected complete snapshot, errors: %v", s.Errors)
	}
	if len(s.Users) != 1 || len(s.Detectors) != 1 || len(s.Readings) != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
	if !s.LoadedAt.Equal(now) {
		t.Fatalf("LoadedAt = %v", s.LoadedAt)
	}
}

func TestLoad_PartialFailure(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		users:     []models.User{{ID: 1}, {ID: 2}},
		detectors: []models.Detector{{ID: 1}},
		fail:      map[Collection]error{Readings: boom},
	}
	s, err := Load(context.Background(), src, time.Now())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Complete() {
		t.Fatal("snapshot should be partial")
	}
	if !s.Failed(Readings) || s.Failed(Users) {
		t.Fatalf("errors = %v", s.Errors)
	}
	if !errors.Is(s.Err(), boom) {
		t.Fatalf("Err() = %v, want wrapping boom", s.Err())
	}
	if len(s.Users) != 2 || len(s.Detectors) != 1 {
		t.Fatalf("healthy collections should still populate: %+v", s)
	}
	if s.Readings == nil || len(s.Readings) != 0 {
		t.Fatalf("failed collection should be empty, got %v", s.Readings)
	}
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, &fakeSource{block: true}, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
