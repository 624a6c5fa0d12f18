package database

import (
	"context"
	"fmt"
)

// 时间统一以 TEXT 保存（RFC 3339），与上报原文保持一致
const schemaSQL = `
CREATE TABLE IF NOT EXISTS admins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'admin',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT UNIQUE NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	registered TEXT NOT NULL,
	notifications_enabled INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS detectors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	location TEXT NOT NULL DEFAULT '',
	sensor_on INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	detector_id INTEGER NOT NULL REFERENCES detectors(id) ON DELETE CASCADE,
	timestamp TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	ppm REAL NOT NULL DEFAULT 0,
	temperature REAL NOT NULL DEFAULT 0,
	humidity REAL NOT NULL DEFAULT 0,
	battery INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_detectors_user ON detectors(user_id);
CREATE INDEX IF NOT EXISTS idx_readings_detector_ts ON readings(detector_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(timestamp);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
