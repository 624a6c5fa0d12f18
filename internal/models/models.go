package models

// User 终端用户（探测器所有者）
type User struct {
	ID                   int64  `json:"id" db:"id"`
	Name                 string `json:"name" db:"name"`
	Email                string `json:"email" db:"email"`
	Address              string `json:"address" db:"address"`
	Registered           string `json:"registered" db:"registered"`
	NotificationsEnabled bool   `json:"notifications_enabled" db:"notifications_enabled"`
}

// Detector 探测器
type Detector struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	UserID   int64  `json:"user" db:"user_id"`
	Location string `json:"location" db:"location"`
	SensorOn bool   `json:"sensor_on" db:"sensor_on"`
}

// Reading 探测器上报记录（日志）
// Timestamp 保持 ISO-8601 字符串，解析由 status 包负责。
type Reading struct {
	ID          int64   `json:"id" db:"id"`
	DetectorID  int64   `json:"detector" db:"detector_id"`
	Timestamp   string  `json:"timestamp" db:"timestamp"`
	Status      string  `json:"status" db:"status"`
	PPM         float64 `json:"ppm" db:"ppm"`
	Temperature float64 `json:"temperature" db:"temperature"`
	Humidity    float64 `json:"humidity" db:"humidity"`
	Battery     int     `json:"battery,omitempty" db:"battery"`
}

// Admin 后台管理员账号
type Admin struct {
	ID        int64  `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"-" db:"password"`
	Role      string `json:"role" db:"role"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

// Alert 告警事件（推送给 WebSocket / 邮件 / Kafka）
type Alert struct {
	DetectorID   int64   `json:"detector_id"`
	DetectorName string  `json:"detector_name"`
	Location     string  `json:"location"`
	UserID       int64   `json:"user_id"`
	UserName     string  `json:"user_name"`
	UserEmail    string  `json:"-"`
	Notify       bool    `json:"-"`
	Tier         string  `json:"tier"`
	PPM          float64 `json:"ppm"`
	Timestamp    string  `json:"timestamp"`
	Message      string  `json:"message"`
}
