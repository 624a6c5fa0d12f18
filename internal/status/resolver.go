package status

import (
	"time"

	"github.com/gonglijing/alertfi/internal/models"
)

// Resolution 某个探测器的最新记录解析结果
type Resolution struct {
	Reading   *models.Reading
	At        time.Time
	Malformed int // 时间戳无法解析而被跳过的记录数
}

// Found 是否找到有效的最新记录
func (r Resolution) Found() bool {
	return r.Reading != nil
}

// Resolve 返回探测器时间戳最大的记录
// 比较解析后的时间；相同时间取 ID 较大者，结果与输入顺序无关。
func Resolve(detectorID int64, readings []models.Reading) Resolution {
	var res Resolution
	for i := range readings {
		if readings[i].DetectorID != detectorID {
			continue
		}
		res.consider(&readings[i])
	}
	return res
}

// Latest 返回最新记录，没有则返回 nil
func Latest(detectorID int64, readings []models.Reading) *models.Reading {
	return Resolve(detectorID, readings).Reading
}

// LatestByDetector 一次遍历计算所有探测器的最新记录
func LatestByDetector(readings []models.Reading) map[int64]Resolution {
	out := make(map[int64]Resolution)
	for i := range readings {
		id := readings[i].DetectorID
		res := out[id]
		res.consider(&readings[i])
		out[id] = res
	}
	return out
}

func (r *Resolution) consider(reading *models.Reading) {
	at, err := ParseTimestamp(reading.Timestamp)
	if err != nil {
		r.Malformed++
		return
	}
	if r.Reading == nil || newer(at, reading.ID, r.At, r.Reading.ID) {
		r.Reading = reading
		r.At = at
	}
}

func newer(at time.Time, id int64, curAt time.Time, curID int64) bool {
	if at.Equal(curAt) {
		return id > curID
	}
	return at.After(curAt)
}
