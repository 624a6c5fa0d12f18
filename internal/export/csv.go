// Package export 将记录序列化为 CSV 文本
package export

import (
	"fmt"
	"strings"
	"time"
)

// Column CSV 列定义
type Column[T any] struct {
	Label string
	Value func(T) string
}

// Options 序列化选项
type Options struct {
	// EscapeQuotes 为 true 时按 RFC 4180 将单元格内的双引号加倍
	// 默认保持原样输出，与旧版导出文件一致。
	EscapeQuotes bool
}

// ToCSV 使用默认选项序列化
func ToCSV[T any](rows []T, columns []Column[T]) string {
	return ToCSVWithOptions(rows, columns, Options{})
}

// ToCSVWithOptions 生成表头加数据行，每个单元格都用双引号包裹
// 行之间以 "\n" 连接，末尾没有换行。
func ToCSVWithOptions[T any](rows []T, columns []Column[T], opts Options) string {
	var b strings.Builder
	cells := make([]string, len(columns))

	for i, c := range columns {
		cells[i] = quote(c.Label, opts)
	}
	b.WriteString(strings.Join(cells, ","))

	for _, row := range rows {
		for i, c := range columns {
			cells[i] = quote(c.Value(row), opts)
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(cells, ","))
	}
	return b.String()
}

func quote(v string, opts Options) string {
	if opts.EscapeQuotes {
		v = strings.ReplaceAll(v, `"`, `""`)
	}
	return `"` + v + `"`
}

// Filename 导出文件名：<prefix>_<status>_<毫秒时间戳>.csv
func Filename(prefix, status string, now time.Time) string {
	if status == "" {
		status = "All"
	}
	return fmt.Sprintf("%s_%s_%d.csv", prefix, status, now.UnixMilli())
}
