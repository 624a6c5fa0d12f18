// Package filter 提供列表页通用的搜索与下拉筛选
package filter

import "strings"

// AllOption 下拉框"全部"选项
const AllOption = "All"

// Predicate 单个筛选条件
type Predicate[T any] func(T) bool

// Apply 按顺序保留满足全部条件的元素
// 结果保持输入的相对顺序，不修改入参。
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if match(item, preds) {
			out = append(out, item)
		}
	}
	return out
}

func match[T any](item T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if p != nil && !p(item) {
			return false
		}
	}
	return true
}

// Text 不区分大小写的子串搜索，任一字段命中即可
// 空查询不做约束。
func Text[T any](query string, fields ...func(T) string) Predicate[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(item)), q) {
				return true
			}
		}
		return false
	}
}

// Equals 精确匹配下拉选项，"" 或 "All" 不做约束
func Equals[T any](selected string, field func(T) string) Predicate[T] {
	if unconstrained(selected) {
		return nil
	}
	return func(item T) bool {
		return field(item) == selected
	}
}

// Normalized 归一化后比较（忽略大小写、空白和下划线）
func Normalized[T any](selected string, field func(T) string) Predicate[T] {
	if unconstrained(selected) {
		return nil
	}
	want := Normalize(selected)
	return func(item T) bool {
		return Normalize(field(item)) == want
	}
}

// Normalize 状态值归一化，"High_Risk " 与 "high risk" 视为相同
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '\r', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unconstrained(selected string) bool {
	s := strings.TrimSpace(selected)
	return s == "" || strings.EqualFold(s, AllOption)
}
