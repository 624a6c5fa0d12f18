package handlers

import (
	"net/http"
	"strconv"
)

// 分页默认值
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationParams 分页参数
type PaginationParams struct {
	Page     int // 页码（从1开始）
	PageSize int // 每页数量
	Offset   int // 计算出的偏移量
}

// GetPagination 从请求获取分页参数
func GetPagination(r *http.Request, pageSize int) PaginationParams {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalItems int         `json:"total_items"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
	HasPrev    bool        `json:"has_prev"`
}

func calculateTotalPages(totalItems, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (totalItems + pageSize - 1) / pageSize
}

type paginationWindow struct {
	start int
	end   int
}

func buildPaginationWindow(params PaginationParams, total int) paginationWindow {
	start := params.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return paginationWindow{start: start, end: end}
}

// Paginate 对已筛选的列表分页，超出范围返回空列表
func Paginate[T any](items []T, params PaginationParams) PaginatedResponse {
	window := buildPaginationWindow(params, len(items))
	page := make([]T, 0, window.end-window.start)
	page = append(page, items[window.start:window.end]...)
	totalPages := calculateTotalPages(len(items), params.PageSize)

	return PaginatedResponse{
		Items:      page,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalItems: len(items),
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
