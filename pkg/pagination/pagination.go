// Package pagination 把 page/limit 请求 + 数据源 转成带导航信息的分页结果。
package pagination

import (
	"context"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

type Options struct {
	Page     int
	Limit    int
	MaxLimit int // >0 时截断 limit

	// BaseURL 为空时结果不带 links
	BaseURL string
	// Query 额外保留在链接里的参数（筛选/排序）
	Query map[string]string
}

type Links struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

type Result[T any] struct {
	Results  []T    `json:"results"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	LastPage int    `json:"lastPage"`
	PrevPage *int   `json:"prevPage"`
	NextPage *int   `json:"nextPage"`
	Links    *Links `json:"links,omitempty"`
}

// Source 一次调用同时返回 [offset, offset+limit) 的数据和总数
type Source[T any] interface {
	FindAndCount(ctx context.Context, offset, limit int) ([]T, int64, error)
}

type SourceFunc[T any] func(ctx context.Context, offset, limit int) ([]T, int64, error)

func (f SourceFunc[T]) FindAndCount(ctx context.Context, offset, limit int) ([]T, int64, error) {
	return f(ctx, offset, limit)
}

// Normalize 非正数回落默认值，不报错
func (o Options) Normalize() (page, limit int) {
	page, limit = o.Page, o.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if o.MaxLimit > 0 && limit > o.MaxLimit {
		limit = o.MaxLimit
	}
	return page, limit
}

func Paginate[T any](ctx context.Context, src Source[T], opt Options) (*Result[T], error) {
	page, limit := opt.Normalize()
	skip := offsetOf(page, limit)

	items, total, err := src.FindAndCount(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	if total < 0 {
		total = 0
	}

	lastPage := int((total + int64(limit) - 1) / int64(limit))
	if lastPage < 1 {
		lastPage = 1
	}
	res := &Result[T]{
		Results:  items,
		Total:    total,
		Page:     page,
		LastPage: lastPage,
	}
	if page > 1 {
		res.PrevPage = intPtr(page - 1)
	}
	if page < lastPage {
		res.NextPage = intPtr(page + 1)
	}
	if opt.BaseURL != "" {
		res.Links = buildLinks(opt.BaseURL, opt.Query, limit, lastPage, res.PrevPage, res.NextPage)
	}
	return res, nil
}

// offsetOf (page-1)*limit，溢出时返回 math.MaxInt（必然越过末页，只计数不取数据）
func offsetOf(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// Map 逐元素转换，元数据原样保留
func Map[T, U any](r *Result[T], f func(T) U) *Result[U] {
	out := &Result[U]{
		Results:  make([]U, 0, len(r.Results)),
		Total:    r.Total,
		Page:     r.Page,
		LastPage: r.LastPage,
		PrevPage: r.PrevPage,
		NextPage: r.NextPage,
		Links:    r.Links,
	}
	for _, v := range r.Results {
		out.Results = append(out.Results, f(v))
	}
	return out
}

func buildLinks(base string, extra map[string]string, limit, lastPage int, prev, next *int) *Links {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k == "page" || k == "limit" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	build := func(p int) string {
		var b strings.Builder
		b.WriteString(base)
		b.WriteString(sep)
		for _, k := range keys {
			b.WriteString(encode(k))
			b.WriteByte('=')
			b.WriteString(encode(extra[k]))
			b.WriteByte('&')
		}
		b.WriteString("page=")
		b.WriteString(strconv.Itoa(p))
		b.WriteString("&limit=")
		b.WriteString(strconv.Itoa(limit))
		return b.String()
	}

	l := &Links{First: build(1), Last: build(lastPage)}
	if prev != nil {
		s := build(*prev)
		l.Prev = &s
	}
	if next != nil {
		s := build(*next)
		l.Next = &s
	}
	return l
}

// 空格编码为 %20 而不是 +
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func intPtr(v int) *int { return &v }
