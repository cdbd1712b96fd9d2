package entity

import "github.com/invigilo/invigilo/core"

// Page is the uniform paged-list response of all listing endpoints.
type Page[T any] struct {
	NumberOfPages int    `json:"number_of_pages"`
	PageNumber    int    `json:"page_number"`
	PageSize      int    `json:"page_size"`
	Sort          string `json:"sort"`
	Content       []T    `json:"content"`
}

// PageRequest carries sanitized pagination parameters. Page numbers are
// 1-based on the wire.
type PageRequest struct {
	Number int
	Size   int
	Sort   string
}

// SanitizePage normalizes raw pagination parameters against the
// configured default and maximum page sizes.
func SanitizePage(number, size int, sort string) PageRequest {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = core.Conf.API.DefaultPageSize
	}
	if max := core.Conf.API.MaxPageSize; size > max {
		size = max
	}
	return PageRequest{Number: number, Size: size, Sort: sort}
}

// Orderings parses the request's sort expression.
func (req PageRequest) Orderings() []core.DBOrdering {
	return core.ParseOrderings(req.Sort)
}

// Paginate slices an already filtered and sorted result set into the
// requested page. Grant filtering happens in memory after the DAO query,
// so paging is applied last to keep page boundaries stable.
func Paginate[T any](content []T, req PageRequest) Page[T] {
	total := len(content)
	pages := total / req.Size
	if total%req.Size != 0 || pages == 0 {
		pages++
	}

	start := (req.Number - 1) * req.Size
	if start > total {
		start = total
	}
	end := start + req.Size
	if end > total {
		end = total
	}

	page := content[start:end]
	if page == nil {
		page = []T{}
	}
	return Page[T]{
		NumberOfPages: pages,
		PageNumber:    req.Number,
		PageSize:      req.Size,
		Sort:          req.Sort,
		Content:       page,
	}
}
