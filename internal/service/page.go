package service

import "github.com/and161185/vidgraph/internal/model"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// normalizePage clamps paging input: page < 1 becomes 1, size < 1 becomes
// DefaultPageSize, and size is capped at MaxPageSize.
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func offsetOf(page, size int) int { return (page - 1) * size }

func emptyPage[T any](page, size int) model.Page[T] {
	return model.Page[T]{List: []T{}, Page: page, PageSize: size}
}

// countedPage builds a page whose total is known.
func countedPage[T any](list []T, page, size, total int) model.Page[T] {
	if list == nil {
		list = []T{}
	}
	return model.Page[T]{
		List:     list,
		Page:     page,
		PageSize: size,
		Total:    total,
		HasMore:  page*size < total,
	}
}

// paginate slices an in-memory result.
func paginate[T any](all []T, page, size int) model.Page[T] {
	from := min(offsetOf(page, size), len(all))
	to := min(from+size, len(all))
	return countedPage(all[from:to:to], page, size, len(all))
}
