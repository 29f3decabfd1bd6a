package pipeline

import (
	"context"
	"slices"
	"strings"
)

// Source is a paged item source ordered by key.
//
// FetchPage returns up to pageSize items whose keys start with prefix and
// sort strictly after marker. An empty page ends the listing.
type Source[T any] interface {
	FetchPage(ctx context.Context, prefix, marker string, pageSize int) ([]T, error)
	Key(item T) string
}

// SourceFunc adapts a pair of closures to Source.
type SourceFunc[T any] struct {
	Fetch func(ctx context.Context, prefix, marker string, pageSize int) ([]T, error)
	KeyOf func(item T) string
}

// FetchPage calls s.Fetch.
func (s SourceFunc[T]) FetchPage(ctx context.Context, prefix, marker string, pageSize int) ([]T, error) {
	return s.Fetch(ctx, prefix, marker, pageSize)
}

// Key calls s.KeyOf.
func (s SourceFunc[T]) Key(item T) string {
	return s.KeyOf(item)
}

type sliceSource[T any] struct {
	items []T
	key   func(T) string
}

// FromSlice returns an in-memory Source over items, sorted by key.
func FromSlice[T any](items []T, key func(T) string) Source[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return strings.Compare(key(a), key(b))
	})
	return &sliceSource[T]{items: sorted, key: key}
}

func (s *sliceSource[T]) FetchPage(ctx context.Context, prefix, marker string, pageSize int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageSize < 1 {
		pageSize = 1
	}

	start, _ := slices.BinarySearchFunc(s.items, marker, func(item T, m string) int {
		if s.key(item) <= m {
			return -1
		}
		return 1
	})

	page := make([]T, 0, pageSize)
	for _, item := range s.items[start:] {
		if len(page) == pageSize {
			break
		}
		k := s.key(item)
		if !strings.HasPrefix(k, prefix) {
			if k < prefix {
				continue
			}
			// Keys sharing prefix are contiguous in sorted order.
			break
		}
		page = append(page, item)
	}
	return page, nil
}

func (s *sliceSource[T]) Key(item T) string {
	return s.key(item)
}
