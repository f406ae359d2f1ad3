package utils

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Page is one slice of an ordered result set plus navigation metadata.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Total    int64
	PerPage  int
}

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasOtherPages() bool { return p.NumPages > 1 }

func (p *Page[T]) PreviousNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

func (p *Page[T]) NextNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

// PageRange lists every page number, for the paginator links.
func (p *Page[T]) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// ParsePage reads a raw ?page= value. Anything that is not a positive integer is page 1.
func ParsePage(raw string) int {
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || number < 1 {
		return 1
	}
	return number
}

// PageBounds resolves a raw ?page= value against a collection size.
// Non-integers select page 1; out-of-range numbers clamp to 1 or the last page.
// An empty collection still has one page.
func PageBounds(raw string, total int64, perPage int) (number, numPages int) {
	if perPage <= 0 {
		perPage = 10
	}
	numPages = int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}
	number = ParsePage(raw)
	if number > numPages {
		number = numPages
	}
	return number, numPages
}

// Paginate counts q, then loads the requested page with the given associations preloaded.
// q must already carry its filters and ordering.
func Paginate[T any](q *gorm.DB, raw string, perPage int, preloads ...string) (*Page[T], error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
		return nil, err
	}
	number, numPages := PageBounds(raw, total, perPage)
	if perPage <= 0 {
		perPage = 10
	}
	page := &Page[T]{Number: number, NumPages: numPages, Total: total, PerPage: perPage, Items: []T{}}
	if total == 0 {
		return page, nil
	}

	find := q.Session(&gorm.Session{})
	for _, assoc := range preloads {
		find = find.Preload(assoc)
	}
	if err := find.Offset((number - 1) * perPage).Limit(perPage).Find(&page.Items).Error; err != nil {
		return nil, err
	}
	return page, nil
}
