package services

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paging holds the page-size policy shared by list endpoints.
type Paging struct {
	Default int
	Max     int
}

func (p Paging) withDefaults() Paging {
	if p.Default <= 0 {
		p.Default = DefaultPageSize
	}
	if p.Max <= 0 {
		p.Max = MaxPageSize
	}
	if p.Default > p.Max {
		p.Default = p.Max
	}
	return p
}

// resolve clamps a 1-based page and a page size into range and returns them
// with the matching row offset.
func (p Paging) resolve(page, size int) (int, int, int) {
	p = p.withDefaults()
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = p.Default
	}
	if size > p.Max {
		size = p.Max
	}
	return page, size, (page - 1) * size
}

func totalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
