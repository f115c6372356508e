package account

import "github.com/RHeactorJS/rheactor-server/core/user"

// DefaultItemsPerPage bounds list responses.
const DefaultItemsPerPage = 10

type Pagination struct {
	Offset       int
	ItemsPerPage int
}

func NewPagination(offset int) Pagination {
	if offset < 0 {
		offset = 0
	}
	return Pagination{Offset: offset, ItemsPerPage: DefaultItemsPerPage}
}

// PaginatedResult is one page of a list plus the information needed to walk
// the rest of it.
type PaginatedResult struct {
	Items        []*user.User
	Total        int
	Offset       int
	ItemsPerPage int
}

func (p PaginatedResult) HasNext() bool { return p.Offset+p.ItemsPerPage < p.Total }
func (p PaginatedResult) HasPrev() bool { return p.Offset > 0 }
