package catalog

import (
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ProductSort names the supported orderings of the browse endpoint.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
	SortNameDesc  ProductSort = "name_desc"
)

// ParseProductSort maps a query value to a sort; empty selects newest first.
func ParseProductSort(value string) (ProductSort, error) {
	switch s := ProductSort(strings.ToLower(strings.TrimSpace(value))); s {
	case "":
		return SortNewest, nil
	case SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return s, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid sort").
		WithDetails(map[string]any{"field": "sort", "allowed": []ProductSort{SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc}})
}

// ProductListFilters describe the supported filter knobs for the browse endpoint.
// Price bounds apply to the effective price.
type ProductListFilters struct {
	Query        string
	CategorySlug string
	MinPrice     *int64
	MaxPrice     *int64
	InStock      bool
}

// ListProductsInput captures the inputs needed to filter and paginate products.
type ListProductsInput struct {
	Filters         ProductListFilters
	Sort            ProductSort
	Page            pagination.Page
	IncludeInactive bool
}
