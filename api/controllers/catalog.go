package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListCategories returns the active categories.
func ListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func GetCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		category, err := svc.GetCategoryBySlug(r.Context(), strings.TrimSpace(chi.URLParam(r, "slug")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

// ListProducts serves the storefront browse endpoint.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		input, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		product, err := svc.GetProductBySlug(r.Context(), strings.TrimSpace(chi.URLParam(r, "slug")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func parseProductListQuery(r *http.Request) (catalog.ListProductsInput, error) {
	query := r.URL.Query()

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return catalog.ListProductsInput{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return catalog.ListProductsInput{}, err
	}
	minPrice, err := validators.ParseQueryInt64Ptr(r, "minPrice")
	if err != nil {
		return catalog.ListProductsInput{}, err
	}
	maxPrice, err := validators.ParseQueryInt64Ptr(r, "maxPrice")
	if err != nil {
		return catalog.ListProductsInput{}, err
	}
	inStock, err := validators.ParseQueryBool(r, "inStock")
	if err != nil {
		return catalog.ListProductsInput{}, err
	}
	sort, err := catalog.ParseProductSort(query.Get("sort"))
	if err != nil {
		return catalog.ListProductsInput{}, err
	}

	return catalog.ListProductsInput{
		Filters: catalog.ProductListFilters{
			Query:        validators.SanitizeString(query.Get("q"), 200),
			CategorySlug: strings.TrimSpace(query.Get("category")),
			MinPrice:     minPrice,
			MaxPrice:     maxPrice,
			InStock:      inStock,
		},
		Sort: sort,
		Page: pagination.Page{Number: page, Limit: limit},
	}, nil
}
