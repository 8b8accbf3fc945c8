package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Slug        string  `json:"slug,omitempty" validate:"omitempty,max=140"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=140"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

type createProductRequest struct {
	Name          string     `json:"name" validate:"required,max=200"`
	Slug          string     `json:"slug,omitempty" validate:"omitempty,max=220"`
	Description   *string    `json:"description,omitempty" validate:"omitempty,max=20000"`
	Price         int64      `json:"price" validate:"min=0"`
	DiscountPrice *int64     `json:"discountPrice,omitempty" validate:"omitempty,min=0"`
	Stock         int        `json:"stock" validate:"min=0"`
	IsActive      *bool      `json:"isActive,omitempty"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
}

type updateProductRequest struct {
	Name          *string             `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug          *string             `json:"slug,omitempty" validate:"omitempty,max=220"`
	Description   *string             `json:"description,omitempty" validate:"omitempty,max=20000"`
	Price         *int64              `json:"price,omitempty" validate:"omitempty,min=0"`
	DiscountPrice types.NullableInt64 `json:"discountPrice"`
	IsActive      *bool               `json:"isActive,omitempty"`
	CategoryID    types.NullableUUID  `json:"categoryId"`
}

type variantRequest struct {
	Size            *string `json:"size,omitempty" validate:"omitempty,max=40"`
	Color           *string `json:"color,omitempty" validate:"omitempty,max=40"`
	Stock           int     `json:"stock" validate:"min=0"`
	AdditionalPrice int64   `json:"additionalPrice" validate:"min=0"`
	SKU             *string `json:"sku,omitempty" validate:"omitempty,max=64"`
	IsActive        *bool   `json:"isActive,omitempty"`
}

type updateVariantRequest struct {
	Size            *string `json:"size,omitempty" validate:"omitempty,max=40"`
	Color           *string `json:"color,omitempty" validate:"omitempty,max=40"`
	AdditionalPrice *int64  `json:"additionalPrice,omitempty" validate:"omitempty,min=0"`
	SKU             *string `json:"sku,omitempty" validate:"omitempty,max=64"`
	IsActive        *bool   `json:"isActive,omitempty"`
}

type setStockRequest struct {
	Stock *int `json:"stock" validate:"required,min=0"`
}

func AdminListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListAllCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func AdminCreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), catalog.CategoryInput{
			Name:        body.Name,
			Slug:        body.Slug,
			Description: body.Description,
			IsActive:    boolOr(body.IsActive, true),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func AdminUpdateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.UpdateCategory(r.Context(), id, catalog.UpdateCategoryInput{
			Name:        body.Name,
			Slug:        body.Slug,
			Description: body.Description,
			IsActive:    body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func AdminDeleteCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCategory(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// AdminListProducts lists products including inactive ones.
func AdminListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.IncludeInactive = true
		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminGetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Name:          body.Name,
			Slug:          body.Slug,
			Description:   body.Description,
			Price:         body.Price,
			DiscountPrice: body.DiscountPrice,
			Stock:         body.Stock,
			IsActive:      boolOr(body.IsActive, true),
			CategoryID:    body.CategoryID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, catalog.UpdateProductInput{
			Name:          body.Name,
			Slug:          body.Slug,
			Description:   body.Description,
			Price:         body.Price,
			DiscountPrice: body.DiscountPrice,
			IsActive:      body.IsActive,
			CategoryID:    body.CategoryID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// AdminSetProductStock applies a manual stock correction.
func AdminSetProductStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetProductStock(r.Context(), id, *body.Stock); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "stock": *body.Stock})
	}
}

func AdminCreateVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body variantRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, err := svc.CreateVariant(r.Context(), productID, catalog.VariantInput{
			Size:            body.Size,
			Color:           body.Color,
			Stock:           body.Stock,
			AdditionalPrice: body.AdditionalPrice,
			SKU:             body.SKU,
			IsActive:        boolOr(body.IsActive, true),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

func AdminUpdateVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateVariantRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variant, err := svc.UpdateVariant(r.Context(), id, catalog.UpdateVariantInput{
			Size:            body.Size,
			Color:           body.Color,
			AdditionalPrice: body.AdditionalPrice,
			SKU:             body.SKU,
			IsActive:        body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variant)
	}
}

func AdminDeleteVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteVariant(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

func AdminSetVariantStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetVariantStock(r.Context(), id, *body.Stock); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "stock": *body.Stock})
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
