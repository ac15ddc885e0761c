package dto

import (
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// CreateProductRequest campos de formulario de creación (multipart; image opcional).
type CreateProductRequest struct {
	Barcode     string `form:"barcode" json:"barcode"`
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
}

// TransferRequest campos de formulario de transferencia (multipart; image obligatoria).
// ExpectedOwnerID vacío equivale al propio caller.
type TransferRequest struct {
	Barcode         string `form:"barcode"`
	ToOwnerID       string `form:"to_owner_id"`
	ExpectedOwnerID string `form:"expected_owner_id"`
	Status          string `form:"status"`
	Note            string `form:"note"`
}

// ProductResponse estado actual de un producto.
type ProductResponse struct {
	ID             string    `json:"id"`
	Barcode        string    `json:"barcode"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	CurrentOwnerID string    `json:"current_owner_id"`
	Status         string    `json:"status"`
	LastSequence   int64     `json:"last_sequence"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductSummaryResponse proyección mínima para el listado.
type ProductSummaryResponse struct {
	ID             string `json:"id"`
	Barcode        string `json:"barcode"`
	CurrentOwnerID string `json:"current_owner_id"`
	Status         string `json:"status"`
}

// ProductListResponse página de productos.
type ProductListResponse struct {
	Items []ProductSummaryResponse `json:"items"`
	Page  PageResponse             `json:"page"`
}

// FromProduct convierte la entidad en respuesta.
func FromProduct(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Barcode:        p.Barcode,
		Name:           p.Name,
		Description:    p.Description,
		CurrentOwnerID: p.CurrentOwnerID,
		Status:         string(p.Status),
		LastSequence:   p.LastSequence,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// FromSummaries convierte la proyección de listado.
func FromSummaries(list []entity.ProductSummary) []ProductSummaryResponse {
	out := make([]ProductSummaryResponse, 0, len(list))
	for _, s := range list {
		out = append(out, ProductSummaryResponse{
			ID:             s.ID,
			Barcode:        s.Barcode,
			CurrentOwnerID: s.CurrentOwnerID,
			Status:         string(s.Status),
		})
	}
	return out
}
