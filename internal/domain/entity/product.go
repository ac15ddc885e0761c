package entity

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ProductStatus estado de custodia de un producto. Se deriva del último evento del ledger.
type ProductStatus string

const (
	StatusCreated   ProductStatus = "created"
	StatusInTransit ProductStatus = "in_transit"
	StatusReceived  ProductStatus = "received"
)

// Valid indica si s es un estado conocido.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusInTransit, StatusReceived:
		return true
	}
	return false
}

// Product representa un artículo físico identificado por su código de barras.
// CurrentOwnerID, Status y LastSequence son una vista materializada del último CustodyEvent:
// solo el ledger los modifica, dentro de la misma transacción que inserta el evento.
type Product struct {
	ID             string
	Barcode        string // único e inmutable
	Name           string
	Description    string
	CurrentOwnerID string
	Status         ProductStatus
	LastSequence   int64
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ApplyEvent actualiza la vista materializada con un evento ya validado.
func (p *Product) ApplyEvent(ev *CustodyEvent) {
	p.CurrentOwnerID = ev.ToOwnerID
	p.Status = ev.Status
	p.LastSequence = ev.SequenceNumber
	p.UpdatedAt = ev.Timestamp
}

// ProductSummary proyección mínima usada por el listado.
type ProductSummary struct {
	ID             string
	Barcode        string
	CurrentOwnerID string
	Status         ProductStatus
}

// Summary devuelve la proyección mínima del producto.
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:             p.ID,
		Barcode:        p.Barcode,
		CurrentOwnerID: p.CurrentOwnerID,
		Status:         p.Status,
	}
}

// NormalizeBarcode quita espacios y aplica NFC para que dos lecturas del mismo código
// resuelvan a la misma clave. No valida formato.
func NormalizeBarcode(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}
