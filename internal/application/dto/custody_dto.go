package dto

import (
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// CustodyEventResponse entrada del historial.
type CustodyEventResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	SequenceNumber int64     `json:"sequence_number"`
	Kind           string    `json:"kind"`
	FromOwnerID    *string   `json:"from_owner_id"`
	ToOwnerID      string    `json:"to_owner_id"`
	EvidenceRef    *string   `json:"evidence_ref"`
	Status         string    `json:"status"`
	Note           string    `json:"note,omitempty"`
	CreatedBy      string    `json:"created_by"`
	Timestamp      time.Time `json:"timestamp"`
}

// HistoryResponse historial completo de un producto, en orden de secuencia.
type HistoryResponse struct {
	ProductID string                 `json:"product_id"`
	Events    []CustodyEventResponse `json:"events"`
}

// FromEvent convierte un evento de custodia.
func FromEvent(e *entity.CustodyEvent) CustodyEventResponse {
	return CustodyEventResponse{
		ID:             e.ID,
		ProductID:      e.ProductID,
		SequenceNumber: e.SequenceNumber,
		Kind:           e.Kind,
		FromOwnerID:    e.FromOwnerID,
		ToOwnerID:      e.ToOwnerID,
		EvidenceRef:    e.EvidenceRef,
		Status:         string(e.Status),
		Note:           e.Note,
		CreatedBy:      e.CreatedBy,
		Timestamp:      e.Timestamp,
	}
}

// FromHistory convierte el historial.
func FromHistory(productID string, events []*entity.CustodyEvent) HistoryResponse {
	out := HistoryResponse{ProductID: productID, Events: make([]CustodyEventResponse, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, FromEvent(e))
	}
	return out
}
