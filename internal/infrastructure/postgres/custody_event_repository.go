package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.CustodyEventRepository = (*CustodyEventRepo)(nil)

const eventColumns = `id, product_id, sequence_number, kind, from_owner_id, to_owner_id, evidence_ref, status, note, created_by, created_at`

// CustodyEventRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
type CustodyEventRepo struct {
	q Querier
}

// NewCustodyEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustodyEventRepository(q Querier) *CustodyEventRepo {
	return &CustodyEventRepo{q: q}
}

// Append inserta un evento. Una secuencia repetida indica que otro traspaso ganó la carrera.
func (r *CustodyEventRepo) Append(ctx context.Context, ev *entity.CustodyEvent) error {
	query := `
		INSERT INTO custody_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		ev.ID, ev.ProductID, ev.SequenceNumber, ev.Kind, ev.FromOwnerID, ev.ToOwnerID,
		ev.EvidenceRef, string(ev.Status), ev.Note, ev.CreatedBy, ev.Timestamp,
	)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == constraintEventSequence {
			return fmt.Errorf("%w: secuencia %d ocupada", domain.ErrStaleOwner, ev.SequenceNumber)
		}
		return fmt.Errorf("insert custody event: %w", err)
	}
	return nil
}

// Last devuelve el evento de mayor secuencia.
func (r *CustodyEventRepo) Last(ctx context.Context, productID string) (*entity.CustodyEvent, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM custody_events WHERE product_id = $1 ORDER BY sequence_number DESC LIMIT 1`,
		productID,
	)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last custody event: %w", err)
	}
	return ev, nil
}

// ListByProduct historial ascendente por secuencia.
func (r *CustodyEventRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.CustodyEvent, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+eventColumns+` FROM custody_events WHERE product_id = $1 ORDER BY sequence_number ASC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list custody events: %w", err)
	}
	defer rows.Close()
	var list []*entity.CustodyEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custody event: %w", err)
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}

func scanEvent(row pgx.Row) (*entity.CustodyEvent, error) {
	var ev entity.CustodyEvent
	var status string
	if err := row.Scan(&ev.ID, &ev.ProductID, &ev.SequenceNumber, &ev.Kind, &ev.FromOwnerID, &ev.ToOwnerID,
		&ev.EvidenceRef, &status, &ev.Note, &ev.CreatedBy, &ev.Timestamp); err != nil {
		return nil, err
	}
	ev.Status = entity.ProductStatus(status)
	return &ev, nil
}
