package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación en memoria de ProductRepository. Devuelve copias.
type ProductRepo struct {
	s  *Store
	tx *txState
}

// Create persiste un producto; ErrDuplicate si el barcode ya existe (incluye pendientes de la tx).
func (r *ProductRepo) Create(_ context.Context, product *entity.Product) error {
	var err error
	r.s.write(r.tx, func() {
		if _, ok := r.s.byBarcode[product.Barcode]; ok || r.pendingBarcode(product.Barcode) != nil {
			err = fmt.Errorf("%w: barcode %q", domain.ErrDuplicate, product.Barcode)
			return
		}
		cp := *product
		if r.tx != nil {
			r.tx.products[cp.ID] = &cp
			return
		}
		r.s.products[cp.ID] = &cp
		r.s.byBarcode[cp.Barcode] = cp.ID
	})
	return err
}

// GetByID obtiene un producto por ID o (nil, nil).
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	r.s.read(r.tx, func() { out = r.lookup(id) })
	return out, nil
}

// GetByBarcode obtiene un producto por barcode o (nil, nil).
func (r *ProductRepo) GetByBarcode(_ context.Context, barcode string) (*entity.Product, error) {
	var out *entity.Product
	r.s.read(r.tx, func() {
		if p := r.pendingBarcode(barcode); p != nil {
			cp := *p
			out = &cp
			return
		}
		if id, ok := r.s.byBarcode[barcode]; ok {
			out = r.lookup(id)
		}
	})
	return out, nil
}

// GetForUpdate equivale a GetByID: dentro de Run el lock de escritura ya serializa.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

// UpdateCustody aplica el CAS sobre propietario y secuencia.
func (r *ProductRepo) UpdateCustody(_ context.Context, product *entity.Product, expectedOwnerID string, expectedSeq int64) error {
	var err error
	r.s.write(r.tx, func() {
		cur := r.lookup(product.ID)
		if cur == nil {
			err = fmt.Errorf("%w: producto %s", domain.ErrNotFound, product.ID)
			return
		}
		if cur.CurrentOwnerID != expectedOwnerID || cur.LastSequence != expectedSeq {
			err = fmt.Errorf("%w: producto %s", domain.ErrStaleOwner, product.ID)
			return
		}
		cur.CurrentOwnerID = product.CurrentOwnerID
		cur.Status = product.Status
		cur.LastSequence = product.LastSequence
		cur.UpdatedAt = product.UpdatedAt
		if r.tx != nil {
			r.tx.products[cur.ID] = cur
			return
		}
		r.s.products[cur.ID] = cur
	})
	return err
}

// List lista productos ordenados por fecha de creación (más recientes primero).
func (r *ProductRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	r.s.read(r.tx, func() {
		all := make([]*entity.Product, 0, len(r.s.products))
		for id := range r.s.products {
			all = append(all, r.lookup(id))
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].Barcode < all[j].Barcode
			}
			return all[i].CreatedAt.After(all[j].CreatedAt)
		})
		if offset < 0 {
			offset = 0
		}
		if offset >= len(all) {
			return
		}
		end := len(all)
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		out = all[offset:end]
	})
	return out, nil
}

// Count total de productos confirmados.
func (r *ProductRepo) Count(_ context.Context) (int, error) {
	var n int
	r.s.read(r.tx, func() { n = len(r.s.products) })
	return n, nil
}

// lookup devuelve una copia, priorizando los cambios pendientes de la tx.
func (r *ProductRepo) lookup(id string) *entity.Product {
	if r.tx != nil {
		if p, ok := r.tx.products[id]; ok {
			cp := *p
			return &cp
		}
	}
	p, ok := r.s.products[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *ProductRepo) pendingBarcode(barcode string) *entity.Product {
	if r.tx == nil {
		return nil
	}
	for _, p := range r.tx.products {
		if p.Barcode == barcode {
			return p
		}
	}
	return nil
}
