// Package memory implementa los puertos de persistencia en memoria (desarrollo y tests).
// Las transacciones se serializan con un único lock de escritura y sus cambios se
// aplican al hacer commit, así que una transacción fallida no deja nada visible.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ custody.TxRunner = (*Store)(nil)

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	byBarcode map[string]string
	events    map[string][]*entity.CustodyEvent
	users     map[string]*entity.User
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		byBarcode: make(map[string]string),
		events:    make(map[string][]*entity.CustodyEvent),
		users:     make(map[string]*entity.User),
	}
}

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Events repositorio de eventos fuera de transacción.
func (s *Store) Events() *EventRepo { return &EventRepo{s: s} }

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// txState cambios pendientes de una transacción.
type txState struct {
	products map[string]*entity.Product
	events   []*entity.CustodyEvent
}

// Run ejecuta fn con repos atados a una transacción. Commit solo si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	eventRepo repository.CustodyEventRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{products: make(map[string]*entity.Product)}
	if err := fn(&ProductRepo{s: s, tx: tx}, &EventRepo{s: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, p := range tx.products {
		s.products[id] = p
		s.byBarcode[p.Barcode] = id
	}
	for _, ev := range tx.events {
		s.events[ev.ProductID] = append(s.events[ev.ProductID], ev)
	}
	return nil
}

// read ejecuta fn con lock de lectura salvo dentro de una transacción (el lock ya está tomado).
func (s *Store) read(tx *txState, fn func()) {
	if tx == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	fn()
}

func (s *Store) write(tx *txState, fn func()) {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

func sortEvents(list []*entity.CustodyEvent) {
	sort.Slice(list, func(i, j int) bool { return list[i].SequenceNumber < list[j].SequenceNumber })
}
