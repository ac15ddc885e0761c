package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
)

func newProduct(id, barcode string) (*entity.Product, *entity.CustodyEvent) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &entity.Product{ID: id, Barcode: barcode, CreatedBy: "admin", CreatedAt: now}
	ev := entity.NewCreationEvent(id, "admin", "", now)
	p.ApplyEvent(ev)
	return p, ev
}

func TestRun_CommitHaceVisiblesLosCambios(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p, ev := newProduct("p1", "BC-001")

	err := s.Run(ctx, func(pr repository.ProductRepository, er repository.CustodyEventRepository) error {
		require.NoError(t, pr.Create(ctx, p))
		return er.Append(ctx, ev)
	})
	require.NoError(t, err)

	got, err := s.Products().GetByBarcode(ctx, "BC-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.CurrentOwnerID)

	events, err := s.Events().ListByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRun_ErrorHaceRollback(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p, ev := newProduct("p1", "BC-001")
	boom := errors.New("boom")

	err := s.Run(ctx, func(pr repository.ProductRepository, er repository.CustodyEventRepository) error {
		require.NoError(t, pr.Create(ctx, p))
		require.NoError(t, er.Append(ctx, ev))
		// dentro de la tx los cambios pendientes sí se leen
		got, _ := pr.GetByBarcode(ctx, "BC-001")
		require.NotNil(t, got)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().GetByBarcode(ctx, "BC-001")
	require.NoError(t, err)
	assert.Nil(t, got, "ningún producto parcial debe quedar visible")
	events, _ := s.Events().ListByProduct(ctx, "p1")
	assert.Empty(t, events)
}

func TestProductRepo_CreateDuplicado(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p1, _ := newProduct("p1", "BC-001")
	p2, _ := newProduct("p2", "BC-001")

	require.NoError(t, s.Products().Create(ctx, p1))
	err := s.Products().Create(ctx, p2)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductRepo_UpdateCustodyCAS(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p, _ := newProduct("p1", "BC-001")
	require.NoError(t, s.Products().Create(ctx, p))

	next := *p
	next.CurrentOwnerID = "u1"
	next.LastSequence = 1
	require.NoError(t, s.Products().UpdateCustody(ctx, &next, "admin", 0))

	stale := *p
	stale.CurrentOwnerID = "u2"
	stale.LastSequence = 1
	err := s.Products().UpdateCustody(ctx, &stale, "admin", 0)
	assert.ErrorIs(t, err, domain.ErrStaleOwner)

	got, _ := s.Products().GetByID(ctx, "p1")
	assert.Equal(t, "u1", got.CurrentOwnerID)
}

func TestEventRepo_SecuenciaOcupada(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	_, ev := newProduct("p1", "BC-001")
	require.NoError(t, s.Events().Append(ctx, ev))

	dup := *ev
	dup.ID = "otro"
	assert.ErrorIs(t, s.Events().Append(ctx, &dup), domain.ErrStaleOwner)
}

func TestEventRepo_DevuelveCopias(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	_, ev := newProduct("p1", "BC-001")
	require.NoError(t, s.Events().Append(ctx, ev))

	list, _ := s.Events().ListByProduct(ctx, "p1")
	list[0].ToOwnerID = "mutado"

	again, _ := s.Events().ListByProduct(ctx, "p1")
	assert.Equal(t, "admin", again[0].ToOwnerID, "el historial es inmutable para los lectores")
}

func TestEventRepo_CopiasProfundas(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	from, ref := "admin", "mem://evidencia/1.jpg"
	ev := &entity.CustodyEvent{
		ID: "e1", ProductID: "p1", SequenceNumber: 1, Kind: entity.EventKindTransfer,
		FromOwnerID: &from, ToOwnerID: "u1", EvidenceRef: &ref, Status: entity.StatusReceived,
	}
	require.NoError(t, s.Events().Append(ctx, ev))

	// El llamador conserva sus punteros: modificarlos no altera lo guardado.
	from, ref = "otro", "otra"

	list, _ := s.Events().ListByProduct(ctx, "p1")
	require.Len(t, list, 1)
	*list[0].FromOwnerID = "mutado"
	*list[0].EvidenceRef = "mutado"

	again, _ := s.Events().ListByProduct(ctx, "p1")
	assert.Equal(t, "admin", again[0].From())
	assert.Equal(t, "mem://evidencia/1.jpg", again[0].Evidence())

	last, _ := s.Events().Last(ctx, "p1")
	assert.Equal(t, "admin", last.From())
}

func TestProductRepo_ListOffsetNegativo(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p, _ := newProduct("p1", "BC-001")
	require.NoError(t, s.Products().Create(ctx, p))

	var list []*entity.Product
	assert.NotPanics(t, func() { list, _ = s.Products().List(ctx, 10, -1) })
	assert.Len(t, list, 1)
}

func TestProductRepo_ListPaginado(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	for i, bc := range []string{"A", "B", "C"} {
		p, _ := newProduct(bc, bc)
		p.CreatedAt = p.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Products().Create(ctx, p))
	}

	page, err := s.Products().List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "C", page[0].Barcode, "más recientes primero")

	rest, _ := s.Products().List(ctx, 2, 2)
	assert.Len(t, rest, 1)
	n, _ := s.Products().Count(ctx)
	assert.Equal(t, 3, n)
}

func TestRun_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := memory.NewStore()
	called := false
	err := s.Run(ctx, func(repository.ProductRepository, repository.CustodyEventRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
