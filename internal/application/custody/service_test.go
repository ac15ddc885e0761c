package custody_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Trazabilidad-api/internal/application/auth"
	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/memory"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/storage"
)

// fakeEvidence guarda referencias en memoria y permite forzar fallos.
type fakeEvidence struct {
	mu    sync.Mutex
	refs  []string
	fail  error
	calls atomic.Int32
}

func (f *fakeEvidence) Store(ctx context.Context, ev custody.Evidence) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.fail != nil {
		return "", f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := "mem://evidencia/" + ev.Filename
	f.refs = append(f.refs, ref)
	return ref, nil
}

var (
	admin = entity.Caller{ID: "admin-1", Role: entity.RoleAdmin}
	u1    = entity.Caller{ID: "user-1", Role: entity.RoleUser}
	u2    = entity.Caller{ID: "user-2", Role: entity.RoleUser}
)

func photo(name string) custody.Evidence {
	return custody.Evidence{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg", Filename: name}
}

type CustodySuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	evidence *fakeEvidence
	svc      *custody.Service
}

func TestCustodySuite(t *testing.T) {
	suite.Run(t, new(CustodySuite))
}

func (s *CustodySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.evidence = &fakeEvidence{}
	for _, c := range []entity.Caller{admin, u1, u2} {
		s.Require().NoError(s.store.Users().Create(s.ctx, &entity.User{
			ID: c.ID, Username: c.ID, Role: c.Role, Status: entity.UserStatusActive,
		}))
	}
	s.svc = s.newService(0)
}

func (s *CustodySuite) newService(maxBytes int) *custody.Service {
	products := s.store.Products()
	return custody.NewService(custody.ServiceDeps{
		Registry:         custody.NewRegistry(s.store, products),
		Ledger:           custody.NewLedger(s.store, products, s.store.Events()),
		Evidence:         s.evidence,
		Owners:           auth.NewUserDirectory(s.store.Users()),
		Logger:           zerolog.Nop(),
		MaxEvidenceBytes: maxBytes,
	})
}

func (s *CustodySuite) create(barcode string) *entity.Product {
	p, err := s.svc.CreateProduct(s.ctx, admin, custody.CreateProductInput{Barcode: barcode, Name: "Caja"})
	s.Require().NoError(err)
	return p
}

func (s *CustodySuite) transfer(caller entity.Caller, barcode, to, expected string) (*entity.CustodyEvent, error) {
	return s.svc.TransferProduct(s.ctx, caller, custody.TransferProductInput{
		Barcode:         barcode,
		ToOwnerID:       to,
		ExpectedOwnerID: expected,
		Evidence:        photo("foto.jpg"),
	})
}

func (s *CustodySuite) history(productID string) []*entity.CustodyEvent {
	events, err := s.svc.GetProductHistory(s.ctx, admin, productID)
	s.Require().NoError(err)
	return events
}

// Flujo completo: creación, traspaso, listado restringido y traspaso obsoleto.
func (s *CustodySuite) TestFlujoCompleto() {
	p := s.create("BC-001")
	s.Equal(admin.ID, p.CurrentOwnerID)
	s.Equal(entity.StatusCreated, p.Status)

	ev, err := s.transfer(admin, "BC-001", u1.ID, "")
	s.Require().NoError(err)
	s.Equal(int64(1), ev.SequenceNumber)
	s.Equal(admin.ID, ev.From())
	s.NotEmpty(ev.Evidence())

	scanned, err := s.svc.ScanProduct(s.ctx, "BC-001")
	s.Require().NoError(err)
	s.Equal(u1.ID, scanned.CurrentOwnerID)
	s.Equal(entity.StatusReceived, scanned.Status)

	_, _, err = s.svc.GetAllProducts(s.ctx, u1, 10, 0)
	s.ErrorIs(err, domain.ErrForbidden)

	// El admin cree que sigue siendo el propietario.
	_, err = s.transfer(admin, "BC-001", u2.ID, admin.ID)
	s.ErrorIs(err, domain.ErrStaleOwner)
	s.Equal(domain.KindConflict, domain.KindOf(err))

	events := s.history(p.ID)
	s.Len(events, 2, "el traspaso rechazado no agrega eventos")
}

func (s *CustodySuite) TestHistorialSinHuecos() {
	p := s.create("BC-002")
	_, err := s.transfer(admin, "BC-002", u1.ID, "")
	s.Require().NoError(err)
	_, err = s.transfer(u1, "BC-002", u2.ID, "")
	s.Require().NoError(err)
	_, err = s.transfer(u2, "BC-002", admin.ID, "")
	s.Require().NoError(err)

	events := s.history(p.ID)
	s.Require().Len(events, 4)
	s.NoError(entity.ValidateChain(events))
	for i, ev := range events {
		s.Equal(int64(i), ev.SequenceNumber)
	}
	s.Nil(events[0].FromOwnerID)
	s.Equal(entity.EventKindCreation, events[0].Kind)

	current, err := s.svc.ScanProduct(s.ctx, "BC-002")
	s.Require().NoError(err)
	s.Equal(events[len(events)-1].ToOwnerID, current.CurrentOwnerID)
	s.Equal(events[len(events)-1].SequenceNumber, current.LastSequence)

	again := s.history(p.ID)
	s.Equal(events, again, "lecturas repetidas son idénticas")
}

func (s *CustodySuite) TestCrearDuplicadoNoModificaOriginal() {
	original := s.create("BC-003")

	_, err := s.svc.CreateProduct(s.ctx, admin, custody.CreateProductInput{Barcode: " BC-003 ", Name: "Otra"})
	s.ErrorIs(err, domain.ErrDuplicate)
	s.Equal(domain.KindConflict, domain.KindOf(err))

	got, err := s.svc.ScanProduct(s.ctx, "BC-003")
	s.Require().NoError(err)
	s.Equal(original.ID, got.ID)
	s.Equal("Caja", got.Name)
	s.Len(s.history(original.ID), 1)
}

func (s *CustodySuite) TestCrearSoloAdmin() {
	_, err := s.svc.CreateProduct(s.ctx, u1, custody.CreateProductInput{Barcode: "BC-X"})
	s.ErrorIs(err, domain.ErrForbidden)

	_, err = s.svc.CreateProduct(s.ctx, entity.Anonymous(), custody.CreateProductInput{Barcode: "BC-X"})
	s.ErrorIs(err, domain.ErrUnauthenticated)

	_, err = s.svc.CreateProduct(s.ctx, admin, custody.CreateProductInput{Barcode: "   "})
	s.ErrorIs(err, domain.ErrInvalidInput)
}

func (s *CustodySuite) TestCrearConEvidenciaOpcional() {
	p, err := s.svc.CreateProduct(s.ctx, admin, custody.CreateProductInput{
		Barcode:  "BC-EV",
		Evidence: &custody.Evidence{Data: []byte("x"), Filename: "alta.png"},
	})
	s.Require().NoError(err)
	events := s.history(p.ID)
	s.Equal("mem://evidencia/alta.png", events[0].Evidence())
}

func (s *CustodySuite) TestScanInexistenteNoCreaNada() {
	_, err := s.svc.ScanProduct(s.ctx, "NO-EXISTE")
	s.ErrorIs(err, domain.ErrNotFound)

	n, err := s.store.Products().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *CustodySuite) TestFalloDeAlmacenamientoNoTocaElLedger() {
	p := s.create("BC-004")
	s.evidence.fail = errors.New("bucket no disponible")

	_, err := s.transfer(admin, "BC-004", u1.ID, "")
	s.ErrorIs(err, domain.ErrStorageFailure)
	s.Equal(domain.KindStorageFailure, domain.KindOf(err))

	got, _ := s.svc.ScanProduct(s.ctx, "BC-004")
	s.Equal(admin.ID, got.CurrentOwnerID)
	s.Len(s.history(p.ID), 1)
}

func (s *CustodySuite) TestContextoCancelado() {
	p := s.create("BC-005")
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.svc.TransferProduct(ctx, admin, custody.TransferProductInput{
		Barcode: "BC-005", ToOwnerID: u1.ID, Evidence: photo("a.jpg"),
	})
	s.Error(err)
	s.Len(s.history(p.ID), 1)
}

func (s *CustodySuite) TestUsuarioQueNoTieneElProducto() {
	s.create("BC-006")

	_, err := s.transfer(u1, "BC-006", u2.ID, admin.ID)
	s.ErrorIs(err, domain.ErrForbidden, "un user no actúa en nombre de otro")
	s.Zero(s.evidence.calls.Load(), "no se sube evidencia si la autorización falla")

	_, err = s.transfer(u1, "BC-006", u2.ID, "")
	s.ErrorIs(err, domain.ErrStaleOwner, "u1 afirma tenerlo pero el propietario es el admin")
}

func (s *CustodySuite) TestTransferValidaciones() {
	s.create("BC-007")

	_, err := s.transfer(admin, "BC-007", "desconocido", "")
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.transfer(admin, "BC-007", admin.ID, "")
	s.ErrorIs(err, domain.ErrInvalidInput)

	_, err = s.svc.TransferProduct(s.ctx, admin, custody.TransferProductInput{Barcode: "BC-007", ToOwnerID: u1.ID})
	s.ErrorIs(err, domain.ErrInvalidInput, "la evidencia es obligatoria")

	_, err = s.svc.TransferProduct(s.ctx, admin, custody.TransferProductInput{
		Barcode: "BC-007", ToOwnerID: u1.ID, Status: entity.StatusCreated, Evidence: photo("a.jpg"),
	})
	s.ErrorIs(err, domain.ErrInvalidInput)

	_, err = s.svc.TransferProduct(s.ctx, entity.Anonymous(), custody.TransferProductInput{Barcode: "BC-007", ToOwnerID: u1.ID})
	s.ErrorIs(err, domain.ErrUnauthenticated)

	_, err = s.transfer(admin, "NO-EXISTE", u1.ID, "")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *CustodySuite) TestTransferEnTransito() {
	s.create("BC-008")
	ev, err := s.svc.TransferProduct(s.ctx, admin, custody.TransferProductInput{
		Barcode: "BC-008", ToOwnerID: u1.ID, Status: entity.StatusInTransit, Note: "camión 4", Evidence: photo("a.jpg"),
	})
	s.Require().NoError(err)
	s.Equal(entity.StatusInTransit, ev.Status)
	s.Equal("camión 4", ev.Note)

	got, _ := s.svc.ScanProduct(s.ctx, "BC-008")
	s.Equal(entity.StatusInTransit, got.Status)
}

func (s *CustodySuite) TestLimiteDeTamanoDeEvidencia() {
	svc := s.newService(4)
	_, err := svc.CreateProduct(s.ctx, admin, custody.CreateProductInput{Barcode: "BC-009"})
	s.Require().NoError(err)

	_, err = svc.TransferProduct(s.ctx, admin, custody.TransferProductInput{
		Barcode: "BC-009", ToOwnerID: u1.ID, Evidence: photo("grande.jpg"),
	})
	s.ErrorIs(err, domain.ErrInvalidInput)
	s.Zero(s.evidence.calls.Load())
}

func (s *CustodySuite) TestHistorialYListadoSoloAdmin() {
	p := s.create("BC-010")

	_, err := s.svc.GetProductHistory(s.ctx, u1, p.ID)
	s.ErrorIs(err, domain.ErrForbidden)

	_, err = s.svc.GetProductHistory(s.ctx, admin, "no-existe")
	s.ErrorIs(err, domain.ErrNotFound)

	items, total, err := s.svc.GetAllProducts(s.ctx, admin, 10, 0)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(items, 1)
	s.Equal(entity.ProductSummary{ID: p.ID, Barcode: "BC-010", CurrentOwnerID: admin.ID, Status: entity.StatusCreated}, items[0])
}

func (s *CustodySuite) TestEvidenciaDelHistorial() {
	p := s.create("BC-013")

	// fakeEvidence no sabe leer: la consulta es un error interno, no un 404.
	_, err := s.svc.GetEvidence(s.ctx, admin, p.ID, 0)
	s.Equal(domain.KindInternal, domain.KindOf(err))

	products := s.store.Products()
	svc := custody.NewService(custody.ServiceDeps{
		Registry: custody.NewRegistry(s.store, products),
		Ledger:   custody.NewLedger(s.store, products, s.store.Events()),
		Evidence: storage.NewMemoryStore(),
		Owners:   auth.NewUserDirectory(s.store.Users()),
		Logger:   zerolog.Nop(),
	})
	_, err = svc.TransferProduct(s.ctx, admin, custody.TransferProductInput{
		Barcode: "BC-013", ToOwnerID: u1.ID, Evidence: photo("entrega.jpg"),
	})
	s.Require().NoError(err)

	got, err := svc.GetEvidence(s.ctx, admin, p.ID, 1)
	s.Require().NoError(err)
	s.Equal("jpeg-bytes", string(got.Data))
	s.Equal("image/jpeg", got.ContentType)

	_, err = svc.GetEvidence(s.ctx, admin, p.ID, 0)
	s.ErrorIs(err, domain.ErrNotFound, "la creación no tiene evidencia")
	_, err = svc.GetEvidence(s.ctx, admin, p.ID, 7)
	s.ErrorIs(err, domain.ErrNotFound)
	_, err = svc.GetEvidence(s.ctx, u1, p.ID, 1)
	s.ErrorIs(err, domain.ErrForbidden)
}

func (s *CustodySuite) TestRegistryExists() {
	reg := custody.NewRegistry(s.store, s.store.Products())
	ok, err := reg.Exists(s.ctx, "BC-014")
	s.Require().NoError(err)
	s.False(ok)

	s.create("BC-014")
	ok, err = reg.Exists(s.ctx, "  BC-014 ")
	s.Require().NoError(err)
	s.True(ok, "el barcode se normaliza antes de buscar")

	ev := photo("alta.jpg")
	_, err = s.svc.CreateProduct(s.ctx, admin, custody.CreateProductInput{Barcode: " BC-014", Evidence: &ev})
	s.ErrorIs(err, domain.ErrDuplicate)
	s.Zero(s.evidence.calls.Load(), "el duplicado se detecta antes de subir evidencia")
}

func (s *CustodySuite) TestListadoPaginacionInvalida() {
	s.create("BC-011")

	s.NotPanics(func() {
		_, _, err := s.svc.GetAllProducts(s.ctx, admin, 10, -1)
		s.ErrorIs(err, domain.ErrInvalidInput)
	})
	_, _, err := s.svc.GetAllProducts(s.ctx, admin, -5, 0)
	s.ErrorIs(err, domain.ErrInvalidInput)
	s.Equal(domain.KindInvalidInput, domain.KindOf(err))

	items, total, err := s.svc.GetAllProducts(s.ctx, admin, 0, 0)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Len(items, 1)
}

func (s *CustodySuite) TestHistorialNoSeAlteraDesdeFuera() {
	p := s.create("BC-012")
	_, err := s.transfer(admin, "BC-012", u1.ID, "")
	s.Require().NoError(err)

	h1 := s.history(p.ID)
	s.Require().Len(h1, 2)
	*h1[1].FromOwnerID = "alterado"
	*h1[1].EvidenceRef = "alterado"

	h2 := s.history(p.ID)
	s.Equal(admin.ID, h2[1].From())
	s.NotEqual("alterado", h2[1].Evidence())
}

// Dos traspasos concurrentes desde el mismo propietario: exactamente uno gana.
func TestTransferConcurrente_UnSoloGanador(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, c := range []entity.Caller{admin, u1, u2} {
		require.NoError(t, store.Users().Create(ctx, &entity.User{ID: c.ID, Username: c.ID, Role: c.Role, Status: entity.UserStatusActive}))
	}
	products := store.Products()
	svc := custody.NewService(custody.ServiceDeps{
		Registry: custody.NewRegistry(store, products),
		Ledger:   custody.NewLedger(store, products, store.Events()),
		Evidence: &fakeEvidence{},
		Owners:   auth.NewUserDirectory(store.Users()),
		Logger:   zerolog.Nop(),
	})
	p, err := svc.CreateProduct(ctx, admin, custody.CreateProductInput{Barcode: "BC-RACE"})
	require.NoError(t, err)

	var ok, conflict atomic.Int32
	var g errgroup.Group
	for _, to := range []string{u1.ID, u2.ID} {
		g.Go(func() error {
			_, err := svc.TransferProduct(ctx, admin, custody.TransferProductInput{
				Barcode: "BC-RACE", ToOwnerID: to, ExpectedOwnerID: admin.ID, Evidence: photo(to + ".jpg"),
			})
			switch {
			case err == nil:
				ok.Add(1)
			case domain.KindOf(err) == domain.KindConflict:
				conflict.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), conflict.Load())

	events, err := svc.GetProductHistory(ctx, admin, p.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NoError(t, entity.ValidateChain(events))

	current, err := svc.ScanProduct(ctx, "BC-RACE")
	require.NoError(t, err)
	assert.Equal(t, events[1].ToOwnerID, current.CurrentOwnerID)
}

type fakeRenderer struct{ events int }

func (f *fakeRenderer) RenderCustodyReport(_ context.Context, _ *entity.Product, events []*entity.CustodyEvent) ([]byte, error) {
	f.events = len(events)
	return []byte("%PDF-fake"), nil
}

func (s *CustodySuite) TestReporteDeCustodia() {
	p := s.create("BC-011")

	_, _, err := s.svc.GetCustodyReport(s.ctx, admin, p.ID)
	s.Equal(domain.KindInternal, domain.KindOf(err), "sin generador configurado")

	renderer := &fakeRenderer{}
	products := s.store.Products()
	svc := custody.NewService(custody.ServiceDeps{
		Registry: custody.NewRegistry(s.store, products),
		Ledger:   custody.NewLedger(s.store, products, s.store.Events()),
		Evidence: s.evidence,
		Reports:  renderer,
		Logger:   zerolog.Nop(),
	})

	_, _, err = svc.GetCustodyReport(s.ctx, u1, p.ID)
	s.ErrorIs(err, domain.ErrForbidden)

	got, doc, err := svc.GetCustodyReport(s.ctx, admin, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal("%PDF-fake", string(doc))
	s.Equal(1, renderer.events)
}
