package custody

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/authz"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// ServiceDeps dependencias del servicio de trazabilidad. Owners y Recorder son opcionales.
type ServiceDeps struct {
	Registry *Registry
	Ledger   *Ledger
	Evidence EvidenceStore
	Owners   OwnerDirectory
	Recorder Recorder
	Reports  ReportRenderer
	Logger   zerolog.Logger

	// UploadTimeout límite para subir la evidencia (0 = sin límite propio).
	UploadTimeout time.Duration
	// MaxEvidenceBytes tamaño máximo de la imagen (0 = sin límite).
	MaxEvidenceBytes int
}

// Service orquesta Registry, Ledger, EvidenceStore y la política de autorización.
// Es el único que escribe productos y eventos de custodia.
type Service struct {
	registry      *Registry
	ledger        *Ledger
	evidence      EvidenceStore
	reader        EvidenceReader
	owners        OwnerDirectory
	rec           Recorder
	reports       ReportRenderer
	log           zerolog.Logger
	uploadTimeout time.Duration
	maxEvidence   int
}

// NewService construye el servicio.
func NewService(deps ServiceDeps) *Service {
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	// Los stores de evidencia que también saben leer habilitan GetEvidence.
	reader, _ := deps.Evidence.(EvidenceReader)
	return &Service{
		registry:      deps.Registry,
		ledger:        deps.Ledger,
		evidence:      deps.Evidence,
		reader:        reader,
		owners:        deps.Owners,
		rec:           rec,
		reports:       deps.Reports,
		log:           deps.Logger.With().Str("component", "custody").Logger(),
		uploadTimeout: deps.UploadTimeout,
		maxEvidence:   deps.MaxEvidenceBytes,
	}
}

// CreateProductInput entrada de create. Evidence es opcional.
type CreateProductInput struct {
	Barcode     string
	Name        string
	Description string
	Evidence    *Evidence
}

// CreateProduct registra un producto nuevo con el caller como primer custodio. Solo admin.
func (s *Service) CreateProduct(ctx context.Context, caller entity.Caller, in CreateProductInput) (*entity.Product, error) {
	if err := authz.Check(caller, authz.OpCreate); err != nil {
		return nil, err
	}
	barcode := entity.NormalizeBarcode(in.Barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode requerido", domain.ErrInvalidInput)
	}
	// Falla rápido antes de subir evidencia; la unicidad real la garantiza la transacción.
	if exists, err := s.registry.Exists(ctx, barcode); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: el código %q ya está registrado", domain.ErrDuplicate, barcode)
	}

	var ref string
	if in.Evidence != nil && len(in.Evidence.Data) > 0 {
		var err error
		if ref, err = s.storeEvidence(ctx, *in.Evidence); err != nil {
			return nil, err
		}
	}

	product, _, err := s.registry.CreateProduct(ctx, NewProduct{
		Barcode:     barcode,
		Name:        in.Name,
		Description: in.Description,
		CreatorID:   caller.ID,
		EvidenceRef: ref,
	})
	if err != nil {
		if ref != "" {
			s.log.Warn().Err(err).Str("evidence_ref", ref).Msg("evidencia huérfana tras fallo de creación")
		}
		return nil, err
	}
	s.rec.ProductCreated()
	s.log.Info().
		Str("product_id", product.ID).
		Str("barcode", product.Barcode).
		Str("owner", product.CurrentOwnerID).
		Msg("producto creado")
	return product, nil
}

// ScanProduct devuelve el estado actual del producto (nunca el historial). Cualquier caller.
func (s *Service) ScanProduct(ctx context.Context, barcode string) (*entity.Product, error) {
	return s.registry.GetByBarcode(ctx, barcode)
}

// TransferProductInput entrada de transfer. ExpectedOwnerID vacío significa "el propio caller".
type TransferProductInput struct {
	Barcode         string
	ToOwnerID       string
	ExpectedOwnerID string
	Status          entity.ProductStatus
	Note            string
	Evidence        Evidence
}

// TransferProduct sube la evidencia y después registra el traspaso en el ledger.
// La evidencia se guarda antes del commit: ningún evento referencia un objeto inexistente.
// Si el ledger rechaza el traspaso, el objeto subido queda huérfano (no se compensa).
func (s *Service) TransferProduct(ctx context.Context, caller entity.Caller, in TransferProductInput) (*entity.CustodyEvent, error) {
	if err := authz.Check(caller, authz.OpTransfer); err != nil {
		return nil, err
	}
	expected := in.ExpectedOwnerID
	if expected == "" {
		expected = caller.ID
	}
	if !authz.CanTransferFrom(caller, expected) {
		return nil, fmt.Errorf("%w: solo el custodio actual puede transferir el producto", domain.ErrForbidden)
	}
	if in.ToOwnerID == "" {
		return nil, fmt.Errorf("%w: destinatario requerido", domain.ErrInvalidInput)
	}
	if in.ToOwnerID == expected {
		return nil, fmt.Errorf("%w: el destinatario ya es el propietario", domain.ErrInvalidInput)
	}
	if len(in.Evidence.Data) == 0 {
		return nil, fmt.Errorf("%w: la imagen de evidencia es obligatoria", domain.ErrInvalidInput)
	}
	if in.Status != "" && in.Status != entity.StatusInTransit && in.Status != entity.StatusReceived {
		return nil, fmt.Errorf("%w: estado %q no válido", domain.ErrInvalidInput, in.Status)
	}

	product, err := s.registry.GetByBarcode(ctx, in.Barcode)
	if err != nil {
		return nil, err
	}
	if s.owners != nil {
		ok, err := s.owners.OwnerExists(ctx, in.ToOwnerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: el destinatario %s no existe", domain.ErrNotFound, in.ToOwnerID)
		}
	}

	ref, err := s.storeEvidence(ctx, in.Evidence)
	if err != nil {
		return nil, err
	}
	// Subida cancelada o vencida: no se toca el ledger.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event, err := s.ledger.AppendTransfer(ctx, TransferInput{
		ProductID:   product.ID,
		FromOwnerID: expected,
		ToOwnerID:   in.ToOwnerID,
		EvidenceRef: ref,
		Status:      in.Status,
		Note:        in.Note,
		CreatedBy:   caller.ID,
	})
	if err != nil {
		level := zerolog.ErrorLevel
		if domain.KindOf(err) == domain.KindConflict {
			level = zerolog.WarnLevel
			s.rec.TransferConflict()
		}
		s.log.WithLevel(level).Err(err).
			Str("product_id", product.ID).
			Str("expected_owner", expected).
			Str("evidence_ref", ref).
			Msg("transferencia rechazada, evidencia huérfana")
		return nil, err
	}
	s.rec.TransferCommitted()
	s.log.Info().
		Str("product_id", product.ID).
		Int64("seq", event.SequenceNumber).
		Str("from", event.From()).
		Str("to", event.ToOwnerID).
		Msg("transferencia registrada")
	return event, nil
}

// GetProductHistory devuelve el historial completo de un producto. Solo admin.
func (s *Service) GetProductHistory(ctx context.Context, caller entity.Caller, productID string) ([]*entity.CustodyEvent, error) {
	if err := authz.Check(caller, authz.OpHistory); err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: productId requerido", domain.ErrInvalidInput)
	}
	return s.ledger.History(ctx, productID)
}

// GetEvidence devuelve la imagen adjunta al evento seq del producto. Solo admin.
// Solo se sirven referencias registradas en el historial.
func (s *Service) GetEvidence(ctx context.Context, caller entity.Caller, productID string, seq int64) (*Evidence, error) {
	events, err := s.GetProductHistory(ctx, caller, productID)
	if err != nil {
		return nil, err
	}
	if s.reader == nil {
		return nil, errors.New("custody: el almacenamiento de evidencias no permite lectura")
	}
	var ref string
	for _, ev := range events {
		if ev.SequenceNumber == seq {
			ref = ev.Evidence()
			break
		}
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: el evento %d de %s no tiene evidencia", domain.ErrNotFound, seq, productID)
	}
	out, err := s.reader.Fetch(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Str("product_id", productID).Int64("seq", seq).Str("evidence_ref", ref).
				Msg("evidencia registrada en el historial no encontrada en el almacenamiento")
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
	}
	return out, nil
}

// GetCustodyReport genera el certificado PDF con el historial completo. Solo admin.
func (s *Service) GetCustodyReport(ctx context.Context, caller entity.Caller, productID string) (*entity.Product, []byte, error) {
	events, err := s.GetProductHistory(ctx, caller, productID)
	if err != nil {
		return nil, nil, err
	}
	if s.reports == nil {
		return nil, nil, errors.New("custody: generador de reportes no configurado")
	}
	product, err := s.registry.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.reports.RenderCustodyReport(ctx, product, events)
	if err != nil {
		return nil, nil, fmt.Errorf("custody: generar reporte: %w", err)
	}
	return product, doc, nil
}

// GetAllProducts lista todos los productos (proyección mínima). Solo admin.
func (s *Service) GetAllProducts(ctx context.Context, caller entity.Caller, limit, offset int) ([]entity.ProductSummary, int, error) {
	if err := authz.Check(caller, authz.OpList); err != nil {
		return nil, 0, err
	}
	return s.registry.ListAll(ctx, limit, offset)
}

func (s *Service) storeEvidence(ctx context.Context, ev Evidence) (string, error) {
	if s.maxEvidence > 0 && len(ev.Data) > s.maxEvidence {
		return "", fmt.Errorf("%w: la imagen supera %d bytes", domain.ErrInvalidInput, s.maxEvidence)
	}
	if s.evidence == nil {
		return "", fmt.Errorf("%w: no hay almacenamiento configurado", domain.ErrStorageFailure)
	}
	uploadCtx := ctx
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}
	ref, err := s.evidence.Store(uploadCtx, ev)
	if err != nil {
		s.rec.EvidenceStored(false)
		s.log.Error().Err(err).Int("bytes", len(ev.Data)).Msg("subida de evidencia fallida")
		if errors.Is(err, domain.ErrStorageFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	if ref == "" {
		s.rec.EvidenceStored(false)
		return "", fmt.Errorf("%w: el almacenamiento no devolvió referencia", domain.ErrStorageFailure)
	}
	s.rec.EvidenceStored(true)
	return ref, nil
}
