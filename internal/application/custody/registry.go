package custody

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// Registry catálogo de productos y su estado actual.
type Registry struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	now         func() time.Time
}

// NewRegistry construye el registro. productRepo se usa para lecturas fuera de transacción.
func NewRegistry(txRunner TxRunner, productRepo repository.ProductRepository) *Registry {
	return &Registry{txRunner: txRunner, productRepo: productRepo, now: time.Now}
}

// NewProduct datos para crear un producto. EvidenceRef es opcional.
type NewProduct struct {
	Barcode     string
	Name        string
	Description string
	CreatorID   string
	EvidenceRef string
}

// CreateProduct inserta el producto y su evento de creación (secuencia 0) en la misma transacción.
// Devuelve domain.ErrDuplicate si el barcode ya existe; el producto existente no se toca.
func (r *Registry) CreateProduct(ctx context.Context, in NewProduct) (*entity.Product, *entity.CustodyEvent, error) {
	barcode := entity.NormalizeBarcode(in.Barcode)
	if barcode == "" || in.CreatorID == "" {
		return nil, nil, fmt.Errorf("%w: barcode y creador son requeridos", domain.ErrInvalidInput)
	}
	now := r.now().UTC()
	product := &entity.Product{
		ID:          uuid.New().String(),
		Barcode:     barcode,
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   in.CreatorID,
		CreatedAt:   now,
	}
	event := entity.NewCreationEvent(product.ID, in.CreatorID, in.EvidenceRef, now)
	if err := entity.ValidateSuccessor(nil, event); err != nil {
		return nil, nil, err
	}
	product.ApplyEvent(event)

	err := r.txRunner.Run(ctx, func(productRepo repository.ProductRepository, eventRepo repository.CustodyEventRepository) error {
		existing, err := productRepo.GetByBarcode(ctx, barcode)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: el código %q ya está registrado", domain.ErrDuplicate, barcode)
		}
		// El índice único sobre barcode cubre la carrera entre dos creaciones simultáneas.
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		return eventRepo.Append(ctx, event)
	})
	if err != nil {
		return nil, nil, err
	}
	return product, event, nil
}

// GetByBarcode búsqueda pura, sin efectos. Devuelve domain.ErrNotFound si no existe.
func (r *Registry) GetByBarcode(ctx context.Context, barcode string) (*entity.Product, error) {
	barcode = entity.NormalizeBarcode(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode requerido", domain.ErrInvalidInput)
	}
	p, err := r.productRepo.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no existe un producto con código %q", domain.ErrNotFound, barcode)
	}
	return p, nil
}

// Exists indica si el barcode ya está registrado. Sin efectos.
func (r *Registry) Exists(ctx context.Context, barcode string) (bool, error) {
	p, err := r.productRepo.GetByBarcode(ctx, entity.NormalizeBarcode(barcode))
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// GetByID búsqueda por identificador interno.
func (r *Registry) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := r.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// ListAll lista la proyección mínima de los productos, paginada, junto con el total.
// limit 0 devuelve todos; valores negativos son ErrInvalidInput.
func (r *Registry) ListAll(ctx context.Context, limit, offset int) ([]entity.ProductSummary, int, error) {
	if limit < 0 || offset < 0 {
		return nil, 0, fmt.Errorf("%w: limit y offset no pueden ser negativos", domain.ErrInvalidInput)
	}
	list, err := r.productRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.productRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	items := make([]entity.ProductSummary, 0, len(list))
	for _, p := range list {
		items = append(items, p.Summary())
	}
	return items, total, nil
}
