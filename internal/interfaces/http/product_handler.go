package http

import (
	"fmt"
	"strconv"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/custody"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// ImageField nombre del campo multipart con la foto de evidencia.
const ImageField = "image"

// ProductHandler maneja las peticiones HTTP de trazabilidad de productos.
type ProductHandler struct {
	svc *custody.Service
}

// NewProductHandler construye el handler.
func NewProductHandler(svc *custody.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Create godoc
// @Summary      Registrar producto
// @Description  Crea el producto con el admin como primer custodio. La imagen es opcional.
// @Tags         products
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        barcode      formData  string  true   "Código de barras"
// @Param        name         formData  string  false  "Nombre"
// @Param        description  formData  string  false  "Descripción"
// @Param        image        formData  file    false  "Foto de evidencia"
// @Success      201  {object}  dto.ProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products/create [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Barcode == "" {
		return badRequest(c, "VALIDATION", "barcode es requerido")
	}
	ev, ok, err := readImage(c)
	if err != nil {
		return badRequest(c, "INVALID_IMAGE", err.Error())
	}
	input := custody.CreateProductInput{Barcode: in.Barcode, Name: in.Name, Description: in.Description}
	if ok {
		input.Evidence = &ev
	}
	product, err := h.svc.CreateProduct(c.UserContext(), GetCaller(c), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromProduct(product))
}

// Scan godoc
// @Summary      Escanear producto
// @Description  Estado actual del producto (sin historial). Admite peticiones anónimas.
// @Tags         products
// @Produce      json
// @Param        barcode  path  string  true  "Código de barras"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/scan/{barcode} [get]
func (h *ProductHandler) Scan(c *fiber.Ctx) error {
	product, err := h.svc.ScanProduct(c.UserContext(), c.Params("barcode"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromProduct(product))
}

// Transfer godoc
// @Summary      Transferir custodia
// @Description  Sube la evidencia y registra el traspaso. expected_owner_id vacío equivale al caller.
// @Tags         products
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        barcode            formData  string  true   "Código de barras"
// @Param        to_owner_id        formData  string  true   "Nuevo custodio"
// @Param        expected_owner_id  formData  string  false  "Custodio que se espera vigente"
// @Param        status             formData  string  false  "in_transit | received"
// @Param        note               formData  string  false  "Nota"
// @Param        image              formData  file    true   "Foto de evidencia"
// @Success      200  {object}  dto.CustodyEventResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products/transfer [put]
func (h *ProductHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.Barcode == "" || in.ToOwnerID == "" {
		return badRequest(c, "VALIDATION", "barcode y to_owner_id son requeridos")
	}
	ev, ok, err := readImage(c)
	if err != nil {
		return badRequest(c, "INVALID_IMAGE", err.Error())
	}
	if !ok {
		return badRequest(c, "MISSING_IMAGE", "la imagen de evidencia es obligatoria")
	}
	event, err := h.svc.TransferProduct(c.UserContext(), GetCaller(c), custody.TransferProductInput{
		Barcode:         in.Barcode,
		ToOwnerID:       in.ToOwnerID,
		ExpectedOwnerID: in.ExpectedOwnerID,
		Status:          entity.ProductStatus(in.Status),
		Note:            in.Note,
		Evidence:        ev,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromEvent(event))
}

// History godoc
// @Summary      Historial de custodia
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/history/{productId} [get]
func (h *ProductHandler) History(c *fiber.Ctx) error {
	productID := c.Params("productId")
	events, err := h.svc.GetProductHistory(c.UserContext(), GetCaller(c), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromHistory(productID, events))
}

// Report godoc
// @Summary      Certificado de custodia (PDF)
// @Tags         products
// @Security     Bearer
// @Produce      application/pdf
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/history/{productId}/pdf [get]
func (h *ProductHandler) Report(c *fiber.Ctx) error {
	product, doc, err := h.svc.GetCustodyReport(c.UserContext(), GetCaller(c), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="custodia-%s.pdf"`, product.Barcode))
	return c.Send(doc)
}

// Evidence godoc
// @Summary      Evidencia de un evento de custodia
// @Description  Devuelve la imagen registrada en el evento seq del historial.
// @Tags         products
// @Security     Bearer
// @Produce      octet-stream
// @Param        productId  path  string  true  "ID del producto"
// @Param        seq        path  int     true  "Secuencia del evento"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products/history/{productId}/evidence/{seq} [get]
func (h *ProductHandler) Evidence(c *fiber.Ctx) error {
	seq, err := strconv.ParseInt(c.Params("seq"), 10, 64)
	if err != nil || seq < 0 {
		return badRequest(c, "INVALID_SEQUENCE", "seq debe ser un entero no negativo")
	}
	ev, err := h.svc.GetEvidence(c.UserContext(), GetCaller(c), c.Params("productId"), seq)
	if err != nil {
		return writeError(c, err)
	}
	contentType := ev.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, ev.Filename))
	return c.Send(ev.Data)
}

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite (máx 100)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.ProductListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/products/list [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "limit y offset deben ser enteros")
	}
	page.DefaultPage()
	items, total, err := h.svc.GetAllProducts(c.UserContext(), GetCaller(c), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ProductListResponse{
		Items: dto.FromSummaries(items),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// readImage lee el campo image si viene en la petición.
func readImage(c *fiber.Ctx) (custody.Evidence, bool, error) {
	fh, err := c.FormFile(ImageField)
	if err != nil {
		return custody.Evidence{}, false, nil
	}
	f, err := fh.Open()
	if err != nil {
		return custody.Evidence{}, false, fmt.Errorf("abrir imagen: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return custody.Evidence{}, false, fmt.Errorf("leer imagen: %w", err)
	}
	if len(data) == 0 {
		return custody.Evidence{}, false, nil
	}
	return custody.Evidence{
		Data:        data,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Filename:    fh.Filename,
	}, true, nil
}
