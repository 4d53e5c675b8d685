package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/application/dto"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/application/facturacion"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain/verifactu"
)

// maxRespuestaPreview acota el extracto del body AEAT que se devuelve al
// caller; el body completo puede ser grande y solo interesa para diagnóstico.
const maxRespuestaPreview = 2048

// RegistroHandler maneja las peticiones de registro de facturas (protegido).
type RegistroHandler struct {
	uc *facturacion.RegistrarUseCase
}

// NewRegistroHandler construye el handler.
func NewRegistroHandler(uc *facturacion.RegistrarUseCase) *RegistroHandler {
	return &RegistroHandler{uc: uc}
}

// Registrar valida, encadena, serializa y envía un registro estructurado.
// POST /verifactu/registros
func (h *RegistroHandler) Registrar(c *fiber.Ctx) error {
	var registro verifactu.RegistroAlta
	if err := c.BodyParser(&registro); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "INVALID_BODY", Message: "cuerpo JSON inválido", RequestID: GetRequestID(c)})
	}
	outcome := h.uc.Registrar(c.Context(), &registro)
	return h.responder(c, outcome)
}

// EnviarXML reenvía un documento XML ya serializado (fragmento o envelope
// completo). Es la operación original del proxy.
// POST /verifactu/send
func (h *RegistroHandler) EnviarXML(c *fiber.Ctx) error {
	outcome := h.uc.EnviarXML(c.Context(), string(c.Body()))
	return h.responder(c, outcome)
}

// responder traduce el Outcome del pipeline al contrato HTTP:
// 400 validación/cadena, 500 configuración, 502 red, 504 timeout, 200 enviado.
func (h *RegistroHandler) responder(c *fiber.Ctx, o facturacion.Outcome) error {
	switch o.Estado {
	case facturacion.EstadoValidacionFallida:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: "el registro no supera la validación",
			Errors: o.Errores, RequestID: GetRequestID(c)})
	case facturacion.EstadoCadenaInvalida:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "CHAIN", Message: o.Err.Error(), RequestID: GetRequestID(c)})
	case facturacion.EstadoConfigFallida:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code: "CONFIG", Message: o.Err.Error(), RequestID: GetRequestID(c)})
	case facturacion.EstadoTransporteFallido:
		status := fiber.StatusBadGateway
		if errors.Is(o.Err, domain.ErrTimeout) {
			status = fiber.StatusGatewayTimeout
		}
		return c.Status(status).JSON(dto.ErrorResponse{
			Code: "TRANSPORT", Message: o.Err.Error(), RequestID: GetRequestID(c)})
	case facturacion.EstadoEnviado:
		return c.JSON(dto.EnvioResponse{
			Estado:     string(o.Estado),
			CodigoAEAT: o.CodigoHTTP,
			Respuesta:  truncar(o.Cuerpo, maxRespuestaPreview),
			RequestID:  GetRequestID(c),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code: "INTERNAL", Message: "estado de pipeline desconocido", RequestID: GetRequestID(c)})
	}
}

func truncar(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
