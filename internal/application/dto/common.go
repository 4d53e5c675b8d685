package dto

import "github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain/verifactu"

// ErrorResponse cuerpo de error HTTP. Errors lleva la lista itemizada de
// violaciones cuando el código es VALIDATION.
type ErrorResponse struct {
	Code      string                  `json:"code"`
	Message   string                  `json:"message"`
	Errors    []verifactu.FieldError  `json:"errors,omitempty"`
	RequestID string                  `json:"request_id,omitempty"`
}

// EnvioResponse respuesta de un envío completado: el código HTTP devuelto
// por la AEAT y un extracto acotado de su body. La AEAT contesta los SOAP
// faults con 200, así que el código no implica aceptación; interpretar el
// body es responsabilidad de quien llama.
type EnvioResponse struct {
	Estado     string `json:"estado"`
	CodigoAEAT int    `json:"codigo_aeat"`
	Respuesta  string `json:"respuesta"`
	RequestID  string `json:"request_id,omitempty"`
}
