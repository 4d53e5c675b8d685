package aeat

import (
	"context"
	"net/http"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/pkg/logger"
)

// EnviadorSimulado implementa Enviador sin tocar la red. Es el modo dev:
// registra el envío en el log y contesta con una respuesta fija, para poder
// probar el pipeline completo sin certificado ni conexión con la AEAT.
type EnviadorSimulado struct {
	log *logger.Logger
}

// NewEnviadorSimulado crea el enviador de desarrollo.
func NewEnviadorSimulado(log *logger.Logger) *EnviadorSimulado {
	return &EnviadorSimulado{log: log}
}

// Enviar no realiza ninguna llamada; devuelve 200 con un body de cortesía.
func (e *EnviadorSimulado) Enviar(_ context.Context, xmlEnvelope string) (*Resultado, error) {
	if e.log != nil {
		e.log.Info().
			Int("bytes", len(xmlEnvelope)).
			Msg("modo dev: envelope generado, no se envía a la AEAT")
	}
	return &Resultado{
		StatusCode: http.StatusOK,
		Cuerpo:     "<respuesta>Recibido en el proxy (entorno dev, no enviado a AEAT)</respuesta>",
	}, nil
}
