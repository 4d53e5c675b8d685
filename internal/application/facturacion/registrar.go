// Package facturacion orquesta el ciclo de registro VeriFactu:
//
//	Validar → Resolver encadenamiento → Construir envelope → Enviar a AEAT
//
// Cada invocación es un pipeline síncrono e independiente; si una etapa
// falla, las posteriores no se ejecutan. El único estado compartido entre
// invocaciones concurrentes es la configuración inmutable del transporte.
package facturacion

import (
	"context"
	"errors"
	"strings"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain/verifactu"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/infrastructure/aeat"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/pkg/logger"
)

// Estado es el desenlace del pipeline de registro.
type Estado string

const (
	EstadoValidacionFallida Estado = "VALIDACION_FALLIDA"
	EstadoCadenaInvalida    Estado = "CADENA_INVALIDA"
	EstadoConfigFallida     Estado = "CONFIG_FALLIDA"
	EstadoTransporteFallido Estado = "TRANSPORTE_FALLIDO"
	EstadoEnviado           Estado = "ENVIADO"
)

// Outcome es el resultado etiquetado que consume la capa HTTP. Según Estado:
// Errores lleva las violaciones itemizadas, Err el fallo de cadena, config o
// transporte (envuelto con su centinela de dominio), y CodigoHTTP/Cuerpo la
// respuesta cruda de la AEAT cuando el envío se completó.
type Outcome struct {
	Estado     Estado
	Errores    verifactu.ListaErrores
	Err        error
	CodigoHTTP int
	Cuerpo     string
}

// RegistrarUseCase secuencia las etapas del registro.
type RegistrarUseCase struct {
	builder  *aeat.EnvelopeBuilder
	enviador aeat.Enviador
	log      *logger.Logger
}

// NewRegistrarUseCase construye el caso de uso.
func NewRegistrarUseCase(builder *aeat.EnvelopeBuilder, enviador aeat.Enviador, log *logger.Logger) *RegistrarUseCase {
	return &RegistrarUseCase{builder: builder, enviador: enviador, log: log}
}

// Registrar ejecuta el pipeline completo sobre un registro estructurado.
func (uc *RegistrarUseCase) Registrar(ctx context.Context, r *verifactu.RegistroAlta) Outcome {
	if errs := verifactu.ValidarRegistro(r); len(errs) > 0 {
		uc.log.Debug().Int("violaciones", len(errs)).Msg("registro rechazado en validación")
		return Outcome{Estado: EstadoValidacionFallida, Errores: errs}
	}

	cadena, err := verifactu.ResolverEncadenamiento(r)
	if err != nil {
		return Outcome{Estado: EstadoCadenaInvalida, Err: err}
	}

	envelope, err := uc.builder.Build(r, cadena)
	if err != nil {
		// Post-validación el builder solo puede fallar por valores que el
		// validador no cubre campo a campo; se reporta como violación única.
		return Outcome{
			Estado:  EstadoValidacionFallida,
			Errores: verifactu.ListaErrores{{Campo: "registro", Mensaje: err.Error()}},
		}
	}

	return uc.enviar(ctx, envelope)
}

// EnviarXML es la operación histórica del proxy: recibe un fragmento
// RegistroAlta o un envelope completo ya serializado, lo envuelve si hace
// falta y lo envía tal cual.
func (uc *RegistrarUseCase) EnviarXML(ctx context.Context, fragmento string) Outcome {
	if strings.TrimSpace(fragmento) == "" {
		return Outcome{
			Estado:  EstadoValidacionFallida,
			Errores: verifactu.ListaErrores{{Campo: "body", Mensaje: "se requiere un documento XML"}},
		}
	}
	return uc.enviar(ctx, aeat.EnvolverXML(fragmento))
}

func (uc *RegistrarUseCase) enviar(ctx context.Context, envelope string) Outcome {
	res, err := uc.enviador.Enviar(ctx, envelope)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguracion) {
			uc.log.Error().Err(err).Msg("transporte AEAT mal configurado")
			return Outcome{Estado: EstadoConfigFallida, Err: err}
		}
		uc.log.Warn().Err(err).Msg("envío a AEAT fallido")
		return Outcome{Estado: EstadoTransporteFallido, Err: err}
	}
	uc.log.Info().Int("codigo_aeat", res.StatusCode).Msg("registro entregado a la AEAT")
	return Outcome{Estado: EstadoEnviado, CodigoHTTP: res.StatusCode, Cuerpo: res.Cuerpo}
}
