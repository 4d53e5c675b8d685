package aeat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain"
)

// ── Entornos y endpoints ──────────────────────────────────────────────────────

const (
	// EntornoDev no envía a la AEAT: el orquestador usa el enviador simulado.
	EntornoDev = "dev"
	// EntornoPruebas apunta al entorno de preproducción de la AEAT.
	EntornoPruebas = "test"
	// EntornoProduccion apunta al servicio real.
	EntornoProduccion = "prod"

	endpointPruebas    = "https://prewww1.aeat.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
	endpointProduccion = "https://www1.agenciatributaria.gob.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"

	// maxCuerpoRespuesta limita la lectura del body de la AEAT (1 MB).
	maxCuerpoRespuesta = 1 << 20

	timeoutPorDefecto = 60 * time.Second
)

// ── Puerto ────────────────────────────────────────────────────────────────────

// Resultado es la respuesta cruda del servicio: código HTTP y body verbatim.
// Este componente no interpreta el SOAP de respuesta; la AEAT contesta los
// faults con HTTP 200, así que el código por sí solo no implica aceptación.
type Resultado struct {
	StatusCode int
	Cuerpo     string
}

// Enviador es el puerto de salida hacia el WS VeriFactu. La implementación
// real usa SOAP con TLS mutuo; para tests se inyecta un doble.
type Enviador interface {
	// Enviar realiza un único POST síncrono con el envelope ya serializado.
	Enviar(ctx context.Context, xmlEnvelope string) (*Resultado, error)
}

// ── Configuración ─────────────────────────────────────────────────────────────

// Config agrupa los parámetros inmutables de conexión con la AEAT. Se
// construye una vez en el arranque y es segura para uso concurrente de solo
// lectura.
type Config struct {
	Entorno     string // dev | test | prod
	Endpoint    string // si no está vacío, prevalece sobre el entorno
	Certificado tls.Certificate
	Timeout     time.Duration
	// InsecureSkipVerify desactiva la verificación del certificado del
	// servidor. Solo para entornos de prueba locales.
	InsecureSkipVerify bool
}

// URL devuelve el endpoint efectivo según configuración y entorno.
func (c Config) URL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if strings.EqualFold(c.Entorno, EntornoProduccion) {
		return endpointProduccion
	}
	return endpointPruebas
}

// ── Cliente SOAP ──────────────────────────────────────────────────────────────

// ClienteSOAP implementa Enviador contra el WS VeriFactu con TLS mutuo.
type ClienteSOAP struct {
	cfg        Config
	httpClient *http.Client
}

// NewClienteSOAP construye el cliente. El certificado de cliente se monta en
// el transporte TLS; su ausencia no es error aquí sino en Enviar, donde se
// clasifica como fallo de configuración sin intentar red.
func NewClienteSOAP(cfg Config) *ClienteSOAP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeoutPorDefecto
	}
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if len(cfg.Certificado.Certificate) > 0 {
		tlsCfg.Certificates = []tls.Certificate{cfg.Certificado}
	}
	return &ClienteSOAP{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
	}
}

// Enviar realiza un único POST del envelope y devuelve el resultado crudo.
// Cualquier respuesta HTTP recibida (2xx–5xx) es éxito a nivel de transporte;
// los fallos se clasifican en ErrConfiguracion, ErrTimeout o ErrRed. Al
// vencer el timeout la conexión en vuelo se aborta, no se deja completar en
// segundo plano.
func (c *ClienteSOAP) Enviar(ctx context.Context, xmlEnvelope string) (*Resultado, error) {
	if len(c.cfg.Certificado.Certificate) == 0 || c.cfg.Certificado.PrivateKey == nil {
		return nil, fmt.Errorf("%w: certificado de cliente ausente o sin llave privada", domain.ErrConfiguracion)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL(),
		strings.NewReader(xmlEnvelope))
	if err != nil {
		return nil, fmt.Errorf("%w: crear request: %v", domain.ErrConfiguracion, err)
	}
	// Cabeceras fijas del protocolo; Content-Length lo fija net/http a partir
	// del reader con longitud conocida.
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, clasificarFalloRed(err, c.cfg.Timeout)
	}
	defer resp.Body.Close()

	cuerpo, err := io.ReadAll(io.LimitReader(resp.Body, maxCuerpoRespuesta))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrRed, err)
	}
	return &Resultado{StatusCode: resp.StatusCode, Cuerpo: string(cuerpo)}, nil
}

// clasificarFalloRed separa timeouts de fallos de red (DNS, TCP, TLS).
func clasificarFalloRed(err error, timeout time.Duration) error {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return fmt.Errorf("%w: sin respuesta tras %s: %v", domain.ErrTimeout, timeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrRed, err)
}
