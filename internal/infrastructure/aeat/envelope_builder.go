// Package aeat implementa la infraestructura de acceso al servicio web
// VeriFactu de la AEAT: construcción del envelope SOAP del RegistroAlta,
// carga del certificado de cliente y transporte con TLS mutuo.
package aeat

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain/verifactu"
)

// Namespaces oficiales del servicio VeriFactu (SuministroLR / SuministroInformacion).
const (
	NsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	NsSum     = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
	NsSum1    = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
)

const formatoFechaHora = "2006-01-02T15:04:05-07:00"

// EnvelopeBuilder serializa un RegistroAlta validado y con encadenamiento
// resuelto al envelope SOAP exacto que espera el esquema VeriFactu. Es una
// función pura salvo cuando generatedAt viene vacío, en cuyo caso usa la hora
// de construcción (inyectable para tests).
type EnvelopeBuilder struct {
	now func() time.Time
}

// NewEnvelopeBuilder crea el constructor con reloj por defecto.
func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{now: time.Now}
}

// NewEnvelopeBuilderConReloj permite fijar el reloj (tests deterministas).
func NewEnvelopeBuilderConReloj(now func() time.Time) *EnvelopeBuilder {
	return &EnvelopeBuilder{now: now}
}

// Build genera el envelope SOAP completo del registro. El árbol de elementos
// de etree escapa todo nodo de texto por construcción, así que los valores de
// la factura (nombres, descripciones) no pueden inyectar marcado.
func (b *EnvelopeBuilder) Build(r *verifactu.RegistroAlta, cad verifactu.Eslabon) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", NsSoapEnv)
	env.CreateAttr("xmlns:sum", NsSum)
	env.CreateAttr("xmlns:sum1", NsSum1)
	env.CreateElement("soapenv:Header")
	body := env.CreateElement("soapenv:Body")

	reg := body.CreateElement("sum:RegFactuSistemaFacturacion")
	if err := b.escribirCabecera(reg, r); err != nil {
		return "", err
	}
	alta := reg.CreateElement("sum:RegistroFactura").CreateElement("sum1:RegistroAlta")
	if err := b.escribirRegistroAlta(alta, r, cad); err != nil {
		return "", err
	}

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("aeat: serializar envelope: %w", err)
	}
	return out, nil
}

func (b *EnvelopeBuilder) escribirCabecera(reg *etree.Element, r *verifactu.RegistroAlta) error {
	obligado := reg.CreateElement("sum:Cabecera").CreateElement("sum1:ObligadoEmision")
	texto(obligado, "sum1:NombreRazon", r.NombreRazonEmisor)
	texto(obligado, "sum1:NIF", r.NIFEmisor)
	return nil
}

// escribirRegistroAlta emite los hijos de sum1:RegistroAlta en el orden que
// fija el esquema. Los bloques opcionales se omiten por completo cuando su
// valor de origen está ausente: para la AEAT una etiqueta vacía no equivale
// a una etiqueta que falta.
func (b *EnvelopeBuilder) escribirRegistroAlta(alta *etree.Element, r *verifactu.RegistroAlta, cad verifactu.Eslabon) error {
	texto(alta, "sum1:IDVersion", r.IDVersion)

	if err := escribirIDFactura(alta.CreateElement("sum1:IDFactura"), r.IDFactura, "sum1:NumSerieFactura"); err != nil {
		return err
	}
	texto(alta, "sum1:NombreRazonEmisor", r.NombreRazonEmisor)
	texto(alta, "sum1:TipoFactura", r.TipoFacturaEfectivo())

	if r.EsRectificativa() {
		if err := b.escribirRectificacion(alta, r); err != nil {
			return err
		}
	}

	if r.FechaOperacion != "" {
		f, err := verifactu.FormatearFecha(r.FechaOperacion)
		if err != nil {
			return fmt.Errorf("aeat: operationDate: %w", err)
		}
		texto(alta, "sum1:FechaOperacion", f)
	}
	if r.DescripcionOperacion != "" {
		texto(alta, "sum1:DescripcionOperacion", r.DescripcionOperacion)
	}

	indicador(alta, "sum1:FacturaSimplificadaArt7272Y7373", r.FacturaSimplificada)
	indicador(alta, "sum1:FacturaSinIdentifDestinatarioArt61d", r.SinIdentifDestinatario)
	indicador(alta, "sum1:Macrodato", r.Macrodato)

	if tag := strings.TrimSpace(r.EmitidaPorTerceroODestinatario); tag != "" {
		texto(alta, "sum1:EmitidaPorTerceroODestinatario", tag)
		if r.Tercero != nil {
			escribirIdentidad(alta.CreateElement("sum1:Tercero"), *r.Tercero)
		}
	}

	if len(r.Destinatarios) > 0 {
		dest := alta.CreateElement("sum1:Destinatarios")
		for _, d := range r.Destinatarios {
			escribirIdentidad(dest.CreateElement("sum1:IDDestinatario"), d)
		}
	}

	indicador(alta, "sum1:Cupon", r.Cupon)

	desglose := alta.CreateElement("sum1:Desglose")
	for i, linea := range r.Desglose {
		if err := escribirDetalle(desglose.CreateElement("sum1:DetalleDesglose"), linea); err != nil {
			return fmt.Errorf("aeat: taxBreakdown[%d]: %w", i, err)
		}
	}

	if err := escribirImporte(alta, "sum1:CuotaTotal", r.CuotaTotal); err != nil {
		return fmt.Errorf("aeat: totalTax: %w", err)
	}
	if err := escribirImporte(alta, "sum1:ImporteTotal", r.ImporteTotal); err != nil {
		return fmt.Errorf("aeat: totalAmount: %w", err)
	}

	if err := escribirEncadenamiento(alta.CreateElement("sum1:Encadenamiento"), cad); err != nil {
		return err
	}
	escribirSistema(alta.CreateElement("sum1:SistemaInformatico"), r.Sistema)

	texto(alta, "sum1:FechaHoraHusoGenRegistro", b.fechaHoraGeneracion(r))
	texto(alta, "sum1:TipoHuella", r.TipoHuellaEfectivo())
	texto(alta, "sum1:Huella", r.Huella)
	if r.RefExterna != "" {
		texto(alta, "sum1:RefExterna", r.RefExterna)
	}
	return nil
}

func (b *EnvelopeBuilder) escribirRectificacion(alta *etree.Element, r *verifactu.RegistroAlta) error {
	if r.TipoRectificativa != "" {
		texto(alta, "sum1:TipoRectificativa", r.TipoRectificativa)
	}
	if len(r.FacturasRectificadas) > 0 {
		rect := alta.CreateElement("sum1:FacturasRectificadas")
		for _, id := range r.FacturasRectificadas {
			if err := escribirIDFactura(rect.CreateElement("sum1:IDFacturaRectificada"), id, "sum1:NumSerieFactura"); err != nil {
				return fmt.Errorf("aeat: correctedInvoiceRefs: %w", err)
			}
		}
	}
	if imp := r.Rectificacion; imp != nil {
		bloque := alta.CreateElement("sum1:ImporteRectificacion")
		if err := escribirImporte(bloque, "sum1:BaseRectificada", imp.BaseRectificada); err != nil {
			return fmt.Errorf("aeat: rectificationAmounts.rectifiedBase: %w", err)
		}
		if err := escribirImporte(bloque, "sum1:CuotaRectificada", imp.CuotaRectificada); err != nil {
			return fmt.Errorf("aeat: rectificationAmounts.rectifiedQuota: %w", err)
		}
		if imp.CuotaRecargoRectificado.Presente() {
			if err := escribirImporte(bloque, "sum1:CuotaRecargoRectificado", imp.CuotaRecargoRectificado); err != nil {
				return fmt.Errorf("aeat: rectificationAmounts.rectifiedSurcharge: %w", err)
			}
		}
	}
	return nil
}

func escribirIDFactura(el *etree.Element, id verifactu.IDFactura, etiquetaSerie string) error {
	texto(el, "sum1:IDEmisorFactura", id.IDEmisor)
	texto(el, etiquetaSerie, id.NumSerie)
	f, err := verifactu.FormatearFecha(id.FechaExpedicion)
	if err != nil {
		return err
	}
	texto(el, "sum1:FechaExpedicionFactura", f)
	return nil
}

func escribirIdentidad(el *etree.Element, id verifactu.Identidad) {
	texto(el, "sum1:NombreRazon", id.NombreRazon)
	if strings.TrimSpace(id.NIF) != "" {
		texto(el, "sum1:NIF", id.NIF)
		return
	}
	if id.IDOtro != nil {
		otro := el.CreateElement("sum1:IDOtro")
		if id.IDOtro.CodigoPais != "" {
			texto(otro, "sum1:CodigoPais", id.IDOtro.CodigoPais)
		}
		texto(otro, "sum1:IDType", id.IDOtro.IDType)
		texto(otro, "sum1:ID", id.IDOtro.ID)
	}
}

func escribirDetalle(el *etree.Element, d verifactu.DetalleDesglose) error {
	if d.Impuesto != "" {
		texto(el, "sum1:Impuesto", d.Impuesto)
	}
	if d.ClaveRegimen != "" {
		texto(el, "sum1:ClaveRegimen", d.ClaveRegimen)
	}
	if d.CalificacionOperacion != "" {
		texto(el, "sum1:CalificacionOperacion", d.CalificacionOperacion)
	}
	if d.OperacionExenta != "" {
		texto(el, "sum1:OperacionExenta", d.OperacionExenta)
	}
	if d.TipoImpositivo.Presente() {
		if err := escribirImporte(el, "sum1:TipoImpositivo", d.TipoImpositivo); err != nil {
			return err
		}
	}
	if err := escribirImporte(el, "sum1:BaseImponibleOimporteNoSujeto", d.BaseImponible); err != nil {
		return err
	}
	if d.CuotaRepercutida.Presente() {
		if err := escribirImporte(el, "sum1:CuotaRepercutida", d.CuotaRepercutida); err != nil {
			return err
		}
	}
	if d.TipoRecargoEquivalencia.Presente() {
		if err := escribirImporte(el, "sum1:TipoRecargoEquivalencia", d.TipoRecargoEquivalencia); err != nil {
			return err
		}
	}
	if d.CuotaRecargoEquivalencia.Presente() {
		if err := escribirImporte(el, "sum1:CuotaRecargoEquivalencia", d.CuotaRecargoEquivalencia); err != nil {
			return err
		}
	}
	return nil
}

func escribirEncadenamiento(el *etree.Element, cad verifactu.Eslabon) error {
	if cad.Primero {
		texto(el, "sum1:PrimerRegistro", "S")
		return nil
	}
	if cad.Anterior == nil {
		return fmt.Errorf("aeat: encadenamiento sin resolver")
	}
	ant := el.CreateElement("sum1:RegistroAnterior")
	texto(ant, "sum1:IDEmisorFactura", cad.Anterior.IDEmisor)
	texto(ant, "sum1:NumSerieFactura", cad.Anterior.NumSerie)
	f, err := verifactu.FormatearFecha(cad.Anterior.FechaExpedicion)
	if err != nil {
		return fmt.Errorf("aeat: previous.issueDate: %w", err)
	}
	texto(ant, "sum1:FechaExpedicionFactura", f)
	texto(ant, "sum1:Huella", cad.Anterior.Huella)
	return nil
}

func escribirSistema(el *etree.Element, s *verifactu.SistemaInformatico) {
	if s == nil {
		return
	}
	texto(el, "sum1:NombreRazon", s.NombreRazon)
	if s.NIF != "" {
		texto(el, "sum1:NIF", s.NIF)
	}
	texto(el, "sum1:NombreSistemaInformatico", s.NombreSistema)
	texto(el, "sum1:IdSistemaInformatico", s.IDSistema)
	texto(el, "sum1:Version", s.Version)
	texto(el, "sum1:NumeroInstalacion", s.NumeroInstalacion)
	texto(el, "sum1:TipoUsoPosibleSoloVerifactu", valorSN(s.SoloVerifactu))
	texto(el, "sum1:TipoUsoPosibleMultiOT", valorSN(s.MultiOT))
	texto(el, "sum1:IndicadorMultiplesOT", valorSN(s.IndicadorMultiOT))
}

func (b *EnvelopeBuilder) fechaHoraGeneracion(r *verifactu.RegistroAlta) string {
	raw := strings.TrimSpace(r.FechaHoraHusoGenRegistro)
	if raw == "" {
		return b.now().UTC().Format(formatoFechaHora)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(formatoFechaHora)
	}
	return raw
}

// texto crea un elemento hijo con contenido escapado.
func texto(parent *etree.Element, nombre, valor string) {
	parent.CreateElement(nombre).SetText(valor)
}

// indicador emite "S" solo cuando el flag está activo; false = ausente.
func indicador(parent *etree.Element, nombre string, activo bool) {
	if activo {
		texto(parent, nombre, "S")
	}
}

func valorSN(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "S", "SI", "SÍ", "TRUE":
		return "S"
	default:
		return "N"
	}
}

func escribirImporte(parent *etree.Element, nombre string, imp verifactu.Importe) error {
	d, err := imp.Decimal()
	if err != nil {
		return err
	}
	texto(parent, nombre, verifactu.FormatoImporteAEAT(d))
	return nil
}

// EnvolverXML envuelve un fragmento XML en el esqueleto SOAP si aún no lo
// trae. La detección mira el primer elemento tras recortar espacios y la
// declaración XML: si su nombre local es Envelope, el fragmento pasa tal cual.
func EnvolverXML(fragmento string) string {
	t := strings.TrimSpace(fragmento)
	if strings.HasPrefix(t, "<?") {
		if fin := strings.Index(t, "?>"); fin >= 0 {
			t = strings.TrimSpace(t[fin+2:])
		}
	}
	if esElementoEnvelope(t) {
		return strings.TrimSpace(fragmento)
	}
	var sb strings.Builder
	sb.WriteString(`<soapenv:Envelope xmlns:soapenv="` + NsSoapEnv + `" xmlns:sum="` + NsSum + `" xmlns:sum1="` + NsSum1 + `">`)
	sb.WriteString("<soapenv:Header/><soapenv:Body>")
	sb.WriteString(t)
	sb.WriteString("</soapenv:Body></soapenv:Envelope>")
	return sb.String()
}

func esElementoEnvelope(t string) bool {
	if !strings.HasPrefix(t, "<") {
		return false
	}
	fin := strings.IndexAny(t, " \t\r\n>")
	if fin < 0 {
		return false
	}
	nombre := strings.TrimPrefix(t[1:fin], "/")
	if idx := strings.Index(nombre, ":"); idx >= 0 {
		nombre = nombre[idx+1:]
	}
	return nombre == "Envelope"
}
