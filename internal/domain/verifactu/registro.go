// Package verifactu contiene el modelo canónico del registro de facturación
// VeriFactu (AEAT, España) y sus reglas de dominio: validación acumulada y
// resolución del encadenamiento. No hace I/O.
package verifactu

import "strings"

// Tipos de factura según la especificación VeriFactu (L2).
const (
	TipoFacturaOrdinaria    = "F1" // factura completa
	TipoFacturaSimplificada = "F2" // ticket / factura simplificada
	TipoFacturaSustitutiva  = "F3" // sustitutiva de facturas simplificadas
)

// Tipos de rectificativa (L3).
const (
	RectificativaPorSustitucion = "S"
	RectificativaPorDiferencias = "I"
)

// Emisión por tercero o destinatario (L6).
const (
	EmitidaPorTercero      = "T"
	EmitidaPorDestinatario = "D"
)

// TipoHuellaSHA256 es el único algoritmo de huella admitido por la AEAT (L12).
const TipoHuellaSHA256 = "01"

// IDFactura identifica una factura: emisor, serie+número y fecha de expedición.
// La fecha se acepta en formato ISO (2006-01-02) o AEAT (02-01-2006).
type IDFactura struct {
	IDEmisor        string `json:"issuerTaxId"`
	NumSerie        string `json:"seriesNumber"`
	FechaExpedicion string `json:"issueDate"`
}

// IDOtro es la identificación extranjera de un tercero o destinatario:
// país + tipo de documento + valor (L7).
type IDOtro struct {
	CodigoPais string `json:"countryCode"`
	IDType     string `json:"idType"`
	ID         string `json:"id"`
}

// Identidad es una parte con nombre y exactamente una forma de identificación:
// NIF español o IDOtro extranjero. Se usa para destinatarios y para el tercero
// emisor.
type Identidad struct {
	NombreRazon string  `json:"name"`
	NIF         string  `json:"taxId"`
	IDOtro      *IDOtro `json:"foreignId,omitempty"`
}

// Destinatario de la factura. Mismo contrato que Identidad.
type Destinatario = Identidad

// DetalleDesglose es una línea del desglose fiscal de la factura.
type DetalleDesglose struct {
	Impuesto                 string  `json:"taxType"`
	ClaveRegimen             string  `json:"regimeCode"`
	CalificacionOperacion    string  `json:"operationQualification"`
	OperacionExenta          string  `json:"exemptionCode"`
	TipoImpositivo           Importe `json:"taxRate"`
	BaseImponible            Importe `json:"taxableBase"`
	CuotaRepercutida         Importe `json:"taxQuota"`
	TipoRecargoEquivalencia  Importe `json:"surchargeRate"`
	CuotaRecargoEquivalencia Importe `json:"surchargeQuota"`
}

// ImporteRectificacion agrega los importes rectificados cuando la factura es
// rectificativa por sustitución.
type ImporteRectificacion struct {
	BaseRectificada         Importe `json:"rectifiedBase"`
	CuotaRectificada        Importe `json:"rectifiedQuota"`
	CuotaRecargoRectificado Importe `json:"rectifiedSurcharge"`
}

// RegistroAnterior referencia el registro inmediatamente precedente de la
// cadena del emisor, incluida su huella.
type RegistroAnterior struct {
	IDEmisor        string `json:"issuerTaxId"`
	NumSerie        string `json:"seriesNumber"`
	FechaExpedicion string `json:"issueDate"`
	Huella          string `json:"hash"`
}

// Encadenamiento declara si el registro abre la cadena o continúa la anterior.
// Exactamente una de las dos formas es válida.
type Encadenamiento struct {
	PrimerRegistro bool              `json:"isFirst"`
	Anterior       *RegistroAnterior `json:"previous,omitempty"`
}

// SistemaInformatico identifica el software de facturación que genera el
// registro. Obligatorio en todo RegistroAlta.
type SistemaInformatico struct {
	NombreRazon       string `json:"name"`
	NIF               string `json:"vendorTaxId"`
	NombreSistema     string `json:"productName"`
	IDSistema         string `json:"productId"`
	Version           string `json:"productVersion"`
	NumeroInstalacion string `json:"installationNumber"`
	SoloVerifactu     string `json:"verifactuOnly"`       // "S" | "N"
	MultiOT           string `json:"multiOT"`             // "S" | "N"
	IndicadorMultiOT  string `json:"multipleObligations"` // "S" | "N"
}

// RegistroAlta es el registro canónico de alta de factura que entra por la
// API. Se construye una vez por envío, se valida, se serializa y se descarta;
// nunca se muta después de la validación.
type RegistroAlta struct {
	IDVersion          string `json:"version"`
	IDFactura          IDFactura `json:"invoiceId"`
	NombreRazonEmisor  string `json:"issuerName"`
	NIFEmisor          string `json:"issuerTaxId"`
	TipoFactura        string `json:"invoiceType"`

	// Solo para rectificativas (TipoFactura R1..R5).
	TipoRectificativa    string                `json:"correctionMethod,omitempty"` // "S" | "I"
	FacturasRectificadas []IDFactura           `json:"correctedInvoiceRefs,omitempty"`
	Rectificacion        *ImporteRectificacion `json:"rectificationAmounts,omitempty"`

	FechaOperacion       string `json:"operationDate,omitempty"`
	DescripcionOperacion string `json:"operationDescription,omitempty"`
	RefExterna           string `json:"externalRef,omitempty"`

	// Indicadores opcionales; false equivale a ausente en el XML.
	FacturaSimplificada    bool `json:"simplifiedFlag,omitempty"`
	SinIdentifDestinatario bool `json:"noRecipientIdFlag,omitempty"`
	Macrodato              bool `json:"macroDataFlag,omitempty"`
	Cupon                  bool `json:"couponFlag,omitempty"`

	EmitidaPorTerceroODestinatario string     `json:"thirdPartyIssuance,omitempty"` // "T" | "D"
	Tercero                        *Identidad `json:"thirdParty,omitempty"`

	Destinatarios []Destinatario    `json:"recipients"`
	Desglose      []DetalleDesglose `json:"taxBreakdown"`

	CuotaTotal   Importe `json:"totalTax"`
	ImporteTotal Importe `json:"totalAmount"`

	Encadenamiento Encadenamiento `json:"chain"`

	TipoHuella string `json:"hashAlgorithm"`
	Huella     string `json:"hash"`

	// Instante de generación (RFC 3339). Si falta, el constructor del
	// envelope usa la hora de construcción en UTC.
	FechaHoraHusoGenRegistro string `json:"generatedAt,omitempty"`

	Sistema *SistemaInformatico `json:"systemDescriptor"`
}

// TipoFacturaEfectivo devuelve el tipo de factura aplicando el valor por
// defecto F1 cuando viene vacío.
func (r *RegistroAlta) TipoFacturaEfectivo() string {
	if strings.TrimSpace(r.TipoFactura) == "" {
		return TipoFacturaOrdinaria
	}
	return strings.TrimSpace(r.TipoFactura)
}

// EsRectificativa indica si el tipo de factura es rectificativo (R1..R5).
func (r *RegistroAlta) EsRectificativa() bool {
	return strings.HasPrefix(r.TipoFacturaEfectivo(), "R")
}

// TipoHuellaEfectivo normaliza el algoritmo de huella: acepta "01" o
// "SHA-256" y devuelve el código AEAT.
func (r *RegistroAlta) TipoHuellaEfectivo() string {
	switch strings.ToUpper(strings.TrimSpace(r.TipoHuella)) {
	case "", TipoHuellaSHA256, "SHA-256", "SHA256":
		return TipoHuellaSHA256
	default:
		return strings.TrimSpace(r.TipoHuella)
	}
}

// TieneIdentificacionUnica comprueba la regla "exactamente una" de la
// identidad: NIF o IDOtro, nunca ambos ni ninguno.
func (i Identidad) TieneIdentificacionUnica() bool {
	tieneNIF := strings.TrimSpace(i.NIF) != ""
	tieneOtro := i.IDOtro != nil &&
		(strings.TrimSpace(i.IDOtro.ID) != "" || strings.TrimSpace(i.IDOtro.CodigoPais) != "")
	return tieneNIF != tieneOtro
}
