package verifactu

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldError es una violación de regla sobre un campo concreto del registro.
type FieldError struct {
	Campo   string `json:"field"`
	Mensaje string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Campo + ": " + e.Mensaje
}

// ListaErrores acumula violaciones. El validador nunca se detiene en la
// primera: quien llama recibe todos los problemas de una vez.
type ListaErrores []FieldError

func (l *ListaErrores) anadir(campo, formato string, args ...any) {
	*l = append(*l, FieldError{Campo: campo, Mensaje: fmt.Sprintf(formato, args...)})
}

// ValidarRegistro comprueba completitud y corrección básica de tipos de un
// RegistroAlta antes de serializar nada. Lista vacía significa registro
// válido. No hace I/O.
func ValidarRegistro(r *RegistroAlta) ListaErrores {
	var errs ListaErrores
	if r == nil {
		errs.anadir("registro", "registro ausente")
		return errs
	}

	requerido(&errs, "version", r.IDVersion)
	requerido(&errs, "invoiceId.issuerTaxId", r.IDFactura.IDEmisor)
	requerido(&errs, "invoiceId.seriesNumber", r.IDFactura.NumSerie)
	if strings.TrimSpace(r.IDFactura.FechaExpedicion) == "" {
		errs.anadir("invoiceId.issueDate", "campo obligatorio")
	} else if _, err := FormatearFecha(r.IDFactura.FechaExpedicion); err != nil {
		errs.anadir("invoiceId.issueDate", "%v", err)
	}
	requerido(&errs, "issuerName", r.NombreRazonEmisor)
	requerido(&errs, "issuerTaxId", r.NIFEmisor)

	validarDestinatarios(&errs, r)
	validarDesglose(&errs, r)
	validarTotales(&errs, r)
	validarRectificativa(&errs, r)
	validarTercero(&errs, r)

	requerido(&errs, "hashAlgorithm", r.TipoHuella)
	requerido(&errs, "hash", r.Huella)

	if r.Sistema == nil {
		errs.anadir("systemDescriptor", "bloque obligatorio")
	} else {
		requerido(&errs, "systemDescriptor.name", r.Sistema.NombreRazon)
		requerido(&errs, "systemDescriptor.productId", r.Sistema.IDSistema)
		requerido(&errs, "systemDescriptor.productVersion", r.Sistema.Version)
		requerido(&errs, "systemDescriptor.installationNumber", r.Sistema.NumeroInstalacion)
	}

	return errs
}

func requerido(errs *ListaErrores, campo, valor string) {
	if strings.TrimSpace(valor) == "" {
		errs.anadir(campo, "campo obligatorio")
	}
}

func validarDestinatarios(errs *ListaErrores, r *RegistroAlta) {
	if len(r.Destinatarios) == 0 {
		errs.anadir("recipients", "se requiere al menos un destinatario")
		return
	}
	for i, d := range r.Destinatarios {
		campo := fmt.Sprintf("recipients[%d]", i)
		if strings.TrimSpace(d.NombreRazon) == "" {
			errs.anadir(campo+".name", "campo obligatorio")
		}
		if !d.TieneIdentificacionUnica() {
			errs.anadir(campo, "se requiere exactamente una identificación: NIF o identificador extranjero")
		}
	}
}

func validarDesglose(errs *ListaErrores, r *RegistroAlta) {
	if len(r.Desglose) == 0 {
		errs.anadir("taxBreakdown", "se requiere al menos una línea de desglose")
		return
	}
	for i, d := range r.Desglose {
		campo := fmt.Sprintf("taxBreakdown[%d]", i)
		if !d.BaseImponible.Presente() {
			errs.anadir(campo+".taxableBase", "campo obligatorio")
		} else if _, err := d.BaseImponible.Decimal(); err != nil {
			errs.anadir(campo+".taxableBase", "%v", err)
		}
		if d.CuotaRepercutida.Presente() {
			if _, err := d.CuotaRepercutida.Decimal(); err != nil {
				errs.anadir(campo+".taxQuota", "%v", err)
			}
		}
		if d.TipoImpositivo.Presente() {
			if _, err := d.TipoImpositivo.Decimal(); err != nil {
				errs.anadir(campo+".taxRate", "%v", err)
			}
		}
	}
}

// validarTotales exige presencia y tipo numérico de los totales y, cuando
// todas las líneas parsean, su coherencia con el desglose: CuotaTotal debe
// ser la suma de cuotas (incluido recargo) e ImporteTotal la de bases más
// cuotas, comparadas a dos decimales.
func validarTotales(errs *ListaErrores, r *RegistroAlta) {
	var cuotaTotal, importeTotal decimal.Decimal
	cuotaOK, importeOK := false, false

	if !r.CuotaTotal.Presente() {
		errs.anadir("totalTax", "campo obligatorio")
	} else if d, err := r.CuotaTotal.Decimal(); err != nil {
		errs.anadir("totalTax", "%v", err)
	} else {
		cuotaTotal, cuotaOK = d, true
	}
	if !r.ImporteTotal.Presente() {
		errs.anadir("totalAmount", "campo obligatorio")
	} else if d, err := r.ImporteTotal.Decimal(); err != nil {
		errs.anadir("totalAmount", "%v", err)
	} else {
		importeTotal, importeOK = d, true
	}

	if len(r.Desglose) == 0 {
		return
	}
	var sumaCuotas, sumaBases decimal.Decimal
	for _, d := range r.Desglose {
		base, errB := d.BaseImponible.Decimal()
		if errB != nil {
			return // las líneas ilegibles ya tienen su propio error
		}
		sumaBases = sumaBases.Add(base)
		if d.CuotaRepercutida.Presente() {
			cuota, errC := d.CuotaRepercutida.Decimal()
			if errC != nil {
				return
			}
			sumaCuotas = sumaCuotas.Add(cuota)
		}
		if d.CuotaRecargoEquivalencia.Presente() {
			rec, errR := d.CuotaRecargoEquivalencia.Decimal()
			if errR != nil {
				return
			}
			sumaCuotas = sumaCuotas.Add(rec)
		}
	}
	if cuotaOK && !cuotaTotal.Round(2).Equal(sumaCuotas.Round(2)) {
		errs.anadir("totalTax", "no coincide con la suma de cuotas del desglose (%s)",
			FormatoImporteAEAT(sumaCuotas))
	}
	if importeOK && !importeTotal.Round(2).Equal(sumaBases.Add(sumaCuotas).Round(2)) {
		errs.anadir("totalAmount", "no coincide con la suma de bases y cuotas del desglose (%s)",
			FormatoImporteAEAT(sumaBases.Add(sumaCuotas)))
	}
}

func validarRectificativa(errs *ListaErrores, r *RegistroAlta) {
	if !r.EsRectificativa() {
		return
	}
	if len(r.FacturasRectificadas) == 0 {
		errs.anadir("correctedInvoiceRefs", "una factura rectificativa debe referenciar al menos una factura")
	}
	if m := r.TipoRectificativa; m != "" && m != RectificativaPorSustitucion && m != RectificativaPorDiferencias {
		errs.anadir("correctionMethod", "valor %q no admitido (S o I)", m)
	}
}

func validarTercero(errs *ListaErrores, r *RegistroAlta) {
	tag := strings.TrimSpace(r.EmitidaPorTerceroODestinatario)
	if tag == "" {
		return
	}
	if tag != EmitidaPorTercero && tag != EmitidaPorDestinatario {
		errs.anadir("thirdPartyIssuance", "valor %q no admitido (T o D)", tag)
	}
	if r.Tercero == nil {
		errs.anadir("thirdParty", "bloque obligatorio cuando thirdPartyIssuance está presente")
		return
	}
	if strings.TrimSpace(r.Tercero.NombreRazon) == "" {
		errs.anadir("thirdParty.name", "campo obligatorio")
	}
	if !r.Tercero.TieneIdentificacionUnica() {
		errs.anadir("thirdParty", "se requiere exactamente una identificación: NIF o identificador extranjero")
	}
}
