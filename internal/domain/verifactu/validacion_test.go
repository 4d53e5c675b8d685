package verifactu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain/verifactu"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: registro mínimo válido (un destinatario con NIF, una línea de
// desglose, primer registro de la cadena).
// ──────────────────────────────────────────────────────────────────────────────

func registroMinimoValido() *verifactu.RegistroAlta {
	return &verifactu.RegistroAlta{
		IDVersion: "1.0",
		IDFactura: verifactu.IDFactura{
			IDEmisor:        "B12345678",
			NumSerie:        "FA-2025-001",
			FechaExpedicion: "2025-01-31",
		},
		NombreRazonEmisor:    "Comercial Ejemplo SL",
		NIFEmisor:            "B12345678",
		DescripcionOperacion: "Venta de mercancía",
		Destinatarios: []verifactu.Destinatario{
			{NombreRazon: "Cliente SA", NIF: "A87654321"},
		},
		Desglose: []verifactu.DetalleDesglose{{
			Impuesto:              "01",
			ClaveRegimen:          "01",
			CalificacionOperacion: "S1",
			TipoImpositivo:        verifactu.NuevoImporte("21"),
			BaseImponible:         verifactu.NuevoImporte("100"),
			CuotaRepercutida:      verifactu.NuevoImporte("21"),
		}},
		CuotaTotal:     verifactu.NuevoImporte("21"),
		ImporteTotal:   verifactu.NuevoImporte("121"),
		Encadenamiento: verifactu.Encadenamiento{PrimerRegistro: true},
		TipoHuella:     "01",
		Huella:         "3C464DAF61ACB827C65FDA19F352A4E3BDC2C640E9E9FC4CC058073F38F12F60",
		Sistema: &verifactu.SistemaInformatico{
			NombreRazon:       "SoftFactu SL",
			NIF:               "B99999999",
			NombreSistema:     "SoftFactu",
			IDSistema:         "77",
			Version:           "1.0.3",
			NumeroInstalacion: "001",
			SoloVerifactu:     "S",
			MultiOT:           "N",
			IndicadorMultiOT:  "N",
		},
	}
}

func camposConError(errs verifactu.ListaErrores) []string {
	campos := make([]string, 0, len(errs))
	for _, e := range errs {
		campos = append(campos, e.Campo)
	}
	return campos
}

// ──────────────────────────────────────────────────────────────────────────────
// Casos
// ──────────────────────────────────────────────────────────────────────────────

func TestValidarRegistro_MinimoValido(t *testing.T) {
	errs := verifactu.ValidarRegistro(registroMinimoValido())
	assert.Empty(t, errs, "un registro mínimo completo no debe producir errores: %v", errs)
}

// La cardinalidad de errores debe coincidir con la de violaciones: cada campo
// obligatorio ausente produce su propio error, no solo el primero.
func TestValidarRegistro_CamposObligatoriosAcumulados(t *testing.T) {
	r := registroMinimoValido()
	r.IDVersion = ""
	r.IDFactura.IDEmisor = ""
	r.IDFactura.NumSerie = ""
	r.IDFactura.FechaExpedicion = ""

	errs := verifactu.ValidarRegistro(r)
	campos := camposConError(errs)

	assert.Contains(t, campos, "version")
	assert.Contains(t, campos, "invoiceId.issuerTaxId")
	assert.Contains(t, campos, "invoiceId.seriesNumber")
	assert.Contains(t, campos, "invoiceId.issueDate")
}

func TestValidarRegistro_AcumulaTodasLasViolaciones(t *testing.T) {
	r := registroMinimoValido()
	r.Destinatarios = nil
	r.ImporteTotal = verifactu.NuevoImporte("ciento veintiuno")

	errs := verifactu.ValidarRegistro(r)
	campos := camposConError(errs)

	require.GreaterOrEqual(t, len(errs), 2, "deben reportarse ambas violaciones, no solo la primera")
	assert.Contains(t, campos, "recipients")
	assert.Contains(t, campos, "totalAmount")
}

func TestValidarRegistro_DestinatarioIdentificacionUnica(t *testing.T) {
	tests := []struct {
		nombre       string
		destinatario verifactu.Destinatario
		valido       bool
	}{
		{"solo NIF", verifactu.Destinatario{NombreRazon: "Cliente SA", NIF: "A87654321"}, true},
		{"solo extranjero", verifactu.Destinatario{
			NombreRazon: "Kunde GmbH",
			IDOtro:      &verifactu.IDOtro{CodigoPais: "DE", IDType: "04", ID: "DE811907980"},
		}, true},
		{"ambos", verifactu.Destinatario{
			NombreRazon: "Cliente SA",
			NIF:         "A87654321",
			IDOtro:      &verifactu.IDOtro{CodigoPais: "DE", IDType: "04", ID: "DE811907980"},
		}, false},
		{"ninguno", verifactu.Destinatario{NombreRazon: "Cliente SA"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.nombre, func(t *testing.T) {
			r := registroMinimoValido()
			r.Destinatarios = []verifactu.Destinatario{tc.destinatario}
			errs := verifactu.ValidarRegistro(r)
			if tc.valido {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, camposConError(errs), "recipients[0]")
			}
		})
	}
}

func TestValidarRegistro_TotalesCoherentesConDesglose(t *testing.T) {
	r := registroMinimoValido()
	r.CuotaTotal = verifactu.NuevoImporte("20")    // el desglose suma 21
	r.ImporteTotal = verifactu.NuevoImporte("120") // bases+cuotas suman 121

	errs := verifactu.ValidarRegistro(r)
	campos := camposConError(errs)

	assert.Contains(t, campos, "totalTax")
	assert.Contains(t, campos, "totalAmount")
}

func TestValidarRegistro_TotalesConRecargoEquivalencia(t *testing.T) {
	r := registroMinimoValido()
	r.Desglose[0].TipoRecargoEquivalencia = verifactu.NuevoImporte("5.2")
	r.Desglose[0].CuotaRecargoEquivalencia = verifactu.NuevoImporte("5.20")
	r.CuotaTotal = verifactu.NuevoImporte("26.20")
	r.ImporteTotal = verifactu.NuevoImporte("126.20")

	errs := verifactu.ValidarRegistro(r)
	assert.Empty(t, errs, "el recargo de equivalencia cuenta en los totales: %v", errs)
}

func TestValidarRegistro_RectificativaSinReferencias(t *testing.T) {
	r := registroMinimoValido()
	r.TipoFactura = "R1"

	errs := verifactu.ValidarRegistro(r)
	assert.Contains(t, camposConError(errs), "correctedInvoiceRefs")
}

func TestValidarRegistro_TerceroConsistente(t *testing.T) {
	r := registroMinimoValido()
	r.EmitidaPorTerceroODestinatario = verifactu.EmitidaPorTercero

	errs := verifactu.ValidarRegistro(r)
	require.Contains(t, camposConError(errs), "thirdParty",
		"el bloque tercero es obligatorio cuando se marca emisión por tercero")

	r.Tercero = &verifactu.Identidad{NombreRazon: "Gestoría SL", NIF: "B11111111"}
	errs = verifactu.ValidarRegistro(r)
	assert.Empty(t, errs)
}

func TestValidarRegistro_SistemaIncompleto(t *testing.T) {
	r := registroMinimoValido()
	r.Sistema.IDSistema = ""
	r.Sistema.NumeroInstalacion = ""

	errs := verifactu.ValidarRegistro(r)
	campos := camposConError(errs)

	assert.Contains(t, campos, "systemDescriptor.productId")
	assert.Contains(t, campos, "systemDescriptor.installationNumber")
}

func TestValidarRegistro_HuellaObligatoria(t *testing.T) {
	r := registroMinimoValido()
	r.TipoHuella = ""
	r.Huella = ""

	errs := verifactu.ValidarRegistro(r)
	campos := camposConError(errs)

	assert.Contains(t, campos, "hashAlgorithm")
	assert.Contains(t, campos, "hash")
}
