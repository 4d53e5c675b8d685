package aeat_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain/verifactu"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/infrastructure/aeat"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func registroParaEnvelope() *verifactu.RegistroAlta {
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

func construir(t *testing.T, r *verifactu.RegistroAlta, cad verifactu.Eslabon) *etree.Document {
	t.Helper()
	builder := aeat.NewEnvelopeBuilderConReloj(func() time.Time {
		return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	})
	xml, err := builder.Build(r, cad)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml), "el envelope debe ser XML bien formado")
	return doc
}

func textoDe(t *testing.T, doc *etree.Document, ruta string) string {
	t.Helper()
	el := doc.FindElement(ruta)
	require.NotNil(t, el, "no se encontró %s", ruta)
	return el.Text()
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario A: registro mínimo, primer registro de la cadena
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_RegistroMinimoPrimerRegistro(t *testing.T) {
	doc := construir(t, registroParaEnvelope(), verifactu.Eslabon{Primero: true})

	assert.Len(t, doc.FindElements("//Destinatarios"), 1,
		"debe haber exactamente un bloque Destinatarios")
	assert.Nil(t, doc.FindElement("//Encadenamiento/RegistroAnterior"),
		"un primer registro no referencia al anterior")
	assert.Equal(t, "S", textoDe(t, doc, "//Encadenamiento/PrimerRegistro"))

	assert.Equal(t, "B12345678", textoDe(t, doc, "//IDFactura/IDEmisorFactura"))
	assert.Equal(t, "FA-2025-001", textoDe(t, doc, "//IDFactura/NumSerieFactura"))
	assert.Equal(t, "F1", textoDe(t, doc, "//TipoFactura"), "el tipo por defecto es F1")
	assert.Equal(t, "01", textoDe(t, doc, "//TipoHuella"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario B: continuación de cadena con registro anterior completo
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_RegistroAnteriorVerbatim(t *testing.T) {
	r := registroParaEnvelope()
	cad := verifactu.Eslabon{Anterior: &verifactu.RegistroAnterior{
		IDEmisor:        "B12345678",
		NumSerie:        "FA-2025-000",
		FechaExpedicion: "2025-01-30",
		Huella:          "AAAA1111BBBB2222",
	}}

	doc := construir(t, r, cad)

	assert.Nil(t, doc.FindElement("//Encadenamiento/PrimerRegistro"))
	assert.Equal(t, "B12345678", textoDe(t, doc, "//RegistroAnterior/IDEmisorFactura"))
	assert.Equal(t, "FA-2025-000", textoDe(t, doc, "//RegistroAnterior/NumSerieFactura"))
	assert.Equal(t, "30-01-2025", textoDe(t, doc, "//RegistroAnterior/FechaExpedicionFactura"),
		"la fecha se reformatea al formato AEAT")
	assert.Equal(t, "AAAA1111BBBB2222", textoDe(t, doc, "//RegistroAnterior/Huella"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Canonicalización numérica y de fechas
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_ImportesConDosDecimales(t *testing.T) {
	r := registroParaEnvelope()
	r.Desglose[0].BaseImponible = verifactu.NuevoImporte("12.345")
	r.Desglose[0].CuotaRepercutida = verifactu.NuevoImporte("2.5924")
	r.CuotaTotal = verifactu.NuevoImporte("2.5924")
	r.ImporteTotal = verifactu.NuevoImporte("100")

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Equal(t, "12.35", textoDe(t, doc, "//DetalleDesglose/BaseImponibleOimporteNoSujeto"),
		"redondeo half away from zero")
	assert.Equal(t, "2.59", textoDe(t, doc, "//DetalleDesglose/CuotaRepercutida"))
	assert.Equal(t, "100.00", textoDe(t, doc, "//ImporteTotal"),
		"los enteros llevan dos decimales")
	assert.Equal(t, "21.00", textoDe(t, doc, "//DetalleDesglose/TipoImpositivo"))
}

func TestBuild_FechasFormatoAEAT(t *testing.T) {
	r := registroParaEnvelope()
	r.IDFactura.FechaExpedicion = "2025-01-31"
	r.FechaOperacion = "31-01-2025" // ya en formato AEAT: pasa sin cambios

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Equal(t, "31-01-2025", textoDe(t, doc, "//IDFactura/FechaExpedicionFactura"))
	assert.Equal(t, "31-01-2025", textoDe(t, doc, "//FechaOperacion"))
}

func TestBuild_FechaGeneracionPorDefecto(t *testing.T) {
	r := registroParaEnvelope()
	r.FechaHoraHusoGenRegistro = ""

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Equal(t, "2025-06-01T10:30:00+00:00",
		textoDe(t, doc, "//FechaHoraHusoGenRegistro"),
		"sin generatedAt se usa la hora de construcción en UTC")
}

// ──────────────────────────────────────────────────────────────────────────────
// Escapado: re-parsear el XML debe devolver el texto original intacto
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_EscapaTextoPeligroso(t *testing.T) {
	peligroso := `Tienda <"Ultra" & Co> '85`
	r := registroParaEnvelope()
	r.NombreRazonEmisor = peligroso
	r.DescripcionOperacion = `<script>alert("x")</script>`

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Equal(t, peligroso, textoDe(t, doc, "//Cabecera/ObligadoEmision/NombreRazon"))
	assert.Equal(t, `<script>alert("x")</script>`, textoDe(t, doc, "//DescripcionOperacion"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Bloques opcionales y condicionales
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_OpcionalesAusentesNoEmitenEtiqueta(t *testing.T) {
	r := registroParaEnvelope()
	r.FechaOperacion = ""
	r.RefExterna = ""

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Nil(t, doc.FindElement("//FechaOperacion"),
		"una etiqueta vacía no equivale a una etiqueta ausente para la AEAT")
	assert.Nil(t, doc.FindElement("//RefExterna"))
	assert.Nil(t, doc.FindElement("//Macrodato"))
	assert.Nil(t, doc.FindElement("//Cupon"))
	assert.Nil(t, doc.FindElement("//Tercero"))
}

func TestBuild_DestinatarioExtranjero(t *testing.T) {
	r := registroParaEnvelope()
	r.Destinatarios = []verifactu.Destinatario{{
		NombreRazon: "Kunde GmbH",
		IDOtro:      &verifactu.IDOtro{CodigoPais: "DE", IDType: "04", ID: "DE811907980"},
	}}

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Nil(t, doc.FindElement("//IDDestinatario/NIF"))
	assert.Equal(t, "DE", textoDe(t, doc, "//IDDestinatario/IDOtro/CodigoPais"))
	assert.Equal(t, "DE811907980", textoDe(t, doc, "//IDDestinatario/IDOtro/ID"))
}

func TestBuild_RectificativaConImportes(t *testing.T) {
	r := registroParaEnvelope()
	r.TipoFactura = "R1"
	r.TipoRectificativa = verifactu.RectificativaPorSustitucion
	r.FacturasRectificadas = []verifactu.IDFactura{{
		IDEmisor: "B12345678", NumSerie: "FA-2024-099", FechaExpedicion: "2024-12-01",
	}}
	r.Rectificacion = &verifactu.ImporteRectificacion{
		BaseRectificada:  verifactu.NuevoImporte("100"),
		CuotaRectificada: verifactu.NuevoImporte("21"),
	}

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Equal(t, "S", textoDe(t, doc, "//TipoRectificativa"))
	assert.Equal(t, "FA-2024-099", textoDe(t, doc, "//IDFacturaRectificada/NumSerieFactura"))
	assert.Equal(t, "01-12-2024", textoDe(t, doc, "//IDFacturaRectificada/FechaExpedicionFactura"))
	assert.Equal(t, "100.00", textoDe(t, doc, "//ImporteRectificacion/BaseRectificada"))
	assert.Equal(t, "21.00", textoDe(t, doc, "//ImporteRectificacion/CuotaRectificada"))
}

func TestBuild_IndicadoresActivos(t *testing.T) {
	r := registroParaEnvelope()
	r.Macrodato = true
	r.Cupon = true

	doc := construir(t, r, verifactu.Eslabon{Primero: true})

	assert.Equal(t, "S", textoDe(t, doc, "//Macrodato"))
	assert.Equal(t, "S", textoDe(t, doc, "//Cupon"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Envoltura de fragmentos
// ──────────────────────────────────────────────────────────────────────────────

func TestEnvolverXML(t *testing.T) {
	fragmento := `<sum1:RegistroAlta><sum1:IDVersion>1.0</sum1:IDVersion></sum1:RegistroAlta>`

	envuelto := aeat.EnvolverXML(fragmento)
	assert.Contains(t, envuelto, "<soapenv:Envelope")
	assert.Contains(t, envuelto, fragmento)

	// Un envelope completo pasa tal cual, con o sin declaración XML.
	completo := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<soapenv:Envelope xmlns:soapenv="` + aeat.NsSoapEnv + `"><soapenv:Body/></soapenv:Envelope>`
	assert.Equal(t, completo, aeat.EnvolverXML("  "+completo+"\n"))

	otroPrefijo := `<s:Envelope xmlns:s="` + aeat.NsSoapEnv + `"><s:Body/></s:Envelope>`
	assert.Equal(t, otroPrefijo, aeat.EnvolverXML(otroPrefijo))
}
