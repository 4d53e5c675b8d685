package verifactu

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Importe es un valor monetario o porcentual de entrada laxa: acepta número
// JSON o cadena numérica y conserva el texto original hasta que el validador
// lo parsea. Así un "1.234,56" mal formado produce un error de campo
// itemizado en vez de tumbar el parseo del body completo.
type Importe struct {
	raw string
}

// NuevoImporte construye un Importe desde su representación textual.
func NuevoImporte(s string) Importe {
	return Importe{raw: strings.TrimSpace(s)}
}

// ImporteDesdeDecimal construye un Importe ya numérico.
func ImporteDesdeDecimal(d decimal.Decimal) Importe {
	return Importe{raw: d.String()}
}

// Presente indica si el campo venía en la entrada con algún valor.
func (i Importe) Presente() bool {
	return i.raw != ""
}

// Decimal parsea el valor. Error si está ausente o no es numérico.
func (i Importe) Decimal() (decimal.Decimal, error) {
	if i.raw == "" {
		return decimal.Zero, fmt.Errorf("importe ausente")
	}
	d, err := decimal.NewFromString(i.raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("importe no numérico: %q", i.raw)
	}
	return d, nil
}

// String devuelve el texto original tal y como llegó.
func (i Importe) String() string {
	return i.raw
}

// UnmarshalJSON acepta número, cadena o null.
func (i *Importe) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		i.raw = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		i.raw = strings.TrimSpace(v)
		return nil
	}
	i.raw = s
	return nil
}

// MarshalJSON emite el valor como cadena para no perder precisión.
func (i Importe) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.raw)
}

// Formatos de fecha admitidos en la entrada. En el XML siempre va dd-mm-aaaa.
const (
	FormatoFechaAEAT = "02-01-2006"
	formatoFechaISO  = "2006-01-02"
)

// FormatearFecha normaliza una fecha de entrada al formato AEAT dd-mm-aaaa.
// Las fechas ya en formato AEAT pasan sin cambios.
func FormatearFecha(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("fecha vacía")
	}
	if t, err := time.Parse(FormatoFechaAEAT, s); err == nil {
		return t.Format(FormatoFechaAEAT), nil
	}
	if t, err := time.Parse(formatoFechaISO, s); err == nil {
		return t.Format(FormatoFechaAEAT), nil
	}
	return "", fmt.Errorf("fecha %q no reconocida (se admite dd-mm-aaaa o aaaa-mm-dd)", s)
}

// FormatoImporteAEAT formatea un decimal con exactamente dos decimales.
// decimal.Round redondea half away from zero, que es lo que exige el esquema.
func FormatoImporteAEAT(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
