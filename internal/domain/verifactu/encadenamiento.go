package verifactu

import (
	"fmt"
	"strings"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/domain"
)

// Eslabon es el encadenamiento ya resuelto de un registro: o bien abre la
// cadena del emisor, o bien referencia el registro anterior completo.
type Eslabon struct {
	Primero  bool
	Anterior *RegistroAnterior
}

// ResolverEncadenamiento decide la variante de encadenamiento del registro.
// Si PrimerRegistro es true, cualquier dato de registro anterior se ignora.
// En caso contrario los cuatro campos del registro anterior son obligatorios:
// la AEAT usa esta referencia para detectar huecos o manipulación en la
// secuencia del emisor, así que la ambigüedad se rechaza, nunca se resuelve
// en silencio.
func ResolverEncadenamiento(r *RegistroAlta) (Eslabon, error) {
	if r.Encadenamiento.PrimerRegistro {
		return Eslabon{Primero: true}, nil
	}
	ant := r.Encadenamiento.Anterior
	if ant == nil {
		return Eslabon{}, fmt.Errorf("%w: el registro no es primero y no referencia al anterior", domain.ErrEncadenamiento)
	}
	var faltan []string
	if strings.TrimSpace(ant.IDEmisor) == "" {
		faltan = append(faltan, "previous.issuerTaxId")
	}
	if strings.TrimSpace(ant.NumSerie) == "" {
		faltan = append(faltan, "previous.seriesNumber")
	}
	if strings.TrimSpace(ant.FechaExpedicion) == "" {
		faltan = append(faltan, "previous.issueDate")
	}
	if strings.TrimSpace(ant.Huella) == "" {
		faltan = append(faltan, "previous.hash")
	}
	if len(faltan) > 0 {
		return Eslabon{}, fmt.Errorf("%w: faltan %s", domain.ErrEncadenamiento, strings.Join(faltan, ", "))
	}
	return Eslabon{Anterior: ant}, nil
}
