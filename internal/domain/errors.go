package domain

import "errors"

// Errores de dominio (sin dependencias externas). La taxonomía sigue el ciclo
// de registro VeriFactu: los tres primeros los corrige quien llama; los tres
// últimos el operador o la red.
var (
	ErrValidacion     = errors.New("registro inválido")
	ErrEncadenamiento = errors.New("encadenamiento inválido")
	ErrNoAutorizado   = errors.New("credencial no autorizada")
	ErrConfiguracion  = errors.New("configuración AEAT incompleta")
	ErrRed            = errors.New("fallo de red hacia AEAT")
	ErrTimeout        = errors.New("tiempo de espera AEAT agotado")
)
