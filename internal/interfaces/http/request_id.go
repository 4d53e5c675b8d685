package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// LocalRequestID es la key de c.Locals con el identificador de la petición.
const LocalRequestID = "request_id"

// HeaderRequestID es la cabecera de respuesta con el identificador.
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware asigna un UUID a cada petición, reutilizando el que
// venga en la cabecera si el caller ya trae uno.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalRequestID, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// GetRequestID devuelve el identificador de la petición actual.
func GetRequestID(c *fiber.Ctx) string {
	v := c.Locals(LocalRequestID)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
