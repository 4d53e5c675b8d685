package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/application/facturacion"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RegistrarUC *facturacion.RegistrarUseCase
	APIToken    string
	JWTSecret   string
}

// Router registra las rutas del proxy.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestIDMiddleware())

	// Sonda de vida (pública)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("verifactu-proxy en marcha")
	})

	// Rutas protegidas (requieren Bearer token o JWT)
	vf := app.Group("/verifactu", AuthMiddleware(deps.APIToken, deps.JWTSecret))
	handler := NewRegistroHandler(deps.RegistrarUC)
	vf.Post("/registros", handler.Registrar)
	vf.Post("/send", handler.EnviarXML)
}
