package http

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/application/dto"
	pkgjwt "github.com/davidmedinaramirez-sketch/verifactu-proxy/pkg/jwt"
)

// LocalEmisor es la key de c.Locals con el emisor asociado a la credencial
// JWT (vacío en modo token estático).
const LocalEmisor = "emisor"

// AuthMiddleware valida la cabecera Authorization: Bearer <credencial>.
// Con jwtSecret definido la credencial se valida como JWT HS256; si no, se
// compara contra el token estático en tiempo constante. Toda petición sin
// credencial válida termina en 401.
func AuthMiddleware(apiToken, jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "MISSING_TOKEN", Message: "Authorization header requerido", RequestID: GetRequestID(c)})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "INVALID_TOKEN", Message: "formato: Bearer <token>", RequestID: GetRequestID(c)})
		}
		credencial := strings.TrimSpace(parts[1])
		if credencial == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "MISSING_TOKEN", Message: "token vacío", RequestID: GetRequestID(c)})
		}

		if jwtSecret != "" {
			_, emisor, err := pkgjwt.Parse(jwtSecret, credencial)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Code: "INVALID_TOKEN", Message: "token inválido o expirado", RequestID: GetRequestID(c)})
			}
			c.Locals(LocalEmisor, emisor)
			return c.Next()
		}

		if subtle.ConstantTimeCompare([]byte(credencial), []byte(apiToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code: "INVALID_TOKEN", Message: "token inválido", RequestID: GetRequestID(c)})
		}
		return c.Next()
	}
}

// GetEmisor devuelve el emisor del contexto (tras el middleware, modo JWT).
func GetEmisor(c *fiber.Ctx) string {
	v := c.Locals(LocalEmisor)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
