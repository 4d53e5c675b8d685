package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/application/facturacion"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/infrastructure/aeat"
	httpRouter "github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/interfaces/http"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/pkg/config"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("aeat", cfg.AEAT.Entorno).
		Msg("iniciando aplicación")

	// Certificado de cliente para el TLS mutuo. Su ausencia no impide
	// arrancar: cada envío devolverá CONFIG (500) hasta que se corrija.
	cert, err := aeat.CargarCertificado(cfg.AEAT.CertPath, cfg.AEAT.CertKeyPath, cfg.AEAT.CertPassword)
	if err != nil {
		log.Error().Err(err).Msg("certificado AEAT no cargado; los envíos fallarán con CONFIG")
	}

	var enviador aeat.Enviador
	if cfg.AEAT.Entorno == aeat.EntornoDev {
		enviador = aeat.NewEnviadorSimulado(log)
	} else {
		enviador = aeat.NewClienteSOAP(aeat.Config{
			Entorno:            cfg.AEAT.Entorno,
			Endpoint:           cfg.AEAT.Endpoint,
			Certificado:        cert,
			Timeout:            cfg.AEAT.Timeout,
			InsecureSkipVerify: cfg.AEAT.InsecureSkipVerify,
		})
	}

	registrarUC := facturacion.NewRegistrarUseCase(aeat.NewEnvelopeBuilder(), enviador, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		RegistrarUC: registrarUC,
		APIToken:    cfg.Auth.APIToken,
		JWTSecret:   cfg.Auth.JWTSecret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
