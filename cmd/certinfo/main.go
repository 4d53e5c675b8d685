// Herramienta de diagnóstico del certificado de representante ante la AEAT.
// Carga el certificado con la misma configuración que usa el proxy y reporta
// si el archivo, la contraseña y la vigencia están bien antes de desplegar.
//
// Uso: certinfo (lee AEAT_CERT_PATH, AEAT_CERT_KEY_PATH y AEAT_CERT_PASSWORD
// del entorno o del .env, igual que cmd/api).
package main

import (
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/davidmedinaramirez-sketch/verifactu-proxy/internal/infrastructure/aeat"
	"github.com/davidmedinaramirez-sketch/verifactu-proxy/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ No se pudo leer la configuración: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔍 DIAGNÓSTICO DEL CERTIFICADO AEAT")
	fmt.Println("-----------------------------------")

	if cfg.AEAT.CertPath == "" {
		fmt.Println("⚠️  AEAT_CERT_PATH no está definido.")
		fmt.Println("    Sin certificado el proxy solo puede operar en modo dev.")
		os.Exit(1)
	}
	fmt.Printf("📂 Certificado: %s\n", cfg.AEAT.CertPath)

	cert, err := aeat.CargarCertificado(cfg.AEAT.CertPath, cfg.AEAT.CertKeyPath, cfg.AEAT.CertPassword)
	if err != nil {
		fmt.Println("\n❌ ERROR AL CARGAR:")
		fmt.Printf("   %v\n", err)
		fmt.Println("   Revisa la ruta, el formato (.p12/.pfx o PEM) y la contraseña.")
		os.Exit(1)
	}
	if len(cert.Certificate) == 0 {
		fmt.Println("\n❌ El archivo se leyó pero no contiene ningún certificado.")
		os.Exit(1)
	}

	hoja, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		fmt.Printf("\n❌ El certificado no se pudo interpretar: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Certificado cargado correctamente.")
	fmt.Printf("   Titular: %s\n", hoja.Subject)
	fmt.Printf("   Emisor:  %s\n", hoja.Issuer)
	fmt.Printf("   Válido:  %s → %s\n",
		hoja.NotBefore.Format("2006-01-02"), hoja.NotAfter.Format("2006-01-02"))

	restante := time.Until(hoja.NotAfter)
	switch {
	case restante <= 0:
		fmt.Println("\n❌ EL CERTIFICADO ESTÁ CADUCADO. La AEAT rechazará la conexión mTLS.")
		os.Exit(1)
	case restante < 30*24*time.Hour:
		fmt.Printf("\n⚠️  Caduca en %d días. Renovar pronto.\n", int(restante.Hours()/24))
	default:
		fmt.Printf("\n✨ Todo en orden. Caduca en %d días.\n", int(restante.Hours()/24))
	}
}
