// Carga del certificado de cliente para el TLS mutuo con la AEAT, desde
// .p12/.pfx (con contraseña) o desde par PEM.

package aeat

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// CargarCertificado carga el certificado según la extensión del fichero.
// Una ruta vacía devuelve certificado vacío sin error: el entorno dev no
// necesita certificado y el cliente SOAP rechaza enviar sin él.
func CargarCertificado(certPath, keyPath, password string) (tls.Certificate, error) {
	if certPath == "" {
		return tls.Certificate{}, nil
	}
	lower := strings.ToLower(certPath)
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		return cargarP12(certPath, password)
	}
	return cargarPEM(certPath, keyPath)
}

func cargarP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve solo el certificado hoja; para la AEAT basta.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

func cargarPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		// Un solo fichero puede contener certificado y llave en PEM.
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}
