package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde
// env y opcionalmente archivo .env).
type Config struct {
	App  AppConfig
	HTTP HTTPConfig
	Auth AuthConfig
	AEAT AEATConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig credenciales de la API de entrada. Si JWTSecret está definido,
// la credencial Bearer se valida como JWT HS256; si no, se compara contra
// APIToken en tiempo constante.
type AuthConfig struct {
	APIToken  string
	JWTSecret string
	JWTIssuer string
}

// AEATConfig parámetros de conexión con el WS VeriFactu. Inmutables tras el
// arranque.
type AEATConfig struct {
	Entorno      string // dev | test | prod
	Endpoint     string // opcional: sobreescribe el endpoint del entorno
	CertPath     string // .p12/.pfx o .pem
	CertKeyPath  string // llave PEM aparte (opcional)
	CertPassword string // contraseña del .p12
	Timeout      time.Duration
	// InsecureSkipVerify solo para pruebas locales contra servidores con
	// certificado autofirmado.
	InsecureSkipVerify bool
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde
// archivo .env). Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración .env en el directorio de trabajo
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "verifactu-proxy"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", getInt(v, "PORT", 3000)),
		},
		Auth: AuthConfig{
			APIToken:  getString(v, "API_TOKEN", "DEV_TOKEN"),
			JWTSecret: getString(v, "JWT_SECRET", ""),
			JWTIssuer: getString(v, "JWT_ISSUER", "verifactu-proxy"),
		},
		AEAT: AEATConfig{
			Entorno:            getString(v, "AEAT_ENV", "test"),
			Endpoint:           getString(v, "AEAT_ENDPOINT", ""),
			CertPath:           getString(v, "AEAT_CERT_PATH", ""),
			CertKeyPath:        getString(v, "AEAT_CERT_KEY_PATH", ""),
			CertPassword:       getString(v, "AEAT_CERT_PASSWORD", ""),
			Timeout:            time.Duration(getInt(v, "AEAT_TIMEOUT_SECONDS", 60)) * time.Second,
			InsecureSkipVerify: getBool(v, "AEAT_INSECURE_SKIP_VERIFY", false),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
