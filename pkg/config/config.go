package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Storage  StorageConfig
	Evidence EvidenceConfig
	Seed     SeedConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env         string // development, staging, production
	Name        string
	LogLevel    string
	Persistence string // postgres | memory
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host      string
	Port      int
	BodyLimit int // bytes, debe admitir la imagen de evidencia
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig dónde se guardan las imágenes de evidencia.
type StorageConfig struct {
	Backend  string // local | s3 | memory
	LocalDir string
	S3       S3Config
}

// S3Config bucket de evidencias. Endpoint permite MinIO u otro compatible.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// EvidenceConfig límites de la subida de evidencia.
type EvidenceConfig struct {
	MaxBytes      int
	UploadTimeout time.Duration
}

// SeedConfig credenciales del administrador inicial (cmd/seed y modo memoria).
type SeedConfig struct {
	AdminUsername string
	AdminPassword string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, S3_BUCKET, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo .env o config.env; ignoramos el error si no existe.
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:         v.GetString("APP_ENV"),
			Name:        v.GetString("APP_NAME"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			Persistence: strings.ToLower(v.GetString("PERSISTENCE")),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
			MaxConns:    v.GetInt("DB_MAX_CONNS"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetInt("JWT_EXPIRATION_MINUTES"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		HTTP: HTTPConfig{
			Host:      v.GetString("HTTP_HOST"),
			Port:      v.GetInt("HTTP_PORT"),
			BodyLimit: v.GetInt("HTTP_BODY_LIMIT"),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
			LocalDir: v.GetString("STORAGE_LOCAL_DIR"),
			S3: S3Config{
				Bucket:    v.GetString("S3_BUCKET"),
				Region:    v.GetString("S3_REGION"),
				Endpoint:  v.GetString("S3_ENDPOINT"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
				Prefix:    v.GetString("S3_PREFIX"),
			},
		},
		Evidence: EvidenceConfig{
			MaxBytes:      v.GetInt("EVIDENCE_MAX_BYTES"),
			UploadTimeout: time.Duration(v.GetInt("EVIDENCE_UPLOAD_TIMEOUT_SECONDS")) * time.Second,
		},
		Seed: SeedConfig{
			AdminUsername: v.GetString("SEED_ADMIN_USERNAME"),
			AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "trazabilidad-api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PERSISTENCE", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "trazabilidad")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("JWT_EXPIRATION_MINUTES", 60*24*30)
	v.SetDefault("JWT_ISSUER", "trazabilidad-api")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_BODY_LIMIT", 12*1024*1024)
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/evidence")
	v.SetDefault("S3_PREFIX", "evidence/")
	v.SetDefault("EVIDENCE_MAX_BYTES", 10*1024*1024)
	v.SetDefault("EVIDENCE_UPLOAD_TIMEOUT_SECONDS", 30)
	v.SetDefault("SEED_ADMIN_USERNAME", "admin")
}

func (c *Config) validate() error {
	switch c.App.Persistence {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: PERSISTENCE inválido %q", c.App.Persistence)
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET requerido con STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("config: STORAGE_BACKEND inválido %q", c.Storage.Backend)
	}
	if c.Evidence.MaxBytes > c.HTTP.BodyLimit {
		return fmt.Errorf("config: EVIDENCE_MAX_BYTES (%d) supera HTTP_BODY_LIMIT (%d)", c.Evidence.MaxBytes, c.HTTP.BodyLimit)
	}
	return nil
}
