package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración estática del proceso. Se carga desde YAML y se
// pisa con variables de entorno (las ENV ganan siempre).
type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Credential struct {
		Issuer string `yaml:"issuer"`
		// Secret simétrico de proceso para firmar credentials (>=32 bytes).
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"` // ej: "30m"
	} `yaml:"credential"`

	Security struct {
		// base64(32 bytes); cifra aadhaar/land records en reposo.
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
		PasswordMinLength  int    `yaml:"password_min_length"`
	} `yaml:"security"`

	OTP struct {
		TTL string `yaml:"ttl"` // validez del código, ej: "10m"
	} `yaml:"otp"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	Email struct {
		// En dev, los OTP se loguean en vez de enviarse.
		DebugEchoCodes bool `yaml:"debug_echo_codes"`
	} `yaml:"email"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// Load lee el YAML (opcional) y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	c.App.Env = "dev"
	c.Server.Addr = ":8080"
	c.Cache.Kind = "memory"
	c.Credential.Issuer = "bhoomi"
	c.Credential.TTL = "30m"
	c.OTP.TTL = "10m"
	c.Security.PasswordMinLength = 8
	c.Rate.Login.Limit = 10
	c.Rate.Login.Window = "1m"
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.App.Env, "BHOOMI_ENV")
	set(&c.Server.Addr, "BHOOMI_ADDR")
	set(&c.Storage.DSN, "BHOOMI_DSN")
	set(&c.Cache.Kind, "BHOOMI_CACHE")
	set(&c.Cache.Redis.Addr, "BHOOMI_REDIS_ADDR")
	set(&c.Credential.Secret, "BHOOMI_CREDENTIAL_SECRET")
	set(&c.Credential.TTL, "BHOOMI_CREDENTIAL_TTL")
	set(&c.Security.SecretBoxMasterKey, "SECRETBOX_MASTER_KEY")
	set(&c.SMTP.Host, "BHOOMI_SMTP_HOST")
	set(&c.SMTP.From, "BHOOMI_SMTP_FROM")

	if v := strings.TrimSpace(os.Getenv("BHOOMI_CORS_ORIGINS")); v != "" {
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		c.Server.CORSAllowedOrigins = out
	}
	if v := strings.TrimSpace(os.Getenv("BHOOMI_MIGRATE")); v != "" {
		c.Flags.Migrate, _ = strconv.ParseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv("BHOOMI_SMTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = n
		}
	}
}

func (c *Config) validate() error {
	if len(c.Credential.Secret) > 0 && len(c.Credential.Secret) < 32 {
		return fmt.Errorf("config: credential.secret too short (need >=32 bytes)")
	}
	if _, err := time.ParseDuration(c.Credential.TTL); err != nil {
		return fmt.Errorf("config: credential.ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.OTP.TTL); err != nil {
		return fmt.Errorf("config: otp.ttl: %w", err)
	}
	return nil
}

// CredentialTTL devuelve el TTL parseado (ya validado en Load).
func (c *Config) CredentialTTL() time.Duration {
	d, _ := time.ParseDuration(c.Credential.TTL)
	return d
}

// OTPTTL devuelve la validez de un código OTP.
func (c *Config) OTPTTL() time.Duration {
	d, _ := time.ParseDuration(c.OTP.TTL)
	return d
}

// LoginRateWindow parsea la ventana del rate limit de login.
func (c *Config) LoginRateWindow() time.Duration {
	d, err := time.ParseDuration(c.Rate.Login.Window)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
