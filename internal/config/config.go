package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yemenflix/yflix/internal/domain"
)

const envPrefix = "YFLIX"

type Config struct {
	HTTP          HTTPConfig          `mapstructure:"http"`
	Store         StoreConfig         `mapstructure:"store"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Maintenance   MaintenanceConfig   `mapstructure:"maintenance"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	Log           LogConfig           `mapstructure:"log"`

	// Dev autorise un secret JWT généré à la volée.
	Dev bool `mapstructure:"dev"`

	// GeneratedSecret est vrai quand Auth.JWTSecret a été généré.
	GeneratedSecret bool `mapstructure:"-"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type StoreConfig struct {
	// "json" (serverdata/database.json) ou "sqlite".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type MaintenanceConfig struct {
	Enabled             bool            `mapstructure:"enabled"`
	Interval            time.Duration   `mapstructure:"interval"`
	Targets             []domain.Target `mapstructure:"targets"`
	SlowThreshold       time.Duration   `mapstructure:"slow_threshold"`
	RequestTimeout      time.Duration   `mapstructure:"request_timeout"`
	MemoryThresholdMB   int             `mapstructure:"memory_threshold_mb"`
	MaxConcurrentChecks int             `mapstructure:"max_concurrent_checks"`
	RunAtStartup        bool            `mapstructure:"run_at_startup"`
}

type SubscriptionsConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.path", "serverdata/database.json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.interval", 5*time.Minute)
	v.SetDefault("maintenance.slow_threshold", 3*time.Second)
	v.SetDefault("maintenance.request_timeout", 10*time.Second)
	v.SetDefault("maintenance.memory_threshold_mb", 512)
	v.SetDefault("maintenance.max_concurrent_checks", 4)
	v.SetDefault("maintenance.run_at_startup", false)
	v.SetDefault("subscriptions.check_interval", time.Minute)
	v.SetDefault("subscriptions.batch_size", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("dev", false)
}

// Flags déclare les options de ligne de commande du serveur.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "Fichier de configuration (yaml, toml, json)")
	fs.String("addr", "", "Adresse d'écoute (ex: 127.0.0.1:8080)")
	fs.String("store-driver", "", "Driver du store: json ou sqlite")
	fs.String("store-path", "", "Chemin de la base (ex: serverdata/database.json)")
	fs.String("log-level", "", "Niveau de log: debug, info, warn, error")
	fs.String("log-format", "", "Format de log: json ou console")
	fs.Duration("maintenance-interval", 0, "Intervalle des checks de maintenance")
	fs.Bool("dev", false, "Mode développement")
}

var flagKeys = map[string]string{
	"addr":                 "http.addr",
	"store-driver":         "store.driver",
	"store-path":           "store.path",
	"log-level":            "log.level",
	"log-format":           "log.format",
	"maintenance-interval": "maintenance.interval",
	"dev":                  "dev",
}

// Load lit, dans l'ordre de priorité croissante: valeurs par défaut,
// fichier de config, .env, variables YFLIX_*, flags.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("yflix-server", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return LoadFlags(fs)
}

func LoadFlags(fs *pflag.FlagSet) (Config, error) {
	// .env optionnel: n'écrase pas les variables déjà définies.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// YFLIX_MAINTENANCE_TARGETS="home=https://a/,api=https://b/api" (AutomaticEnv ne sait pas décoder une liste de structs).
	if raw := os.Getenv(envPrefix + "_MAINTENANCE_TARGETS"); raw != "" {
		cfg.Maintenance.Targets = ParseTargets(raw)
	}

	if cfg.Auth.JWTSecret == "" && cfg.Dev {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.Auth.JWTSecret = secret
		cfg.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseTargets lit "nom=url,nom2=url2". Un nom préfixé par "!" est critique.
func ParseTargets(raw string) []domain.Target {
	out := []domain.Target{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		if !ok {
			url = name
			name = part
		}
		t := domain.Target{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)}
		if strings.HasPrefix(t.Name, "!") {
			t.Critical = true
			t.Name = strings.TrimPrefix(t.Name, "!")
		}
		out = append(out, t)
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch c.Store.Driver {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters (or run with --dev)"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Maintenance.Interval <= 0 {
		errs = append(errs, errors.New("maintenance.interval must be positive"))
	}
	if c.Maintenance.SlowThreshold <= 0 {
		errs = append(errs, errors.New("maintenance.slow_threshold must be positive"))
	}
	if c.Maintenance.MaxConcurrentChecks <= 0 {
		errs = append(errs, errors.New("maintenance.max_concurrent_checks must be positive"))
	}
	for i, t := range c.Maintenance.Targets {
		if t.URL == "" {
			errs = append(errs, fmt.Errorf("maintenance.targets[%d]: url is required", i))
		}
	}
	if c.Subscriptions.CheckInterval <= 0 {
		errs = append(errs, errors.New("subscriptions.check_interval must be positive"))
	}
	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
