package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// SeedKey is one application registered from API_KEYS at boot.
type SeedKey struct {
	AppID   string
	APIKey  string
	OwnerID string
}

// Config contains runtime configuration required by the service.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"`

	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DBURL         string        `env:"DB_URL"`
	MongoURI      string        `env:"MONGO_URI"`
	MongoDatabase string        `env:"MONGO_DATABASE" envDefault:"analytics"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	RedisURL       string        `env:"REDIS_URL"`
	APIKeyCacheTTL time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`

	IngestRateLimit float64 `env:"INGEST_RATE_LIMIT" envDefault:"0"` // events/sec per app, 0 = off
	IngestBurst     int     `env:"INGEST_BURST" envDefault:"50"`

	APIKeysRaw string        `env:"API_KEYS"`
	APIKeyTTL  time.Duration `env:"API_KEY_TTL" envDefault:"8760h"`

	APIKeys []SeedKey `env:"-"`
}

// Load reads configuration from the environment, after a best-effort .env load.
// API_KEYS format: "app:key[:owner],app:key[:owner]"
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(cfg.DBURL) == "" {
			return Config{}, errors.New("DB_URL required")
		}
	case DriverMongo:
		if strings.TrimSpace(cfg.MongoURI) == "" {
			return Config{}, errors.New("MONGO_URI required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.IngestRateLimit < 0 {
		return Config{}, errors.New("INGEST_RATE_LIMIT must be >= 0")
	}
	if cfg.IngestRateLimit > 0 && cfg.IngestBurst < 1 {
		return Config{}, errors.New("INGEST_BURST must be >= 1")
	}

	keys, err := parseAPIKeys(cfg.APIKeysRaw)
	if err != nil {
		return Config{}, err
	}

	// Local dev fallback so the in-memory service runs out-of-the-box.
	if len(keys) == 0 && cfg.StoreDriver == DriverMemory {
		keys = []SeedKey{{AppID: "tenant1", APIKey: "tenant-key-123", OwnerID: "local"}}
	}
	cfg.APIKeys = keys

	return cfg, nil
}

func parseAPIKeys(raw string) ([]SeedKey, error) {
	const format = `API_KEYS must be "app:key[:owner],app:key[:owner]"`

	var keys []SeedKey
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 3)
		if len(parts) < 2 {
			return nil, errors.New(format)
		}
		k := SeedKey{
			AppID:   strings.TrimSpace(parts[0]),
			APIKey:  strings.TrimSpace(parts[1]),
			OwnerID: "local",
		}
		if len(parts) == 3 {
			k.OwnerID = strings.TrimSpace(parts[2])
		}
		if k.AppID == "" || k.APIKey == "" || k.OwnerID == "" {
			return nil, errors.New(format)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
