package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/constants"
)

type Application struct {
	Env            string   `mapstructure:"env"             json:"env"             validate:"required,oneof=development staging production test"`
	Host           string   `mapstructure:"host"            json:"host"`
	LogDir         string   `mapstructure:"log_dir"         json:"log_dir"`
	SecretKey      string   `mapstructure:"secret_key"      json:"-"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
	Port           int      `mapstructure:"port"            json:"port"            validate:"gte=0,lte=65535"`
}

type Mongo struct {
	URI        string `mapstructure:"uri"        json:"-"`
	Name       string `mapstructure:"name"       json:"name"`
	Collection string `mapstructure:"collection" json:"collection"`
}

type Postgres struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Database struct {
	Driver       string        `mapstructure:"driver"        json:"driver"        validate:"required,oneof=mongo postgres"`
	Mongo        Mongo         `mapstructure:"mongo"         json:"mongo"`
	Postgres     Postgres      `mapstructure:"postgres"      json:"postgres"`
	PingInterval time.Duration `mapstructure:"ping_interval" json:"ping_interval" validate:"gt=0"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
	Enabled  bool   `mapstructure:"enabled"  json:"enabled"`
}

type Otel struct {
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

type Breaker struct {
	Interval     time.Duration `mapstructure:"interval"      json:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"       json:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio" json:"failure_ratio" validate:"gt=0,lte=1"`
	MaxRequests  uint32        `mapstructure:"max_requests"  json:"max_requests"`
	MinRequests  uint32        `mapstructure:"min_requests"  json:"min_requests"`
}

type Storefront struct {
	OrderURL       string        `mapstructure:"order_url"       json:"order_url"       validate:"required,url"`
	ShareNumber    string        `mapstructure:"share_number"    json:"share_number"`
	Session        string        `mapstructure:"session"         json:"session"`
	Store          string        `mapstructure:"store"           json:"store"           validate:"required,oneof=file redis memory"`
	StorePath      string        `mapstructure:"store_path"      json:"store_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Breaker     `mapstructure:"breaker"     json:"breaker"`
	Storefront  `mapstructure:"storefront"  json:"storefront"`
}

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "development")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 3000)
	v.SetDefault("application.log_dir", "/var/log")
	v.SetDefault("application.secret_key", "")
	v.SetDefault("application.allowed_origins", []string{"*"})

	v.SetDefault("db.driver", "mongo")
	v.SetDefault("db.ping_interval", 5*time.Second)
	v.SetDefault("db.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("db.mongo.name", "storefront")
	v.SetDefault("db.mongo.collection", "orders")
	v.SetDefault("db.postgres.host", "localhost")
	v.SetDefault("db.postgres.port", 5432)
	v.SetDefault("db.postgres.username", "postgres")
	v.SetDefault("db.postgres.password", "postgres")
	v.SetDefault("db.postgres.name", "storefront")
	v.SetDefault("db.postgres.migration_path", "file://order/migrations")
	v.SetDefault("db.postgres.max_connections", 10)
	v.SetDefault("db.postgres.min_connections", 1)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.database", 0)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)

	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.min_requests", 3)
	v.SetDefault("breaker.interval", 15*time.Second)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.failure_ratio", 0.6)

	v.SetDefault("storefront.order_url", "http://localhost:3000/order")
	v.SetDefault("storefront.share_number", "")
	v.SetDefault("storefront.session", "default")
	v.SetDefault("storefront.store", "file")
	v.SetDefault("storefront.store_path", ".storefront/storage.json")
	v.SetDefault("storefront.request_timeout", 30*time.Second)
}

// Load reads <dir>/<filename>.yaml on top of the defaults. A missing file is not an error;
// every key can also be set through the environment, e.g. DB_MONGO_URI.
func Load(c context.Context, dir string, filename string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "config Load").
		Str(constants.KEY_PROCESS, "loading config").
		Str("filename", filename).
		Logger()

	logger.Debug().Msg("loading .env")
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("failed loading .env with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger.Info().Msg("reading config")
	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			err = fmt.Errorf("failed reading config with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Warn().Msg("config file not found, using defaults and environment")
	}
	logger.Info().Msg("read config")

	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err = v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("failed unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("unmarshaled config")

	logger.Info().Msg("validating config")
	if err = validator.New().StructCtx(c, cfg); err != nil {
		err = fmt.Errorf("failed validating config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Any(constants.KEY_CONFIG, cfg).Msg("validated config")

	return &cfg, nil
}

// Get loads the config once per process and exits on failure.
func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg, err := Load(c, "./env", filename)
		if err != nil {
			zerolog.Ctx(c).Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
	})
	return config
}
