package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Store        StoreConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
	Codes        CodesConfig
	Availability AvailabilityConfig
	Tickets      TicketsConfig
	SMTP         SMTPConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GOLFLOCKER_APP_ENV" required:"true"`
	Port         string `envconfig:"GOLFLOCKER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GOLFLOCKER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GOLFLOCKER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GOLFLOCKER_DB_DSN"`
	Driver string `envconfig:"GOLFLOCKER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GOLFLOCKER_DB_HOST"`
	LegacyPort     int    `envconfig:"GOLFLOCKER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GOLFLOCKER_DB_USER"`
	LegacyPassword string `envconfig:"GOLFLOCKER_DB_PASSWORD"`
	LegacyName     string `envconfig:"GOLFLOCKER_DB_NAME"`
	LegacySSLMode  string `envconfig:"GOLFLOCKER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GOLFLOCKER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GOLFLOCKER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GOLFLOCKER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOLFLOCKER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOLFLOCKER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GOLFLOCKER_REDIS_ADDR"`
	Password     string        `envconfig:"GOLFLOCKER_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOLFLOCKER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOLFLOCKER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GOLFLOCKER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GOLFLOCKER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOLFLOCKER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GOLFLOCKER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GOLFLOCKER_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GOLFLOCKER_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GOLFLOCKER_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GOLFLOCKER_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GOLFLOCKER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GOLFLOCKER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GOLFLOCKER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GOLFLOCKER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GOLFLOCKER_ARGON_KEY_LEN" default:"32"`
}

// StoreConfig identifies the shop on receipts and outbound mail.
type StoreConfig struct {
	Name      string `envconfig:"GOLFLOCKER_STORE_NAME" default:"Golf Locker"`
	FromEmail string `envconfig:"GOLFLOCKER_STORE_FROM_EMAIL" default:"kassa@golflocker.example"`
}

type CheckoutConfig struct {
	ReceiptPrefix string        `envconfig:"GOLFLOCKER_RECEIPT_PREFIX" default:"GL"`
	ReturnPrefix  string        `envconfig:"GOLFLOCKER_RETURN_PREFIX" default:"RT"`
	LockWait      time.Duration `envconfig:"GOLFLOCKER_CHECKOUT_LOCK_WAIT" default:"5s"`
	LockTTL       time.Duration `envconfig:"GOLFLOCKER_CHECKOUT_LOCK_TTL" default:"30s"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"GOLFLOCKER_CART_TTL" default:"30m"`
}

// CodesConfig covers discount and gift card sessions applied at the register.
type CodesConfig struct {
	SessionTTL     time.Duration `envconfig:"GOLFLOCKER_CODES_SESSION_TTL" default:"2h"`
	GiftCardPrefix string        `envconfig:"GOLFLOCKER_GIFTCARD_PREFIX" default:"GC"`
	GiftCardSKU    string        `envconfig:"GOLFLOCKER_GIFTCARD_SKU_PREFIX" default:"GIFTCARD"`
}

type AvailabilityConfig struct {
	IndexTTL time.Duration `envconfig:"GOLFLOCKER_AVAILABILITY_INDEX_TTL" default:"2h"`
}

// TicketsConfig configures the public receipt ticket links embedded in mail.
type TicketsConfig struct {
	BaseURL string `envconfig:"GOLFLOCKER_TICKET_BASE_URL" default:"https://tickets.golflocker.example"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GOLFLOCKER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type SMTPConfig struct {
	Host     string `envconfig:"GOLFLOCKER_SMTP_HOST"`
	Port     int    `envconfig:"GOLFLOCKER_SMTP_PORT" default:"587"`
	Username string `envconfig:"GOLFLOCKER_SMTP_USERNAME"`
	Password string `envconfig:"GOLFLOCKER_SMTP_PASSWORD"`
}

// Enabled reports whether outbound mail is configured at all.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GOLFLOCKER_AUTO_MIGRATE" default:"false"`
	SendMail    bool `envconfig:"GOLFLOCKER_SEND_MAIL" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
