package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	OTP           OTPConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	SMTP          SMTPConfig
	Reminder      ReminderConfig
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
	Env          string `envconfig:"KIOSK_APP_ENV" required:"true"`
	Port         string `envconfig:"KIOSK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KIOSK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIOSK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KIOSK_DB_DSN"`
	Driver string `envconfig:"KIOSK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KIOSK_DB_HOST"`
	LegacyPort     int    `envconfig:"KIOSK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KIOSK_DB_USER"`
	LegacyPassword string `envconfig:"KIOSK_DB_PASSWORD"`
	LegacyName     string `envconfig:"KIOSK_DB_NAME"`
	LegacySSLMode  string `envconfig:"KIOSK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIOSK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIOSK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIOSK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIOSK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KIOSK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KIOSK_REDIS_ADDR"`
	Password     string        `envconfig:"KIOSK_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIOSK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIOSK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIOSK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIOSK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIOSK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIOSK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"KIOSK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"KIOSK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"KIOSK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"KIOSK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KIOSK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KIOSK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KIOSK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KIOSK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KIOSK_ARGON_KEY_LEN" default:"32"`
}

type OTPConfig struct {
	ExpiryMinutes int `envconfig:"KIOSK_OTP_EXPIRY_MINUTES" default:"10"`
	Digits        int `envconfig:"KIOSK_OTP_DIGITS" default:"6"`
}

// Expiry returns the OTP validity window.
func (o OTPConfig) Expiry() time.Duration {
	if o.ExpiryMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(o.ExpiryMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"KIOSK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"KIOSK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"KIOSK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OTPWindow       time.Duration `envconfig:"KIOSK_AUTH_RATE_LIMIT_OTP_WINDOW" default:"5m"`
	OTPEmailLimit   int           `envconfig:"KIOSK_AUTH_RATE_LIMIT_OTP_EMAIL_LIMIT" default:"3"`
	OTPIPLimit      int           `envconfig:"KIOSK_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KIOSK_AUTO_MIGRATE" default:"false"`
}

type SMTPConfig struct {
	Host     string `envconfig:"KIOSK_SMTP_HOST"`
	Port     int    `envconfig:"KIOSK_SMTP_PORT" default:"587"`
	Username string `envconfig:"KIOSK_SMTP_USERNAME"`
	Password string `envconfig:"KIOSK_SMTP_PASSWORD"`
	From     string `envconfig:"KIOSK_SMTP_FROM" default:"kiosk@localhost"`
}

// Addr returns the host:port dial target for the SMTP relay.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Enabled reports whether outbound mail is configured at all.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type ReminderConfig struct {
	BatchSize    int           `envconfig:"KIOSK_REMINDER_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"KIOSK_REMINDER_POLL_INTERVAL" default:"5s"`
	MaxAttempts  int           `envconfig:"KIOSK_REMINDER_MAX_ATTEMPTS" default:"10"`
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
