package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://settlement.db"`

	Moneroo Moneroo `envPrefix:"MONEROO_"`
	Ledger  Ledger  `envPrefix:"LEDGER_"`
	Redis   Redis   `envPrefix:"REDIS_"`
	Auth    Auth    `envPrefix:"AUTH_"`
}

type Moneroo struct {
	BaseApiURL      string        `env:"BASE_API_URL" envDefault:"https://api.moneroo.io"`
	SecretKey       string        `env:"SECRET_KEY"`
	WebhookSecret   string        `env:"WEBHOOK_SECRET"`
	SignatureHeader string        `env:"SIGNATURE_HEADER" envDefault:"X-Moneroo-Signature"`
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Ledger holds the settlement rules. Amounts are minor units.
type Ledger struct {
	MinimumAmount     int64         `env:"MINIMUM_AMOUNT" envDefault:"200"`
	DefaultFeePercent float64       `env:"DEFAULT_FEE_PERCENT" envDefault:"5"`
	DefaultCurrency   string        `env:"DEFAULT_CURRENCY" envDefault:"XOF"`
	Timezone          string        `env:"TIMEZONE" envDefault:"UTC"`
	PayoutTimeout     time.Duration `env:"PAYOUT_TIMEOUT" envDefault:"15s"`
	StalePayoutAfter  time.Duration `env:"STALE_PAYOUT_AFTER" envDefault:"24h"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
}

type Redis struct {
	URL           string `env:"URL"`
	ChannelPrefix string `env:"CHANNEL_PREFIX" envDefault:"ledger"`
}

// Auth switches seller routes from the gateway X-User-Id header to signed
// bearer tokens when JWTSecret is set.
type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

// Location resolves the time zone used for daily and monthly stats windows.
func (l Ledger) Location() *time.Location {
	if l.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
