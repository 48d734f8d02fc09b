package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"edge-tradesim/internal/money"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr" validate:"required"`
	DBDriver        string        `yaml:"db_driver" validate:"oneof=sqlite postgres"`
	DBDSN           string        `yaml:"db_dsn" validate:"required"`
	InternalToken   string        `yaml:"internal_api_token"`
	WebSocketOrigin string        `yaml:"ws_origin"`
	SettleInterval  time.Duration `yaml:"settle_interval" validate:"gt=0"`
	QuoteInterval   time.Duration `yaml:"quote_interval" validate:"gt=0"`
	MirrorURL       string        `yaml:"mirror_url" validate:"omitempty,url"`
	MirrorQueue     int           `yaml:"mirror_queue" validate:"gt=0"`
	DepositTTL      time.Duration `yaml:"deposit_ttl" validate:"gt=0"`
	WinEvery        int64         `yaml:"win_every" validate:"gt=0"`
	RateLimit       float64       `yaml:"rate_limit" validate:"gt=0"`
	RateBurst       float64       `yaml:"rate_burst" validate:"gte=1"`

	MinAmount     money.Money     `yaml:"-"`
	WinPayoutRate decimal.Decimal `yaml:"-"`
	DemoDeposit   money.Money     `yaml:"-"`
	DemoTrading   money.Money     `yaml:"-"`
}

// fileConfig carries the amount settings as strings so YAML and env share
// one parser.
type fileConfig struct {
	Config        `yaml:",inline"`
	MinAmount     string `yaml:"min_amount"`
	WinPayoutRate string `yaml:"win_payout_rate"`
	DemoDeposit   string `yaml:"demo_deposit"`
	DemoTrading   string `yaml:"demo_trading"`
}

func defaults() fileConfig {
	return fileConfig{
		Config: Config{
			HTTPAddr:        ":8080",
			DBDriver:        "sqlite",
			WebSocketOrigin: "*",
			SettleInterval:  time.Second,
			QuoteInterval:   1500 * time.Millisecond,
			MirrorQueue:     256,
			DepositTTL:      10 * time.Minute,
			WinEvery:        4,
			RateLimit:       10,
			RateBurst:       30,
		},
		MinAmount:     "10.00",
		WinPayoutRate: "0.8",
		DemoDeposit:   "10000.00",
		DemoTrading:   "10000.00",
	}
}

var validate = validator.New()

// Load reads .env (if present), then the YAML file named by CONFIG_FILE
// (if set), then the process environment; later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv)
}

func LoadFrom(getenv func(string) string) (Config, error) {
	fc := defaults()
	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, set func(string) error) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
			}
		}
	}

	str("HTTP_ADDR", &fc.HTTPAddr)
	str("DB_DRIVER", &fc.DBDriver)
	str("DB_DSN", &fc.DBDSN)
	str("INTERNAL_API_TOKEN", &fc.InternalToken)
	str("WS_ORIGIN", &fc.WebSocketOrigin)
	str("MIRROR_URL", &fc.MirrorURL)
	str("MIN_AMOUNT", &fc.MinAmount)
	str("WIN_PAYOUT_RATE", &fc.WinPayoutRate)
	str("DEMO_DEPOSIT", &fc.DemoDeposit)
	str("DEMO_TRADING", &fc.DemoTrading)
	dur("SETTLE_INTERVAL", &fc.SettleInterval)
	dur("QUOTE_INTERVAL", &fc.QuoteInterval)
	dur("DEPOSIT_TTL", &fc.DepositTTL)
	num("MIRROR_QUEUE", func(v string) (err error) { fc.MirrorQueue, err = strconv.Atoi(v); return })
	num("WIN_EVERY", func(v string) (err error) { fc.WinEvery, err = strconv.ParseInt(v, 10, 64); return })
	num("RATE_LIMIT", func(v string) (err error) { fc.RateLimit, err = strconv.ParseFloat(v, 64); return })
	num("RATE_BURST", func(v string) (err error) { fc.RateBurst, err = strconv.ParseFloat(v, 64); return })

	c := fc.Config
	c.DBDriver = strings.ToLower(c.DBDriver)
	if c.DBDSN == "" && c.DBDriver == "sqlite" {
		c.DBDSN = "edge.db"
	}

	amount := func(key, raw string, dst *money.Money) {
		m, err := money.Parse(raw)
		if err != nil || m.IsNegative() {
			errs = append(errs, fmt.Errorf("invalid %s: %q", key, raw))
			return
		}
		*dst = m
	}
	amount("MIN_AMOUNT", fc.MinAmount, &c.MinAmount)
	amount("DEMO_DEPOSIT", fc.DemoDeposit, &c.DemoDeposit)
	amount("DEMO_TRADING", fc.DemoTrading, &c.DemoTrading)
	rate, err := decimal.NewFromString(strings.TrimSpace(fc.WinPayoutRate))
	if err != nil || !rate.IsPositive() {
		errs = append(errs, fmt.Errorf("invalid WIN_PAYOUT_RATE: %q", fc.WinPayoutRate))
	}
	c.WinPayoutRate = rate

	if len(errs) > 0 {
		return c, errors.Join(errs...)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			var missing []string
			for _, fe := range verrs {
				missing = append(missing, fe.Field()+" "+fe.Tag())
			}
			return c, errors.New("invalid config: " + strings.Join(missing, ", "))
		}
		return c, err
	}
	return c, nil
}

// RequireServer checks the settings only the API server needs.
func (c Config) RequireServer() error {
	var missing []string
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	if len(missing) > 0 {
		return errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return nil
}
