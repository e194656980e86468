package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	DB      DB      `yaml:"db"`
	Bot     Bot     `yaml:"bot"`
	Gateway Gateway `yaml:"gateway"`
	Server  Server  `yaml:"server"`
	Session Session `yaml:"session"`
	Trial   Trial   `yaml:"trial"`
	Notify  Notify  `yaml:"notify"`
	Plans   []Plan  `yaml:"plans"`
}

type Bot struct {
	// Company name shown in outbound messages
	CompanyName string `yaml:"company_name" example:"FlexTV"`
	// Bot persona name
	BotName string `yaml:"bot_name" example:"Mavie"`
	// PIX key used in payment instructions
	PixKey string `yaml:"pix_key" example:"00000000000"`
	// Merchant name used in payment instructions
	MerchantName string `yaml:"merchant_name" example:"IPTV Premium"`
}

type Gateway struct {
	// Base URL of the WhatsApp HTTP gateway
	BaseURL string `yaml:"base_url" example:"http://localhost:8081" validate:"required"`
	// Bearer token for the gateway API
	Token string `yaml:"token"`
}

type Server struct {
	// Listen address of the status HTTP server
	Addr string `yaml:"addr" example:":3000"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return oops.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Session struct {
	// Inactivity TTL after which a session is considered fresh
	TTL Duration `yaml:"ttl" example:"15m"`
	// Period of the background session sweep
	SweepEvery Duration `yaml:"sweep_every" example:"5m"`
}

type Trial struct {
	// How long a trial account stays active
	Duration Duration `yaml:"duration" example:"4h"`
	// Offset after expiry at which the follow-up becomes due
	FollowUpOffset Duration `yaml:"follow_up_offset" example:"2h"`
	// Prefix of generated trial usernames
	UsernamePrefix string `yaml:"username_prefix" example:"test"`
	// IPTV server URL sent with trial credentials
	ServerURL string `yaml:"server_url" example:"http://seu-servidor-iptv.com"`
	// IPTV server port sent with trial credentials
	Port string `yaml:"port" example:"8080"`
}

type Notify struct {
	// Period of the trial expiry sweep
	ExpiryEvery Duration `yaml:"expiry_every" example:"1h"`
	// Local hours of day at which the follow-up sweep fires
	FollowUpHours []int `yaml:"follow_up_hours" example:"[10, 18]" validate:"dive,gte=0,lte=23"`
	// Follow-ups cover trials expired within this window
	FollowUpWindow Duration `yaml:"follow_up_window" example:"24h"`
	// Delay between consecutive outbound notifications
	SendDelay Duration `yaml:"send_delay" example:"3s"`
	// Local hour of day at which the renewal reminder sweep fires
	RenewalHour int `yaml:"renewal_hour" example:"9" validate:"gte=0,lte=23"`
	// Subscriptions ending within this horizon get a renewal reminder
	RenewalHorizon Duration `yaml:"renewal_horizon" example:"72h"`
}

type Plan struct {
	// Plan display name
	Name string `yaml:"name" validate:"required"`
	// Monthly price in BRL
	Price float64 `yaml:"price" validate:"required"`
	// Approximate channel count
	Channels int `yaml:"channels"`
	// Stream quality description
	Quality string `yaml:"quality"`
	// Short plan description
	Description string `yaml:"description"`
	// Simultaneous devices, 0 when unspecified
	Devices int `yaml:"devices"`
	// Highlighted in the plan list
	Recommended bool `yaml:"recommended"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type DB struct {
	// Driver: memory, sqlite or postgres
	Driver string `yaml:"driver" example:"sqlite" validate:"omitempty,oneof=memory sqlite postgres"`
	// Sqlite database file path
	Path string `yaml:"path" example:"data/bot.db"`
	// Postgres username
	User string `yaml:"user" example:"postgres"`
	// Postgres password
	Pass string `yaml:"pass"`
	// Postgres host
	Host string `yaml:"host" example:"localhost:5432"`
	// Postgres database name
	Database string `yaml:"database" example:"iptvbot"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.ApplyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

// ApplyDefaults fills every unset field with its production default.
func (c *Config) ApplyDefaults() {
	if c.Bot.CompanyName == "" {
		c.Bot.CompanyName = "FlexTV"
	}
	if c.Bot.BotName == "" {
		c.Bot.BotName = "Mavie"
	}
	if c.Bot.MerchantName == "" {
		c.Bot.MerchantName = "IPTV Premium"
	}
	if c.Bot.PixKey == "" {
		c.Bot.PixKey = "00000000000"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}

	if c.Session.TTL == 0 {
		c.Session.TTL = Duration(15 * time.Minute)
	}
	if c.Session.SweepEvery == 0 {
		c.Session.SweepEvery = Duration(5 * time.Minute)
	}

	if c.Trial.Duration == 0 {
		c.Trial.Duration = Duration(4 * time.Hour)
	}
	if c.Trial.FollowUpOffset == 0 {
		c.Trial.FollowUpOffset = Duration(2 * time.Hour)
	}
	if c.Trial.UsernamePrefix == "" {
		c.Trial.UsernamePrefix = "test"
	}
	if c.Trial.ServerURL == "" {
		c.Trial.ServerURL = "http://seu-servidor-iptv.com"
	}
	if c.Trial.Port == "" {
		c.Trial.Port = "8080"
	}

	if c.Notify.ExpiryEvery == 0 {
		c.Notify.ExpiryEvery = Duration(time.Hour)
	}
	if len(c.Notify.FollowUpHours) == 0 {
		c.Notify.FollowUpHours = []int{10, 18}
	}
	if c.Notify.FollowUpWindow == 0 {
		c.Notify.FollowUpWindow = Duration(24 * time.Hour)
	}
	if c.Notify.SendDelay == 0 {
		c.Notify.SendDelay = Duration(3 * time.Second)
	}
	if c.Notify.RenewalHour == 0 {
		c.Notify.RenewalHour = 9
	}
	if c.Notify.RenewalHorizon == 0 {
		c.Notify.RenewalHorizon = Duration(72 * time.Hour)
	}

	if c.DB.Driver == "postgres" {
		if c.DB.User == "" {
			c.DB.User = "postgres"
		}
		if c.DB.Pass == "" {
			c.DB.Pass = "postgres"
		}
		if c.DB.Host == "" {
			c.DB.Host = "localhost:5432"
		}
		if c.DB.Database == "" {
			c.DB.Database = "iptvbot"
		}
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "data/bot.db"
	}

	if len(c.Plans) == 0 {
		c.Plans = DefaultPlans()
	}
}

// DefaultPlans is the catalogue offered when the config does not override it.
func DefaultPlans() []Plan {
	return []Plan{
		{
			Name:        "Plano Slim",
			Price:       19.90,
			Channels:    1000,
			Quality:     "SD e HD",
			Description: "Apenas canais, sem filmes ou séries",
		},
		{
			Name:        "Plano Gold",
			Price:       22.90,
			Channels:    4000,
			Quality:     "Full HD",
			Description: "Você escolhe, canais e séries, ou canais e filmes",
			Recommended: true,
		},
		{
			Name:        "Plano Platinum",
			Price:       28.90,
			Channels:    5000,
			Quality:     "FullHD + 4K",
			Description: "Canais, filmes, séries e novelas",
		},
		{
			Name:        "Plano Diamond",
			Price:       29.90,
			Channels:    6000,
			Quality:     "HD/FullHD + 4K",
			Description: "Canais, filmes, séries e novelas + canais adultos",
			Devices:     4,
		},
	}
}
