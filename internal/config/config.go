package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"WhiskeyIndex/internal/matching"
)

const (
	configPathEnv     = "WHISKEYINDEX_CONFIG"
	datasetPathEnv    = "WHISKEYINDEX_DATASET"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Dataset       DatasetConfig      `yaml:"dataset"`
	Registry      RegistryConfig     `yaml:"registry"`
	Matching      MatchingConfig     `yaml:"matching"`
	Products      ProductsConfig     `yaml:"products"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatasetConfig points at the curated CSV file.
type DatasetConfig struct {
	Path             string `yaml:"path"`
	IdentifierColumn string `yaml:"identifierColumn"`
}

// RegistryConfig describes how the COLA public registry is contacted.
type RegistryConfig struct {
	SearchURL  string        `yaml:"searchUrl"`
	DetailsURL string        `yaml:"detailsUrl"`
	UserAgent  string        `yaml:"userAgent"`
	Timeout    time.Duration `yaml:"timeout"`
	// Delay is the courtesy pause between two registry requests.
	Delay        time.Duration `yaml:"delay"`
	MaxPages     int           `yaml:"maxPages"`
	FetchDetails *bool         `yaml:"fetchDetails"`
}

// DetailsEnabled reports whether detail pages are fetched for proofs.
func (r RegistryConfig) DetailsEnabled() bool {
	return r.FetchDetails == nil || *r.FetchDetails
}

// MatchingConfig mirrors matching.Policy in YAML form.
type MatchingConfig struct {
	YearWindow          int                    `yaml:"yearWindow"`
	ProofWindow         float64                `yaml:"proofWindow"`
	ExactProofTolerance float64                `yaml:"exactProofTolerance"`
	MaxProofSpread      float64                `yaml:"maxProofSpread"`
	ClassCodes          map[string]ClassConfig `yaml:"classCodes"`
	ClampedFallback     *bool                  `yaml:"clampedFallback"`
}

// ClassConfig is an inclusive class/type code range.
type ClassConfig struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Policy converts the YAML settings to the matching policy.
func (m MatchingConfig) Policy() matching.Policy {
	p := matching.Policy{
		YearWindow:          m.YearWindow,
		ProofWindow:         m.ProofWindow,
		ExactProofTolerance: m.ExactProofTolerance,
		MaxProofSpread:      m.MaxProofSpread,
		ClassCodes:          make(map[string]matching.ClassRange, len(m.ClassCodes)),
		ClampedFallback:     m.ClampedFallback == nil || *m.ClampedFallback,
	}
	for keyword, r := range m.ClassCodes {
		to := r.To
		if to == 0 {
			to = r.From
		}
		p.ClassCodes[keyword] = matching.ClassRange{From: r.From, To: to}
	}
	return p
}

// ProductsConfig maps dataset product names to registry search terms.
type ProductsConfig struct {
	Aliases map[string]string `yaml:"aliases"`
	Exclude []string          `yaml:"exclude"`
}

// DatabaseConfig describes the candidate cache / decision ledger.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// Enabled reports whether review digests can be delivered.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to WHISKEYINDEX_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(datasetPathEnv); v != "" {
		c.Dataset.Path = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Dataset.Path != "" {
		base.Dataset.Path = override.Dataset.Path
	}
	if override.Dataset.IdentifierColumn != "" {
		base.Dataset.IdentifierColumn = override.Dataset.IdentifierColumn
	}

	if override.Registry.SearchURL != "" {
		base.Registry.SearchURL = override.Registry.SearchURL
	}
	if override.Registry.DetailsURL != "" {
		base.Registry.DetailsURL = override.Registry.DetailsURL
	}
	if override.Registry.UserAgent != "" {
		base.Registry.UserAgent = override.Registry.UserAgent
	}
	if override.Registry.Timeout > 0 {
		base.Registry.Timeout = override.Registry.Timeout
	}
	if override.Registry.Delay > 0 {
		base.Registry.Delay = override.Registry.Delay
	}
	if override.Registry.MaxPages > 0 {
		base.Registry.MaxPages = override.Registry.MaxPages
	}
	if override.Registry.FetchDetails != nil {
		base.Registry.FetchDetails = override.Registry.FetchDetails
	}

	if override.Matching.YearWindow > 0 {
		base.Matching.YearWindow = override.Matching.YearWindow
	}
	if override.Matching.ProofWindow > 0 {
		base.Matching.ProofWindow = override.Matching.ProofWindow
	}
	if override.Matching.ExactProofTolerance > 0 {
		base.Matching.ExactProofTolerance = override.Matching.ExactProofTolerance
	}
	if override.Matching.MaxProofSpread > 0 {
		base.Matching.MaxProofSpread = override.Matching.MaxProofSpread
	}
	if len(override.Matching.ClassCodes) > 0 {
		base.Matching.ClassCodes = override.Matching.ClassCodes
	}
	if override.Matching.ClampedFallback != nil {
		base.Matching.ClampedFallback = override.Matching.ClampedFallback
	}

	if len(override.Products.Aliases) > 0 {
		base.Products.Aliases = override.Products.Aliases
	}
	if len(override.Products.Exclude) > 0 {
		base.Products.Exclude = override.Products.Exclude
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIURL != "" {
		base.Notifications.Telegram.APIURL = override.Notifications.Telegram.APIURL
	}

	return base
}

func defaultConfig() Config {
	policy := matching.DefaultPolicy()
	classes := make(map[string]ClassConfig, len(policy.ClassCodes))
	for keyword, r := range policy.ClassCodes {
		classes[keyword] = ClassConfig{From: r.From, To: r.To}
	}
	clamped := policy.ClampedFallback

	return Config{
		Logging: LoggingConfig{Level: "info"},
		Dataset: DatasetConfig{Path: "_data/whiskeyindex.csv", IdentifierColumn: "TTB_ID"},
		Registry: RegistryConfig{
			SearchURL:  "https://www.ttbonline.gov/colasonline/publicSearchColasBasicProcess.do?action=search",
			DetailsURL: "https://www.ttbonline.gov/colasonline/viewColaDetails.do?action=publicFormDisplay",
			UserAgent:  "WhiskeyIndex/1.0",
			Timeout:    30 * time.Second,
			Delay:      2 * time.Second,
			MaxPages:   5,
		},
		Matching: MatchingConfig{
			YearWindow:          policy.YearWindow,
			ProofWindow:         policy.ProofWindow,
			ExactProofTolerance: policy.ExactProofTolerance,
			MaxProofSpread:      policy.MaxProofSpread,
			ClassCodes:          classes,
			ClampedFallback:     &clamped,
		},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "_data/ttb_ledger.sqlite"},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
	}
}
