package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const DefaultFile = "oddscrawler.toml"

type Config struct {
	Tracker    TrackerConfig    `toml:"tracker"`
	Google     GoogleConfig     `toml:"google"`
	Database   DatabaseConfig   `toml:"database"`
	Browser    BrowserConfig    `toml:"browser"`
	Session    SessionConfig    `toml:"session"`
	Data       DataConfig       `toml:"data"`
	Oddsportal OddsportalConfig `toml:"oddsportal"`
	Opta       OptaConfig       `toml:"opta"`
}

// TrackerConfig selects where scrape progress is kept.
type TrackerConfig struct {
	Backend string `toml:"backend" validate:"oneof=sheets postgres sqlite"`
	// Worksheet indexes inside the spreadsheet.
	OptaSheet       int    `toml:"opta_sheet" validate:"gte=0"`
	QualifierSheet  int    `toml:"qualifier_sheet" validate:"gte=0"`
	OddsportalSheet int    `toml:"oddsportal_sheet" validate:"gte=0"`
	SQLitePath      string `toml:"sqlite_path"`
}

type GoogleConfig struct {
	CredentialsFile string  `toml:"credentials_file"`
	SpreadsheetID   string  `toml:"spreadsheet_id"`
	DriveFolderID   string  `toml:"drive_folder_id"`
	RequestsPerSec  float64 `toml:"requests_per_second" validate:"gt=0"`
	Burst           int     `toml:"burst" validate:"gte=1"`
}

type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

type BrowserConfig struct {
	Headless  bool   `toml:"headless"`
	ExecPath  string `toml:"exec_path"`
	UserAgent string `toml:"user_agent"`
	Width     int    `toml:"width" validate:"gt=0"`
	Height    int    `toml:"height" validate:"gt=0"`
}

// SessionConfig drives the scraping loop.
type SessionConfig struct {
	BatchMin      int      `toml:"batch_min" validate:"gte=1"`
	BatchMax      int      `toml:"batch_max" validate:"gtefield=BatchMin"`
	MaxSuspicions int      `toml:"max_suspicions" validate:"gte=1"`
	WaitTimeout   Duration `toml:"wait_timeout"`
	BackoffMin    Duration `toml:"backoff_min"`
	BackoffMax    Duration `toml:"backoff_max"`
	DelayMin      Duration `toml:"delay_min"`
	DelayMax      Duration `toml:"delay_max"`
	PageLoad      Duration `toml:"page_load"`
}

type DataConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

func (d DataConfig) OddsportalHTML() string { return filepath.Join(d.Dir, "html", "odds_portal") }
func (d DataConfig) OptaHTML() string       { return filepath.Join(d.Dir, "html") }
func (d DataConfig) ScrapingLogs() string   { return filepath.Join(d.Dir, "scraping_logs") }
func (d DataConfig) OddsCSV() string {
	return filepath.Join(d.Dir, "oddsportal", "oddsportal_ah_data.csv")
}
func (d DataConfig) FixturesCSV() string { return filepath.Join(d.Dir, "all_match_data.csv") }

type Competition struct {
	Name string `toml:"name" validate:"required"`
	Path string `toml:"path"`
}

type OddsportalConfig struct {
	BaseURL      string        `toml:"base_url" validate:"url"`
	Season       string        `toml:"season" validate:"required"`
	Competitions []Competition `toml:"competitions" validate:"dive"`
}

type OptaConfig struct {
	BaseURL      string   `toml:"base_url" validate:"url"`
	Season       string   `toml:"season" validate:"required"`
	Competitions []string `toml:"competitions" validate:"min=1"`
	Qualifiers   []string `toml:"qualifiers"`
	Stages       []string `toml:"stages"`
}

// Duration reads "10s" style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Backend:         "sheets",
			OptaSheet:       0,
			QualifierSheet:  1,
			OddsportalSheet: 2,
			SQLitePath:      "data/tracking.db",
		},
		Google: GoogleConfig{
			RequestsPerSec: 1,
			Burst:          5,
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "5432",
		},
		Browser: BrowserConfig{
			Headless:  true,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
			Width:     1920,
			Height:    1080,
		},
		Session: SessionConfig{
			BatchMin:      20,
			BatchMax:      40,
			MaxSuspicions: 3,
			WaitTimeout:   Duration{10 * time.Second},
			BackoffMin:    Duration{8 * time.Second},
			BackoffMax:    Duration{15 * time.Second},
			DelayMin:      Duration{500 * time.Millisecond},
			DelayMax:      Duration{1250 * time.Millisecond},
			PageLoad:      Duration{5 * time.Second},
		},
		Data: DataConfig{Dir: "data"},
		Oddsportal: OddsportalConfig{
			BaseURL: "https://www.oddsportal.com",
			Season:  "2024-2025",
			Competitions: []Competition{
				{Name: "Premier League", Path: "/football/england/premier-league"},
				{Name: "Bundesliga", Path: "/football/germany/bundesliga"},
				{Name: "Primera División", Path: "/football/spain/laliga"},
				{Name: "Ligue 1", Path: "/football/france/ligue-1"},
				{Name: "Serie A", Path: "/football/italy/serie-a"},
				{Name: "UEFA Champions League", Path: "/football/europe/champions-league"},
				{Name: "UEFA Europa League", Path: "/football/europe/europa-league"},
			},
		},
		Opta: OptaConfig{
			BaseURL: "https://optaplayerstats.statsperform.com/en_GB/soccer/competitions",
			Season:  "2024/2025",
			Competitions: []string{
				"Premier League", "Bundesliga", "Primera División", "Ligue 1",
				"Serie A", "UEFA Champions League", "UEFA Europa League",
			},
			Qualifiers: []string{"UEFA Champions League", "UEFA Europa League"},
			Stages:     []string{"Play-offs", "3rd Qualifying Round", "2nd Qualifying Round", "1st Qualifying Round"},
		},
	}
}

// Load builds the configuration: defaults, then the TOML file (when it
// exists), then the .env file and the process environment. A missing
// file is only an error when it was asked for explicitly.
func Load(path, envPath string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	if b, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg, envPath); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, envPath string) error {
	if envPath == "" {
		envPath = ".env"
	}
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envPath, err)
	}

	if v, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok && v != "" {
		// relative credential paths are relative to the .env file
		if !filepath.IsAbs(v) {
			v = filepath.Join(filepath.Dir(envPath), v)
		}
		cfg.Google.CredentialsFile = v
	}

	lookup := map[string]*string{
		"SPREADSHEET_ID":  &cfg.Google.SpreadsheetID,
		"DRIVE_FOLDER_ID": &cfg.Google.DriveFolderID,
		"TRACKER_BACKEND": &cfg.Tracker.Backend,
		"SQLITE_PATH":     &cfg.Tracker.SQLitePath,
		"DATA_DIR":        &cfg.Data.Dir,
		"CHROME_PATH":     &cfg.Browser.ExecPath,
		"DB_HOST":         &cfg.Database.Host,
		"DB_PORT":         &cfg.Database.Port,
		"DB_USER":         &cfg.Database.User,
		"DB_PASS":         &cfg.Database.Password,
		"DB":              &cfg.Database.Name,
	}
	for key, dst := range lookup {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("HEADLESS"); ok && v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HEADLESS: %w", err)
		}
		cfg.Browser.Headless = headless
	}

	return nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s := cfg.Session
	if s.WaitTimeout.Duration <= 0 {
		return fmt.Errorf("invalid configuration: session.wait_timeout must be positive")
	}
	if s.BackoffMin.Duration < 0 || s.BackoffMax.Duration < s.BackoffMin.Duration {
		return fmt.Errorf("invalid configuration: session backoff range %s..%s", s.BackoffMin, s.BackoffMax)
	}
	if s.DelayMin.Duration < 0 || s.DelayMax.Duration < s.DelayMin.Duration {
		return fmt.Errorf("invalid configuration: session delay range %s..%s", s.DelayMin, s.DelayMax)
	}
	return nil
}

// RequireSheets is checked by the commands that talk to Google.
func (c *Config) RequireSheets() error {
	if c.Google.CredentialsFile == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is not set")
	}
	if c.Google.SpreadsheetID == "" {
		return fmt.Errorf("SPREADSHEET_ID is not set")
	}
	return nil
}
