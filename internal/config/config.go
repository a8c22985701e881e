package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"e2gc/internal/export"
)

const (
	DefaultInput  = "termine.xlsx"
	DefaultListen = "127.0.0.1:8080"
	DefaultCron   = "*/15 * * * *"
)

// ColumnsConfig names the spreadsheet columns.
type ColumnsConfig struct {
	Date       string `yaml:"date" json:"date"`
	Time       string `yaml:"time" json:"time"`
	Module     string `yaml:"module" json:"module"`
	Instructor string `yaml:"instructor" json:"instructor"`
	// Description is optional; empty means "first column without a header".
	Description string `yaml:"description" json:"description"`
}

// CalendarConfig holds metadata written into .ics exports.
type CalendarConfig struct {
	Name      string `yaml:"name" json:"name"`
	ProductID string `yaml:"product_id" json:"product_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Input is the schedule spreadsheet used when no path is given on the
	// command line.
	Input string `yaml:"input" json:"input"`

	// OutputDir receives exports. Empty means next to the input file.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// DefaultFormat ("csv" or "ics", also "1", "2" or "ical") skips the interactive prompt when set.
	DefaultFormat string `yaml:"default_format" json:"default_format"`

	Columns  ColumnsConfig  `yaml:"columns" json:"columns"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`

	// Listen is the HTTP listen address used with -serve.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") on which
	// the server re-reads the input file.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input: DefaultInput,
		Columns: ColumnsConfig{
			Date:       "Datum",
			Time:       "Zeit",
			Module:     "Modul",
			Instructor: "Dozierender",
		},
		Calendar: CalendarConfig{
			Name: "Stundenplan",
		},
		Listen:      DefaultListen,
		RefreshCron: DefaultCron,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Input == "" {
		c.Input = def.Input
	}
	if c.Columns.Date == "" {
		c.Columns.Date = def.Columns.Date
	}
	if c.Columns.Time == "" {
		c.Columns.Time = def.Columns.Time
	}
	if c.Columns.Module == "" {
		c.Columns.Module = def.Columns.Module
	}
	// Instructor may not be blanked out; a schedule without that column
	// simply never matches it.
	if c.Columns.Instructor == "" {
		c.Columns.Instructor = def.Columns.Instructor
	}
	if c.DefaultFormat != "" {
		// Same spellings as the prompt and -format; unknown values fall
		// back to asking.
		f, _ := export.ParseFormat(c.DefaultFormat)
		c.DefaultFormat = string(f)
	}
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If path is empty, defaults are returned and nothing is written.
//   - If the file does not exist, a default config is written there (0600)
//     and returned.
//   - Otherwise YAML is read and unmarshaled.
//
// Environment overrides (see ApplyEnv) are applied next, and the result is
// normalized in every case.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		cfg.Normalize()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	return &cfg, nil
}

// envOverrides loads ./.env if present and collects E2GC_* variables.
// Variables already set in the process environment win over .env.
func envOverrides() map[string]string {
	_ = godotenv.Load()
	out := make(map[string]string)
	for _, key := range []string{"E2GC_INPUT", "E2GC_FORMAT", "E2GC_OUTPUT_DIR", "E2GC_LISTEN"} {
		if v := os.Getenv(key); v != "" {
			out[key] = v
		}
	}
	return out
}

// ApplyEnv overrides c with E2GC_* environment variables.
func (c *Config) ApplyEnv() {
	env := envOverrides()
	if v, ok := env["E2GC_INPUT"]; ok {
		c.Input = v
	}
	if v, ok := env["E2GC_FORMAT"]; ok {
		c.DefaultFormat = v
	}
	if v, ok := env["E2GC_OUTPUT_DIR"]; ok {
		c.OutputDir = v
	}
	if v, ok := env["E2GC_LISTEN"]; ok {
		c.Listen = v
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".e2gc-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
