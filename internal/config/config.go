// Package config loads the mailthread configuration from a YAML file, an
// optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hal9000y/mailthread/internal/extract"
	"github.com/hal9000y/mailthread/internal/textenc"
)

// Config is the root configuration. It is built once by the CLI and handed
// to the components that need it.
type Config struct {
	Data         DataConfig         `yaml:"data"`
	Extract      ExtractConfig      `yaml:"extract"`
	Presentation PresentationConfig `yaml:"presentation"`
	Server       ServerConfig       `yaml:"server"`
	Gmail        GmailConfig        `yaml:"gmail"`
	Log          LogConfig          `yaml:"log"`
}

// DataConfig locates raw input and the derived artifacts.
type DataConfig struct {
	Root              string   `yaml:"root"`
	RecordsFile       string   `yaml:"records_file"`
	RawDir            string   `yaml:"raw_dir"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	Encodings         []string `yaml:"encodings"`
	ThreadsFile       string   `yaml:"threads_file"`
	EdgesFile         string   `yaml:"edges_file"`
	SearchFile        string   `yaml:"search_file"`
}

// ExtractConfig configures the token extractors.
type ExtractConfig struct {
	Sites []string `yaml:"sites"`
}

// PresentationConfig controls what query results expose.
type PresentationConfig struct {
	MaskEmails bool `yaml:"mask_emails"`
	MaxResults int  `yaml:"max_results"`
}

// ServerConfig holds the serve command listeners.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Stdio    bool   `yaml:"stdio"`
}

// GmailConfig holds the Gmail ingestion settings. Client credentials come
// from the environment only.
type GmailConfig struct {
	TokenFile    string `yaml:"token_file"`
	OAuthURL     string `yaml:"oauth_url"`
	Query        string `yaml:"query"`
	MaxMessages  int64  `yaml:"max_messages"`
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Root:              "./data",
			RecordsFile:       "records.json",
			RawDir:            "raw",
			AllowedExtensions: []string{".eml"},
			Encodings:         append([]string(nil), textenc.DefaultFallbacks...),
			ThreadsFile:       "threads.json",
			EdgesFile:         "edges.csv",
			SearchFile:        "search.csv",
		},
		Extract: ExtractConfig{
			Sites: append([]string(nil), extract.DefaultSites...),
		},
		Presentation: PresentationConfig{
			MaskEmails: true,
			MaxResults: 50,
		},
		Server: ServerConfig{
			HTTPAddr: "localhost:8080",
		},
		Gmail: GmailConfig{
			TokenFile:   "./data/gmail-token.json",
			MaxMessages: 200,
		},
	}
}

// Load reads path over the defaults, then applies the environment. An
// envFile, when given, is loaded into the environment first. A missing
// config file is not an error.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("os.ReadFile failed: %w", err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("yaml.Unmarshal failed: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MAILTHREAD_DATA_ROOT"); v != "" {
		c.Data.Root = v
	}
	if v := os.Getenv("MAILTHREAD_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("MAILTHREAD_SITES"); v != "" {
		c.Extract.Sites = strings.Split(v, ",")
	}
	c.Gmail.ClientID = os.Getenv("OAUTH_GOOGLE_CLIENT_ID")
	c.Gmail.ClientSecret = os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Data.Root == "" {
		errs = append(errs, errors.New("data.root must be set"))
	}
	for name, v := range map[string]string{
		"data.threads_file": c.Data.ThreadsFile,
		"data.edges_file":   c.Data.EdgesFile,
		"data.search_file":  c.Data.SearchFile,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s must be set", name))
		}
	}
	if len(c.Extract.Sites) == 0 {
		errs = append(errs, errors.New("extract.sites must not be empty"))
	}
	if c.Presentation.MaxResults < 0 {
		errs = append(errs, errors.New("presentation.max_results must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// Path resolves name against the data root.
func (d DataConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.Root, name)
}

// AllowsExtension reports whether a raw file with this name is ingested.
func (d DataConfig) AllowsExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range d.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
