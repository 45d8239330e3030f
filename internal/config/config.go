// Package config loads the server's settings.
//
// LOAD ORDER (later steps win):
//  1. Built-in defaults (Default)
//  2. A .env file in the working directory, if there is one
//  3. A YAML file named by MOVIELOG_CONFIG, if set
//  4. Environment variables: PORT, DB_PATH, SEED_CSV, LOG_LEVEL, CSRF_KEY,
//     CSRF_SECURE
//
// godotenv never overwrites a variable that is already set, so a real
// environment variable always beats the same key in .env.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding the YAML config path.
const FileEnv = "MOVIELOG_CONFIG"

// Config holds everything main needs to build the server.
type Config struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"dbPath"`
	SeedCSV  string `yaml:"seedCSV"`
	LogLevel string `yaml:"logLevel"`

	// CSRFKey is a hex-encoded 32-byte key. CSRF protection is off when empty.
	CSRFKey string `yaml:"csrfKey"`
	// CSRFSecure marks the CSRF cookie Secure. Leave it off when serving
	// plain HTTP, or browsers will drop the cookie.
	CSRFSecure bool `yaml:"csrfSecure"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:     5001,
		DBPath:   "data/movielog.db",
		SeedCSV:  "data/demo_data.csv",
		LogLevel: "info",
	}
}

// Load builds a Config from defaults, .env, the optional YAML file and the
// environment, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile decodes a YAML file over cfg. Keys missing from the file keep
// their current values.
func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// An empty file decodes as io.EOF and changes nothing.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v) // Atoi = ASCII to Integer
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		c.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SEED_CSV"); v != "" {
		c.SeedCSV = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CSRF_KEY"); v != "" {
		c.CSRFKey = v
	}
	if v := os.Getenv("CSRF_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid CSRF_SECURE %q", v)
		}
		c.CSRFSecure = secure
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: database path is empty")
	}
	if strings.TrimSpace(c.SeedCSV) == "" {
		return errors.New("config: seed CSV path is empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.CSRFAuthKey(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// CSRFAuthKey decodes CSRFKey. It returns nil when CSRF protection is off.
func (c Config) CSRFAuthKey() ([]byte, error) {
	if c.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, errors.New("config: CSRF key must be 64 hex characters (32 bytes)")
	}
	return key, nil
}
