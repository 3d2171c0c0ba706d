// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	SMAP_API_URL        = "SMAP_API_URL"
	SMAP_AOI_DIR        = "SMAP_AOI_DIR"
	SMAP_OUTPUT_DIR     = "SMAP_OUTPUT_DIR"
	SMAP_PRODUCT_FOLDER = "SMAP_PRODUCT_FOLDER"
	SMAP_POLL_INTERVAL  = "SMAP_POLL_INTERVAL"
	SMAP_FILE_SUFFIXES  = "SMAP_FILE_SUFFIXES"
	SMAP_RATE_LIMIT     = "SMAP_RATE_LIMIT"
	SMAP_RATE_BURST     = "SMAP_RATE_BURST"
	SMAP_HTTP_TIMEOUT   = "SMAP_HTTP_TIMEOUT"
	SMAP_MIRROR_BUCKET  = "SMAP_MIRROR_BUCKET"
	SMAP_CATALOG        = "SMAP_CATALOG"
	SMAP_METRICS_ADDR   = "SMAP_METRICS_ADDR"
	DATABASE_URL        = "DATABASE_URL"
)

// DefaultAPIURL is the AppEEARS REST root. Endpoint paths are resolved against it,
// so it must keep its trailing slash.
const DefaultAPIURL = "https://appeears.earthdatacloud.nasa.gov/api/"

// Config is built once at startup and handed to every component.
type Config struct {
	APIURL        string        `yaml:"api_url"`
	AOIDir        string        `yaml:"aoi_dir"`
	OutputDir     string        `yaml:"output_dir"`
	ProductFolder string        `yaml:"product_folder"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	FileSuffixes  []string      `yaml:"file_suffixes"`
	RateLimit     float64       `yaml:"rate_limit"`
	RateBurst     int           `yaml:"rate_burst"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MirrorBucket  string        `yaml:"mirror_bucket"`
	Catalog       string        `yaml:"catalog"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	DatabaseURL   string        `yaml:"database_url"`
}

// DefaultConfig returns the layout the tool has always used: shapefiles in ./aoi,
// rasters under ./data/raw_tifs, a two minute polling round.
func DefaultConfig() Config {
	return Config{
		APIURL:        DefaultAPIURL,
		AOIDir:        "aoi",
		OutputDir:     "data/raw_tifs",
		ProductFolder: "SMAP_AppEEARS",
		PollInterval:  2 * time.Minute,
		FileSuffixes:  []string{".tif"},
		RateLimit:     5,
		RateBurst:     5,
	}
}

// yamlConfig mirrors Config with durations as strings ("2m", "90s").
type yamlConfig struct {
	APIURL        string    `yaml:"api_url"`
	AOIDir        string    `yaml:"aoi_dir"`
	OutputDir     string    `yaml:"output_dir"`
	ProductFolder string    `yaml:"product_folder"`
	PollInterval  string    `yaml:"poll_interval"`
	FileSuffixes  *[]string `yaml:"file_suffixes"`
	RateLimit     float64   `yaml:"rate_limit"`
	RateBurst     int       `yaml:"rate_burst"`
	HTTPTimeout   string    `yaml:"http_timeout"`
	MirrorBucket  string    `yaml:"mirror_bucket"`
	Catalog       string    `yaml:"catalog"`
	MetricsAddr   string    `yaml:"metrics_addr"`
	DatabaseURL   string    `yaml:"database_url"`
}

// LoadConfigFile applies a YAML file on top of DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := DefaultConfig()
	setString(&cfg.APIURL, yc.APIURL)
	setString(&cfg.AOIDir, yc.AOIDir)
	setString(&cfg.OutputDir, yc.OutputDir)
	setString(&cfg.ProductFolder, yc.ProductFolder)
	setString(&cfg.MirrorBucket, yc.MirrorBucket)
	setString(&cfg.Catalog, yc.Catalog)
	setString(&cfg.MetricsAddr, yc.MetricsAddr)
	setString(&cfg.DatabaseURL, yc.DatabaseURL)
	if yc.PollInterval != "" {
		d, err := time.ParseDuration(yc.PollInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if yc.HTTPTimeout != "" {
		d, err := time.ParseDuration(yc.HTTPTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http_timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	// An explicit empty list means "download every file of the bundle".
	if yc.FileSuffixes != nil {
		cfg.FileSuffixes = *yc.FileSuffixes
	}
	if yc.RateLimit != 0 {
		cfg.RateLimit = yc.RateLimit
	}
	if yc.RateBurst != 0 {
		cfg.RateBurst = yc.RateBurst
	}
	return cfg, nil
}

// LoadFromEnv overrides c with any SMAP_* variables (and DATABASE_URL) present.
// Without a database URL, a Postgres binding in VCAP_SERVICES is used.
func (c *Config) LoadFromEnv() error {
	lookupString(&c.APIURL, SMAP_API_URL)
	lookupString(&c.AOIDir, SMAP_AOI_DIR)
	lookupString(&c.OutputDir, SMAP_OUTPUT_DIR)
	lookupString(&c.ProductFolder, SMAP_PRODUCT_FOLDER)
	lookupString(&c.MirrorBucket, SMAP_MIRROR_BUCKET)
	lookupString(&c.Catalog, SMAP_CATALOG)
	lookupString(&c.MetricsAddr, SMAP_METRICS_ADDR)
	lookupString(&c.DatabaseURL, DATABASE_URL)
	if raw := os.Getenv(VCAP_SERVICES); raw != "" && c.DatabaseURL == "" {
		name := DefaultDBService
		lookupString(&name, SMAP_DB_SERVICE)
		uri, err := databaseURLFromServices(raw, name)
		if err != nil {
			return err
		}
		c.DatabaseURL = uri
	}

	if v, ok := os.LookupEnv(SMAP_POLL_INTERVAL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", SMAP_POLL_INTERVAL, err)
		}
		c.PollInterval = d
	}
	if v, ok := os.LookupEnv(SMAP_HTTP_TIMEOUT); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", SMAP_HTTP_TIMEOUT, err)
		}
		c.HTTPTimeout = d
	}
	if v, ok := os.LookupEnv(SMAP_FILE_SUFFIXES); ok {
		c.FileSuffixes = splitList(v)
	}
	if v, ok := os.LookupEnv(SMAP_RATE_LIMIT); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", SMAP_RATE_LIMIT, err)
		}
		c.RateLimit = f
	}
	if v, ok := os.LookupEnv(SMAP_RATE_BURST); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", SMAP_RATE_BURST, err)
		}
		c.RateBurst = n
	}
	return nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	switch {
	case c.APIURL == "":
		return errors.New("config: api_url is required")
	case !strings.HasSuffix(c.APIURL, "/"):
		return errors.New("config: api_url must end with '/'")
	case c.AOIDir == "":
		return errors.New("config: aoi_dir is required")
	case c.OutputDir == "":
		return errors.New("config: output_dir is required")
	case c.ProductFolder == "":
		return errors.New("config: product_folder is required")
	case c.PollInterval <= 0:
		return errors.New("config: poll_interval must be positive")
	case c.RateLimit <= 0:
		return errors.New("config: rate_limit must be positive")
	case c.RateBurst <= 0:
		return errors.New("config: rate_burst must be positive")
	case c.HTTPTimeout < 0:
		return errors.New("config: http_timeout cannot be negative")
	}
	return nil
}

// LoadConfig is the startup path: defaults, then the optional file, then the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func lookupString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	result := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
