// Package config collects all tunables for the OpenAlex tools in one struct,
// built once at startup and passed into components explicitly.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config for the OpenAlex API access. All values can be overridden
// independently via OPENALEX_* environment variables, which is how CI runs
// tune politeness without code changes.
type Config struct {
	// Mailto is the contact address sent in the user agent and the mailto
	// query parameter; OpenAlex routes such requests into the polite pool.
	Mailto string `envconfig:"MAILTO"`
	// WorksURL is the works listing endpoint.
	WorksURL string `envconfig:"WORKS_URL" default:"https://api.openalex.org/works"`
	// BaseURL is the API root, used for single entity lookups.
	BaseURL string `envconfig:"BASE_URL" default:"https://api.openalex.org"`
	// PerPage is the page size for cursor pagination, 200 is the API maximum.
	PerPage int `envconfig:"PER_PAGE" default:"200"`
	// MaxRetries bounds retry attempts per page before the current author
	// fetch is abandoned.
	MaxRetries int `envconfig:"MAX_RETRIES" default:"6"`
	// BackoffBase is the base for exponential backoff between retries.
	BackoffBase float64 `envconfig:"BACKOFF_BASE" default:"1.6"`
	// Timeout for a single HTTP request.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`
	// Delay between successive API calls, to be gentle on rate limits.
	Delay time.Duration `envconfig:"DELAY" default:"250ms"`
	// YearsBack is the lookback window for the recent works subset.
	YearsBack int `envconfig:"YEARS_BACK" default:"5"`
}

// FromEnv loads the configuration from the environment, reading an optional
// .env file first. CONTACT_EMAIL serves as a fallback for the contact
// address, as some deployments only set that.
func FromEnv() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("openalex", &c); err != nil {
		return c, err
	}
	if c.Mailto == "" {
		c.Mailto = os.Getenv("CONTACT_EMAIL")
	}
	return c, nil
}
