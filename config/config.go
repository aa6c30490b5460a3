package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"pokemon-investigator/investigation"
	"pokemon-investigator/source/pokeapi"

	"github.com/rs/zerolog/log"
)

type Config struct {
	// Record source
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	RetryBaseDelay    time.Duration

	// Run defaults, overridable per run
	Concurrency int
	TimeoutMs   int
	Retries     int
	MinMatches  int

	// Queue worker
	ResultTopic     string
	Subscription    string
	GoogleProjectID string
	CredentialsFile string
	MaxRuns         int

	MetricsPort int
	LogLevel    string
}

func Load() *Config {
	cfg := &Config{
		BaseURL:           strings.TrimSpace(getEnv("POKEAPI_BASE_URL", pokeapi.DefaultBaseURL)),
		UserAgent:         strings.TrimSpace(getEnv("INVESTIGATOR_USER_AGENT", pokeapi.DefaultUserAgent)),
		RequestsPerSecond: getEnvFloat("INVESTIGATOR_RPS", 0),
		RetryBaseDelay:    time.Duration(getEnvInt("INVESTIGATOR_RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		Concurrency:       getEnvInt("INVESTIGATOR_CONCURRENCY", investigation.DefaultConcurrency),
		TimeoutMs:         getEnvInt("INVESTIGATOR_TIMEOUT_MS", int(investigation.DefaultTimeout/time.Millisecond)),
		Retries:           getEnvInt("INVESTIGATOR_RETRIES", investigation.DefaultRetries),
		MinMatches:        getEnvInt("INVESTIGATOR_MIN_MATCHES", investigation.DefaultMinMatches),
		Subscription:      strings.TrimSpace(getEnv("INVESTIGATION_REQUEST_SUBSCRIPTION", os.Getenv("INVESTIGATOR_PUBSUB_SUBSCRIPTION"))),
		ResultTopic:       strings.TrimSpace(getEnv("INVESTIGATION_RESULT_TOPIC", os.Getenv("INVESTIGATOR_PUBSUB_TOPIC"))),
		CredentialsFile:   strings.TrimSpace(firstNonEmpty(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), os.Getenv("INVESTIGATOR_GSA_CREDENTIALS"))),
		MaxRuns:           getEnvInt("INVESTIGATOR_MAX_CONCURRENT_RUNS", 1),
		MetricsPort:       getEnvInt("INVESTIGATOR_METRICS_PORT", 8080),
		LogLevel:          strings.TrimSpace(getEnv("INVESTIGATOR_LOG_LEVEL", "info")),
	}
	return cfg
}

// RunDefaults returns the run configuration used when a caller does not
// override a field.
func (c *Config) RunDefaults() investigation.RunConfig {
	return investigation.RunConfig{
		Concurrency: c.Concurrency,
		Timeout:     time.Duration(c.TimeoutMs) * time.Millisecond,
		Retries:     c.Retries,
		MinMatches:  c.MinMatches,
	}
}

// ResolveQueue fills in the Google project and reports what the queue worker
// is missing.
func (c *Config) ResolveQueue() error {
	var errs []error
	pid, err := c.projectID()
	switch {
	case err != nil:
		errs = append(errs, err)
	case pid == "":
		errs = append(errs, errors.New("missing Google project id; set INVESTIGATOR_PUBSUB_PROJECT_ID or GOOGLE_PROJECT_ID or a key file with project_id in GOOGLE_APPLICATION_CREDENTIALS"))
	default:
		c.GoogleProjectID = pid
		log.Info().Str("projectID", pid).Msg("config: using Google project")
	}
	if c.Subscription == "" {
		errs = append(errs, errors.New("missing Pub/Sub subscription; set INVESTIGATION_REQUEST_SUBSCRIPTION or INVESTIGATOR_PUBSUB_SUBSCRIPTION"))
	}
	if c.ResultTopic == "" {
		errs = append(errs, errors.New("missing Pub/Sub topic; set INVESTIGATION_RESULT_TOPIC or INVESTIGATOR_PUBSUB_TOPIC"))
	}
	return errors.Join(errs...)
}

func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.MetricsPort))
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"baseURL":             c.BaseURL,
		"requestsPerSecond":   c.RequestsPerSecond,
		"retryBaseDelay":      c.RetryBaseDelay.String(),
		"concurrency":         c.Concurrency,
		"timeoutMs":           c.TimeoutMs,
		"retries":             c.Retries,
		"minMatches":          c.MinMatches,
		"projectID":           c.GoogleProjectID,
		"requestSubscription": c.Subscription,
		"resultTopic":         c.ResultTopic,
		"maxRuns":             c.MaxRuns,
		"metricsPort":         c.MetricsPort,
		"logLevel":            c.LogLevel,
		"credentialsProvided": c.CredentialsFile != "",
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		iv, err := strconv.Atoi(v)
		if err == nil {
			return iv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int in environment; using default")
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		fv, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return fv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid number in environment; using default")
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// projectID resolves the Google project: an explicit environment variable
// wins, then the project_id of the service-account key in CredentialsFile.
func (c *Config) projectID() (string, error) {
	if v := strings.TrimSpace(firstNonEmpty(os.Getenv("INVESTIGATOR_PUBSUB_PROJECT_ID"), os.Getenv("GOOGLE_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT"))); v != "" {
		return v, nil
	}
	if c.CredentialsFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return "", fmt.Errorf("read credentials %s: %w", c.CredentialsFile, err)
	}
	var key struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(b, &key); err != nil {
		return "", fmt.Errorf("parse credentials %s: %w", c.CredentialsFile, err)
	}
	return strings.TrimSpace(key.ProjectID), nil
}
