// Package config loads and validates the remediation agent's YAML
// configuration, matching the enumerated configuration surface of
// spec.md §6.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	sharederrors "github.com/mmsuerkan/kubernetes-thesis/pkg/shared/errors"
)

// ReflectionDepth controls how much prompt template detail the Reflector requests.
type ReflectionDepth string

const (
	ReflectionShallow ReflectionDepth = "shallow"
	ReflectionMedium  ReflectionDepth = "medium"
	ReflectionDeep    ReflectionDepth = "deep"
)

// SynthesisMode selects the Plan Synthesiser's output shape.
type SynthesisMode string

const (
	ModeCommand  SynthesisMode = "command"
	ModeManifest SynthesisMode = "manifest"
)

// LLMConfig configures the LLM client.
type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"required"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model" validate:"required"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=1"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	APIKeyEnv   string        `yaml:"api_key_env"`
}

// ActionsConfig configures the Safe Executor.
type ActionsConfig struct {
	DryRun               bool          `yaml:"dry_run"`
	MaxConcurrent        int           `yaml:"max_concurrent"`
	CooldownPeriod       time.Duration `yaml:"cooldown_period"`
	CommandTimeoutSeconds int          `yaml:"command_timeout_seconds" validate:"gte=1"`
	MaxRetries           int           `yaml:"max_retries" validate:"gte=0"`
}

// ClusterConfig configures the cluster driver.
type ClusterConfig struct {
	KubeconfigPath string `yaml:"kubeconfig_path"`
	Context        string `yaml:"context"`
	CLIPath        string `yaml:"cli_path"`
}

// StoreConfig holds the three backing store locations from spec.md §6.
type StoreConfig struct {
	StrategyStoreDSN    string `yaml:"strategy_store_dsn" validate:"required"`
	EpisodicMemoryDSN   string `yaml:"episodic_memory_dsn" validate:"required"`
	PerformanceTrackerDSN string `yaml:"performance_tracker_dsn" validate:"required"`
	RedisAddr           string `yaml:"redis_addr"`
}

// OrchestratorConfig holds the routing knobs of spec.md §6/§9.
type OrchestratorConfig struct {
	RecursionLimit                 int     `yaml:"recursion_limit"`
	HardRetryCap                   int     `yaml:"hard_retry_cap"`
	ReflectOnSuccessProbability    float64 `yaml:"reflect_on_success_probability"`
	PreferPersistentProbability    float64 `yaml:"prefer_persistent_probability"`
	PatternDetectionThreshold      int     `yaml:"pattern_detection_threshold"`
	StrategyConfidenceThreshold    float64 `yaml:"strategy_confidence_threshold"`
	ReflectionDepth                ReflectionDepth `yaml:"reflection_depth"`
}

// LoggingConfig configures log level/format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig configures the human-escalation notifier.
type NotifyConfig struct {
	SlackWebhookEnv string `yaml:"slack_webhook_env"`
	SlackChannel    string `yaml:"slack_channel"`
}

// ServerConfig configures the inspection/reset API (pkg/api) and the
// Prometheus metrics endpoint (pkg/metrics) the process entrypoint hosts.
type ServerConfig struct {
	APIAddr        string   `yaml:"api_addr"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the root configuration object loaded from YAML.
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Actions      ActionsConfig      `yaml:"actions"`
	Cluster      ClusterConfig      `yaml:"cluster"`
	Store        StoreConfig        `yaml:"store"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging"`
	Notify       NotifyConfig       `yaml:"notify"`
	Server       ServerConfig       `yaml:"server"`
	Mode         SynthesisMode      `yaml:"mode"`
}

// Defaults mirrors the enumerated defaults of spec.md §6.
func Defaults() Config {
	return Config{
		Mode: ModeManifest,
		Actions: ActionsConfig{
			DryRun:                false,
			MaxConcurrent:         5,
			CooldownPeriod:        5 * time.Minute,
			CommandTimeoutSeconds: 120,
			MaxRetries:            3,
		},
		Orchestrator: OrchestratorConfig{
			RecursionLimit:              50,
			HardRetryCap:                5,
			ReflectOnSuccessProbability: 0.8,
			PreferPersistentProbability: 0.8,
			PatternDetectionThreshold:   3,
			StrategyConfidenceThreshold: 0.7,
			ReflectionDepth:             ReflectionMedium,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Server: ServerConfig{
			APIAddr:     ":8080",
			MetricsAddr: ":9090",
		},
	}
}

var validate = validator.New()

// Load reads and validates a YAML configuration file, applying defaults
// for anything the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sharederrors.FailedToWithDetails("read config file", "config", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, sharederrors.ParseError(path, "YAML", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, sharederrors.ConfigurationError(path, err.Error())
	}

	return &cfg, nil
}

// APIKey resolves the LLM API key from the environment variable named by
// LLM.APIKeyEnv. FatalConfiguration is the caller's responsibility to raise
// if this returns empty for a provider that requires one.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// SlackToken resolves the Slack bot token from the environment variable
// named by Notify.SlackWebhookEnv. Empty disables the notifier.
func (c NotifyConfig) SlackToken() string {
	if c.SlackWebhookEnv == "" {
		return ""
	}
	return os.Getenv(c.SlackWebhookEnv)
}
