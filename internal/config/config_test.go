package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
llm:
  provider: "anthropic"
  endpoint: "https://api.anthropic.com"
  model: "claude-sonnet"
  timeout: "30s"
  temperature: 0.2
  max_tokens: 2048
  api_key_env: "ANTHROPIC_API_KEY"

actions:
  dry_run: false
  max_concurrent: 5
  cooldown_period: "5m"
  command_timeout_seconds: 120
  max_retries: 3

cluster:
  context: "test-context"
  cli_path: "kubectl"

store:
  strategy_store_dsn: "postgres://localhost/strategies"
  episodic_memory_dsn: "postgres://localhost/episodes"
  performance_tracker_dsn: "postgres://localhost/performance"
  redis_addr: "localhost:6379"

orchestrator:
  recursion_limit: 50
  hard_retry_cap: 5
  reflect_on_success_probability: 0.8
  prefer_persistent_probability: 0.8
  pattern_detection_threshold: 3
  strategy_confidence_threshold: 0.7
  reflection_depth: "medium"

mode: "manifest"

logging:
  level: "info"
  format: "json"
`
				Expect(os.WriteFile(configFile, []byte(validConfig), 0644)).To(Succeed())
			})

			It("should load configuration successfully", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())
				Expect(cfg.LLM.Provider).To(Equal("anthropic"))
				Expect(cfg.LLM.Timeout).To(Equal(30 * time.Second))
				Expect(cfg.Mode).To(Equal(ModeManifest))
				Expect(cfg.Orchestrator.HardRetryCap).To(Equal(5))
			})
		})

		Context("when the file does not exist", func() {
			It("should return an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("when required fields are missing", func() {
			BeforeEach(func() {
				invalidConfig := `
llm:
  temperature: 0.2
store:
  strategy_store_dsn: ""
`
				Expect(os.WriteFile(configFile, []byte(invalidConfig), 0644)).To(Succeed())
			})

			It("should return a validation error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Defaults", func() {
		It("should populate the spec's enumerated defaults", func() {
			cfg := Defaults()
			Expect(cfg.Actions.CommandTimeoutSeconds).To(Equal(120))
			Expect(cfg.Actions.MaxRetries).To(Equal(3))
			Expect(cfg.Orchestrator.RecursionLimit).To(Equal(50))
			Expect(cfg.Orchestrator.HardRetryCap).To(Equal(5))
			Expect(cfg.Orchestrator.ReflectOnSuccessProbability).To(Equal(0.8))
			Expect(cfg.Orchestrator.PreferPersistentProbability).To(Equal(0.8))
			Expect(cfg.Mode).To(Equal(ModeManifest))
		})
	})

	Describe("LLMConfig.APIKey", func() {
		It("should resolve the key from the named environment variable", func() {
			os.Setenv("TEST_AGENT_LLM_KEY", "secret-value")
			defer os.Unsetenv("TEST_AGENT_LLM_KEY")

			cfg := LLMConfig{APIKeyEnv: "TEST_AGENT_LLM_KEY"}
			Expect(cfg.APIKey()).To(Equal("secret-value"))
		})

		It("should return empty when no env var is configured", func() {
			cfg := LLMConfig{}
			Expect(cfg.APIKey()).To(BeEmpty())
		})
	})
})
