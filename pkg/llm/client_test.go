package llm

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mmsuerkan/kubernetes-thesis/internal/config"
)

func TestLLM(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "LLM Client Suite")
}

var _ = Describe("LLM Client", func() {
	Describe("NewClient", func() {
		DescribeTable("creating new client",
			func(cfg config.LLMConfig, expectErr bool, errSubstring string) {
				client, err := NewClient(cfg, NoopTracer{})

				if expectErr {
					Expect(err).To(HaveOccurred())
					Expect(err.Error()).To(ContainSubstring(errSubstring))
					Expect(client).To(BeNil())
				} else {
					Expect(err).ToNot(HaveOccurred())
					Expect(client).ToNot(BeNil())
				}
			},
			Entry("valid anthropic config", config.LLMConfig{Provider: "anthropic", Model: "claude-sonnet"}, false, ""),
			Entry("invalid provider", config.LLMConfig{Provider: "invalid", Model: "x"}, true, "unsupported LLM provider: invalid"),
		)
	})

	Describe("Prompt templates", func() {
		It("should render the command-mode template with all placeholders substituted", func() {
			rendered, err := FormatCommandPrompt(map[string]any{
				"error_class":      "ImagePullBackOff",
				"pod_name":         "nginx-test",
				"namespace":        "default",
				"pod_type":         "standalone",
				"strategy_actions": "replace image with nginx:latest",
				"cluster_snapshot": "{}",
				"lessons_learned":  "none yet",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(rendered).To(ContainSubstring("<|system|>"))
			Expect(rendered).To(ContainSubstring("<|user|>"))
			Expect(rendered).To(ContainSubstring("<|assistant|>"))
			Expect(rendered).To(ContainSubstring("CRITICAL DECISION RULES"))
			Expect(rendered).To(ContainSubstring("ImagePullBackOff"))
			Expect(rendered).ToNot(ContainSubstring("{{."))
		})

		It("should render the manifest-mode template and state the metadata placement rule", func() {
			rendered, err := FormatManifestPrompt(map[string]any{
				"error_class":      "OOMKilled",
				"pod_name":         "api-pod",
				"namespace":        "prod",
				"strategy_actions": "raise memory limit",
				"cluster_snapshot": "{}",
				"lessons_learned":  "none yet",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(rendered).To(ContainSubstring("labels and annotations belong only under metadata"))
			Expect(strings.Contains(rendered, "{{.")).To(BeFalse())
		})
	})
})
