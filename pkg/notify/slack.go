// Package notify implements the human-escalation notifier: when the
// Orchestrator's routing reaches human_escalation (spec.md §4.9), this
// package is how that reaches an actual human.
package notify

import (
	"context"
	"fmt"

	goslack "github.com/slack-go/slack"
	"github.com/sirupsen/logrus"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// Notifier posts human-escalation alerts to a Slack channel. A nil
// underlying client makes it a logging-only noop, the same degrade
// spec.md §7's StoreUnavailable class applies elsewhere: a missing
// notification channel must never crash the loop.
type Notifier struct {
	client  *goslack.Client
	channel string
	log     *logrus.Logger
}

// NewNotifier builds a Notifier. An empty botToken or channel disables
// posting; IsEnabled reports that state.
func NewNotifier(botToken, channel string, log *logrus.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, log: log}
}

// IsEnabled reports whether this Notifier will actually post to Slack.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// PostEscalation sends a human-escalation alert for an incident the
// Orchestrator could not resolve, carrying its EscalationContext.
func (n *Notifier) PostEscalation(ctx context.Context, result types.Result) error {
	if !n.IsEnabled() {
		n.log.WithField("pod_name", result.PodName).Debug("slack notifier disabled, skipping escalation alert")
		return nil
	}

	blocks := escalationBlocks(result)
	summary := fmt.Sprintf("Human intervention required: %s/%s", result.PodName, result.FinalStrategy)

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		goslack.MsgOptionBlocks(blocks...),
		goslack.MsgOptionText(summary, false),
	)
	if err != nil {
		return fmt.Errorf("posting escalation alert to slack: %w", err)
	}

	n.log.WithField("workflow_id", result.WorkflowID).WithField("pod_name", result.PodName).Info("posted human escalation alert to slack")
	return nil
}

func escalationBlocks(result types.Result) []goslack.Block {
	reason, attempts, lastErr := "unknown", 0, "none"
	if result.Escalation != nil {
		reason = result.Escalation.Reason
		attempts = result.Escalation.AttemptsMade
		if result.Escalation.LastError != "" {
			lastErr = result.Escalation.LastError
		}
	}

	header := goslack.NewHeaderBlock(goslack.NewTextBlockObject(goslack.PlainTextType, "Remediation escalation: "+result.PodName, false, false))
	fields := []*goslack.TextBlockObject{
		goslack.NewTextBlockObject(goslack.MarkdownType, "*Workflow:*\n"+result.WorkflowID, false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, "*Strategy tried last:*\n"+result.FinalStrategy, false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Attempts made:*\n%d", attempts), false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, "*Reason:*\n"+reason, false, false),
		goslack.NewTextBlockObject(goslack.MarkdownType, "*Last error:*\n"+lastErr, false, false),
	}
	section := goslack.NewSectionBlock(nil, fields, nil)

	return []goslack.Block{header, section}
}
