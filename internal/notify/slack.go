package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts messages to a fixed Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackNotifier creates a notifier for one channel using a bot token.
func NewSlackNotifier(token, channel string, logger *zap.Logger) (*SlackNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("slack notifier: bot token required")
	}
	if channel == "" {
		return nil, fmt.Errorf("slack notifier: channel required")
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger,
	}, nil
}

func (n *SlackNotifier) Send(ctx context.Context, msg *Message) error {
	text := msg.Body
	if msg.Title != "" {
		text = fmt.Sprintf("*%s*\n%s", msg.Title, msg.Body)
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false))
	if err != nil {
		n.logger.Error("slack send failed",
			zap.String("channel", n.channel), zap.Error(err))
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}
