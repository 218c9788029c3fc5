package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordNotifier posts messages to a fixed Discord channel.
type DiscordNotifier struct {
	session *discordgo.Session
	channel string
	logger  *zap.Logger
}

// NewDiscordNotifier opens a bot session targeting one channel.
func NewDiscordNotifier(token, channel string, logger *zap.Logger) (*DiscordNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("discord notifier: bot token required")
	}
	if channel == "" {
		return nil, fmt.Errorf("discord notifier: channel required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channel: channel, logger: logger}, nil
}

func (n *DiscordNotifier) Send(ctx context.Context, msg *Message) error {
	content := msg.Body
	if msg.Title != "" {
		content = fmt.Sprintf("**%s**\n%s", msg.Title, msg.Body)
	}

	_, err := n.session.ChannelMessageSend(n.channel, content,
		discordgo.WithContext(ctx))
	if err != nil {
		n.logger.Error("discord send failed",
			zap.String("channel", n.channel), zap.Error(err))
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close shuts the underlying websocket session down.
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}
