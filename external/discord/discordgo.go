package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
)

type Client struct {
	session   *discordgo.Session
	token     string
	channelID string
}

func NewClient(token, channelID string) discordpkg.Client {
	return &Client{
		token:     token,
		channelID: channelID,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds)
	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	slog.Info("discord connected", "channel_id", c.channelID, "channel_name", c.ResolveChannelName(c.channelID))
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) Enabled() bool {
	return true
}

func (c *Client) ChannelID() string {
	return c.channelID
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not connected")
	}
	_, err := c.session.ChannelMessageSend(channelID, truncateMessage(content, discordpkg.MessageLimit))
	return err
}

func (c *Client) SendChannelMessageWithFile(msg discordpkg.FileMessage) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not connected")
	}
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: truncateMessage(msg.Content, discordpkg.MessageLimit),
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "text/plain", Reader: bytes.NewReader(msg.FileBody)},
		},
	})
	return err
}

// ResolveChannelName prefers the gateway state cache and falls back to REST.
// It returns the id itself when the name cannot be resolved.
func (c *Client) ResolveChannelName(channelID string) string {
	if ch := c.resolveChannel(channelID); ch != nil {
		return ch.Name
	}
	return channelID
}

func (c *Client) resolveChannel(channelID string) *discordgo.Channel {
	if c.session == nil || channelID == "" {
		return nil
	}
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel
		}
	}
	channel, err := c.session.Channel(channelID)
	if err != nil || channel == nil {
		return nil
	}
	if channel.Name == "" {
		return nil
	}
	return channel
}

func truncateMessage(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit-1]) + "…"
}

// NoopClient is used when no bot token is configured.
type NoopClient struct{}

func (NoopClient) Connect(context.Context) error                           { return nil }
func (NoopClient) Close() error                                            { return nil }
func (NoopClient) Enabled() bool                                           { return false }
func (NoopClient) ChannelID() string                                       { return "" }
func (NoopClient) SendChannelMessage(string, string) error                 { return nil }
func (NoopClient) SendChannelMessageWithFile(discordpkg.FileMessage) error { return nil }
func (NoopClient) ResolveChannelName(channelID string) string              { return channelID }
