package discord

import "context"

// MessageLimit is the maximum content length Discord accepts per message.
const MessageLimit = 2000

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client posts live segments and finished transcripts to a text channel.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Enabled() bool
	ChannelID() string
	SendChannelMessage(channelID, content string) error
	SendChannelMessageWithFile(msg FileMessage) error
	ResolveChannelName(channelID string) string
}
