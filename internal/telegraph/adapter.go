// Package telegraph bridges the operator's chat platform (Telegram, Discord,
// Slack) to the host control services.
package telegraph

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management and message sending/receiving
// for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform. An empty ChannelID
	// targets the adapter's default channel (the operator's chat).
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// FileDownloader is implemented by adapters that can fetch inbound
// attachments. Download writes the attachment to dest and returns the
// number of bytes written.
type FileDownloader interface {
	Download(ctx context.Context, att Attachment, dest string) (int64, error)
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}

// FileKind classifies attachments in both directions.
type FileKind string

const (
	FilePhoto    FileKind = "photo"
	FileVideo    FileKind = "video"
	FileDocument FileKind = "document"
)

// ParseMode selects how the platform renders message text.
type ParseMode string

const (
	ParsePlain      ParseMode = ""
	ParseMarkdown   ParseMode = "Markdown"
	ParseMarkdownV2 ParseMode = "MarkdownV2"
)

// Attachment is a file carried by an inbound message.
type Attachment struct {
	ID   string   // platform file identifier or download URL
	Name string   // original file name; may be empty for photos
	Kind FileKind // photo, video or document
	Size int64    // bytes, when the platform reports it
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform   string      // e.g. "telegram", "discord"
	ChannelID  string      // chat to reply to
	UserID     string      // platform-specific user identifier (the principal)
	UserName   string      // human-readable username
	Text       string      // raw message text; empty for pure attachments
	Attachment *Attachment // set for document, photo and video messages
	Timestamp  time.Time   // when the message was sent
}

// OutboundFile is a local file to deliver with a message.
type OutboundFile struct {
	Path    string
	Kind    FileKind
	Caption string
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string     // target chat; empty means the default chat
	Text      string     // message text
	ParseMode ParseMode  // text formatting; adapters fall back to plain
	Keyboard  [][]string // reply keyboard rows; nil leaves the current one
	File      *OutboundFile
}
