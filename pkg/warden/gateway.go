// Copyright 2024-2026 Aiku AI

package warden

import (
	"context"
	"time"
)

// Channel is the bot's view of a chat channel.
type Channel struct {
	ID   string
	Name string
}

// Attachment describes a single file attached to a message.
type Attachment struct {
	Name string
	Size int64
}

// Message is the bot's normalized view of a platform message.
type Message struct {
	ID          string
	ChannelID   string
	ChannelName string

	AuthorID   string
	AuthorName string
	AuthorIcon string
	AuthorBot  bool

	Text        string
	Attachments []Attachment
	Permalink   string
	CreateAt    time.Time

	// Reactions maps emoji name to the number of users who reacted with it.
	// Only populated when the message is fetched by ID.
	Reactions map[string]int
}

// Member is a guild member with their current role set.
type Member struct {
	ID    string
	Name  string
	Roles []string
	Bot   bool
}

// Role is a named guild role.
type Role struct {
	ID   string
	Name string
}

// ArchiveEntry is the stored title of a previously forwarded archive post,
// used for duplicate suppression.
type ArchiveEntry struct {
	Title string
}

// EmbedField is a single name/value pair rendered inside an embed.
type EmbedField struct {
	Name  string
	Value string
}

// Embed is a rendered rich-message block (a Slack-style attachment on
// Mattermost). Color is a 6-hex-digit string without the leading '#'.
type Embed struct {
	AuthorName string
	AuthorIcon string
	Title      string
	TitleLink  string
	Text       string
	Color      string
	Fields     []EmbedField
}

// Gateway is the capability set the dispatchers need from the chat platform.
// Every component takes it explicitly; nothing reaches for a global client.
type Gateway interface {
	// Channel fetches a channel by identifier.
	Channel(ctx context.Context, channelID string) (*Channel, error)
	// ChannelByName resolves a channel by its name.
	ChannelByName(ctx context.Context, name string) (*Channel, error)
	// SendText posts a plain text message to a channel.
	SendText(ctx context.Context, channelID, text string) error
	// SendEmbed posts a rendered embed to a channel.
	SendEmbed(ctx context.Context, channelID string, embed *Embed) error
	// Message fetches a single message by identifier, including its
	// reaction counts.
	Message(ctx context.Context, messageID string) (*Message, error)
	// RecentArchives fetches the titles of up to limit most recent archive
	// entries in a channel.
	RecentArchives(ctx context.Context, channelID string, limit int) ([]ArchiveEntry, error)
	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, messageID string) error
	// Member resolves a user as a guild member.
	Member(ctx context.Context, userID string) (*Member, error)
	// RoleByName finds a guild role by its name.
	RoleByName(ctx context.Context, name string) (*Role, error)
	// ReplaceRoles replaces a member's role set with exactly the given roles.
	ReplaceRoles(ctx context.Context, userID string, roles []string) error
	// CanManageRoles reports whether the bot holds role-management permission.
	CanManageRoles(ctx context.Context) (bool, error)
	// RemoveReaction removes a user's emoji reaction from a message.
	RemoveReaction(ctx context.Context, userID, messageID, emojiName string) error
	// DirectMessage sends a private message to a user.
	DirectMessage(ctx context.Context, userID, text string) error
	// Ban permanently bars a user from the guild.
	Ban(ctx context.Context, userID string) error
}
