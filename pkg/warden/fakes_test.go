// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// sentMessage records a single SendText or DirectMessage call.
type sentMessage struct {
	ChannelID string
	UserID    string
	Text      string
}

// sentEmbed records a single SendEmbed call.
type sentEmbed struct {
	ChannelID string
	Embed     *Embed
}

// fakeGateway is an in-memory Gateway for dispatcher tests. Lookups resolve
// against the seeded maps; misses return errors the way the real gateway
// surfaces API failures. All mutating calls are recorded for assertions.
type fakeGateway struct {
	mu sync.Mutex

	// Channels maps channel ID to channel. ChannelByName scans it.
	Channels map[string]*Channel
	// Messages maps message ID to message for Message lookups.
	Messages map[string]*Message
	// Members maps user ID to member.
	Members map[string]*Member
	// Roles maps role name to role.
	Roles map[string]*Role
	// Archives maps channel ID to its recent archive entries.
	Archives map[string][]ArchiveEntry
	// ManageRoles is what CanManageRoles reports.
	ManageRoles bool

	SentTexts        []sentMessage
	SentEmbeds       []sentEmbed
	DirectMessages   []sentMessage
	Deleted          []string
	ReplacedRoles    map[string][]string
	RemovedReactions []string
	Banned           []string
}

var _ Gateway = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		Channels:      make(map[string]*Channel),
		Messages:      make(map[string]*Message),
		Members:       make(map[string]*Member),
		Roles:         make(map[string]*Role),
		Archives:      make(map[string][]ArchiveEntry),
		ManageRoles:   true,
		ReplacedRoles: make(map[string][]string),
	}
}

func (f *fakeGateway) Channel(_ context.Context, channelID string) (*Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.Channels[channelID]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("channel %q not found", channelID)
}

func (f *fakeGateway) ChannelByName(_ context.Context, name string) (*Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.Channels {
		if ch.Name == name {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("channel %q not found", name)
}

func (f *fakeGateway) SendText(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentTexts = append(f.SentTexts, sentMessage{ChannelID: channelID, Text: text})
	return nil
}

func (f *fakeGateway) SendEmbed(_ context.Context, channelID string, embed *Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentEmbeds = append(f.SentEmbeds, sentEmbed{ChannelID: channelID, Embed: embed})
	return nil
}

func (f *fakeGateway) Message(_ context.Context, messageID string) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.Messages[messageID]; ok {
		return msg, nil
	}
	return nil, fmt.Errorf("message %q not found", messageID)
}

func (f *fakeGateway) RecentArchives(_ context.Context, channelID string, limit int) ([]ArchiveEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.Archives[channelID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeGateway) DeleteMessage(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Messages[messageID]; !ok {
		return fmt.Errorf("message %q not found", messageID)
	}
	delete(f.Messages, messageID)
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *fakeGateway) Member(_ context.Context, userID string) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.Members[userID]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("member %q not found", userID)
}

func (f *fakeGateway) RoleByName(_ context.Context, name string) (*Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.Roles[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("role %q not found", name)
}

func (f *fakeGateway) ReplaceRoles(_ context.Context, userID string, roles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReplacedRoles[userID] = roles
	if m, ok := f.Members[userID]; ok {
		m.Roles = roles
	}
	return nil
}

func (f *fakeGateway) CanManageRoles(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ManageRoles, nil
}

func (f *fakeGateway) RemoveReaction(_ context.Context, userID, messageID, emojiName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemovedReactions = append(f.RemovedReactions, userID+"/"+messageID+"/"+emojiName)
	return nil
}

func (f *fakeGateway) DirectMessage(_ context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DirectMessages = append(f.DirectMessages, sentMessage{UserID: userID, Text: text})
	return nil
}

func (f *fakeGateway) Ban(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Banned = append(f.Banned, userID)
	return nil
}

// testConfig returns a fully populated configuration shared by the dispatcher
// tests. Tests that need to deviate mutate their copy before building the bot.
func testConfig() *Config {
	cfg := &Config{
		ServerURL:       "https://chat.example.com",
		BotToken:        "token",
		CommandPrefix:   "!",
		JailRole:        "Jailed",
		PreserveRoles:   []string{"Donor"},
		PrivilegedRoles: []string{"Moderator", "Admin"},
		Channels: ChannelConfig{
			JailLog:     "jail-log",
			WatchLog:    "watch-log",
			QuestionLog: "questions",
			ModLog:      "mod-log",
			JoinLog:     "join-log",
		},
		Emoji: EmojiConfig{
			Flag:     "triangular_flag_on_post",
			Archive:  "floppy_disk",
			Question: "question",
		},
		WordRules: []WordRule{
			{Text: "niggaboo", List: ListBlacklist, Filter: FilterIncludes},
			{Text: "nig", List: ListWatchlist, Filter: FilterExact},
			{Text: "crypto", List: ListGreylist, Filter: FilterIncludes},
		},
		ArchiveMappings: []ArchiveMapping{
			{From: "general", To: "archive"},
		},
		Exclusions: map[string][]string{
			"wordlist": {"staff-room"},
			"share":    {"off-topic"},
		},
		BanList: []string{"banned-user"},
	}
	if err := cfg.PostProcess(); err != nil {
		panic(err)
	}
	return cfg
}

// testBot builds a bot over the fake gateway with the shared test config.
// The gateway is pre-seeded with the log channels the config names.
func testBot(t *testing.T, cfg *Config) (*Bot, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	gw.Channels["ch-general"] = &Channel{ID: "ch-general", Name: "general"}
	gw.Channels["ch-archive"] = &Channel{ID: "ch-archive", Name: "archive"}
	gw.Channels["ch-jail"] = &Channel{ID: "ch-jail", Name: "jail-log"}
	gw.Channels["ch-watch"] = &Channel{ID: "ch-watch", Name: "watch-log"}
	gw.Channels["ch-questions"] = &Channel{ID: "ch-questions", Name: "questions"}
	gw.Channels["ch-mod"] = &Channel{ID: "ch-mod", Name: "mod-log"}
	gw.Channels["ch-join"] = &Channel{ID: "ch-join", Name: "join-log"}
	gw.Roles["Jailed"] = &Role{ID: "role-jailed", Name: "Jailed"}
	bot, err := NewBot(cfg, gw, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	return bot, gw
}
