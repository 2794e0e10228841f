// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// wordlistContext is the exclusion key for the word-list scanner.
const wordlistContext = "wordlist"

// HandleMessage runs the message pipeline: exclusion check, bot check,
// word-list classification, then command parsing through the cooldown gate.
func (b *Bot) HandleMessage(ctx context.Context, msg *Message) {
	// Excluded channels are never scanned at all.
	if b.cfg.IsExcluded(wordlistContext, msg.ChannelName) {
		return
	}
	if msg.AuthorBot {
		return
	}

	match := b.rules.Classify(msg.Text)
	switch match.List {
	case ListBlacklist:
		b.jail(ctx, msg, match)
		return
	case ListWatchlist:
		b.watchForward(ctx, msg, match)
		// Watchlist hits still reach command parsing.
	}

	member, err := b.gw.Member(ctx, msg.AuthorID)
	if err != nil {
		b.log.Warn().Err(err).
			Str("user_id", msg.AuthorID).
			Msg("Failed to resolve author as guild member")
		return
	}

	token, rest, ok := b.parser.Parse(msg.Text)
	if !ok {
		return // plain chat message
	}
	cmd := b.registry.Resolve(token)
	if cmd == nil {
		b.log.Debug().Str("token", token).Msg("Unknown command token")
		return
	}
	if b.cfg.IsExcluded(cmd.Name, msg.ChannelName) {
		b.log.Debug().
			Str("command", cmd.Name).
			Str("channel", msg.ChannelName).
			Msg("Command excluded in channel")
		return
	}
	// Strip the matched token before handing the message to the command.
	msg.Text = rest

	wait, invoked := b.cooldowns.TryInvoke(cmd.Name, msg.AuthorID, cmd.Cooldown, func() error {
		return cmd.Run(ctx, msg, member)
	})
	if !invoked {
		if err := b.gw.SendText(ctx, msg.ChannelID, wait); err != nil {
			b.log.Warn().Err(err).Msg("Failed to send cooldown notice")
		}
	}
}

// jail deletes a blacklisted message, forwards a flagged copy to the jail
// log, and quarantines the author. The sequence is best-effort and
// at-most-once: a failure partway leaves earlier steps done.
func (b *Bot) jail(ctx context.Context, msg *Message, match Match) {
	log := b.log.With().
		Str("user_id", msg.AuthorID).
		Str("message_id", msg.ID).
		Str("word", match.Word).
		Logger()

	if err := b.gw.DeleteMessage(ctx, msg.ID); err != nil {
		log.Error().Err(err).Msg("Failed to delete blacklisted message")
		return
	}

	embed := &Embed{
		Title: "Blacklisted message removed",
		Color: randomColor(),
		Fields: []EmbedField{
			{Name: "Matched word", Value: match.Word},
			{Name: "Author", Value: fmt.Sprintf("%s (%s)", msg.AuthorName, msg.AuthorID)},
			{Name: "Message ID", Value: msg.ID},
			{Name: "Channel", Value: msg.ChannelName},
			{Name: "Content", Value: msg.Text},
		},
	}
	if err := b.sendLogEmbed(ctx, b.cfg.Channels.JailLog, embed); err != nil {
		log.Error().Err(err).Msg("Failed to forward flagged copy to jail log")
	}

	b.quarantine(ctx, msg.AuthorID, log)
}

// quarantine replaces the user's role set with the jail role plus whichever
// preserved roles they already held. Permission and resolution failures
// abort the role change; everything before it stands.
func (b *Bot) quarantine(ctx context.Context, userID string, log zerolog.Logger) {
	canManage, err := b.gw.CanManageRoles(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check role-management permission")
		return
	}
	if !canManage {
		log.Error().Msg("Bot lacks role-management permission, skipping quarantine")
		return
	}

	role, err := b.gw.RoleByName(ctx, b.cfg.JailRole)
	if err != nil {
		log.Error().Err(err).
			Str("role", b.cfg.JailRole).
			Msg("Quarantine role not found, skipping quarantine")
		return
	}

	member, err := b.gw.Member(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve member for quarantine")
		return
	}

	target := []string{role.Name}
	for _, preserved := range b.cfg.PreserveRoles {
		for _, held := range member.Roles {
			if held == preserved {
				target = append(target, preserved)
				break
			}
		}
	}
	if err := b.gw.ReplaceRoles(ctx, userID, target); err != nil {
		log.Error().Err(err).Msg("Failed to replace roles for quarantine")
		return
	}
	log.Info().Strs("roles", target).Msg("User quarantined")

	// Best effort; the quarantine stands whether or not the notice lands.
	if err := b.gw.DirectMessage(ctx, userID, "You have been quarantined for violating the community word policy. A moderator will review your case."); err != nil {
		log.Warn().Err(err).Msg("Failed to send quarantine notice")
	}
}

// watchForward posts a flagged copy to the watch log, including the matched
// word but no author or message identifiers.
func (b *Bot) watchForward(ctx context.Context, msg *Message, match Match) {
	embed := &Embed{
		Title: "Watchlist match",
		Color: randomColor(),
		Fields: []EmbedField{
			{Name: "Matched word", Value: match.Word},
			{Name: "Content", Value: msg.Text},
		},
	}
	if err := b.sendLogEmbed(ctx, b.cfg.Channels.WatchLog, embed); err != nil {
		b.log.Error().Err(err).Msg("Failed to forward watchlist copy")
	}
}
