// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"context"
	"fmt"
)

// ReactionEvent is the normalized "reaction added" platform event.
type ReactionEvent struct {
	UserID    string
	MessageID string
	EmojiName string
}

// HandleReaction runs the reaction pipeline: permission, exclusion, emoji
// identity, and concurrent-reaction checks, then dispatches the matching
// forwarding action. Reactions are not visible commands, so every rejection
// here is silent toward the reactor.
func (b *Bot) HandleReaction(ctx context.Context, evt ReactionEvent) {
	log := b.log.With().
		Str("message_id", evt.MessageID).
		Str("user_id", evt.UserID).
		Str("emoji", evt.EmojiName).
		Logger()

	msg, err := b.gw.Message(ctx, evt.MessageID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch reacted message")
		return
	}
	if msg.AuthorBot {
		return
	}

	if b.cfg.IsExcluded(evt.EmojiName, msg.ChannelName) {
		log.Debug().Str("channel", msg.ChannelName).Msg("Emoji excluded in channel")
		return
	}

	if !b.isActionEmoji(evt.EmojiName) {
		log.Debug().Msg("Unrecognized emoji, ignoring reaction")
		return
	}

	// A count above one means another reactor already triggered this action
	// on the same message.
	if msg.Reactions[evt.EmojiName] > 1 {
		log.Debug().Msg("Emoji already processed on this message")
		return
	}
	// Another tracked emoji on the same message would route it to a second
	// destination; first one wins.
	for _, other := range b.cfg.ActionEmoji() {
		if other != evt.EmojiName && msg.Reactions[other] > 0 {
			log.Debug().Str("other_emoji", other).Msg("Competing action emoji present, ignoring")
			return
		}
	}

	member, err := b.gw.Member(ctx, evt.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve reacting member")
		return
	}
	if !b.isPrivileged(member) {
		return
	}

	switch evt.EmojiName {
	case b.cfg.Emoji.Flag:
		b.flagForModerators(ctx, msg, evt)
	case b.cfg.Emoji.Archive:
		// The reacted message may itself be a command invocation; the
		// forwarded content is cleaned the same way as the command path.
		cleaned := msg.Text
		if token, rest, ok := b.parser.Parse(msg.Text); ok && b.registry.Resolve(token) != nil {
			cleaned = rest
		}
		if err := b.router.Route(ctx, msg, cleaned, InvokeReaction); err != nil {
			log.Error().Err(err).Msg("Reaction-triggered archive forward failed")
		}
	case b.cfg.Emoji.Question:
		b.forwardToQuestionLog(ctx, msg)
	}
}

func (b *Bot) isActionEmoji(name string) bool {
	for _, e := range b.cfg.ActionEmoji() {
		if e == name {
			return true
		}
	}
	return false
}

func (b *Bot) isPrivileged(member *Member) bool {
	for _, required := range b.cfg.PrivilegedRoles {
		for _, held := range member.Roles {
			if held == required {
				return true
			}
		}
	}
	return false
}

// flagForModerators forwards the full flagged-message metadata to the
// moderator log, then removes the triggering emoji so the message can be
// flagged again later.
func (b *Bot) flagForModerators(ctx context.Context, msg *Message, evt ReactionEvent) {
	embed := &Embed{
		Title:     "Message flagged for moderators",
		TitleLink: msg.Permalink,
		Color:     randomColor(),
		Fields: []EmbedField{
			{Name: "Author", Value: fmt.Sprintf("%s (%s)", msg.AuthorName, msg.AuthorID)},
			{Name: "Message ID", Value: msg.ID},
			{Name: "Channel", Value: msg.ChannelName},
			{Name: "Content", Value: msg.Text},
			{Name: "Flagged by", Value: evt.UserID},
		},
	}
	if err := b.sendLogEmbed(ctx, b.cfg.Channels.ModLog, embed); err != nil {
		b.log.Error().Err(err).Msg("Failed to forward flag to moderator log")
		return
	}
	if err := b.gw.RemoveReaction(ctx, evt.UserID, msg.ID, evt.EmojiName); err != nil {
		b.log.Warn().Err(err).
			Str("message_id", msg.ID).
			Msg("Failed to remove flag emoji after forwarding")
	}
}

// forwardToQuestionLog copies the message to the fixed question-log channel.
// No routing or duplicate logic applies here.
func (b *Bot) forwardToQuestionLog(ctx context.Context, msg *Message) {
	payload := BuildPayload(msg)
	ch, err := b.gw.ChannelByName(ctx, b.cfg.Channels.QuestionLog)
	if err != nil {
		b.log.Error().Err(err).
			Str("channel", b.cfg.Channels.QuestionLog).
			Msg("Failed to resolve question log channel")
		return
	}
	if err := b.gw.SendEmbed(ctx, ch.ID, payload.Embed()); err != nil {
		b.log.Error().Err(err).Msg("Failed to forward to question log")
	}
}
