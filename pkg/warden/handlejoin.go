// Copyright 2024-2026 Aiku AI

package warden

import (
	"context"
	"fmt"
)

// HandleJoin processes a "member joined" event: the join is logged to the
// member-join-log channel, and users on the static ban list are banned on
// sight.
func (b *Bot) HandleJoin(ctx context.Context, userID string) {
	log := b.log.With().Str("user_id", userID).Logger()

	member, err := b.gw.Member(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve joining member")
		return
	}

	if b.cfg.Banned(userID) {
		if err := b.gw.Ban(ctx, userID); err != nil {
			log.Error().Err(err).Msg("Failed to ban listed user on join")
			return
		}
		log.Info().Str("name", member.Name).Msg("Banned listed user on join")
		return
	}

	if b.cfg.Channels.JoinLog == "" {
		return
	}
	ch, err := b.gw.ChannelByName(ctx, b.cfg.Channels.JoinLog)
	if err != nil {
		log.Error().Err(err).
			Str("channel", b.cfg.Channels.JoinLog).
			Msg("Failed to resolve member-join log channel")
		return
	}
	notice := fmt.Sprintf("**%s** (%s) joined the server.", member.Name, userID)
	if err := b.gw.SendText(ctx, ch.ID, notice); err != nil {
		log.Warn().Err(err).Msg("Failed to post join notice")
	}
}
