// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Bot holds the moderation pipeline: the compiled word rules, the archive
// router, the cooldown gate, and the command registry. All platform access
// goes through the Gateway passed at construction.
type Bot struct {
	cfg       *Config
	gw        Gateway
	rules     *RuleSet
	router    *ArchiveRouter
	cooldowns *CooldownGate
	registry  *Registry
	parser    *CommandParser
	log       zerolog.Logger

	startedAt time.Time
}

// NewBot compiles the configuration into a ready dispatcher.
func NewBot(cfg *Config, gw Gateway, log zerolog.Logger) (*Bot, error) {
	rules, err := NewRuleSet(cfg.WordRules)
	if err != nil {
		return nil, fmt.Errorf("failed to compile word rules: %w", err)
	}
	b := &Bot{
		cfg:       cfg,
		gw:        gw,
		rules:     rules,
		router:    NewArchiveRouter(gw, cfg.ArchiveMappings, log),
		cooldowns: NewCooldownGate(log),
		registry:  NewRegistry(),
		parser:    NewCommandParser(cfg.CommandPrefix),
		log:       log.With().Str("component", "bot").Logger(),
		startedAt: time.Now(),
	}
	b.registerCommands()
	return b, nil
}

func (b *Bot) registerCommands() {
	b.registry.Register(&Command{
		Name:        "share",
		Aliases:     []string{"archive"},
		Emoji:       []string{b.cfg.Emoji.Archive},
		Cooldown:    b.cfg.CooldownFor("share"),
		Description: "Forward this message to the configured archive channel.",
		Run:         b.runShare,
	})
	b.registry.Register(&Command{
		Name:        "ping",
		Cooldown:    b.cfg.CooldownFor("ping"),
		Description: "Check that the bot is alive.",
		Run:         b.runPing,
	})
	b.registry.Register(&Command{
		Name:        "rules",
		Aliases:     []string{"rule"},
		Cooldown:    b.cfg.CooldownFor("rules"),
		Description: "Remind people of the community rules.",
		Run:         b.runRules,
	})
}

func (b *Bot) runShare(ctx context.Context, msg *Message, _ *Member) error {
	return b.router.Route(ctx, msg, msg.Text, InvokeCommand)
}

func (b *Bot) runPing(ctx context.Context, msg *Message, _ *Member) error {
	return b.gw.SendText(ctx, msg.ChannelID,
		fmt.Sprintf("Pong! Up for %s.", time.Since(b.startedAt).Round(time.Second)))
}

func (b *Bot) runRules(ctx context.Context, msg *Message, _ *Member) error {
	return b.gw.SendText(ctx, msg.ChannelID, communityRules)
}

const communityRules = "**1. Treat each other with respect.**\n" +
	"**2. Be welcoming and helpful to newcomers.**\n" +
	"**3. Debate is fine, fighting is not.**\n" +
	"**4. Stay on topic: no spam, no self-promotion, keep it PG-13.**"

// sendLogEmbed resolves a log channel by name and posts an embed to it.
// Resolution failures are configuration errors: logged, never user-facing.
func (b *Bot) sendLogEmbed(ctx context.Context, channelName string, embed *Embed) error {
	ch, err := b.gw.ChannelByName(ctx, channelName)
	if err != nil {
		return fmt.Errorf("failed to resolve log channel %q: %w", channelName, err)
	}
	if err := b.gw.SendEmbed(ctx, ch.ID, embed); err != nil {
		return fmt.Errorf("failed to post to %q: %w", channelName, err)
	}
	return nil
}
