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

// historyLimit bounds how far back duplicate detection looks in the
// destination channel.
const historyLimit = 100

// InvocationKind distinguishes how a forward was requested; it controls
// whether a routing failure is reported back to the actor.
type InvocationKind int

const (
	// InvokeCommand is a prefix text command. Unroutable channels get a
	// direct reply.
	InvokeCommand InvocationKind = iota
	// InvokeReaction is an emoji reaction. Unroutable channels are dropped
	// with a diagnostic only.
	InvokeReaction
)

// ArchiveMapping forwards messages from one channel to another. From and To
// are matched exactly as configured.
type ArchiveMapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ArchiveRouter resolves whether and where a message should be forwarded,
// suppressing entries that already exist in the destination's recent history.
type ArchiveRouter struct {
	gw       Gateway
	mappings []ArchiveMapping
	log      zerolog.Logger
}

// NewArchiveRouter creates a router over the configured channel mappings.
func NewArchiveRouter(gw Gateway, mappings []ArchiveMapping, log zerolog.Logger) *ArchiveRouter {
	return &ArchiveRouter{
		gw:       gw,
		mappings: mappings,
		log:      log.With().Str("component", "archive").Logger(),
	}
}

// hasDuplicate reports whether any recent entry's stored title exactly
// equals the candidate content. The scan is unordered and the comparison is
// plain string equality; there is no fuzzy matching.
func hasDuplicate(entries []ArchiveEntry, candidate string) bool {
	for _, e := range entries {
		if e.Title == candidate {
			return true
		}
	}
	return false
}

// Route forwards a message according to the configured channel mappings.
// cleaned is the message content with any command token already stripped
// from the front. A duplicate in the destination suppresses forwarding
// silently; resolution failures abort with a diagnostic.
func (r *ArchiveRouter) Route(ctx context.Context, msg *Message, cleaned string, kind InvocationKind) error {
	var mapping *ArchiveMapping
	for i := range r.mappings {
		if r.mappings[i].From == msg.ChannelName {
			mapping = &r.mappings[i]
			break
		}
	}
	if mapping == nil {
		if kind == InvokeCommand {
			return r.gw.SendText(ctx, msg.ChannelID, "This command is not available in this channel.")
		}
		r.log.Debug().
			Str("channel", msg.ChannelName).
			Msg("No archive mapping for channel, dropping reaction forward")
		return nil
	}

	dest, err := r.gw.ChannelByName(ctx, mapping.To)
	if err != nil {
		r.log.Error().Err(err).
			Str("destination", mapping.To).
			Msg("Failed to resolve archive destination channel")
		return nil
	}

	entries, err := r.gw.RecentArchives(ctx, dest.ID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch destination history: %w", err)
	}
	// Exact string equality against the cleaned content, not the derived
	// title; differing whitespace is a different entry.
	if hasDuplicate(entries, cleaned) {
		r.log.Debug().
			Str("destination", mapping.To).
			Str("content", cleaned).
			Msg("Duplicate archive entry, skipping forward")
		return nil
	}

	copied := *msg
	copied.Text = cleaned
	payload := BuildPayload(&copied)
	if err := r.gw.SendEmbed(ctx, dest.ID, payload.Embed()); err != nil {
		return fmt.Errorf("failed to forward archive entry: %w", err)
	}
	r.log.Info().
		Str("source", msg.ChannelName).
		Str("destination", mapping.To).
		Str("title", payload.Title).
		Msg("Forwarded archive entry")
	return nil
}
