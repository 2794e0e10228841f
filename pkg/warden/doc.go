// Copyright 2024-2026 Aiku AI

// Package warden implements a moderation and message-archival bot for a
// Mattermost workspace.
//
// The bot listens to new messages, emoji reactions, and member joins over
// the Mattermost WebSocket. Message content is classified against an
// ordered word-rule list: blacklist hits delete the message and quarantine
// the author, watchlist hits forward a flagged copy to a watch channel, and
// clean messages continue into prefix-command parsing behind a per-user
// cooldown gate. Privileged users can forward messages across channels by
// reacting with configured emoji or with a text command; forwards into an
// archive channel are suppressed when an entry with the same title already
// exists in its recent history.
//
// # Core Types
//
// [Bot] holds the decision pipeline: the compiled [RuleSet], the
// [ArchiveRouter], the [CooldownGate], and the command [Registry]. It talks
// to the platform exclusively through the [Gateway] interface.
//
// [Client] owns the Mattermost connection and feeds WebSocket events into
// the Bot. [MattermostGateway] implements Gateway on the REST API.
//
// All configuration (word rules, archive mappings, log channels, action
// emoji, ban list) is loaded once at startup and immutable afterwards; the
// cooldown map is the only long-lived mutable state.
package warden
