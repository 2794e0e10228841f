// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCooldown applies to commands that don't declare their own window.
const DefaultCooldown = 3 * time.Second

// CooldownGate is a per-command, per-user rate limiter. It is the only
// long-lived mutable state in the bot; the check-then-set sequence is atomic
// under the mutex so two near-simultaneous invocations can't both pass.
type CooldownGate struct {
	log zerolog.Logger

	mu      sync.Mutex
	entries map[string]map[string]time.Time // command -> user -> invoked at

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// NewCooldownGate creates a gate using the wall clock.
func NewCooldownGate(log zerolog.Logger) *CooldownGate {
	return &CooldownGate{
		log:     log.With().Str("component", "cooldown").Logger(),
		entries: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

// TryInvoke runs invoke unless the (command, user) pair still has an
// unexpired entry. When blocked it returns a user-facing wait message and
// false. Errors from invoke are logged and never propagated; the gate itself
// never fails visibly beyond the cooldown message.
func (g *CooldownGate) TryInvoke(command, userID string, cooldown time.Duration, invoke func() error) (string, bool) {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	g.mu.Lock()
	now := g.now()
	users := g.entries[command]
	if stamp, ok := users[userID]; ok {
		if remaining := stamp.Add(cooldown).Sub(now); remaining > 0 {
			g.mu.Unlock()
			return fmt.Sprintf("please wait %.1f seconds before using `%s` again", remaining.Seconds(), command), false
		}
	}
	if users == nil {
		users = make(map[string]time.Time)
		g.entries[command] = users
	}
	users[userID] = now
	g.mu.Unlock()

	// Drop the entry once the window elapses so the map doesn't grow
	// unbounded. The expiry check above is authoritative either way.
	time.AfterFunc(cooldown, func() {
		g.expire(command, userID, cooldown)
	})

	if err := invoke(); err != nil {
		g.log.Error().Err(err).
			Str("command", command).
			Str("user_id", userID).
			Msg("Command execution failed")
	}
	return "", true
}

// expire removes the (command, user) entry if its window has elapsed.
func (g *CooldownGate) expire(command, userID string, cooldown time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if stamp, ok := g.entries[command][userID]; ok && !g.now().Before(stamp.Add(cooldown)) {
		delete(g.entries[command], userID)
		if len(g.entries[command]) == 0 {
			delete(g.entries, command)
		}
	}
}
