// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"encoding/json"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

// newWebSocketEvent creates a model.WebSocketEvent for testing handlers.
func newWebSocketEvent(eventType model.WebsocketEventType, channelID string, data map[string]any) *model.WebSocketEvent {
	evt := model.NewWebSocketEvent(eventType, "", channelID, "", nil, "")
	return evt.SetData(data)
}

// newTestClient builds a Client wired to a dummy server URL. Only the parse
// helpers are exercised; no connection is opened.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := testConfig()
	c, err := NewClient(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.gw.botUserID = "bot-user"
	return c
}

func TestParsePostedEventValid(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	postJSON, _ := json.Marshal(&model.Post{
		Id: "p1", UserId: "other-user", ChannelId: "ch1", Message: "hello",
	})
	evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{
		"post": string(postJSON),
	})

	post, err := c.parsePostedEvent(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post == nil || post.Id != "p1" {
		t.Errorf("post: got %+v", post)
	}
}

// TestParsePostedEventSkipsOwnPosts verifies that the bot's own posts come
// back as (nil, nil) so the pipeline never sees them.
func TestParsePostedEventSkipsOwnPosts(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	postJSON, _ := json.Marshal(&model.Post{Id: "p1", UserId: "bot-user", ChannelId: "ch1"})
	evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{
		"post": string(postJSON),
	})

	post, err := c.parsePostedEvent(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post != nil {
		t.Errorf("own post not skipped: %+v", post)
	}
}

// TestParsePostedEventSkipsSystemPosts verifies that non-default post types
// are skipped silently.
func TestParsePostedEventSkipsSystemPosts(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	postJSON, _ := json.Marshal(&model.Post{
		Id: "p1", UserId: "other-user", ChannelId: "ch1", Type: model.PostTypeJoinChannel,
	})
	evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{
		"post": string(postJSON),
	})

	post, err := c.parsePostedEvent(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post != nil {
		t.Errorf("system post not skipped: %+v", post)
	}
}

func TestParsePostedEventMissingData(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{})

	if _, err := c.parsePostedEvent(evt); err == nil {
		t.Fatal("expected error for missing data")
	}
}

func TestParsePostedEventInvalidJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	evt := newWebSocketEvent(model.WebsocketEventPosted, "ch1", map[string]any{
		"post": "bad{json",
	})

	if _, err := c.parsePostedEvent(evt); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// TestParseReactionEventSkipsOwnReactions verifies that the bot's own
// reactions are skipped without error.
func TestParseReactionEventSkipsOwnReactions(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	reactionJSON, _ := json.Marshal(&model.Reaction{
		UserId: "bot-user", PostId: "p1", EmojiName: "question",
	})
	evt := newWebSocketEvent(model.WebsocketEventReactionAdded, "ch1", map[string]any{
		"reaction": string(reactionJSON),
	})

	reaction, err := c.parseReactionEvent(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reaction != nil {
		t.Errorf("own reaction not skipped: %+v", reaction)
	}
}

func TestParseReactionEventValid(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	reactionJSON, _ := json.Marshal(&model.Reaction{
		UserId: "u1", PostId: "p1", EmojiName: "question",
	})
	evt := newWebSocketEvent(model.WebsocketEventReactionAdded, "ch1", map[string]any{
		"reaction": string(reactionJSON),
	})

	reaction, err := c.parseReactionEvent(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reaction == nil || reaction.EmojiName != "question" {
		t.Errorf("reaction: got %+v", reaction)
	}
}

func TestHTTPToWS(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"https://chat.example.com", "wss://chat.example.com"},
		{"http://mm.local:8065", "ws://mm.local:8065"},
		{"wss://already.ws", "wss://already.ws"},
	}
	for _, tc := range tests {
		if got := httpToWS(tc.in); got != tc.want {
			t.Errorf("httpToWS(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestDisconnectDoubleSafe verifies calling Disconnect twice does not panic
// and the stop channel ends up closed.
func TestDisconnectDoubleSafe(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	c.Disconnect()
	c.Disconnect()

	select {
	case <-c.stopChan:
		// expected: channel is closed
	default:
		t.Fatal("stopChan was not closed after Disconnect")
	}
}
