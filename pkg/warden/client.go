// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

// Client owns the Mattermost connection: the REST client, the WebSocket
// event stream, and the dispatch of incoming events into the Bot.
type Client struct {
	cfg *Config
	bot *Bot
	gw  *MattermostGateway

	client   *model.Client4
	wsClient *model.WebSocketClient

	stopOnce sync.Once
	stopChan chan struct{}
	log      zerolog.Logger
}

// NewClient builds the API client, the gateway, and the bot from the
// configuration.
func NewClient(cfg *Config, log zerolog.Logger) (*Client, error) {
	apiClient := model.NewAPIv4Client(cfg.ServerURL)
	apiClient.SetToken(cfg.BotToken)

	gw := NewMattermostGateway(apiClient, cfg.ServerURL, log)
	bot, err := NewBot(cfg, gw, log)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		bot:      bot,
		gw:       gw,
		client:   apiClient,
		stopChan: make(chan struct{}),
		log:      log.With().Str("component", "client").Logger(),
	}, nil
}

// Connect authenticates and starts the WebSocket event loop.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.gw.Connect(ctx); err != nil {
		return err
	}
	return c.connectWebSocket()
}

func (c *Client) connectWebSocket() error {
	wsURL := httpToWS(c.cfg.ServerURL)
	var err error
	c.wsClient, err = model.NewWebSocketClient4(wsURL, c.client.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to create websocket client: %w", err)
	}
	c.wsClient.Listen()

	go c.listenWebSocket()

	c.log.Info().Str("ws_url", wsURL).Msg("WebSocket connected")
	return nil
}

// httpToWS converts an HTTP(S) URL to a WS(S) URL.
func httpToWS(url string) string {
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	if strings.HasPrefix(url, "http://") {
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func (c *Client) listenWebSocket() {
	for {
		select {
		case <-c.stopChan:
			return
		case event, ok := <-c.wsClient.EventChannel:
			if !ok {
				c.log.Warn().Msg("WebSocket event channel closed, reconnecting")
				c.handleWebSocketDisconnect()
				return
			}
			if event == nil {
				continue
			}
			c.handleEvent(event)
		}
	}
}

func (c *Client) handleWebSocketDisconnect() {
	if err := c.connectWebSocket(); err != nil {
		c.log.Error().Err(err).Msg("Failed to reconnect WebSocket")
	}
}

// handleEvent dispatches a WebSocket event to the appropriate handler.
func (c *Client) handleEvent(evt *model.WebSocketEvent) {
	switch evt.EventType() {
	case model.WebsocketEventPosted:
		c.handlePosted(evt)
	case model.WebsocketEventReactionAdded:
		c.handleReactionAdded(evt)
	case model.WebsocketEventNewUser:
		c.handleNewUser(evt)
	default:
		c.log.Trace().Str("event_type", string(evt.EventType())).Msg("Unhandled event type")
	}
}

// parsePostedEvent extracts and validates a post from a WebSocket event.
// Returns (nil, nil) to skip silently, (nil, err) to log an error, or
// (post, nil) to proceed.
func (c *Client) parsePostedEvent(evt *model.WebSocketEvent) (*model.Post, error) {
	postJSON, ok := evt.GetData()["post"].(string)
	if !ok {
		return nil, fmt.Errorf("posted event missing post data")
	}

	var post model.Post
	if err := json.Unmarshal([]byte(postJSON), &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}

	// Skip our own posts.
	if post.UserId == c.gw.BotUserID() {
		return nil, nil
	}
	// Skip non-default post types (system messages).
	if post.Type != "" && post.Type != model.PostTypeDefault {
		return nil, nil
	}
	return &post, nil
}

func (c *Client) handlePosted(evt *model.WebSocketEvent) {
	post, err := c.parsePostedEvent(evt)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to parse posted event")
		return
	}
	if post == nil {
		return
	}

	ctx := context.Background()
	msg, err := c.gw.MessageFromPost(ctx, post)
	if err != nil {
		c.log.Error().Err(err).Str("post_id", post.Id).Msg("Failed to normalize post")
		return
	}

	c.log.Debug().
		Str("post_id", post.Id).
		Str("channel", msg.ChannelName).
		Str("user_id", post.UserId).
		Msg("Received new message")

	c.bot.HandleMessage(ctx, msg)
}

// parseReactionEvent extracts and validates a reaction from a WebSocket
// event. Returns (nil, nil) to skip, (nil, err) for errors, or
// (reaction, nil) to proceed.
func (c *Client) parseReactionEvent(evt *model.WebSocketEvent) (*model.Reaction, error) {
	reactionJSON, ok := evt.GetData()["reaction"].(string)
	if !ok {
		return nil, nil
	}

	var reaction model.Reaction
	if err := json.Unmarshal([]byte(reactionJSON), &reaction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reaction: %w", err)
	}

	// Skip our own reactions.
	if reaction.UserId == c.gw.BotUserID() {
		return nil, nil
	}
	return &reaction, nil
}

func (c *Client) handleReactionAdded(evt *model.WebSocketEvent) {
	reaction, err := c.parseReactionEvent(evt)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to parse reaction event")
		return
	}
	if reaction == nil {
		return
	}

	c.bot.HandleReaction(context.Background(), ReactionEvent{
		UserID:    reaction.UserId,
		MessageID: reaction.PostId,
		EmojiName: reaction.EmojiName,
	})
}

func (c *Client) handleNewUser(evt *model.WebSocketEvent) {
	userID, ok := evt.GetData()["user_id"].(string)
	if !ok || userID == "" {
		return
	}
	c.bot.HandleJoin(context.Background(), userID)
}

// Disconnect closes the WebSocket connection and stops the event loop.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
}
