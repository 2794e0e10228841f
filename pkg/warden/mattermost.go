// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package warden

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
)

// roleManagementRoles are the system roles that carry permission to change
// other users' roles.
var roleManagementRoles = []string{model.SystemAdminRoleId, model.SystemUserManagerRoleId}

// MattermostGateway implements Gateway on the Mattermost REST API.
type MattermostGateway struct {
	client    *model.Client4
	serverURL string
	teamID    string
	teamName  string
	botUserID string
	log       zerolog.Logger
}

var _ Gateway = (*MattermostGateway)(nil)

// NewMattermostGateway wraps an authenticated API client.
func NewMattermostGateway(client *model.Client4, serverURL string, log zerolog.Logger) *MattermostGateway {
	return &MattermostGateway{
		client:    client,
		serverURL: strings.TrimSuffix(serverURL, "/"),
		log:       log.With().Str("component", "mm_gateway").Logger(),
	}
}

// Connect verifies the session and picks up the bot's user and team
// identity, which name-based channel lookups and permalinks need.
func (g *MattermostGateway) Connect(ctx context.Context) error {
	me, _, err := g.client.GetMe(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	g.botUserID = me.Id
	g.log.Info().Str("user_id", me.Id).Str("username", me.Username).Msg("Authenticated")

	teams, _, err := g.client.GetTeamsForUser(ctx, g.botUserID, "")
	if err != nil {
		return fmt.Errorf("failed to get teams: %w", err)
	}
	if len(teams) == 0 {
		return fmt.Errorf("bot account belongs to no team")
	}
	g.teamID = teams[0].Id
	g.teamName = teams[0].Name
	return nil
}

// BotUserID returns the authenticated bot user's ID. Empty before Connect.
func (g *MattermostGateway) BotUserID() string {
	return g.botUserID
}

func (g *MattermostGateway) Channel(ctx context.Context, channelID string) (*Channel, error) {
	ch, _, err := g.client.GetChannel(ctx, channelID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	return &Channel{ID: ch.Id, Name: ch.Name}, nil
}

func (g *MattermostGateway) ChannelByName(ctx context.Context, name string) (*Channel, error) {
	ch, _, err := g.client.GetChannelByName(ctx, name, g.teamID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel %q: %w", name, err)
	}
	return &Channel{ID: ch.Id, Name: ch.Name}, nil
}

func (g *MattermostGateway) SendText(ctx context.Context, channelID, text string) error {
	_, _, err := g.client.CreatePost(ctx, &model.Post{
		ChannelId: channelID,
		Message:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (g *MattermostGateway) SendEmbed(ctx context.Context, channelID string, embed *Embed) error {
	attachment := &model.SlackAttachment{
		Fallback:   embed.Title,
		Color:      "#" + embed.Color,
		AuthorName: embed.AuthorName,
		AuthorIcon: embed.AuthorIcon,
		Title:      embed.Title,
		TitleLink:  embed.TitleLink,
		Text:       embed.Text,
	}
	for _, f := range embed.Fields {
		attachment.Fields = append(attachment.Fields, &model.SlackAttachmentField{
			Title: f.Name,
			Value: f.Value,
		})
	}
	post := &model.Post{ChannelId: channelID}
	post.AddProp("attachments", []*model.SlackAttachment{attachment})
	if _, _, err := g.client.CreatePost(ctx, post); err != nil {
		return fmt.Errorf("failed to create embed post: %w", err)
	}
	return nil
}

func (g *MattermostGateway) Message(ctx context.Context, messageID string) (*Message, error) {
	post, _, err := g.client.GetPost(ctx, messageID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", messageID, err)
	}
	msg, err := g.messageFromPost(ctx, post)
	if err != nil {
		return nil, err
	}

	reactions, _, err := g.client.GetReactions(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reactions for %s: %w", messageID, err)
	}
	msg.Reactions = make(map[string]int)
	for _, r := range reactions {
		msg.Reactions[r.EmojiName]++
	}
	return msg, nil
}

// messageFromPost builds the normalized message view around a post, filling
// in channel, author, attachment, and permalink details.
func (g *MattermostGateway) messageFromPost(ctx context.Context, post *model.Post) (*Message, error) {
	ch, _, err := g.client.GetChannel(ctx, post.ChannelId, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get channel for post: %w", err)
	}
	user, _, err := g.client.GetUser(ctx, post.UserId, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get post author: %w", err)
	}

	msg := &Message{
		ID:          post.Id,
		ChannelID:   ch.Id,
		ChannelName: ch.Name,
		AuthorID:    user.Id,
		AuthorName:  user.Username,
		AuthorIcon:  fmt.Sprintf("%s/api/v4/users/%s/image", g.serverURL, user.Id),
		AuthorBot:   user.IsBot || post.UserId == g.botUserID,
		Text:        post.Message,
		Permalink:   fmt.Sprintf("%s/%s/pl/%s", g.serverURL, g.teamName, post.Id),
		CreateAt:    time.UnixMilli(post.CreateAt),
	}
	for _, fileID := range post.FileIds {
		info, _, err := g.client.GetFileInfo(ctx, fileID)
		if err != nil {
			g.log.Warn().Err(err).Str("file_id", fileID).Msg("Failed to get file info")
			continue
		}
		msg.Attachments = append(msg.Attachments, Attachment{Name: info.Name, Size: info.Size})
	}
	return msg, nil
}

// MessageFromPost exposes message normalization to the event loop, which
// receives raw posts over the websocket.
func (g *MattermostGateway) MessageFromPost(ctx context.Context, post *model.Post) (*Message, error) {
	return g.messageFromPost(ctx, post)
}

func (g *MattermostGateway) RecentArchives(ctx context.Context, channelID string, limit int) ([]ArchiveEntry, error) {
	postList, _, err := g.client.GetPostsForChannel(ctx, channelID, 0, limit, "", false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel history: %w", err)
	}
	var entries []ArchiveEntry
	for _, id := range postList.Order {
		post := postList.Posts[id]
		if post == nil {
			continue
		}
		for _, title := range attachmentTitles(post) {
			entries = append(entries, ArchiveEntry{Title: title})
		}
	}
	return entries, nil
}

// attachmentTitles extracts the attachment titles from a post's props. Posts
// fetched over the REST API carry attachments as generic JSON maps; posts
// built locally carry typed SlackAttachments.
func attachmentTitles(post *model.Post) []string {
	var titles []string
	switch attachments := post.GetProp("attachments").(type) {
	case []*model.SlackAttachment:
		for _, att := range attachments {
			if att.Title != "" {
				titles = append(titles, att.Title)
			}
		}
	case []any:
		for _, raw := range attachments {
			att, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if title, ok := att["title"].(string); ok && title != "" {
				titles = append(titles, title)
			}
		}
	}
	return titles
}

func (g *MattermostGateway) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := g.client.DeletePost(ctx, messageID); err != nil {
		return fmt.Errorf("failed to delete post %s: %w", messageID, err)
	}
	return nil
}

func (g *MattermostGateway) Member(ctx context.Context, userID string) (*Member, error) {
	user, _, err := g.client.GetUser(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &Member{
		ID:    user.Id,
		Name:  user.Username,
		Roles: strings.Fields(user.Roles),
		Bot:   user.IsBot,
	}, nil
}

func (g *MattermostGateway) RoleByName(ctx context.Context, name string) (*Role, error) {
	role, _, err := g.client.GetRoleByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get role %q: %w", name, err)
	}
	return &Role{ID: role.Id, Name: role.Name}, nil
}

func (g *MattermostGateway) ReplaceRoles(ctx context.Context, userID string, roles []string) error {
	if _, err := g.client.UpdateUserRoles(ctx, userID, strings.Join(roles, " ")); err != nil {
		return fmt.Errorf("failed to update roles for %s: %w", userID, err)
	}
	return nil
}

func (g *MattermostGateway) CanManageRoles(ctx context.Context) (bool, error) {
	me, _, err := g.client.GetMe(ctx, "")
	if err != nil {
		return false, fmt.Errorf("failed to get own user: %w", err)
	}
	held := strings.Fields(me.Roles)
	for _, required := range roleManagementRoles {
		for _, r := range held {
			if r == required {
				return true, nil
			}
		}
	}
	return false, nil
}

func (g *MattermostGateway) RemoveReaction(ctx context.Context, userID, messageID, emojiName string) error {
	_, err := g.client.DeleteReaction(ctx, &model.Reaction{
		UserId:    userID,
		PostId:    messageID,
		EmojiName: emojiName,
	})
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

func (g *MattermostGateway) DirectMessage(ctx context.Context, userID, text string) error {
	ch, _, err := g.client.CreateDirectChannel(ctx, g.botUserID, userID)
	if err != nil {
		return fmt.Errorf("failed to open direct channel: %w", err)
	}
	return g.SendText(ctx, ch.Id, text)
}

// Ban deactivates the user account, which bars them from the server.
func (g *MattermostGateway) Ban(ctx context.Context, userID string) error {
	if _, err := g.client.UpdateUserActive(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to deactivate user %s: %w", userID, err)
	}
	return nil
}
