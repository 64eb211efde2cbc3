package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"drocsid/models"
)

// DefaultPageSize is the message window fetched per history page
const DefaultPageSize = 50

// ListMessages returns up to limit messages older than before ("" for the newest page).
// The server answers newest first; the result is ordered oldest first.
func (c *Client) ListMessages(ctx context.Context, channelID, before string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if before != "" {
		query.Set("before", before)
	}

	var messages []models.Message
	if err := c.do(ctx, get(pathf("/channels/%s/messages", channelID), query), &messages); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, draft models.MessageDraft) (*models.Message, error) {
	var message models.Message
	if err := c.do(ctx, post(pathf("/channels/%s/messages", channelID), draft), &message); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &message, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) (*models.Message, error) {
	var message models.Message
	path := pathf("/channels/%s/messages/%s", channelID, messageID)
	if err := c.do(ctx, patch(path, map[string]string{"content": content}), &message); err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return &message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.do(ctx, del(pathf("/channels/%s/messages/%s", channelID, messageID)), nil); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := pathf("/channels/%s/messages/%s/reactions/%s/@me", channelID, messageID, emoji)
	if err := c.do(ctx, put(path, nil), nil); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

func (c *Client) RemoveReaction(ctx context.Context, channelID, messageID, emoji string) error {
	path := pathf("/channels/%s/messages/%s/reactions/%s/@me", channelID, messageID, emoji)
	if err := c.do(ctx, del(path), nil); err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

func (c *Client) ListPins(ctx context.Context, channelID string) ([]models.Message, error) {
	var messages []models.Message
	if err := c.do(ctx, get(pathf("/channels/%s/pins", channelID), nil), &messages); err != nil {
		return nil, fmt.Errorf("failed to list pins: %w", err)
	}
	return messages, nil
}

func (c *Client) PinMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.do(ctx, put(pathf("/channels/%s/pins/%s", channelID, messageID), nil), nil); err != nil {
		return fmt.Errorf("failed to pin message: %w", err)
	}
	return nil
}

func (c *Client) UnpinMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.do(ctx, del(pathf("/channels/%s/pins/%s", channelID, messageID)), nil); err != nil {
		return fmt.Errorf("failed to unpin message: %w", err)
	}
	return nil
}

func (c *Client) SendTyping(ctx context.Context, channelID string) error {
	if err := c.do(ctx, post(pathf("/channels/%s/typing", channelID), nil), nil); err != nil {
		return fmt.Errorf("failed to send typing: %w", err)
	}
	return nil
}

func (c *Client) AckMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.do(ctx, post(pathf("/channels/%s/messages/%s/ack", channelID, messageID), nil), nil); err != nil {
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	return nil
}

type SearchResult struct {
	TotalResults int              `json:"total_results"`
	Messages     []models.Message `json:"messages"`
}

func (c *Client) SearchMessages(ctx context.Context, serverID, query string) (*SearchResult, error) {
	var result SearchResult
	path := pathf("/servers/%s/messages/search", serverID)
	if err := c.do(ctx, get(path, url.Values{"q": {query}}), &result); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return &result, nil
}
