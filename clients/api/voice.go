package api

import (
	"context"
	"fmt"
	"net/url"

	"drocsid/models"
)

func (c *Client) JoinVoice(ctx context.Context, channelID string) (*models.VoiceJoinResult, error) {
	var result models.VoiceJoinResult
	if err := c.do(ctx, post(pathf("/channels/%s/voice/join", channelID), nil), &result); err != nil {
		return nil, fmt.Errorf("failed to join voice: %w", err)
	}
	return &result, nil
}

func (c *Client) LeaveVoice(ctx context.Context) error {
	if err := c.do(ctx, post("/voice/leave", nil), nil); err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}
	return nil
}

func (c *Client) UpdateVoiceState(ctx context.Context, update models.VoiceStateUpdate) error {
	if err := c.do(ctx, patch("/voice/state", update), nil); err != nil {
		return fmt.Errorf("failed to update voice state: %w", err)
	}
	return nil
}

func (c *Client) SearchGifs(ctx context.Context, query string) ([]models.Gif, error) {
	var gifs []models.Gif
	if err := c.do(ctx, get("/gifs/search", url.Values{"q": {query}}), &gifs); err != nil {
		return nil, fmt.Errorf("failed to search gifs: %w", err)
	}
	return gifs, nil
}
