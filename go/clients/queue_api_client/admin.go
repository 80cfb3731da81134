package queue_api_client

import (
	"context"
	"fmt"

	"github.com/mcdev12/slotsync/go/clients"
	"github.com/mcdev12/slotsync/go/internal/models"
)

type moveRequest struct {
	Token     int       `json:"token"`
	Direction Direction `json:"direction"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

// AdminLogin exchanges dashboard credentials for an opaque session token.
// The credential check happens on the server only.
func (c *QueueApiClient) AdminLogin(ctx context.Context, username, password string) (string, error) {
	body, err := c.PostJSON(ctx, AdminLoginEndpoint, loginRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to log in as admin: %w", err)
	}

	var response adminLoginResponse
	if err := clients.DecodeJSON(body, &response); err != nil {
		return "", err
	}
	if response.Token == "" {
		return "", fmt.Errorf("admin login response carried no session token")
	}
	return response.Token, nil
}

// Next advances the serving pointer.
func (c *QueueApiClient) Next(ctx context.Context) error {
	if _, err := c.PostJSON(ctx, c.withSalon(NextEndpoint), nil); err != nil {
		return fmt.Errorf("failed to call next customer: %w", err)
	}
	return nil
}

// Move shifts a ticket one place up or down.
func (c *QueueApiClient) Move(ctx context.Context, token int, direction Direction) error {
	if !direction.Valid() {
		return fmt.Errorf("invalid move direction %q", direction)
	}
	if _, err := c.PostJSON(ctx, c.withSalon(MoveEndpoint), moveRequest{Token: token, Direction: direction}); err != nil {
		return fmt.Errorf("failed to move token %d %s: %w", token, direction, err)
	}
	return nil
}

// ServeNow moves a ticket to the head of the queue.
func (c *QueueApiClient) ServeNow(ctx context.Context, token int) error {
	if _, err := c.PostJSON(ctx, c.withSalon(ServeNowEndpoint), tokenRequest{Token: token}); err != nil {
		return fmt.Errorf("failed to serve token %d now: %w", token, err)
	}
	return nil
}

// Reset clears the whole queue.
func (c *QueueApiClient) Reset(ctx context.Context) error {
	if _, err := c.PostJSON(ctx, c.withSalon(ResetEndpoint), nil); err != nil {
		return fmt.Errorf("failed to reset queue: %w", err)
	}
	return nil
}

// Delete removes any ticket from the queue.
func (c *QueueApiClient) Delete(ctx context.Context, token int) error {
	if _, err := c.PostJSON(ctx, c.withSalon(DeleteEndpoint), tokenRequest{Token: token}); err != nil {
		return fmt.Errorf("failed to delete token %d: %w", token, err)
	}
	return nil
}

// History lists tickets that were already served.
func (c *QueueApiClient) History(ctx context.Context) ([]models.HistoryEntry, error) {
	body, err := c.Get(ctx, c.withSalon(HistoryEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	var entries []models.HistoryEntry
	if err := clients.DecodeJSON(body, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
