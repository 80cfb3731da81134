package queue_api_client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mcdev12/slotsync/go/clients"
	"github.com/mcdev12/slotsync/go/internal/models"
)

// statusResponse tolerates the field names used by older backends.
type statusResponse struct {
	models.QueueSnapshot
	EstimatedWaitMinutes *float64 `json:"estimated_wait_minutes,omitempty"`
}

type JoinRequest struct {
	SalonID  string   `json:"salon_id,omitempty"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Services []string `json:"services"`
}

type JoinResponse struct {
	Token     int    `json:"token"`
	YourToken int    `json:"your_token,omitempty"`
	Message   string `json:"message,omitempty"`
}

// TicketToken returns whichever token field the server filled in.
func (r JoinResponse) TicketToken() int {
	if r.Token != 0 {
		return r.Token
	}
	return r.YourToken
}

type addServiceRequest struct {
	Token       int      `json:"token"`
	NewServices []string `json:"new_services"`
}

type tokenRequest struct {
	Token int `json:"token"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CustomerProfile is returned by a successful customer login.
type CustomerProfile struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Status fetches the authoritative queue snapshot.
func (c *QueueApiClient) Status(ctx context.Context) (*models.QueueSnapshot, error) {
	body, err := c.Get(ctx, c.withSalon(StatusEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to get queue status: %w", err)
	}

	var response statusResponse
	if err := clients.DecodeJSON(body, &response); err != nil {
		return nil, err
	}

	snapshot := response.QueueSnapshot
	if snapshot.TotalWaitMinutes == nil && response.EstimatedWaitMinutes != nil {
		snapshot.TotalWaitMinutes = response.EstimatedWaitMinutes
	}
	if snapshot.Queue == nil {
		snapshot.Queue = []models.QueueEntry{}
	}
	snapshot.FetchedAt = c.clock.Now()

	return &snapshot, nil
}

// Join creates a ticket and returns the server-issued token.
func (c *QueueApiClient) Join(ctx context.Context, req JoinRequest) (JoinResponse, error) {
	if req.SalonID == "" {
		req.SalonID = c.salonID
	}
	body, err := c.PostJSON(ctx, JoinEndpoint, req)
	if err != nil {
		return JoinResponse{}, fmt.Errorf("failed to join queue: %w", err)
	}

	var response JoinResponse
	if err := clients.DecodeJSON(body, &response); err != nil {
		return JoinResponse{}, err
	}
	if response.TicketToken() == 0 {
		return JoinResponse{}, fmt.Errorf("join response carried no token: %s", string(body))
	}
	response.Token = response.TicketToken()

	return response, nil
}

// AddServices extends an existing ticket with more services.
func (c *QueueApiClient) AddServices(ctx context.Context, token int, services []string) error {
	if _, err := c.PostJSON(ctx, AddServiceEndpoint, addServiceRequest{Token: token, NewServices: services}); err != nil {
		return fmt.Errorf("failed to add services to token %d: %w", token, err)
	}
	return nil
}

// Cancel removes the caller's own ticket.
func (c *QueueApiClient) Cancel(ctx context.Context, token int) error {
	if _, err := c.PostJSON(ctx, CancelEndpoint, tokenRequest{Token: token}); err != nil {
		return fmt.Errorf("failed to cancel token %d: %w", token, err)
	}
	return nil
}

// Login checks customer credentials and returns the stored profile.
func (c *QueueApiClient) Login(ctx context.Context, username, password string) (CustomerProfile, error) {
	body, err := c.PostJSON(ctx, LoginEndpoint, loginRequest{Username: username, Password: password})
	if err != nil {
		return CustomerProfile{}, fmt.Errorf("failed to log in: %w", err)
	}

	var profile CustomerProfile
	if err := clients.DecodeJSON(body, &profile); err != nil {
		return CustomerProfile{}, err
	}
	return profile, nil
}

// GetSalon loads salon details and the service menu.
func (c *QueueApiClient) GetSalon(ctx context.Context) (*models.Salon, error) {
	if c.salonID == "" {
		return nil, fmt.Errorf("salon id is not configured")
	}
	body, err := c.Get(ctx, SalonsEndpoint+"/"+url.PathEscape(c.salonID))
	if err != nil {
		return nil, fmt.Errorf("failed to get salon %s: %w", c.salonID, err)
	}

	var salon models.Salon
	if err := clients.DecodeJSON(body, &salon); err != nil {
		return nil, err
	}
	if salon.ID == "" {
		salon.ID = c.salonID
	}
	return &salon, nil
}
