package queue_api_client

import (
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/slotsync/go/clients"
)

type QueueApiClient struct {
	*clients.BaseClient
	salonID string
	clock   clockwork.Clock
}

// Option configures a QueueApiClient.
type Option func(*QueueApiClient)

// WithSalonID scopes status and join calls to one salon (multi-tenant backends).
func WithSalonID(id string) Option {
	return func(c *QueueApiClient) {
		c.salonID = id
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *QueueApiClient) {
		c.SetHTTPClient(client)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *QueueApiClient) {
		c.SetTimeout(d)
	}
}

// WithClock sets the clock used to stamp fetched snapshots.
func WithClock(clock clockwork.Clock) Option {
	return func(c *QueueApiClient) {
		c.clock = clock
	}
}

func NewQueueApiClient(baseURL string, opts ...Option) *QueueApiClient {
	client := &QueueApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
		clock:      clockwork.NewRealClock(),
	}
	client.SetTimeout(10 * time.Second)

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// SalonID returns the salon the client is scoped to, if any.
func (c *QueueApiClient) SalonID() string {
	return c.salonID
}

func (c *QueueApiClient) withSalon(endpoint string) string {
	if c.salonID == "" {
		return endpoint
	}
	q := url.Values{}
	q.Set(SalonIDParam, c.salonID)
	return endpoint + "?" + q.Encode()
}
