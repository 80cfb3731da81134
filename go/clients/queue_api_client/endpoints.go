package queue_api_client

const (
	// Customer endpoints
	StatusEndpoint     = "/queue/status"
	JoinEndpoint       = "/queue/join"
	AddServiceEndpoint = "/queue/add-service"
	CancelEndpoint     = "/queue/cancel"
	LoginEndpoint      = "/auth/login"
	SalonsEndpoint     = "/salons"

	// Admin endpoints
	AdminLoginEndpoint = "/admin/login"
	NextEndpoint       = "/queue/next"
	MoveEndpoint       = "/queue/move"
	ServeNowEndpoint   = "/queue/serve-now"
	ResetEndpoint      = "/queue/reset"
	DeleteEndpoint     = "/queue/delete"
	HistoryEndpoint    = "/queue/history"

	// Query parameters
	SalonIDParam = "salon_id"
)

// Direction is the reorder direction accepted by the move endpoint.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is a direction the server accepts.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}
