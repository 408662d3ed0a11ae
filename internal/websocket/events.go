package websocket

// closeCodeUnauthorized is the application close code the backend sends when
// the connection token is missing, expired or otherwise rejected.
const closeCodeUnauthorized = 4001

// Server to client event types.
const (
	eventConnectionEstablished = "connection_established"
	eventNotification          = "notification"
	eventCountUpdate           = "notification_count_update"
	eventUnreadCount           = "unread_count"
	eventRecentNotifications   = "recent_notifications"
)

// Client to server message types.
const (
	messageMarkAsRead  = "mark_as_read"
	messageUnreadCount = "get_unread_count"
	messageRecent      = "get_recent_notifications"
)

// ConnectionInfo is the handshake confirmation the backend sends once a
// connection is accepted.
type ConnectionInfo struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Notification is a single notification as delivered over the socket.
type Notification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Priority  string `json:"priority"`
	Read      bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`

	RelatedServiceID *int64                 `json:"related_service_id"`
	RelatedBookingID *int64                 `json:"related_booking_id"`
	RelatedOrderID   *int64                 `json:"related_order_id"`
	ExtraData        map[string]interface{} `json:"extra_data"`
}

// envelope is the superset of every inbound message shape. Which fields are
// populated depends on Type.
type envelope struct {
	Type          string         `json:"type"`
	Message       string         `json:"message"`
	UserID        int64          `json:"user_id"`
	Username      string         `json:"username"`
	Notification  *Notification  `json:"notification"`
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
}

// clientMessage is the outbound message shape.
type clientMessage struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notification_id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}
