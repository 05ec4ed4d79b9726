package cache

// Direction of a message relative to this client.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Status is the delivery lifecycle of an outbound message. Inbound
// messages are always Delivered.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Contact is a conversation partner keyed by phone number.
type Contact struct {
	PhoneNumber  string
	FriendlyName string
	LastActivity int64 // unix seconds of the newest known message
	UnreadCount  int
}

// DeliveryReport is the server-confirmed delivery status attached to an
// outbound message. A nil report means "not received yet", not failure.
type DeliveryReport struct {
	Status      string
	DeliveredAt int64
}

// Message is one logical message in a contact's sequence. ServerID is
// empty until the send is acknowledged; TempID is empty for inbound
// messages.
type Message struct {
	ServerID    string
	TempID      string
	PhoneNumber string
	Direction   Direction
	Body        string
	PartCount   int
	Status      Status
	CreatedAt   int64
	Report      *DeliveryReport
}

// ID returns the stable identity of the message: the server id once
// known, the client temp id before that.
func (m *Message) ID() string {
	if m.ServerID != "" {
		return m.ServerID
	}
	return m.TempID
}

// Window describes the contiguous loaded range of a conversation.
type Window struct {
	OldestID string // "" when nothing is loaded
	NewestID string
	HasMore  bool // more older messages exist on the server
	Loaded   bool // an initial page has been applied
}
