package gateway

// Contact is a phone number with conversation metadata as known to the
// server.
type Contact struct {
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name,omitempty"`
	LastActivity int64  `json:"last_activity"`
	UnreadCount  int    `json:"unread_count"`
}

// Message is a stored message returned by the messages endpoint.
type Message struct {
	MessageID   string `json:"message_id"`
	PhoneNumber string `json:"phone_number"`
	Body        string `json:"message_content"`
	Outgoing    bool   `json:"is_outgoing"`
	PartIndex   int    `json:"part_index"`
	PartCount   int    `json:"part_count"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	CompletedAt int64  `json:"completed_at,omitempty"`
}

// MessagePage is one page of a contact's message history, newest first.
type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// Part is one transport-level piece of an outgoing multipart message.
type Part struct {
	TempID    string `json:"temp_id"`
	Body      string `json:"message_content"`
	PartIndex int    `json:"part_index"`
	PartCount int    `json:"part_count"`
}

// SendAck acknowledges an accepted part, pairing the client temp id with
// the server-assigned message id.
type SendAck struct {
	TempID   string `json:"temp_id"`
	ServerID string `json:"message_id"`
}

// DeliveryReport is the server-confirmed delivery status of a message.
type DeliveryReport struct {
	MessageID   string `json:"message_id"`
	Status      string `json:"status"`
	DeliveredAt int64  `json:"delivered_at,omitempty"`
}

// DeviceInfo describes the device backing the gateway.
type DeviceInfo struct {
	State          string `json:"state"`
	Model          string `json:"model,omitempty"`
	SignalStrength int    `json:"signal_strength"` // RSSI 0..31, 99 = unknown
	BatteryLevel   int    `json:"battery_level"`
	PartLimit      int    `json:"part_limit,omitempty"`
}
