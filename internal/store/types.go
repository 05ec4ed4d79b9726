package store

// Contact is a phonebook entry.
type Contact struct {
	PhoneNumber  string
	FriendlyName string
	LastActivity int64
}

// DeliveryEvent is one entry of the delivery report timeline.
type DeliveryEvent struct {
	ID          int64
	MessageID   string
	PhoneNumber string
	Status      string
	ReportedAt  int64
}
