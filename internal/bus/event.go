package bus

import "time"

// Event kinds published on the bus. Subscribers filter by namespace
// prefix, e.g. "conn." receives every connection lifecycle event.
const (
	KindConnStateChanged = "conn.state_changed"

	KindMessageMerged   = "cache.message_merged"
	KindContactsUpdated = "cache.contacts_updated"
	KindWindowExtended  = "cache.window_extended"
	KindReportAttached  = "cache.report_attached"

	KindSendAccepted = "send.accepted"
	KindSendFailed   = "send.failed"

	KindNotification = "notify.enqueued"
	KindDeviceStatus = "device.status"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
