// Package compose splits outgoing messages into transport parts and
// tracks them through the pending -> sent|failed lifecycle in the data
// cache. The record is inserted optimistically before any network round
// trip so the UI reflects the send immediately.
package compose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/gateway"
	"go.uber.org/zap"
)

// SendError reports which part of a logical message failed. The
// remaining parts are never sent: a partial multipart message is
// useless to the recipient.
type SendError struct {
	TempID    string
	PartIndex int
	PartCount int
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send part %d/%d: %v", e.PartIndex, e.PartCount, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// PartSender is the transport call used to submit one part.
type PartSender interface {
	SendPart(ctx context.Context, phone string, part gateway.Part) (*gateway.SendAck, error)
}

// Pipeline owns outgoing message submission.
type Pipeline struct {
	sender PartSender
	cache  *cache.Cache
	bus    *bus.Bus
	logger *zap.Logger
	limits Limits
}

// NewPipeline creates a send pipeline with the given per-part limits.
func NewPipeline(sender PartSender, c *cache.Cache, b *bus.Bus, logger *zap.Logger, limits Limits) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.GSM7 <= 0 {
		limits = DefaultLimits
	}
	return &Pipeline{sender: sender, cache: c, bus: b, logger: logger, limits: limits}
}

// Submit splits body, optimistically inserts the pending message, and
// sends each part in sequence. The first part failure marks the whole
// message failed and aborts the rest. Returns the message temp id.
func (p *Pipeline) Submit(ctx context.Context, phone, body string) (string, error) {
	parts := Split(body, p.limits)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty message body")
	}

	tempID := uuid.New().String()
	now := time.Now().Unix()

	p.cache.InsertPending(cache.Message{
		TempID:      tempID,
		PhoneNumber: phone,
		Direction:   cache.Outbound,
		Body:        body,
		PartCount:   len(parts),
		Status:      cache.StatusPending,
		CreatedAt:   now,
	})
	p.publish(bus.KindMessageMerged, phone)

	var serverID string
	for i, part := range parts {
		ack, err := p.sender.SendPart(ctx, phone, gateway.Part{
			TempID:    fmt.Sprintf("%s#%d", tempID, i+1),
			Body:      part,
			PartIndex: i + 1,
			PartCount: len(parts),
		})
		if err != nil {
			p.cache.MarkFailed(phone, tempID)
			p.logger.Error("part send failed, aborting message",
				zap.String("temp_id", tempID),
				zap.Int("part", i+1),
				zap.Int("parts", len(parts)),
				zap.Error(err))
			p.publish(bus.KindSendFailed, phone)
			return tempID, &SendError{TempID: tempID, PartIndex: i + 1, PartCount: len(parts), Err: err}
		}
		if ack.ServerID != "" {
			serverID = ack.ServerID
		}
	}

	p.cache.ConfirmSent(phone, tempID, serverID)
	p.logger.Info("message sent",
		zap.String("temp_id", tempID),
		zap.String("server_id", serverID),
		zap.Int("parts", len(parts)))
	p.publish(bus.KindSendAccepted, phone)
	return tempID, nil
}

func (p *Pipeline) publish(kind, phone string) {
	if p.bus != nil {
		p.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: phone})
	}
}
