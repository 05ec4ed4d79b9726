package wire

import (
	"errors"
	"testing"
)

func TestDecodeNewMessage(t *testing.T) {
	data := []byte(`{"type":"new_message","payload":{"message_id":"51","phone_number":"+44123","message_content":"hi","is_outgoing":false,"part_index":1,"part_count":1,"created_at":1700000000}}`)
	f, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != TypeNewMessage || f.NewMessage == nil {
		t.Fatalf("frame = %+v, want new_message payload", f)
	}
	if f.NewMessage.MessageID != "51" || f.NewMessage.PhoneNumber != "+44123" {
		t.Errorf("payload = %+v", f.NewMessage)
	}
}

func TestDecodeDeliveryReport(t *testing.T) {
	data := []byte(`{"type":"delivery_report","payload":{"message_id":"51","status":"delivered","delivered_at":1700000100}}`)
	f, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.DeliveryReport == nil || f.DeliveryReport.Status != "delivered" {
		t.Errorf("payload = %+v", f.DeliveryReport)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type":"presence","payload":{}}`},
		{"bad payload", `{"type":"new_message","payload":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("err = %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestEncodePingRoundTrip(t *testing.T) {
	data, err := EncodePing("ping-7")
	if err != nil {
		t.Fatal(err)
	}
	// The server echoes the request id back in a pong frame.
	pong := []byte(`{"type":"pong","payload":{"request_id":"ping-7"}}`)
	f, err := Decode(pong)
	if err != nil {
		t.Fatal(err)
	}
	if f.Pong.RequestID != "ping-7" {
		t.Errorf("request id = %q", f.Pong.RequestID)
	}
	if len(data) == 0 {
		t.Error("empty ping frame")
	}
}
