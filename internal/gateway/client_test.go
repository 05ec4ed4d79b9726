package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListMessagesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/+44123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("before"); got != "11" {
			t.Errorf("before = %q, want 11", got)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %q, want 20", got)
		}
		_ = json.NewEncoder(w).Encode(MessagePage{
			Messages: []Message{{MessageID: "10", PhoneNumber: "+44123", Body: "older"}},
			HasMore:  false,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	page, err := c.ListMessages(context.Background(), "+44123", "11", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 1 || page.Messages[0].MessageID != "10" {
		t.Errorf("page = %+v", page)
	}
	if page.HasMore {
		t.Error("has_more should be false")
	}
}

func TestSendPartCarriesAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		var part Part
		if err := json.NewDecoder(r.Body).Decode(&part); err != nil {
			t.Fatal(err)
		}
		if part.PartIndex != 2 || part.PartCount != 3 {
			t.Errorf("part = %+v", part)
		}
		_ = json.NewEncoder(w).Encode(SendAck{TempID: part.TempID, ServerID: "srv-9"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAuthToken("tok"))
	ack, err := c.SendPart(context.Background(), "+44123", Part{TempID: "t1", Body: "x", PartIndex: 2, PartCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	if ack.ServerID != "srv-9" || ack.TempID != "t1" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusBadRequest, false},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.code)
		}))
		c := NewClient(srv.URL)
		_, err := c.ListContacts(context.Background())
		srv.Close()

		var gwErr *Error
		if !errors.As(err, &gwErr) {
			t.Fatalf("code %d: err = %v, want *Error", tt.code, err)
		}
		if gwErr.Transient() != tt.transient {
			t.Errorf("code %d: transient = %v, want %v", tt.code, gwErr.Transient(), tt.transient)
		}
	}
}

func TestFetchDeliveryReportAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	report, err := c.FetchDeliveryReport(context.Background(), "m1")
	if err != nil {
		t.Fatalf("absent report should not be an error, got %v", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
}
