package model

import (
	"encoding/json"
	"testing"
)

func TestNotificationEvent_Targeted(t *testing.T) {
	targeted := NotificationEvent{UserID: "42"}
	if !targeted.Targeted() {
		t.Error("Targeted() = false, want true for event with userId")
	}

	broadcast := NotificationEvent{}
	if broadcast.Targeted() {
		t.Error("Targeted() = true, want false for event without userId")
	}
}

func TestNotificationEvent_Decode(t *testing.T) {
	raw := []byte(`{"userId":"42","data":{"msg":"hi"}}`)

	var ev NotificationEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if ev.UserID != "42" {
		t.Errorf("UserID = %q, want %q", ev.UserID, "42")
	}
	if string(ev.Data) != `{"msg":"hi"}` {
		t.Errorf("Data = %s, want {\"msg\":\"hi\"}", ev.Data)
	}
}

func TestNotificationEvent_Payload(t *testing.T) {
	raw := []byte(`{"userId":"42","data":{"msg":"hi"}}`)
	var ev NotificationEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := string(ev.Payload(raw)); got != `{"msg":"hi"}` {
		t.Errorf("Payload = %s, want data field", got)
	}

	// No data field: the whole event body is the payload.
	rawNoData := []byte(`{"userId":"42","note":"x"}`)
	var evNoData NotificationEvent
	if err := json.Unmarshal(rawNoData, &evNoData); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := string(evNoData.Payload(rawNoData)); got != string(rawNoData) {
		t.Errorf("Payload = %s, want whole event", got)
	}

	// Explicit null data also falls back to the whole event.
	rawNull := []byte(`{"userId":"42","data":null}`)
	var evNull NotificationEvent
	if err := json.Unmarshal(rawNull, &evNull); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := string(evNull.Payload(rawNull)); got != string(rawNull) {
		t.Errorf("Payload = %s, want whole event for null data", got)
	}
}
