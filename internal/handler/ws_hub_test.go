package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func newTestConn(userID string) *WSConn {
	return &WSConn{
		conn:   nil, // no real connection for hub tests
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, 7)
	if hub.GameSubscriberCount(7) != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.GameSubscriberCount(7))
	}

	hub.Unsubscribe(c, 7)
	if hub.GameSubscriberCount(7) != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.GameSubscriberCount(7))
	}
}

func TestHubBroadcastToGame(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-2")
	c3 := newTestConn("user-3") // not subscribed

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.Subscribe(c1, 7)
	hub.Subscribe(c2, 7)

	hub.BroadcastToGame(7, WSEvent{
		Type:   "units_moved",
		GameID: 7,
		Data:   map[string]int{"from_x": 1, "from_y": 0},
	})

	// c1 and c2 should receive, c3 should not
	select {
	case msg := <-c1.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != "units_moved" {
			t.Errorf("expected units_moved, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("c1 did not receive broadcast")
	}

	select {
	case <-c2.send:
		// ok
	case <-time.After(time.Second):
		t.Error("c2 did not receive broadcast")
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
		// ok
	}
}

func TestHubBroadcastToUser(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-1") // same user, two connections
	c3 := newTestConn("user-2")

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.BroadcastToUser("user-1", WSEvent{
		Type:   "game_started",
		GameID: 7,
	})

	// Both c1 and c2 should receive (same user), c3 should not
	for _, c := range []*WSConn{c1, c2} {
		select {
		case <-c.send:
			// ok
		case <-time.After(time.Second):
			t.Errorf("connection for user-1 did not receive broadcast")
		}
	}

	select {
	case <-c3.send:
		t.Error("user-2 should not have received user-1's event")
	default:
		// ok
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	hub.Subscribe(c, 7)
	hub.Subscribe(c, 8)

	hub.Unregister(c)

	if hub.GameSubscriberCount(7) != 0 {
		t.Errorf("expected 0 subscribers for game 7 after unregister")
	}
	if hub.GameSubscriberCount(8) != 0 {
		t.Errorf("expected 0 subscribers for game 8 after unregister")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	// Concurrently register, subscribe, broadcast, unregister
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := newTestConn("user")
			hub.Register(c)
			hub.Subscribe(c, 7)
			hub.BroadcastToGame(7, WSEvent{Type: "test", GameID: 7})
			hub.Unsubscribe(c, 7)
			hub.Unregister(c)
		}(i)
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastGameEvent(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, 7)

	hub.BroadcastGameEvent(7, "resources_collected", map[string]uint64{"gold": 35})

	select {
	case msg := <-c.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != "resources_collected" {
			t.Errorf("expected resources_collected, got %s", event.Type)
		}
		if event.GameID != 7 {
			t.Errorf("expected game 7, got %d", event.GameID)
		}
	case <-time.After(time.Second):
		t.Error("did not receive broadcast")
	}
}

func TestWSEventSerialization(t *testing.T) {
	event := WSEvent{
		Type:   "game_started",
		GameID: 42,
		Data:   map[string]any{"turn": 0},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed WSEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Type != "game_started" {
		t.Errorf("expected game_started, got %s", parsed.Type)
	}
	if parsed.GameID != 42 {
		t.Errorf("expected game 42, got %d", parsed.GameID)
	}
}

func TestClientMessageSerialization(t *testing.T) {
	msg := ClientMessage{Action: "subscribe", GameID: 7}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed ClientMessage
	json.Unmarshal(data, &parsed)
	if parsed.Action != "subscribe" {
		t.Errorf("expected subscribe, got %s", parsed.Action)
	}
	if parsed.GameID != 7 {
		t.Errorf("expected game 7, got %d", parsed.GameID)
	}
}
