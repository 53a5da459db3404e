package sse

import (
	"testing"
)

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	svc := New(nil)
	a := &client{userID: "u1", events: make(chan Event, 1)}
	b := &client{userID: "u2", events: make(chan Event, 1)}
	svc.addClient(a)
	svc.addClient(b)

	svc.Publish("u1", Event{Type: EventNotification, Message: "hola"})

	select {
	case ev := <-a.events:
		if ev.Message != "hola" {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected event for u1")
	}
	select {
	case ev := <-b.events:
		t.Fatalf("unexpected event for u2: %+v", ev)
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	svc := New(nil)
	c := &client{userID: "u1", events: make(chan Event, 1)}
	svc.addClient(c)

	svc.Publish("u1", Event{Type: EventNotification})
	svc.Publish("u1", Event{Type: EventNotification})

	if len(c.events) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(c.events))
	}
}

func TestRemoveClientForgetsUser(t *testing.T) {
	svc := New(nil)
	c := &client{userID: "u1", events: make(chan Event, 1)}
	svc.addClient(c)
	if svc.Connected("u1") != 1 {
		t.Fatal("expected one connected client")
	}
	svc.removeClient(c)
	if svc.Connected("u1") != 0 {
		t.Fatal("expected no connected clients")
	}
	svc.Publish("u1", Event{Type: EventNotification})
}

func TestPublishManyDeduplicatesUsers(t *testing.T) {
	svc := New(nil)
	c := &client{userID: "u1", events: make(chan Event, 4)}
	svc.addClient(c)

	svc.PublishMany([]string{"u1", "", "u1", "u2"}, Event{Type: EventStageChanged, DealID: "d1"})

	if len(c.events) != 1 {
		t.Fatalf("expected exactly one event for u1, got %d", len(c.events))
	}
}
