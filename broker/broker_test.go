package broker

import (
	"testing"
	"time"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	b := New[string](1)
	a, stopA := b.Subscribe()
	defer stopA()
	c, stopC := b.Subscribe()
	defer stopC()

	if dropped := b.Publish("hello"); dropped != 0 {
		t.Fatalf("expected no drops got %d", dropped)
	}
	for _, ch := range []<-chan string{a, c} {
		select {
		case msg := <-ch:
			if msg != "hello" {
				t.Fatalf("expected hello got %s", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("no message received")
		}
	}
}

func TestPublishCoalescesForSlowReader(t *testing.T) {
	b := New[struct{}](0)
	ch, stop := b.Subscribe()
	defer stop()

	b.Publish(struct{}{})
	if dropped := b.Publish(struct{}{}); dropped != 1 {
		t.Fatalf("expected the second signal to coalesce, dropped=%d", dropped)
	}
	<-ch
	select {
	case <-ch:
		t.Fatal("coalesced signal delivered twice")
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New[int](4)
	ch, stop := b.Subscribe()
	stop()
	if b.Len() != 0 {
		t.Fatalf("expected no subscribers got %d", b.Len())
	}
	b.Publish(1)
	select {
	case <-ch:
		t.Fatal("received value after unsubscribe")
	default:
	}
}
