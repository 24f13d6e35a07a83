package event

import (
	"testing"
)

func TestChannel_PublishInSubscriptionOrder(t *testing.T) {
	ch := NewChannel[int]()
	var order []string

	first := func(v int) { order = append(order, "first") }
	second := func(v int) { order = append(order, "second") }

	ch.Subscribe(first)
	ch.Subscribe(second)

	if err := ch.Publish(7); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected delivery order [first second], got %v", order)
	}
}

func TestChannel_DuplicateSubscribe(t *testing.T) {
	ch := NewChannel[string]()
	calls := 0
	fn := func(string) { calls++ }

	ch.Subscribe(fn)
	ch.Subscribe(fn)

	if n := ch.Len(); n != 1 {
		t.Errorf("expected one subscriber after duplicate Subscribe, got %d", n)
	}

	ch.Publish("hello")
	if calls != 1 {
		t.Errorf("expected one invocation per Publish, got %d", calls)
	}
}

func TestChannel_Unsubscribe(t *testing.T) {
	ch := NewChannel[int]()
	calls := 0
	fn := func(int) { calls++ }

	ch.Subscribe(fn)
	ch.Unsubscribe(fn)

	if n := ch.Len(); n != 0 {
		t.Errorf("expected zero subscribers, got %d", n)
	}

	ch.Publish(1)
	if calls != 0 {
		t.Errorf("expected no invocations after Unsubscribe, got %d", calls)
	}
}

func TestChannel_UnsubscribeUnknownIsNoOp(t *testing.T) {
	ch := NewChannel[int]()
	kept := 0
	ch.Subscribe(func(int) { kept++ })

	// Never subscribed; must not disturb the existing subscriber.
	ch.Unsubscribe(func(v int) { _ = v * 2 })

	if n := ch.Len(); n != 1 {
		t.Errorf("expected the original subscriber to remain, got %d", n)
	}
}

func TestChannel_UnsubscribeAll(t *testing.T) {
	ch := NewChannel[int]()
	calls := 0

	a := func(v int) { calls++ }
	b := func(v int) { calls += 10 }
	ch.Subscribe(a)
	ch.Subscribe(b)

	ch.UnsubscribeAll()
	ch.Publish(5)

	if calls != 0 {
		t.Errorf("expected no deliveries after UnsubscribeAll, got calls=%d", calls)
	}
}

func TestChannel_PanickingSubscriberIsIsolated(t *testing.T) {
	ch := NewChannel[int]()
	delivered := 0

	bad := func(int) { panic("boom") }
	good := func(int) { delivered++ }
	ch.Subscribe(bad)
	ch.Subscribe(good)

	err := ch.Publish(1)
	if err == nil {
		t.Fatal("expected Publish to surface the subscriber fault")
	}
	if delivered != 1 {
		t.Errorf("expected delivery to continue past the faulty subscriber, got %d", delivered)
	}
}

func TestChannel_SubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	ch := NewChannel[int]()
	calls := 0

	var selfRemoving func(int)
	selfRemoving = func(int) {
		calls++
		ch.Unsubscribe(selfRemoving)
	}
	ch.Subscribe(selfRemoving)

	ch.Publish(1)
	ch.Publish(2)

	if calls != 1 {
		t.Errorf("expected a single delivery to the self-removing subscriber, got %d", calls)
	}
	if n := ch.Len(); n != 0 {
		t.Errorf("expected empty channel, got %d subscribers", n)
	}
}

func TestRegistry_TeardownAcrossPayloadTypes(t *testing.T) {
	ints := NewChannel[int]()
	strings := NewChannel[string]()

	ints.Subscribe(func(int) {})
	strings.Subscribe(func(string) {})

	reg := NewRegistry()
	reg.Track(ints, strings)

	reg.TeardownAll()

	if ints.Len() != 0 || strings.Len() != 0 {
		t.Errorf("expected every tracked channel cleared, got %d and %d subscribers",
			ints.Len(), strings.Len())
	}
	if reg.Len() != 0 {
		t.Errorf("expected registry to forget cleared channels, got %d", reg.Len())
	}
}
