package auth_test

import (
	"testing"

	"github.com/racanlabs/go-auth-service/auth"
	"github.com/stretchr/testify/require"
)

func TestNotifier_SubscribeDeliversCurrentState(t *testing.T) {
	n := auth.NewNotifier()

	t.Run("initial state is signed out", func(t *testing.T) {
		sub := n.Subscribe()
		defer sub.Unsubscribe()

		ev := <-sub.C
		require.Nil(t, ev.User)
	})

	t.Run("late subscriber sees the signed-in state immediately", func(t *testing.T) {
		n.Publish(auth.Event{User: &auth.UserView{ID: "user-1", Email: "user@example.com"}})

		sub := n.Subscribe()
		defer sub.Unsubscribe()

		ev := <-sub.C
		require.NotNil(t, ev.User)
		require.Equal(t, "user-1", ev.User.ID)
	})
}

func TestNotifier_PublishFansOut(t *testing.T) {
	n := auth.NewNotifier()

	a := n.Subscribe()
	b := n.Subscribe()
	defer a.Unsubscribe()
	defer b.Unsubscribe()

	// Drain the initial state from both.
	<-a.C
	<-b.C

	n.Publish(auth.Event{User: &auth.UserView{ID: "user-1"}})
	n.Publish(auth.Event{User: nil})

	for _, sub := range []*auth.Subscription{a, b} {
		ev := <-sub.C
		require.NotNil(t, ev.User)
		ev = <-sub.C
		require.Nil(t, ev.User)
	}
}

func TestNotifier_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	n := auth.NewNotifier()
	sub := n.Subscribe()
	defer sub.Unsubscribe()

	// Overflow the buffer without receiving; Publish must never block.
	for i := 0; i < 50; i++ {
		n.Publish(auth.Event{User: &auth.UserView{ID: "user-1"}})
	}
	n.Publish(auth.Event{User: nil})

	// The newest event survives the drops.
	var last auth.Event
	for {
		select {
		case ev := <-sub.C:
			last = ev
			continue
		default:
		}
		break
	}
	require.Nil(t, last.User)
}

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	n := auth.NewNotifier()
	sub := n.Subscribe()

	sub.Unsubscribe()
	require.NotPanics(t, sub.Unsubscribe)

	// Publishing after unsubscribe must not panic either.
	require.NotPanics(t, func() {
		n.Publish(auth.Event{User: nil})
	})
}
