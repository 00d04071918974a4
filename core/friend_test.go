package core

import (
	"testing"

	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/user"
)

func TestCanChat(t *testing.T) {
	var (
		ns      = "can_chat"
		friends = friend.MemService()
		users   = user.MemService()
		a       = createUser(t, users, ns)
		b       = createUser(t, users, ns)
		fn      = CanChat(friends)
	)

	mutual, err := fn(ns, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := mutual, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if err := establishFriendship(friends, ns, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	// direction independent
	for _, pair := range [][2]uint64{
		{a.ID, b.ID},
		{b.ID, a.ID},
	} {
		mutual, err := fn(ns, pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}

		if have, want := mutual, true; have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func TestFriendDeactivateRestore(t *testing.T) {
	var (
		ns         = "friend_deactivate_restore"
		friends    = friend.MemService()
		users      = user.MemService()
		a          = createUser(t, users, ns)
		b          = createUser(t, users, ns)
		canChat    = CanChat(friends)
		deactivate = FriendDeactivate(friends)
		restore    = FriendRestore(friends)
	)

	if err := establishFriendship(friends, ns, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	if err := deactivate(ns, Origin{UserID: a.ID}, b.ID); err != nil {
		t.Fatal(err)
	}

	// one dead edge is enough to block the chat
	mutual, err := canChat(ns, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := mutual, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// the reverse edge is untouched
	fs, err := friends.Query(ns, friend.QueryOptions{
		FriendIDs: []uint64{a.ID},
		UserIDs:   []uint64{b.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := fs[0].Active, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// deactivating an already inactive edge changes nothing
	if err := deactivate(ns, Origin{UserID: a.ID}, b.ID); err != nil {
		t.Errorf("have %v, want nil", err)
	}

	if err := restore(ns, Origin{UserID: a.ID}, b.ID); err != nil {
		t.Fatal(err)
	}

	mutual, err = canChat(ns, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := mutual, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// restored edge keeps its creation time and loses the deletion mark
	fs, err = friends.Query(ns, friend.QueryOptions{
		FriendIDs: []uint64{b.ID},
		UserIDs:   []uint64{a.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if fs[0].DeletedAt != nil {
		t.Errorf("deletion mark not cleared")
	}

	// restoring an already active edge changes nothing
	if err := restore(ns, Origin{UserID: a.ID}, b.ID); err != nil {
		t.Errorf("have %v, want nil", err)
	}

	mutual, err = canChat(ns, a.ID, b.ID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := mutual, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	err = restore(ns, Origin{UserID: a.ID}, b.ID+1000)
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}
}

func TestFriendsActiveInactive(t *testing.T) {
	var (
		ns         = "friends_active_inactive"
		friends    = friend.MemService()
		users      = user.MemService()
		origin     = createUser(t, users, ns)
		active     = FriendsActive(friends, users)
		inactive   = FriendsInactive(friends, users)
		deactivate = FriendDeactivate(friends)

		first = createUser(t, users, ns)
	)

	if err := establishFriendship(friends, ns, origin.ID, first.ID); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		other := createUser(t, users, ns)

		if err := establishFriendship(friends, ns, origin.ID, other.ID); err != nil {
			t.Fatal(err)
		}
	}

	feed, err := active(ns, Origin{UserID: origin.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Friends), 3; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := len(feed.UserMap), 3; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if err := deactivate(ns, Origin{UserID: origin.ID}, first.ID); err != nil {
		t.Fatal(err)
	}

	feed, err = active(ns, Origin{UserID: origin.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Friends), 2; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	feed, err = inactive(ns, Origin{UserID: origin.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Friends), 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if _, ok := feed.UserMap[first.ID]; !ok {
		t.Errorf("deactivated friend missing from user map")
	}
}
