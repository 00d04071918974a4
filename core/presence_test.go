package core

import (
	"testing"

	"github.com/peergate/peergate/service/code"
	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/presence"
	"github.com/peergate/peergate/service/user"
)

func TestPresenceAnnounceWithdraw(t *testing.T) {
	var (
		ns       = "presence_announce_withdraw"
		peers    = presence.MemService()
		users    = user.MemService()
		origin   = createUser(t, users, ns)
		announce = PresenceAnnounce(peers, users)
		withdraw = PresenceWithdraw(peers, users)
	)

	p, err := announce(ns, Origin{UserID: origin.ID}, "/ip4/10.0.0.1/tcp/4001")
	if err != nil {
		t.Fatal(err)
	}

	if p.LastSeenAt.IsZero() {
		t.Errorf("last seen not stamped")
	}

	// a new announcement replaces the old one
	_, err = announce(ns, Origin{UserID: origin.ID}, "/ip4/10.0.0.2/tcp/4001")
	if err != nil {
		t.Fatal(err)
	}

	ps, err := peers.Query(ns, presence.QueryOptions{
		UserIDs: []uint64{origin.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(ps), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := ps[0].Multiaddr, "/ip4/10.0.0.2/tcp/4001"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if err := withdraw(ns, Origin{UserID: origin.ID}); err != nil {
		t.Fatal(err)
	}

	// withdrawing twice is a silent success
	if err := withdraw(ns, Origin{UserID: origin.ID}); err != nil {
		t.Errorf("have %v, want nil", err)
	}

	_, err = announce(ns, Origin{UserID: origin.ID + 1000}, "/ip4/10.0.0.3/tcp/4001")
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}
}

func TestPresenceListReachable(t *testing.T) {
	var (
		ns      = "presence_list_reachable"
		codes   = code.MemService()
		friends = friend.MemService()
		peers   = presence.MemService()
		users   = user.MemService()

		announce   = PresenceAnnounce(peers, users)
		deactivate = FriendDeactivate(friends)
		reachable  = PresenceListReachable(friends, peers, users)
		redeem     = InviteRedeem(codes, friends, users, CodeAcceptAll())
		restore    = FriendRestore(friends)

		alice = createUser(t, users, ns)
	)

	bob, err := redeem(ns, createCode(t, codes, ns, alice.ID).Code, "bob")
	if err != nil {
		t.Fatal(err)
	}

	carol, err := redeem(ns, createCode(t, codes, ns, bob.ID).Code, "carol")
	if err != nil {
		t.Fatal(err)
	}

	for _, u := range []uint64{alice.ID, bob.ID, carol.ID} {
		_, err := announce(ns, Origin{UserID: u}, "/ip4/10.0.0.1/tcp/4001")
		if err != nil {
			t.Fatal(err)
		}
	}

	// bob reaches both, alice and carol only reach bob
	feed, err := reachable(ns, Origin{UserID: bob.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Peers), 2; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	for i := 1; i < len(feed.Peers); i++ {
		if feed.Peers[i-1].UserID > feed.Peers[i].UserID {
			t.Errorf("peers not ordered by user id")
		}
	}

	feed, err = reachable(ns, Origin{UserID: alice.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Peers), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := feed.Peers[0].UserID, bob.ID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if _, ok := feed.UserMap[bob.ID]; !ok {
		t.Errorf("bob missing from user map")
	}

	// a one-sided deactivation hides both parties from each other
	if err := deactivate(ns, Origin{UserID: alice.ID}, bob.ID); err != nil {
		t.Fatal(err)
	}

	feed, err = reachable(ns, Origin{UserID: alice.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Peers), 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	feed, err = reachable(ns, Origin{UserID: bob.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Peers), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := feed.Peers[0].UserID, carol.ID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// restoring brings the visibility back
	if err := restore(ns, Origin{UserID: alice.ID}, bob.ID); err != nil {
		t.Fatal(err)
	}

	feed, err = reachable(ns, Origin{UserID: alice.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Peers), 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// withdrawn peers drop out of the feed
	if err := peers.Delete(ns, bob.ID); err != nil {
		t.Fatal(err)
	}

	feed, err = reachable(ns, Origin{UserID: alice.ID})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(feed.Peers), 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}
