package core

import (
	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/presence"
	"github.com/peergate/peergate/service/user"
)

// PresenceFeed is the composite to transport information relevant for peer
// discovery.
type PresenceFeed struct {
	Peers   presence.List
	UserMap user.Map
}

// PresenceAnnounceFunc publishes the network location of the origin.
type PresenceAnnounceFunc func(
	ns string,
	origin Origin,
	multiaddr string,
) (*presence.Peer, error)

// PresenceAnnounce publishes the network location of the origin, replacing
// any previous announcement.
func PresenceAnnounce(
	peers presence.Service,
	users user.Service,
) PresenceAnnounceFunc {
	return func(ns string, origin Origin, multiaddr string) (*presence.Peer, error) {
		if _, err := userFetch(users, ns, origin.UserID); err != nil {
			return nil, err
		}

		p, err := peers.Put(ns, &presence.Peer{
			Multiaddr: multiaddr,
			UserID:    origin.UserID,
		})
		if err != nil {
			if presence.IsInvalidPeer(err) {
				return nil, wrapError(ErrInvalidEntity, "%s", err)
			}

			return nil, err
		}

		return p, nil
	}
}

// PresenceWithdrawFunc removes the announcement of the origin.
type PresenceWithdrawFunc func(ns string, origin Origin) error

// PresenceWithdraw removes the announcement of the origin, withdrawing twice
// is a silent success.
func PresenceWithdraw(
	peers presence.Service,
	users user.Service,
) PresenceWithdrawFunc {
	return func(ns string, origin Origin) error {
		if _, err := userFetch(users, ns, origin.UserID); err != nil {
			return err
		}

		return peers.Delete(ns, origin.UserID)
	}
}

// PresenceListReachableFunc returns the announced peers the origin is allowed
// to connect to.
type PresenceListReachableFunc func(ns string, origin Origin) (*PresenceFeed, error)

// PresenceListReachable returns the announced peers of all mutual active
// friends of the origin.
func PresenceListReachable(
	friends friend.Service,
	peers presence.Service,
	users user.Service,
) PresenceListReachableFunc {
	return func(ns string, origin Origin) (*PresenceFeed, error) {
		if _, err := userFetch(users, ns, origin.UserID); err != nil {
			return nil, err
		}

		outbound, err := friends.Query(ns, friend.QueryOptions{
			Active:  &defaultActive,
			UserIDs: []uint64{origin.UserID},
		})
		if err != nil {
			return nil, err
		}

		inbound, err := friends.Query(ns, friend.QueryOptions{
			Active:    &defaultActive,
			FriendIDs: []uint64{origin.UserID},
		})
		if err != nil {
			return nil, err
		}

		reverse := map[uint64]struct{}{}

		for _, f := range inbound {
			reverse[f.UserID] = struct{}{}
		}

		ids := []uint64{}

		for _, f := range outbound {
			if f.FriendID == origin.UserID {
				continue
			}

			if _, ok := reverse[f.FriendID]; ok {
				ids = append(ids, f.FriendID)
			}
		}

		if len(ids) == 0 {
			return &PresenceFeed{
				Peers:   presence.List{},
				UserMap: user.Map{},
			}, nil
		}

		ps, err := peers.Query(ns, presence.QueryOptions{
			UserIDs: ids,
		})
		if err != nil {
			return nil, err
		}

		um, err := user.MapFromIDs(users, ns, ps.UserIDs()...)
		if err != nil {
			return nil, err
		}

		return &PresenceFeed{
			Peers:   ps,
			UserMap: um,
		}, nil
	}
}
