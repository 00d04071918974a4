package core

import (
	"time"

	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/user"
)

// FriendFeed is the composite to transport information relevant for
// friendships.
type FriendFeed struct {
	Friends friend.List
	UserMap user.Map
}

// FriendDeactivateFunc soft-deletes the origins directed edge towards the
// given friend.
type FriendDeactivateFunc func(ns string, origin Origin, friendID uint64) error

// FriendDeactivate soft-deletes the origins directed edge towards the given
// friend. The reverse edge is left untouched so the friendship can be
// restored by the origin alone. An already inactive edge stays as it is.
func FriendDeactivate(friends friend.Service) FriendDeactivateFunc {
	return func(ns string, origin Origin, friendID uint64) error {
		f, err := friendFetch(friends, ns, origin.UserID, friendID)
		if err != nil {
			return err
		}

		if !f.Active {
			return nil
		}

		now := time.Now().UTC()

		f.Active = false
		f.DeletedAt = &now

		_, err = friends.Put(ns, f)
		return err
	}
}

// FriendRestoreFunc re-activates a soft-deleted edge of the origin.
type FriendRestoreFunc func(ns string, origin Origin, friendID uint64) error

// FriendRestore re-activates a soft-deleted edge of the origin. An already
// active edge stays as it is.
func FriendRestore(friends friend.Service) FriendRestoreFunc {
	return func(ns string, origin Origin, friendID uint64) error {
		f, err := friendFetch(friends, ns, origin.UserID, friendID)
		if err != nil {
			return err
		}

		if f.Active {
			return nil
		}

		f.Active = true
		f.DeletedAt = nil

		_, err = friends.Put(ns, f)
		return err
	}
}

// CanChatFunc indicates if both directed edges between the users are active.
type CanChatFunc func(ns string, a, b uint64) (bool, error)

// CanChat indicates if both directed edges between the users are active.
func CanChat(friends friend.Service) CanChatFunc {
	return func(ns string, a, b uint64) (bool, error) {
		fs, err := friends.Query(ns, friend.QueryOptions{
			Active:    &defaultActive,
			FriendIDs: []uint64{b},
			UserIDs:   []uint64{a},
		})
		if err != nil {
			return false, err
		}

		if len(fs) == 0 {
			return false, nil
		}

		fs, err = friends.Query(ns, friend.QueryOptions{
			Active:    &defaultActive,
			FriendIDs: []uint64{a},
			UserIDs:   []uint64{b},
		})
		if err != nil {
			return false, err
		}

		return len(fs) > 0, nil
	}
}

// FriendsActiveFunc returns the active friends of the origin.
type FriendsActiveFunc func(ns string, origin Origin) (*FriendFeed, error)

// FriendsActive returns the active friends of the origin.
func FriendsActive(
	friends friend.Service,
	users user.Service,
) FriendsActiveFunc {
	return func(ns string, origin Origin) (*FriendFeed, error) {
		return friendFeed(friends, users, ns, origin, true)
	}
}

// FriendsInactiveFunc returns the soft-deleted friends of the origin.
type FriendsInactiveFunc func(ns string, origin Origin) (*FriendFeed, error)

// FriendsInactive returns the soft-deleted friends of the origin.
func FriendsInactive(
	friends friend.Service,
	users user.Service,
) FriendsInactiveFunc {
	return func(ns string, origin Origin) (*FriendFeed, error) {
		return friendFeed(friends, users, ns, origin, false)
	}
}

// establishFriendship is the only place where graph edges come into
// existence, both the ledger and the request flow funnel through it. Existing
// edges are re-activated with their original creation time.
func establishFriendship(friends friend.Service, ns string, a, b uint64) error {
	for _, pair := range [][2]uint64{
		{a, b},
		{b, a},
	} {
		fs, err := friends.Query(ns, friend.QueryOptions{
			FriendIDs: []uint64{pair[1]},
			UserIDs:   []uint64{pair[0]},
		})
		if err != nil {
			return err
		}

		f := &friend.Friend{
			Active:   true,
			FriendID: pair[1],
			UserID:   pair[0],
		}

		if len(fs) > 0 {
			f = fs[0]
			f.Active = true
			f.DeletedAt = nil
		}

		if _, err := friends.Put(ns, f); err != nil {
			return err
		}
	}

	return nil
}

func friendFeed(
	friends friend.Service,
	users user.Service,
	ns string,
	origin Origin,
	active bool,
) (*FriendFeed, error) {
	if _, err := userFetch(users, ns, origin.UserID); err != nil {
		return nil, err
	}

	fs, err := friends.Query(ns, friend.QueryOptions{
		Active:  &active,
		UserIDs: []uint64{origin.UserID},
	})
	if err != nil {
		return nil, err
	}

	um, err := user.MapFromIDs(users, ns, fs.FriendIDs()...)
	if err != nil {
		return nil, err
	}

	return &FriendFeed{
		Friends: fs,
		UserMap: um,
	}, nil
}

func friendFetch(
	friends friend.Service,
	ns string,
	userID, friendID uint64,
) (*friend.Friend, error) {
	fs, err := friends.Query(ns, friend.QueryOptions{
		FriendIDs: []uint64{friendID},
		UserIDs:   []uint64{userID},
	})
	if err != nil {
		return nil, err
	}

	if len(fs) == 0 {
		return nil, wrapError(
			ErrNotFound,
			"no friendship between (%d) and (%d)",
			userID,
			friendID,
		)
	}

	return fs[0], nil
}
