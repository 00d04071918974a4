package core

import (
	"time"

	"github.com/peergate/peergate/service/code"
	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/presence"
	"github.com/peergate/peergate/service/request"
	"github.com/peergate/peergate/service/user"
)

// UserFetchFunc returns the enabled user for the given id.
type UserFetchFunc func(ns string, id uint64) (*user.User, error)

// UserFetch returns the enabled user for the given id.
func UserFetch(users user.Service) UserFetchFunc {
	return func(ns string, id uint64) (*user.User, error) {
		return userFetch(users, ns, id)
	}
}

// UserByNicknameFunc returns the enabled user with the given nickname.
type UserByNicknameFunc func(ns string, nickname string) (*user.User, error)

// UserByNickname returns the enabled user with the given nickname.
func UserByNickname(users user.Service) UserByNicknameFunc {
	return func(ns string, nickname string) (*user.User, error) {
		us, err := users.Query(ns, user.QueryOptions{
			Enabled:   &defaultEnabled,
			Nicknames: []string{nickname},
		})
		if err != nil {
			return nil, err
		}

		if len(us) == 0 {
			return nil, wrapError(ErrNotFound, "user (%s) not found", nickname)
		}

		return us[0], nil
	}
}

// UserByFriendCodeFunc resolves a friend request code to its owner.
type UserByFriendCodeFunc func(ns string, friendCode string) (*user.User, error)

// UserByFriendCode resolves a friend request code to its owner.
func UserByFriendCode(users user.Service) UserByFriendCodeFunc {
	return func(ns string, friendCode string) (*user.User, error) {
		us, err := users.Query(ns, user.QueryOptions{
			Enabled:            &defaultEnabled,
			FriendRequestCodes: []string{friendCode},
		})
		if err != nil {
			return nil, err
		}

		if len(us) == 0 {
			return nil, wrapError(ErrNotFound, "no user for code (%s)", friendCode)
		}

		return us[0], nil
	}
}

// UserReferralsFunc returns the users who joined over a code owned by the
// origin.
type UserReferralsFunc func(ns string, origin Origin) (user.List, error)

// UserReferrals returns the users who joined over a code owned by the origin.
func UserReferrals(
	codes code.Service,
	users user.Service,
) UserReferralsFunc {
	return func(ns string, origin Origin) (user.List, error) {
		if _, err := userFetch(users, ns, origin.UserID); err != nil {
			return nil, err
		}

		used := true

		cs, err := codes.Query(ns, code.QueryOptions{
			OwnerIDs: []uint64{origin.UserID},
			Used:     &used,
		})
		if err != nil {
			return nil, err
		}

		ids := []uint64{}

		for _, c := range cs {
			if c.UsedByID != 0 {
				ids = append(ids, c.UsedByID)
			}
		}

		return user.ListFromIDs(users, ns, ids...)
	}
}

// UserReferrerFunc returns the user who invited the origin into the network.
type UserReferrerFunc func(ns string, origin Origin) (*user.User, error)

// UserReferrer returns the user who invited the origin into the network.
func UserReferrer(
	codes code.Service,
	users user.Service,
) UserReferrerFunc {
	return func(ns string, origin Origin) (*user.User, error) {
		u, err := userFetch(users, ns, origin.UserID)
		if err != nil {
			return nil, err
		}

		if u.UsedReferralCode == user.CodeNone {
			return nil, wrapError(ErrNotFound, "user (%d) joined without referral", u.ID)
		}

		cs, err := codes.Query(ns, code.QueryOptions{
			Codes: []string{u.UsedReferralCode},
		})
		if err != nil {
			return nil, err
		}

		if len(cs) == 0 {
			return nil, wrapError(ErrNotFound, "code (%s) not found", u.UsedReferralCode)
		}

		return userFetch(users, ns, cs[0].OwnerID)
	}
}

// UserDeleteFunc removes the origin from the network. Nothing the origin is
// named on survives: presence, edges in both directions, owned codes and
// requests are cleaned up before the identity itself is tombstoned.
type UserDeleteFunc func(ns string, origin Origin) error

// UserDelete removes the origin from the network.
func UserDelete(
	codes code.Service,
	friends friend.Service,
	peers presence.Service,
	requests request.Service,
	users user.Service,
) UserDeleteFunc {
	return func(ns string, origin Origin) error {
		u, err := userFetch(users, ns, origin.UserID)
		if err != nil {
			return err
		}

		if err := peers.Delete(ns, u.ID); err != nil {
			return err
		}

		now := time.Now().UTC()

		for _, opts := range []friend.QueryOptions{
			{Active: &defaultActive, UserIDs: []uint64{u.ID}},
			{Active: &defaultActive, FriendIDs: []uint64{u.ID}},
		} {
			fs, err := friends.Query(ns, opts)
			if err != nil {
				return err
			}

			for _, f := range fs {
				f.Active = false
				f.DeletedAt = &now

				if _, err := friends.Put(ns, f); err != nil {
					return err
				}
			}
		}

		cs, err := codes.Query(ns, code.QueryOptions{
			OwnerIDs: []uint64{u.ID},
		})
		if err != nil {
			return err
		}

		for _, c := range cs {
			c.Deleted = true

			if _, err := codes.Put(ns, c); err != nil {
				return err
			}
		}

		for _, opts := range []request.QueryOptions{
			{SenderIDs: []uint64{u.ID}},
			{ReceiverIDs: []uint64{u.ID}},
		} {
			rs, err := requests.Query(ns, opts)
			if err != nil {
				return err
			}

			for _, r := range rs {
				if err := requests.Delete(ns, r.ID); err != nil {
					return err
				}
			}
		}

		u.Deleted = true
		u.Enabled = false

		_, err = users.Put(ns, u)
		return err
	}
}

func userFetch(users user.Service, ns string, id uint64) (*user.User, error) {
	us, err := users.Query(ns, user.QueryOptions{
		Enabled: &defaultEnabled,
		IDs:     []uint64{id},
	})
	if err != nil {
		return nil, err
	}

	if len(us) == 0 {
		return nil, wrapError(ErrNotFound, "user (%d) not found", id)
	}

	return us[0], nil
}
