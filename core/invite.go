package core

import (
	"time"

	"github.com/peergate/peergate/platform/generate"
	"github.com/peergate/peergate/service/code"
	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/user"
)

const (
	codeLength         = 8
	codeMaxOutstanding = 3
)

// CodePolicy decides if a referral code is still redeemable.
type CodePolicy func(*code.Code) bool

// CodeAcceptAll lets every stored code pass.
func CodeAcceptAll() CodePolicy {
	return func(*code.Code) bool {
		return true
	}
}

// CodeMaxAge rejects codes older than the given duration.
func CodeMaxAge(age time.Duration) CodePolicy {
	return func(c *code.Code) bool {
		return time.Since(c.CreatedAt) <= age
	}
}

// InviteIssueFunc mints a fresh referral code for the origin.
type InviteIssueFunc func(ns string, origin Origin) (*code.Code, error)

// InviteIssue mints a fresh referral code for the origin as long as the
// outstanding amount of unused codes stays below the limit.
func InviteIssue(
	codes code.Service,
	users user.Service,
) InviteIssueFunc {
	return func(ns string, origin Origin) (*code.Code, error) {
		if _, err := userFetch(users, ns, origin.UserID); err != nil {
			return nil, err
		}

		var (
			deleted = false
			unused  = false
		)

		outstanding, err := codes.Count(ns, code.QueryOptions{
			Deleted:  &deleted,
			OwnerIDs: []uint64{origin.UserID},
			Used:     &unused,
		})
		if err != nil {
			return nil, err
		}

		if outstanding >= codeMaxOutstanding {
			return nil, wrapError(
				ErrCapacity,
				"user (%d) has %d outstanding codes",
				origin.UserID,
				outstanding,
			)
		}

		return codes.Put(ns, &code.Code{
			Code:    generate.RandomString(codeLength),
			OwnerID: origin.UserID,
		})
	}
}

// InviteListFunc returns all codes owned by the origin.
type InviteListFunc func(ns string, origin Origin) (code.List, error)

// InviteList returns all codes owned by the origin.
func InviteList(
	codes code.Service,
	users user.Service,
) InviteListFunc {
	return func(ns string, origin Origin) (code.List, error) {
		if _, err := userFetch(users, ns, origin.UserID); err != nil {
			return nil, err
		}

		deleted := false

		return codes.Query(ns, code.QueryOptions{
			Deleted:  &deleted,
			OwnerIDs: []uint64{origin.UserID},
		})
	}
}

// InviteActiveFunc checks if the given code can still be redeemed.
type InviteActiveFunc func(ns string, codeValue string) (*code.Code, error)

// InviteActive checks if the given code can still be redeemed.
func InviteActive(codes code.Service, policy CodePolicy) InviteActiveFunc {
	return func(ns string, codeValue string) (*code.Code, error) {
		cs, err := codes.Query(ns, code.QueryOptions{
			Codes: []string{codeValue},
		})
		if err != nil {
			return nil, err
		}

		if len(cs) == 0 || cs[0].Deleted {
			return nil, wrapError(ErrNotFound, "code (%s) not found", codeValue)
		}

		if cs[0].Used {
			return nil, wrapError(ErrInvalidState, "code (%s) already used", codeValue)
		}

		if !policy(cs[0]) {
			return nil, wrapError(ErrInvalidState, "code (%s) expired", codeValue)
		}

		return cs[0], nil
	}
}

// InviteRedeemFunc turns an unused referral code into a fresh identity which
// is befriended with the code owner.
type InviteRedeemFunc func(ns string, codeValue, nickname string) (*user.User, error)

// InviteRedeem turns an unused referral code into a fresh identity.
//
// The claim on the code is the serialisation point, every later failure
// releases the claim again.
func InviteRedeem(
	codes code.Service,
	friends friend.Service,
	users user.Service,
	policy CodePolicy,
) InviteRedeemFunc {
	return func(ns string, codeValue, nickname string) (*user.User, error) {
		claimed, err := codes.Claim(ns, codeValue, 0)
		if err != nil {
			if code.IsNotFound(err) {
				return nil, wrapError(ErrNotFound, "code (%s) not found", codeValue)
			}

			if code.IsAlreadyUsed(err) {
				return nil, wrapError(ErrInvalidState, "code (%s) already used", codeValue)
			}

			return nil, err
		}

		if !policy(claimed) {
			_ = codes.Release(ns, codeValue)

			return nil, wrapError(ErrInvalidState, "code (%s) expired", codeValue)
		}

		if err := users.ClaimReferralSlot(ns, claimed.OwnerID); err != nil {
			_ = codes.Release(ns, codeValue)

			if user.IsNoSlots(err) {
				return nil, wrapError(
					ErrCapacity,
					"owner (%d) out of referral slots",
					claimed.OwnerID,
				)
			}

			if user.IsNotFound(err) {
				return nil, wrapError(ErrNotFound, "owner (%d) not found", claimed.OwnerID)
			}

			return nil, err
		}

		created, err := users.Put(ns, &user.User{
			Enabled:                true,
			FriendRequestCode:      generate.RandomString(codeLength),
			Nickname:               nickname,
			RemainingReferralSlots: user.DefaultReferralSlots,
			UsedReferralCode:       claimed.Code,
		})
		if err != nil {
			restoreReferralSlot(users, ns, claimed.OwnerID)
			_ = codes.Release(ns, codeValue)

			if user.IsNotUnique(err) {
				return nil, wrapError(ErrConflict, "nickname (%s) taken", nickname)
			}

			if user.IsInvalidUser(err) {
				return nil, wrapError(ErrInvalidEntity, "%s", err)
			}

			return nil, err
		}

		claimed.UsedByID = created.ID

		if _, err := codes.Put(ns, claimed); err != nil {
			return nil, err
		}

		_, err = codes.Put(ns, &code.Code{
			Code:    generate.RandomString(codeLength),
			OwnerID: created.ID,
		})
		if err != nil {
			return nil, err
		}

		if err := establishFriendship(friends, ns, claimed.OwnerID, created.ID); err != nil {
			return nil, err
		}

		return created, nil
	}
}

// restoreReferralSlot compensates a claimed slot after a failed redemption,
// failures are swallowed as the claim error takes precedence.
func restoreReferralSlot(users user.Service, ns string, id uint64) {
	us, err := users.Query(ns, user.QueryOptions{
		IDs: []uint64{id},
	})
	if err != nil || len(us) == 0 {
		return
	}

	us[0].RemainingReferralSlots++

	_, _ = users.Put(ns, us[0])
}
