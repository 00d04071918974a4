package core

import (
	"time"

	"github.com/peergate/peergate/service/friend"
	"github.com/peergate/peergate/service/request"
	"github.com/peergate/peergate/service/user"
)

var requestLive = false

// RequestFeed is the composite to transport information relevant for friend
// requests.
type RequestFeed struct {
	Requests request.List
	UserMap  user.Map
}

// RequestSubmitFunc opens a friend request from the origin towards the
// receiver.
type RequestSubmitFunc func(
	ns string,
	origin Origin,
	receiverID uint64,
) (*request.Request, error)

// RequestSubmit opens a friend request from the origin towards the receiver.
func RequestSubmit(
	friends friend.Service,
	requests request.Service,
	users user.Service,
) RequestSubmitFunc {
	return func(ns string, origin Origin, receiverID uint64) (*request.Request, error) {
		err := requestEligibility(friends, requests, users, ns, origin.UserID, receiverID)
		if err != nil {
			return nil, err
		}

		return requests.Put(ns, &request.Request{
			ReceiverID: receiverID,
			SenderID:   origin.UserID,
		})
	}
}

// RequestSubmitByNicknameFunc opens a friend request towards the user with
// the given nickname.
type RequestSubmitByNicknameFunc func(
	ns string,
	origin Origin,
	nickname string,
) (*request.Request, error)

// RequestSubmitByNickname opens a friend request towards the user with the
// given nickname.
func RequestSubmitByNickname(
	friends friend.Service,
	requests request.Service,
	users user.Service,
) RequestSubmitByNicknameFunc {
	return func(ns string, origin Origin, nickname string) (*request.Request, error) {
		receiver, err := UserByNickname(users)(ns, nickname)
		if err != nil {
			return nil, err
		}

		return RequestSubmit(friends, requests, users)(ns, origin, receiver.ID)
	}
}

// RequestSubmitByCodeFunc opens a friend request towards the owner of the
// given friend request code.
type RequestSubmitByCodeFunc func(
	ns string,
	origin Origin,
	friendCode string,
) (*request.Request, error)

// RequestSubmitByCode opens a friend request towards the owner of the given
// friend request code.
func RequestSubmitByCode(
	friends friend.Service,
	requests request.Service,
	users user.Service,
) RequestSubmitByCodeFunc {
	return func(ns string, origin Origin, friendCode string) (*request.Request, error) {
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

		receiver := us[0]

		if receiver.ID == origin.UserID {
			return nil, wrapError(ErrConflict, "own friend request code")
		}

		err = requestEligibility(friends, requests, users, ns, origin.UserID, receiver.ID)
		if err != nil {
			return nil, err
		}

		return requests.Put(ns, &request.Request{
			ReceiverID: receiver.ID,
			SenderID:   origin.UserID,
		})
	}
}

// RequestAcceptFunc lets the receiver turn a live request into a friendship.
type RequestAcceptFunc func(ns string, origin Origin, id uint64) error

// RequestAccept lets the receiver turn a live request into a friendship.
// Accepting an already accepted request is a silent success.
func RequestAccept(
	friends friend.Service,
	requests request.Service,
	users user.Service,
) RequestAcceptFunc {
	return func(ns string, origin Origin, id uint64) error {
		r, err := requestFetch(requests, ns, id)
		if err != nil {
			return err
		}

		if err := authorize(origin, r.ReceiverID); err != nil {
			return err
		}

		if r.Accepted {
			return nil
		}

		if r.Cancelled || r.Rejected {
			return wrapError(ErrInvalidState, "request (%d) is closed", id)
		}

		accepted, err := requests.Accept(ns, id)
		if err != nil {
			if request.IsNotLive(err) {
				r, err := requestFetch(requests, ns, id)
				if err != nil {
					return err
				}

				if r.Accepted {
					return nil
				}

				return wrapError(ErrInvalidState, "request (%d) is closed", id)
			}

			if request.IsNotFound(err) {
				return wrapError(ErrNotFound, "request (%d) not found", id)
			}

			return err
		}

		return establishFriendship(friends, ns, accepted.SenderID, accepted.ReceiverID)
	}
}

// RequestRejectFunc lets the receiver turn down a live request.
type RequestRejectFunc func(ns string, origin Origin, id uint64) error

// RequestReject lets the receiver turn down a live request.
func RequestReject(requests request.Service) RequestRejectFunc {
	return func(ns string, origin Origin, id uint64) error {
		r, err := requestFetch(requests, ns, id)
		if err != nil {
			return err
		}

		if err := authorize(origin, r.ReceiverID); err != nil {
			return err
		}

		if !r.IsLive() {
			return wrapError(ErrInvalidState, "request (%d) is closed", id)
		}

		r.Rejected = true

		_, err = requests.Put(ns, r)
		return err
	}
}

// RequestUndoRejectFunc reopens a rejected request.
type RequestUndoRejectFunc func(ns string, origin Origin, id uint64) error

// RequestUndoReject reopens a rejected request with a fresh request time.
func RequestUndoReject(requests request.Service) RequestUndoRejectFunc {
	return func(ns string, origin Origin, id uint64) error {
		r, err := requestFetch(requests, ns, id)
		if err != nil {
			return err
		}

		if err := authorize(origin, r.ReceiverID); err != nil {
			return err
		}

		if !r.Rejected {
			return wrapError(ErrInvalidState, "request (%d) is not rejected", id)
		}

		r.Rejected = false
		r.RequestedAt = time.Now().UTC()

		_, err = requests.Put(ns, r)
		return err
	}
}

// RequestCancelFunc lets the sender withdraw a live request.
type RequestCancelFunc func(ns string, origin Origin, id uint64) error

// RequestCancel lets the sender withdraw a live request.
func RequestCancel(requests request.Service) RequestCancelFunc {
	return func(ns string, origin Origin, id uint64) error {
		r, err := requestFetch(requests, ns, id)
		if err != nil {
			return err
		}

		if err := authorize(origin, r.SenderID); err != nil {
			return err
		}

		if !r.IsLive() {
			return wrapError(ErrInvalidState, "request (%d) is closed", id)
		}

		r.Cancelled = true

		_, err = requests.Put(ns, r)
		return err
	}
}

// RequestResubmitFunc reopens a cancelled request.
type RequestResubmitFunc func(ns string, origin Origin, id uint64) error

// RequestResubmit reopens a cancelled request, the original request time
// stays in place.
func RequestResubmit(requests request.Service) RequestResubmitFunc {
	return func(ns string, origin Origin, id uint64) error {
		r, err := requestFetch(requests, ns, id)
		if err != nil {
			return err
		}

		if err := authorize(origin, r.SenderID); err != nil {
			return err
		}

		if !r.Cancelled {
			return wrapError(ErrInvalidState, "request (%d) is not cancelled", id)
		}

		r.Cancelled = false

		_, err = requests.Put(ns, r)
		return err
	}
}

// RequestDeleteFunc removes a request of the sender for good.
type RequestDeleteFunc func(ns string, origin Origin, id uint64) error

// RequestDelete removes a request of the sender for good.
func RequestDelete(requests request.Service) RequestDeleteFunc {
	return func(ns string, origin Origin, id uint64) error {
		r, err := requestFetch(requests, ns, id)
		if err != nil {
			return err
		}

		if err := authorize(origin, r.SenderID); err != nil {
			return err
		}

		if err := requests.Delete(ns, r.ID); err != nil {
			if request.IsNotFound(err) {
				return wrapError(ErrNotFound, "request (%d) not found", id)
			}

			return err
		}

		return nil
	}
}

// RequestListIncomingFunc returns the live requests awaiting a decision by
// the origin.
type RequestListIncomingFunc func(
	ns string,
	origin Origin,
	opts request.QueryOptions,
) (*RequestFeed, error)

// RequestListIncoming returns the live requests awaiting a decision by the
// origin.
func RequestListIncoming(
	requests request.Service,
	users user.Service,
) RequestListIncomingFunc {
	return func(ns string, origin Origin, opts request.QueryOptions) (*RequestFeed, error) {
		rs, err := requests.Query(ns, request.QueryOptions{
			Accepted:    &requestLive,
			Before:      opts.Before,
			Cancelled:   &requestLive,
			Limit:       opts.Limit,
			ReceiverIDs: []uint64{origin.UserID},
			Rejected:    &requestLive,
		})
		if err != nil {
			return nil, err
		}

		um, err := user.MapFromIDs(users, ns, rs.SenderIDs()...)
		if err != nil {
			return nil, err
		}

		return &RequestFeed{
			Requests: rs,
			UserMap:  um,
		}, nil
	}
}

// RequestListOutgoingFunc returns the live requests opened by the origin.
type RequestListOutgoingFunc func(
	ns string,
	origin Origin,
	opts request.QueryOptions,
) (*RequestFeed, error)

// RequestListOutgoing returns the live requests opened by the origin.
func RequestListOutgoing(
	requests request.Service,
	users user.Service,
) RequestListOutgoingFunc {
	return func(ns string, origin Origin, opts request.QueryOptions) (*RequestFeed, error) {
		rs, err := requests.Query(ns, request.QueryOptions{
			Accepted:  &requestLive,
			Before:    opts.Before,
			Cancelled: &requestLive,
			Limit:     opts.Limit,
			Rejected:  &requestLive,
			SenderIDs: []uint64{origin.UserID},
		})
		if err != nil {
			return nil, err
		}

		um, err := user.MapFromIDs(users, ns, rs.ReceiverIDs()...)
		if err != nil {
			return nil, err
		}

		return &RequestFeed{
			Requests: rs,
			UserMap:  um,
		}, nil
	}
}

// RequestListRejectedFunc returns the requests the origin has turned down and
// may still reopen.
type RequestListRejectedFunc func(
	ns string,
	origin Origin,
	opts request.QueryOptions,
) (*RequestFeed, error)

// RequestListRejected returns the requests the origin has turned down and may
// still reopen.
func RequestListRejected(
	requests request.Service,
	users user.Service,
) RequestListRejectedFunc {
	return func(ns string, origin Origin, opts request.QueryOptions) (*RequestFeed, error) {
		rejected := true

		rs, err := requests.Query(ns, request.QueryOptions{
			Before:      opts.Before,
			Limit:       opts.Limit,
			ReceiverIDs: []uint64{origin.UserID},
			Rejected:    &rejected,
		})
		if err != nil {
			return nil, err
		}

		um, err := user.MapFromIDs(users, ns, rs.SenderIDs()...)
		if err != nil {
			return nil, err
		}

		return &RequestFeed{
			Requests: rs,
			UserMap:  um,
		}, nil
	}
}

func requestEligibility(
	friends friend.Service,
	requests request.Service,
	users user.Service,
	ns string,
	senderID, receiverID uint64,
) error {
	if senderID == receiverID {
		return wrapError(ErrConflict, "sender and receiver are the same")
	}

	if _, err := userFetch(users, ns, senderID); err != nil {
		return err
	}

	if _, err := userFetch(users, ns, receiverID); err != nil {
		return err
	}

	fs, err := friends.Query(ns, friend.QueryOptions{
		Active:    &defaultActive,
		FriendIDs: []uint64{receiverID},
		UserIDs:   []uint64{senderID},
	})
	if err != nil {
		return err
	}

	if len(fs) > 0 {
		return wrapError(ErrConflict, "users are already friends")
	}

	for _, pair := range [][2]uint64{
		{senderID, receiverID},
		{receiverID, senderID},
	} {
		rs, err := requests.Query(ns, request.QueryOptions{
			Accepted:    &requestLive,
			Cancelled:   &requestLive,
			ReceiverIDs: []uint64{pair[1]},
			SenderIDs:   []uint64{pair[0]},
		})
		if err != nil {
			return err
		}

		for _, r := range rs {
			if r.Rejected {
				return wrapError(
					ErrConflict,
					"rejected request between (%d) and (%d)",
					pair[0],
					pair[1],
				)
			}
		}

		if len(rs) > 0 {
			return wrapError(
				ErrConflict,
				"live request between (%d) and (%d)",
				pair[0],
				pair[1],
			)
		}
	}

	return nil
}

func requestFetch(
	requests request.Service,
	ns string,
	id uint64,
) (*request.Request, error) {
	rs, err := requests.Query(ns, request.QueryOptions{
		IDs: []uint64{id},
	})
	if err != nil {
		return nil, err
	}

	if len(rs) == 0 {
		return nil, wrapError(ErrNotFound, "request (%d) not found", id)
	}

	return rs[0], nil
}
