package request

import (
	"fmt"
	"time"

	"github.com/peergate/peergate/platform/service"
)

// List is a collection of friend requests.
type List []*Request

// IDs returns the list of request ids.
func (l List) IDs() []uint64 {
	ids := []uint64{}

	for _, r := range l {
		ids = append(ids, r.ID)
	}

	return ids
}

// SenderIDs returns the sender ids of all requests.
func (l List) SenderIDs() []uint64 {
	ids := []uint64{}

	for _, r := range l {
		ids = append(ids, r.SenderID)
	}

	return ids
}

// ReceiverIDs returns the receiver ids of all requests.
func (l List) ReceiverIDs() []uint64 {
	ids := []uint64{}

	for _, r := range l {
		ids = append(ids, r.ReceiverID)
	}

	return ids
}

// Request is a directed friendship proposal between two users.
//
// A request is live as long as none of the terminal flags is set. Accept,
// reject and cancel are terminal, while reject and cancel can be reverted
// which brings the request back to live.
type Request struct {
	Accepted    bool      `json:"accepted"`
	Cancelled   bool      `json:"cancelled"`
	ID          uint64    `json:"id"`
	ReceiverID  uint64    `json:"receiver_id"`
	Rejected    bool      `json:"rejected"`
	SenderID    uint64    `json:"sender_id"`
	RequestedAt time.Time `json:"requested_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsLive indicates if the request still awaits a decision by the receiver.
func (r *Request) IsLive() bool {
	return !r.Accepted && !r.Cancelled && !r.Rejected
}

// Validate performs semantic checks on the passed Request values for
// correctness.
func (r *Request) Validate() error {
	if r.SenderID == 0 {
		return wrapError(ErrInvalidRequest, "sender id not set")
	}

	if r.ReceiverID == 0 {
		return wrapError(ErrInvalidRequest, "receiver id not set")
	}

	if r.SenderID == r.ReceiverID {
		return wrapError(ErrInvalidRequest, "sender and receiver must differ")
	}

	if r.Accepted && (r.Cancelled || r.Rejected) {
		return wrapError(ErrInvalidRequest, "accepted is terminal")
	}

	return nil
}

// QueryOptions is used to narrow-down request queries.
type QueryOptions struct {
	Accepted    *bool
	Before      time.Time
	Cancelled   *bool
	IDs         []uint64
	Limit       int
	ReceiverIDs []uint64
	Rejected    *bool
	SenderIDs   []uint64
}

// Service for request interactions.
type Service interface {
	service.Lifecycle

	Accept(namespace string, id uint64) (*Request, error)
	Count(namespace string, opts QueryOptions) (int, error)
	Delete(namespace string, id uint64) error
	Put(namespace string, request *Request) (*Request, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

func flakeNamespace(ns string) string {
	return fmt.Sprintf("%s_%s", ns, "requests")
}
