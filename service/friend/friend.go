package friend

import (
	"time"

	"github.com/peergate/peergate/platform/service"
	"github.com/peergate/peergate/platform/source"
)

// Friend is a directed edge in the social graph.
//
// A mutual friendship is represented by the pair of directed edges between
// two users. Edges are soft-deleted so a friendship can be restored with its
// original creation time intact.
type Friend struct {
	Active    bool       `json:"active"`
	FriendID  uint64     `json:"friend_id"`
	UserID    uint64     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MatchOpts indicates if the Friend matches the given QueryOptions.
func (f *Friend) MatchOpts(opts *QueryOptions) bool {
	if opts == nil {
		return true
	}

	if opts.Active != nil && f.Active != *opts.Active {
		return false
	}

	return true
}

// Validate performs checks on the Friend values for completeness and
// correctness.
func (f Friend) Validate() error {
	if f.UserID == 0 {
		return wrapError(ErrInvalidFriend, "user id not set")
	}

	if f.FriendID == 0 {
		return wrapError(ErrInvalidFriend, "friend id not set")
	}

	if f.UserID == f.FriendID {
		return wrapError(ErrInvalidFriend, "user and friend must differ")
	}

	if f.Active && f.DeletedAt != nil {
		return wrapError(ErrInvalidFriend, "active edge must not carry deletion time")
	}

	return nil
}

// List is a collection of Friends.
type List []*Friend

func (l List) Len() int {
	return len(l)
}

func (l List) Less(i, j int) bool {
	return l[i].UpdatedAt.After(l[j].UpdatedAt)
}

func (l List) Swap(i, j int) {
	l[i], l[j] = l[j], l[i]
}

// FriendIDs returns the extracted FriendID of all edges as list.
func (l List) FriendIDs() []uint64 {
	ids := []uint64{}

	for _, f := range l {
		ids = append(ids, f.FriendID)
	}

	return ids
}

// UserIDs returns the extracted UserID of all edges as list.
func (l List) UserIDs() []uint64 {
	ids := []uint64{}

	for _, f := range l {
		ids = append(ids, f.UserID)
	}

	return ids
}

// Consumer observes state changes.
type Consumer interface {
	Consume() (*StateChange, error)
}

// Producer creates state change notifications.
type Producer interface {
	Propagate(namespace string, old, new *Friend) (string, error)
}

// QueryOptions are used to narrow down Friend queries.
type QueryOptions struct {
	Active    *bool     `json:"active,omitempty"`
	Before    time.Time `json:"-"`
	FriendIDs []uint64  `json:"friend_ids,omitempty"`
	Limit     int       `json:"-"`
	UserIDs   []uint64  `json:"user_ids,omitempty"`
}

// Service for friend edge interactions.
type Service interface {
	service.Lifecycle

	Count(namespace string, opts QueryOptions) (int, error)
	Put(namespace string, friend *Friend) (*Friend, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

// StateChange transports all information necessary to observe state changes.
type StateChange struct {
	AckID     string
	ID        string
	Namespace string
	New       *Friend
	Old       *Friend
	SentAt    time.Time
}

// Source encapsulates state change notification operations.
type Source interface {
	source.Acker
	Consumer
	Producer
}

// SourceMiddleware is a chainable behaviour modifier for Source.
type SourceMiddleware func(Source) Source
