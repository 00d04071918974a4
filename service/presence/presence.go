package presence

import (
	"time"

	"github.com/peergate/peergate/platform/service"
)

// Peer is the announced network location of a user.
//
// Every user has at most one live announcement, a new announcement replaces
// the previous one in full.
type Peer struct {
	Multiaddr  string    `json:"multiaddr"`
	UserID     uint64    `json:"user_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate performs semantic checks on the passed Peer values for correctness.
func (p *Peer) Validate() error {
	if p.UserID == 0 {
		return wrapError(ErrInvalidPeer, "user id not set")
	}

	if p.Multiaddr == "" {
		return wrapError(ErrInvalidPeer, "multiaddr not set")
	}

	return nil
}

// List is a collection of Peers.
type List []*Peer

func (l List) Len() int {
	return len(l)
}

func (l List) Less(i, j int) bool {
	return l[i].UserID < l[j].UserID
}

func (l List) Swap(i, j int) {
	l[i], l[j] = l[j], l[i]
}

// UserIDs returns the extracted UserID of all peers as list.
func (l List) UserIDs() []uint64 {
	ids := []uint64{}

	for _, p := range l {
		ids = append(ids, p.UserID)
	}

	return ids
}

// QueryOptions are used to narrow down Peer queries.
type QueryOptions struct {
	Limit   int
	UserIDs []uint64
}

// Service for presence interactions.
type Service interface {
	service.Lifecycle

	Delete(namespace string, userID uint64) error
	Put(namespace string, peer *Peer) (*Peer, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service
