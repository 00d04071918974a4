package presence

import (
	"math"
	"sort"
	"sync"
	"time"
)

type memService struct {
	mu    sync.Mutex
	peers map[string]map[uint64]*Peer
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		peers: map[string]map[uint64]*Peer{},
	}
}

func (s *memService) Delete(ns string, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return err
	}

	delete(s.peers[ns], userID)

	return nil
}

func (s *memService) Put(ns string, input *Peer) (*Peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.peers[ns]
		now    = time.Now().UTC()
	)

	if stored, ok := bucket[input.UserID]; ok {
		input.CreatedAt = stored.CreatedAt
	} else {
		if input.CreatedAt.IsZero() {
			input.CreatedAt = now
		}
		input.CreatedAt = input.CreatedAt.UTC()
	}

	if input.LastSeenAt.IsZero() {
		input.LastSeenAt = now
	}
	input.LastSeenAt = input.LastSeenAt.UTC()
	input.UpdatedAt = now

	bucket[input.UserID] = copyPeer(input)

	return copyPeer(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	return filterMap(s.peers[ns], opts), nil
}

func (s *memService) Setup(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setup(ns)
}

func (s *memService) Teardown(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.peers, ns)

	return nil
}

func (s *memService) setup(ns string) error {
	if _, ok := s.peers[ns]; !ok {
		s.peers[ns] = map[uint64]*Peer{}
	}

	return nil
}

func copyPeer(p *Peer) *Peer {
	o := *p
	return &o
}

func filterMap(pm map[uint64]*Peer, opts QueryOptions) List {
	ps := List{}

	for _, p := range pm {
		if !inIDs(p.UserID, opts.UserIDs) {
			continue
		}

		ps = append(ps, copyPeer(p))
	}

	sort.Sort(ps)

	if opts.Limit > 0 {
		l := math.Min(float64(len(ps)), float64(opts.Limit))

		return ps[:int(l)]
	}

	return ps
}

func inIDs(id uint64, ids []uint64) bool {
	if len(ids) == 0 {
		return true
	}

	for _, i := range ids {
		if i == id {
			return true
		}
	}

	return false
}
