package request

import (
	"math"
	"sync"
	"time"

	"github.com/peergate/peergate/platform/flake"
)

type memService struct {
	mu       sync.Mutex
	requests map[string]map[uint64]*Request
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		requests: map[string]map[uint64]*Request{},
	}
}

func (s *memService) Accept(ns string, id uint64) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	stored, ok := s.requests[ns][id]
	if !ok {
		return nil, wrapError(ErrNotFound, "request (%d) not found", id)
	}

	if !stored.IsLive() {
		return nil, wrapError(ErrNotLive, "request (%d)", id)
	}

	stored.Accepted = true
	stored.UpdatedAt = time.Now().UTC()

	return copyRequest(stored), nil
}

func (s *memService) Count(ns string, opts QueryOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return 0, err
	}

	return len(filterMap(s.requests[ns], opts)), nil
}

func (s *memService) Delete(ns string, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return err
	}

	if _, ok := s.requests[ns][id]; !ok {
		return wrapError(ErrNotFound, "request (%d) not found", id)
	}

	delete(s.requests[ns], id)

	return nil
}

func (s *memService) Put(ns string, input *Request) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.requests[ns]
		now    = time.Now().UTC()
	)

	if input.ID == 0 {
		id, err := flake.NextID(flakeNamespace(ns))
		if err != nil {
			return nil, err
		}

		if input.CreatedAt.IsZero() {
			input.CreatedAt = now
		}
		input.CreatedAt = input.CreatedAt.UTC()
		input.ID = id

		if input.RequestedAt.IsZero() {
			input.RequestedAt = input.CreatedAt
		}
	} else {
		stored, ok := bucket[input.ID]
		if !ok {
			return nil, ErrNotFound
		}

		input.CreatedAt = stored.CreatedAt
	}

	input.RequestedAt = input.RequestedAt.UTC()
	input.UpdatedAt = now
	bucket[input.ID] = copyRequest(input)

	return copyRequest(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	return filterMap(s.requests[ns], opts), nil
}

func (s *memService) Setup(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setup(ns)
}

func (s *memService) Teardown(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.requests, ns)

	return nil
}

func (s *memService) setup(ns string) error {
	if _, ok := s.requests[ns]; !ok {
		s.requests[ns] = map[uint64]*Request{}
	}

	return nil
}

func copyRequest(r *Request) *Request {
	o := *r
	return &o
}

func filterMap(rm map[uint64]*Request, opts QueryOptions) List {
	rs := List{}

	for _, r := range rm {
		if opts.Accepted != nil && r.Accepted != *opts.Accepted {
			continue
		}

		if !opts.Before.IsZero() && !r.CreatedAt.Before(opts.Before) {
			continue
		}

		if opts.Cancelled != nil && r.Cancelled != *opts.Cancelled {
			continue
		}

		if !inIDs(r.ID, opts.IDs) {
			continue
		}

		if !inIDs(r.ReceiverID, opts.ReceiverIDs) {
			continue
		}

		if opts.Rejected != nil && r.Rejected != *opts.Rejected {
			continue
		}

		if !inIDs(r.SenderID, opts.SenderIDs) {
			continue
		}

		rs = append(rs, copyRequest(r))
	}

	if opts.Limit > 0 {
		l := math.Min(float64(len(rs)), float64(opts.Limit))

		return rs[:int(l)]
	}

	return rs
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
