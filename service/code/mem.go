package code

import (
	"math"
	"sync"
	"time"

	"github.com/peergate/peergate/platform/flake"
)

type memService struct {
	mu    sync.Mutex
	codes map[string]map[uint64]*Code
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		codes: map[string]map[uint64]*Code{},
	}
}

func (s *memService) Claim(ns, codeValue string, userID uint64) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	stored := s.findByValue(ns, codeValue)
	if stored == nil || stored.Deleted {
		return nil, wrapError(ErrNotFound, "code (%s) not found", codeValue)
	}

	if stored.Used {
		return nil, wrapError(ErrAlreadyUsed, "code (%s)", codeValue)
	}

	stored.Used = true
	stored.UsedByID = userID
	stored.UpdatedAt = time.Now().UTC()

	return copyCode(stored), nil
}

func (s *memService) Count(ns string, opts QueryOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return 0, err
	}

	return len(filterMap(s.codes[ns], opts)), nil
}

func (s *memService) Put(ns string, input *Code) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.codes[ns]
		now    = time.Now().UTC()
	)

	for _, c := range bucket {
		if c.ID != input.ID && !c.Deleted && c.Code == input.Code {
			return nil, wrapError(ErrNotUnique, "code (%s) taken", input.Code)
		}
	}

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
	} else {
		stored, ok := bucket[input.ID]
		if !ok {
			return nil, ErrNotFound
		}

		input.CreatedAt = stored.CreatedAt
	}

	input.UpdatedAt = now
	bucket[input.ID] = copyCode(input)

	return copyCode(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	return filterMap(s.codes[ns], opts), nil
}

func (s *memService) Release(ns, codeValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return err
	}

	stored := s.findByValue(ns, codeValue)
	if stored == nil || !stored.Used {
		return wrapError(ErrNotFound, "code (%s) not claimed", codeValue)
	}

	stored.Used = false
	stored.UsedByID = 0
	stored.UpdatedAt = time.Now().UTC()

	return nil
}

func (s *memService) Setup(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setup(ns)
}

func (s *memService) Teardown(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, ns)

	return nil
}

func (s *memService) findByValue(ns, codeValue string) *Code {
	for _, c := range s.codes[ns] {
		if c.Code == codeValue {
			return c
		}
	}

	return nil
}

func (s *memService) setup(ns string) error {
	if _, ok := s.codes[ns]; !ok {
		s.codes[ns] = map[uint64]*Code{}
	}

	return nil
}

func copyCode(c *Code) *Code {
	o := *c
	return &o
}

func filterMap(cm map[uint64]*Code, opts QueryOptions) List {
	cs := List{}

	for _, c := range cm {
		if !inStrings(c.Code, opts.Codes) {
			continue
		}

		if opts.Deleted != nil && c.Deleted != *opts.Deleted {
			continue
		}

		if !inIDs(c.ID, opts.IDs) {
			continue
		}

		if !inIDs(c.OwnerID, opts.OwnerIDs) {
			continue
		}

		if opts.Used != nil && c.Used != *opts.Used {
			continue
		}

		cs = append(cs, copyCode(c))
	}

	if opts.Limit > 0 {
		l := math.Min(float64(len(cs)), float64(opts.Limit))

		return cs[:int(l)]
	}

	return cs
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

func inStrings(s string, ss []string) bool {
	if len(ss) == 0 {
		return true
	}

	for _, c := range ss {
		if c == s {
			return true
		}
	}

	return false
}
