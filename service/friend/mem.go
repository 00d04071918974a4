package friend

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

type memService struct {
	mu      sync.Mutex
	friends map[string]map[string]*Friend
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		friends: map[string]map[string]*Friend{},
	}
}

func (s *memService) Count(ns string, opts QueryOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return 0, err
	}

	return len(filterMap(s.friends[ns], opts)), nil
}

func (s *memService) Put(ns string, input *Friend) (*Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.friends[ns]
		key    = edgeKey(input.UserID, input.FriendID)
		now    = time.Now().UTC()
	)

	if stored, ok := bucket[key]; ok {
		input.CreatedAt = stored.CreatedAt
	} else {
		if input.CreatedAt.IsZero() {
			input.CreatedAt = now
		}
		input.CreatedAt = input.CreatedAt.UTC()
	}

	input.UpdatedAt = now
	bucket[key] = copyFriend(input)

	return copyFriend(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	return filterMap(s.friends[ns], opts), nil
}

func (s *memService) Setup(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setup(ns)
}

func (s *memService) Teardown(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.friends, ns)

	return nil
}

func (s *memService) setup(ns string) error {
	if _, ok := s.friends[ns]; !ok {
		s.friends[ns] = map[string]*Friend{}
	}

	return nil
}

func copyFriend(f *Friend) *Friend {
	o := *f

	if f.DeletedAt != nil {
		t := *f.DeletedAt
		o.DeletedAt = &t
	}

	return &o
}

func edgeKey(userID, friendID uint64) string {
	return fmt.Sprintf("%d-%d", userID, friendID)
}

func filterMap(fm map[string]*Friend, opts QueryOptions) List {
	fs := List{}

	for _, f := range fm {
		if opts.Active != nil && f.Active != *opts.Active {
			continue
		}

		if !opts.Before.IsZero() && !f.UpdatedAt.Before(opts.Before) {
			continue
		}

		if !inIDs(f.FriendID, opts.FriendIDs) {
			continue
		}

		if !inIDs(f.UserID, opts.UserIDs) {
			continue
		}

		fs = append(fs, copyFriend(f))
	}

	sort.Sort(fs)

	if opts.Limit > 0 {
		l := math.Min(float64(len(fs)), float64(opts.Limit))

		return fs[:int(l)]
	}

	return fs
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
