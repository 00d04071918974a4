package user

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/peergate/peergate/platform/flake"
)

type memService struct {
	mu    sync.Mutex
	users map[string]Map
}

// MemService returns a memory based Service implementation.
func MemService() Service {
	return &memService{
		users: map[string]Map{},
	}
}

func (s *memService) ClaimReferralSlot(ns string, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return err
	}

	u, ok := s.users[ns][id]
	if !ok || !u.Enabled {
		return wrapError(ErrNotFound, "user (%d) not found", id)
	}

	if u.RemainingReferralSlots == 0 {
		return wrapError(ErrNoSlots, "user (%d) exhausted", id)
	}

	u.RemainingReferralSlots--
	u.UpdatedAt = time.Now().UTC()

	return nil
}

func (s *memService) Count(ns string, opts QueryOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return 0, err
	}

	return len(filterMap(s.users[ns], opts)), nil
}

func (s *memService) Put(ns string, input *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		bucket = s.users[ns]
		now    = time.Now().UTC()
	)

	for _, u := range bucket {
		if u.ID == input.ID || !u.Enabled {
			continue
		}

		if strings.EqualFold(u.Nickname, input.Nickname) ||
			u.FriendRequestCode == input.FriendRequestCode {
			return nil, wrapError(ErrNotUnique, "nickname or code taken")
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
	bucket[input.ID] = copyUser(input)

	return copyUser(input), nil
}

func (s *memService) Query(ns string, opts QueryOptions) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setup(ns); err != nil {
		return nil, err
	}

	return filterMap(s.users[ns], opts), nil
}

func (s *memService) Setup(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setup(ns)
}

func (s *memService) Teardown(ns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, ns)

	return nil
}

func (s *memService) setup(ns string) error {
	if _, ok := s.users[ns]; !ok {
		s.users[ns] = Map{}
	}

	return nil
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

func filterMap(um Map, opts QueryOptions) List {
	us := List{}

	for _, u := range um {
		if opts.Deleted != nil && u.Deleted != *opts.Deleted {
			continue
		}

		if opts.Enabled != nil && u.Enabled != *opts.Enabled {
			continue
		}

		if !inStrings(u.FriendRequestCode, opts.FriendRequestCodes) {
			continue
		}

		if !inIDs(u.ID, opts.IDs) {
			continue
		}

		if !inFold(u.Nickname, opts.Nicknames) {
			continue
		}

		if !inStrings(u.UsedReferralCode, opts.UsedReferralCodes) {
			continue
		}

		us = append(us, copyUser(u))
	}

	if opts.Limit > 0 {
		l := math.Min(float64(len(us)), float64(opts.Limit))

		return us[:int(l)]
	}

	return us
}

func inFold(s string, ss []string) bool {
	if len(ss) == 0 {
		return true
	}

	for _, c := range ss {
		if strings.EqualFold(c, s) {
			return true
		}
	}

	return false
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
