package user

import (
	"fmt"
	"sort"
	"time"

	"github.com/asaskevich/govalidator"

	"github.com/peergate/peergate/platform/service"
)

// CodeNone marks seed identities which joined without a referral.
const CodeNone = "none"

// DefaultReferralSlots is the number of referrals a fresh identity may make.
const DefaultReferralSlots = 3

var defaultEnabled = true

// List is a collection of users.
type List []*User

func (l List) Len() int {
	return len(l)
}

func (l List) Less(i, j int) bool {
	return l[i].CreatedAt.After(l[j].CreatedAt)
}

func (l List) Swap(i, j int) {
	l[i], l[j] = l[j], l[i]
}

// IDs returns the extracted ID of all users as list.
func (l List) IDs() []uint64 {
	ids := []uint64{}

	for _, u := range l {
		ids = append(ids, u.ID)
	}

	return ids
}

// ToMap transforms the list to a Map.
func (l List) ToMap() Map {
	um := Map{}

	for _, u := range l {
		um[u.ID] = u
	}

	return um
}

// Map is a user collection with their id as index.
type Map map[uint64]*User

// ToList returns the Map as an ordered List.
func (m Map) ToList() List {
	us := List{}

	for _, u := range m {
		us = append(us, u)
	}

	sort.Sort(us)

	return us
}

// QueryOptions is used to narrow-down user queries.
type QueryOptions struct {
	Deleted            *bool
	Enabled            *bool
	FriendRequestCodes []string
	IDs                []uint64
	Limit              int
	Nicknames          []string
	UsedReferralCodes  []string
}

// Service for user interactions.
type Service interface {
	service.Lifecycle

	ClaimReferralSlot(namespace string, id uint64) error
	Count(namespace string, opts QueryOptions) (int, error)
	Put(namespace string, user *User) (*User, error)
	Query(namespace string, opts QueryOptions) (List, error)
}

// ServiceMiddleware is a chainable behaviour modifier for Service.
type ServiceMiddleware func(Service) Service

// User is the representation of a participant in the peer network.
type User struct {
	Deleted                bool      `json:"deleted"`
	Enabled                bool      `json:"enabled"`
	FriendRequestCode      string    `json:"friend_request_code"`
	ID                     uint64    `json:"id"`
	Nickname               string    `json:"nickname"`
	RemainingReferralSlots int       `json:"remaining_referral_slots"`
	UsedReferralCode       string    `json:"used_referral_code"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Validate performs semantic checks on the passed User values for correctness.
func (u *User) Validate() error {
	if u.Nickname == "" {
		return wrapError(ErrInvalidUser, "nickname must be set")
	}

	if len(u.Nickname) < 2 {
		return wrapError(ErrInvalidUser, "nickname too short")
	}

	if len(u.Nickname) > 40 {
		return wrapError(ErrInvalidUser, "nickname too long")
	}

	if !govalidator.IsPrintableASCII(u.Nickname) {
		return wrapError(ErrInvalidUser, "nickname not printable")
	}

	if u.FriendRequestCode == "" {
		return wrapError(ErrInvalidUser, "friend request code must be set")
	}

	if u.UsedReferralCode == "" {
		return wrapError(ErrInvalidUser, "used referral code must be set")
	}

	if u.RemainingReferralSlots < 0 {
		return wrapError(ErrInvalidUser, "referral slots must not be negative")
	}

	return nil
}

// ListFromIDs gathers a user collection from the Service for the given ids.
func ListFromIDs(s Service, ns string, ids ...uint64) (List, error) {
	var (
		is   = []uint64{}
		seen = map[uint64]struct{}{}
	)

	if len(ids) == 0 {
		return List{}, nil
	}

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		is = append(is, id)
	}

	return s.Query(ns, QueryOptions{
		Enabled: &defaultEnabled,
		IDs:     is,
	})
}

// MapFromIDs returns a populated user map for the given list of ids.
func MapFromIDs(s Service, ns string, ids ...uint64) (Map, error) {
	us, err := ListFromIDs(s, ns, ids...)
	if err != nil {
		return nil, err
	}

	um := Map{}

	for _, u := range us {
		um[u.ID] = u
	}

	return um, nil
}

func flakeNamespace(ns string) string {
	return fmt.Sprintf("%s_%s", ns, "users")
}
