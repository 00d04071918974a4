package user

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServiceClaimReferralSlot(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_claim_referral_slot"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, testUser())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < DefaultReferralSlots; i++ {
		if err := service.ClaimReferralSlot(namespace, created.ID); err != nil {
			t.Fatal(err)
		}
	}

	err = service.ClaimReferralSlot(namespace, created.ID)
	if !IsNoSlots(err) {
		t.Errorf("have %v, want %v", err, ErrNoSlots)
	}

	us, err := service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := us[0].RemainingReferralSlots, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	err = service.ClaimReferralSlot(namespace, uint64(rand.Int63()))
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}

	// racing claims never hand out more slots than the user holds
	contested, err := service.Put(namespace, testUser())
	if err != nil {
		t.Fatal(err)
	}

	claims := 8
	errc := make(chan error, claims)

	for i := 0; i < claims; i++ {
		go func() {
			errc <- service.ClaimReferralSlot(namespace, contested.ID)
		}()
	}

	won := 0

	for i := 0; i < claims; i++ {
		switch err := <-errc; {
		case err == nil:
			won++
		case IsNoSlots(err):
		default:
			t.Fatal(err)
		}
	}

	if have, want := won, DefaultReferralSlots; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	us, err = service.Query(namespace, QueryOptions{
		IDs: []uint64{contested.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := us[0].RemainingReferralSlots, 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put"
		service   = p(t, namespace)
		u         = testUser()
	)

	created, err := service.Put(namespace, u)
	if err != nil {
		t.Fatal(err)
	}

	us, err := service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(us), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := us[0], created; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}

	created.RemainingReferralSlots = 1

	updated, err := service.Put(namespace, created)
	if err != nil {
		t.Fatal(err)
	}

	us, err = service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := us[0], updated; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutDuplicate(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_duplicate"
		service   = p(t, namespace)
		u         = testUser()
	)

	created, err := service.Put(namespace, u)
	if err != nil {
		t.Fatal(err)
	}

	dupe := testUser()
	dupe.Nickname = created.Nickname

	_, err = service.Put(namespace, dupe)
	if !IsNotUnique(err) {
		t.Errorf("have %v, want %v", err, ErrNotUnique)
	}

	dupe = testUser()
	dupe.FriendRequestCode = created.FriendRequestCode

	_, err = service.Put(namespace, dupe)
	if !IsNotUnique(err) {
		t.Errorf("have %v, want %v", err, ErrNotUnique)
	}
}

func testServicePutInvalid(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_invalid"
		service   = p(t, namespace)
	)

	// missing Nickname
	_, err := service.Put(namespace, &User{})
	if !IsInvalidUser(err) {
		t.Errorf("expected error: %s", ErrInvalidUser)
	}

	// missing FriendRequestCode
	_, err = service.Put(namespace, &User{
		Nickname: "walter",
	})
	if !IsInvalidUser(err) {
		t.Errorf("expected error: %s", ErrInvalidUser)
	}

	// missing UsedReferralCode
	_, err = service.Put(namespace, &User{
		FriendRequestCode: "deadbeef",
		Nickname:          "walter",
	})
	if !IsInvalidUser(err) {
		t.Errorf("expected error: %s", ErrInvalidUser)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_query"
		service   = p(t, namespace)
		deleted   = true
		disabled  = false
	)

	for _, u := range testList() {
		_, err := service.Put(namespace, u)
		if err != nil {
			t.Fatal(err)
		}
	}

	anchor, err := service.Put(namespace, testUser())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]int{
		{}: 10,
		{Deleted: &deleted}:                            2,
		{Enabled: &disabled}:                           3,
		{FriendRequestCodes: []string{anchor.FriendRequestCode}}: 1,
		{IDs: []uint64{anchor.ID}}:                     1,
		{Limit: 5}:                                     5,
		{Nicknames: []string{anchor.Nickname}}:         1,
		{UsedReferralCodes: []string{"seedcode"}}:      4,
	}

	for opts, want := range cases {
		us, err := service.Query(namespace, *opts)
		if err != nil {
			t.Fatal(err)
		}

		if have := len(us); have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func testList() List {
	us := List{}

	for i := 0; i < 4; i++ {
		u := testUser()
		u.UsedReferralCode = "seedcode"

		us = append(us, u)
	}

	for i := 0; i < 3; i++ {
		u := testUser()
		u.Enabled = false

		us = append(us, u)
	}

	for i := 0; i < 2; i++ {
		u := testUser()
		u.Deleted = true

		us = append(us, u)
	}

	return us
}

func testUser() *User {
	return &User{
		Enabled:                true,
		FriendRequestCode:      fmt.Sprintf("frc-%d", rand.Int63()),
		Nickname:               fmt.Sprintf("nick-%d", rand.Int63()),
		RemainingReferralSlots: DefaultReferralSlots,
		UsedReferralCode:       CodeNone,
	}
}
