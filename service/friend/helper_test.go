package friend

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put"
		service   = p(t, namespace)
		f         = testFriend()
	)

	created, err := service.Put(namespace, f)
	if err != nil {
		t.Fatal(err)
	}

	fs, err := service.Query(namespace, QueryOptions{
		FriendIDs: []uint64{created.FriendID},
		UserIDs:   []uint64{created.UserID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(fs), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := fs[0], created; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}

	now := time.Now().UTC()

	created.Active = false
	created.DeletedAt = &now

	updated, err := service.Put(namespace, created)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := updated.CreatedAt, created.CreatedAt; !have.Equal(want) {
		t.Errorf("have %v, want %v", have, want)
	}

	fs, err = service.Query(namespace, QueryOptions{
		FriendIDs: []uint64{created.FriendID},
		UserIDs:   []uint64{created.UserID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(fs), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := fs[0].Active, false; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if fs[0].DeletedAt == nil {
		t.Errorf("deletion time not stored")
	}
}

func testServicePutInvalid(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_invalid"
		service   = p(t, namespace)
		now       = time.Now().UTC()
	)

	// missing UserID
	_, err := service.Put(namespace, &Friend{
		FriendID: 123,
	})
	if !IsInvalidFriend(err) {
		t.Errorf("expected error: %s", ErrInvalidFriend)
	}

	// missing FriendID
	_, err = service.Put(namespace, &Friend{
		UserID: 123,
	})
	if !IsInvalidFriend(err) {
		t.Errorf("expected error: %s", ErrInvalidFriend)
	}

	// self edge
	_, err = service.Put(namespace, &Friend{
		FriendID: 123,
		UserID:   123,
	})
	if !IsInvalidFriend(err) {
		t.Errorf("expected error: %s", ErrInvalidFriend)
	}

	// active edge with deletion time
	_, err = service.Put(namespace, &Friend{
		Active:    true,
		DeletedAt: &now,
		FriendID:  456,
		UserID:    123,
	})
	if !IsInvalidFriend(err) {
		t.Errorf("expected error: %s", ErrInvalidFriend)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_query"
		service   = p(t, namespace)
		active    = true
		inactive  = false
		origin    = uint64(rand.Int63())
	)

	for _, f := range testFriendList(origin) {
		_, err := service.Put(namespace, f)
		if err != nil {
			t.Fatal(err)
		}
	}

	anchor, err := service.Put(namespace, testFriend())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]int{
		{}:                                10,
		{Active: &active}:                 7,
		{Active: &inactive}:               3,
		{FriendIDs: []uint64{anchor.FriendID}}: 1,
		{Limit: 5}:                        5,
		{UserIDs: []uint64{origin}}:       9,
	}

	for opts, want := range cases {
		fs, err := service.Query(namespace, *opts)
		if err != nil {
			t.Fatal(err)
		}

		if have := len(fs); have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func testFriendList(origin uint64) List {
	fs := List{}

	for i := 0; i < 6; i++ {
		f := testFriend()
		f.UserID = origin

		fs = append(fs, f)
	}

	for i := 0; i < 3; i++ {
		var (
			f   = testFriend()
			now = time.Now().UTC()
		)

		f.Active = false
		f.DeletedAt = &now
		f.UserID = origin

		fs = append(fs, f)
	}

	return fs
}

func testFriend() *Friend {
	return &Friend{
		Active:   true,
		FriendID: uint64(rand.Int63()),
		UserID:   uint64(rand.Int63()),
	}
}
