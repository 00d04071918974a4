package presence

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServiceDelete(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_delete"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, testPeer())
	if err != nil {
		t.Fatal(err)
	}

	if err := service.Delete(namespace, created.UserID); err != nil {
		t.Fatal(err)
	}

	ps, err := service.Query(namespace, QueryOptions{
		UserIDs: []uint64{created.UserID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(ps), 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	// absent user is a noop
	if err := service.Delete(namespace, uint64(rand.Int63())); err != nil {
		t.Errorf("have %v, want nil", err)
	}
}

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, testPeer())
	if err != nil {
		t.Fatal(err)
	}

	if created.LastSeenAt.IsZero() {
		t.Errorf("last seen not stamped")
	}

	ps, err := service.Query(namespace, QueryOptions{
		UserIDs: []uint64{created.UserID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(ps), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := ps[0], created; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}

	replacement := testPeer()
	replacement.UserID = created.UserID

	updated, err := service.Put(namespace, replacement)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := updated.CreatedAt, created.CreatedAt; !have.Equal(want) {
		t.Errorf("have %v, want %v", have, want)
	}

	ps, err = service.Query(namespace, QueryOptions{
		UserIDs: []uint64{created.UserID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(ps), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := ps[0].Multiaddr, replacement.Multiaddr; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutInvalid(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_invalid"
		service   = p(t, namespace)
	)

	// missing UserID
	_, err := service.Put(namespace, &Peer{
		Multiaddr: "/ip4/127.0.0.1/tcp/4001",
	})
	if !IsInvalidPeer(err) {
		t.Errorf("expected error: %s", ErrInvalidPeer)
	}

	// missing Multiaddr
	_, err = service.Put(namespace, &Peer{
		UserID: 123,
	})
	if !IsInvalidPeer(err) {
		t.Errorf("expected error: %s", ErrInvalidPeer)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_query"
		service   = p(t, namespace)

		ids = []uint64{}
	)

	for i := 0; i < 7; i++ {
		created, err := service.Put(namespace, testPeer())
		if err != nil {
			t.Fatal(err)
		}

		ids = append(ids, created.UserID)
	}

	cases := map[*QueryOptions]int{
		{}:                          7,
		{Limit: 3}:                  3,
		{UserIDs: ids[:2]}:          2,
		{UserIDs: []uint64{999999}}: 0,
	}

	for opts, want := range cases {
		ps, err := service.Query(namespace, *opts)
		if err != nil {
			t.Fatal(err)
		}

		if have := len(ps); have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}

	ps, err := service.Query(namespace, QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(ps); i++ {
		if ps[i-1].UserID > ps[i].UserID {
			t.Errorf("peers not ordered by user id")
		}
	}
}

func testPeer() *Peer {
	return &Peer{
		Multiaddr: fmt.Sprintf("/ip4/10.0.0.%d/tcp/4001", rand.Intn(250)+1),
		UserID:    uint64(rand.Int63()),
	}
}
