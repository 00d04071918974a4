package request

import (
	"math/rand"
	"reflect"
	"testing"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServiceAccept(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_accept"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	accepted, err := service.Accept(namespace, created.ID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := accepted.Accepted, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	_, err = service.Accept(namespace, created.ID)
	if !IsNotLive(err) {
		t.Errorf("have %v, want %v", err, ErrNotLive)
	}

	rejected, err := service.Put(namespace, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	rejected.Rejected = true

	_, err = service.Put(namespace, rejected)
	if err != nil {
		t.Fatal(err)
	}

	_, err = service.Accept(namespace, rejected.ID)
	if !IsNotLive(err) {
		t.Errorf("have %v, want %v", err, ErrNotLive)
	}

	_, err = service.Accept(namespace, uint64(rand.Int63()))
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}
}

func testServiceDelete(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_delete"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	if err := service.Delete(namespace, created.ID); err != nil {
		t.Fatal(err)
	}

	rs, err := service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(rs), 0; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	err = service.Delete(namespace, created.ID)
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}
}

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put"
		service   = p(t, namespace)
		r         = testRequest()
	)

	created, err := service.Put(namespace, r)
	if err != nil {
		t.Fatal(err)
	}

	if created.RequestedAt.IsZero() {
		t.Errorf("requested at not stamped")
	}

	rs, err := service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(rs), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := rs[0], created; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}

	created.Cancelled = true

	updated, err := service.Put(namespace, created)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := updated.RequestedAt, created.RequestedAt; !have.Equal(want) {
		t.Errorf("have %v, want %v", have, want)
	}

	rs, err = service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := rs[0], updated; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutInvalid(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_invalid"
		service   = p(t, namespace)
	)

	// missing SenderID
	_, err := service.Put(namespace, &Request{
		ReceiverID: 123,
	})
	if !IsInvalidRequest(err) {
		t.Errorf("expected error: %s", ErrInvalidRequest)
	}

	// missing ReceiverID
	_, err = service.Put(namespace, &Request{
		SenderID: 123,
	})
	if !IsInvalidRequest(err) {
		t.Errorf("expected error: %s", ErrInvalidRequest)
	}

	// self request
	_, err = service.Put(namespace, &Request{
		ReceiverID: 123,
		SenderID:   123,
	})
	if !IsInvalidRequest(err) {
		t.Errorf("expected error: %s", ErrInvalidRequest)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_query"
		service   = p(t, namespace)
		accepted  = true
		cancelled = true
		rejected  = true
		live      = false
		sender    = uint64(rand.Int63())
		receiver  = uint64(rand.Int63())
	)

	for _, r := range testRequestList(sender, receiver) {
		_, err := service.Put(namespace, r)
		if err != nil {
			t.Fatal(err)
		}
	}

	anchor, err := service.Put(namespace, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]int{
		{}:                                  10,
		{Accepted: &accepted}:               2,
		{Accepted: &live, Cancelled: &live, Rejected: &live}: 4,
		{Cancelled: &cancelled}:             2,
		{IDs: []uint64{anchor.ID}}:          1,
		{Limit: 5}:                          5,
		{ReceiverIDs: []uint64{receiver}}:   9,
		{Rejected: &rejected}:               2,
		{SenderIDs: []uint64{sender}}:       9,
	}

	for opts, want := range cases {
		rs, err := service.Query(namespace, *opts)
		if err != nil {
			t.Fatal(err)
		}

		if have := len(rs); have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func testRequestList(sender, receiver uint64) List {
	rs := List{}

	for i := 0; i < 3; i++ {
		r := testRequest()
		r.ReceiverID = receiver
		r.SenderID = sender

		rs = append(rs, r)
	}

	for i := 0; i < 2; i++ {
		r := testRequest()
		r.Accepted = true
		r.ReceiverID = receiver
		r.SenderID = sender

		rs = append(rs, r)
	}

	for i := 0; i < 2; i++ {
		r := testRequest()
		r.Rejected = true
		r.ReceiverID = receiver
		r.SenderID = sender

		rs = append(rs, r)
	}

	for i := 0; i < 2; i++ {
		r := testRequest()
		r.Cancelled = true
		r.ReceiverID = receiver
		r.SenderID = sender

		rs = append(rs, r)
	}

	return rs
}

func testRequest() *Request {
	return &Request{
		ReceiverID: uint64(rand.Int63()),
		SenderID:   uint64(rand.Int63()),
	}
}
