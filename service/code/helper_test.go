package code

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

type prepareFunc func(t *testing.T, namespace string) Service

func testServiceClaim(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_claim"
		service   = p(t, namespace)
		userID    = uint64(rand.Int63())
	)

	created, err := service.Put(namespace, testCode())
	if err != nil {
		t.Fatal(err)
	}

	claimed, err := service.Claim(namespace, created.Code, userID)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := claimed.Used, true; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := claimed.UsedByID, userID; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	_, err = service.Claim(namespace, created.Code, uint64(rand.Int63()))
	if !IsAlreadyUsed(err) {
		t.Errorf("have %v, want %v", err, ErrAlreadyUsed)
	}

	_, err = service.Claim(namespace, "unknowncode", userID)
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}

	// racing claims on one code produce exactly one winner
	contested, err := service.Put(namespace, testCode())
	if err != nil {
		t.Fatal(err)
	}

	claims := 8
	errc := make(chan error, claims)

	for i := 0; i < claims; i++ {
		go func() {
			_, err := service.Claim(namespace, contested.Code, uint64(rand.Int63()))
			errc <- err
		}()
	}

	won := 0

	for i := 0; i < claims; i++ {
		switch err := <-errc; {
		case err == nil:
			won++
		case IsAlreadyUsed(err):
		default:
			t.Fatal(err)
		}
	}

	if have, want := won, 1; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServiceRelease(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_release"
		service   = p(t, namespace)
		unused    = false
	)

	created, err := service.Put(namespace, testCode())
	if err != nil {
		t.Fatal(err)
	}

	err = service.Release(namespace, created.Code)
	if !IsNotFound(err) {
		t.Errorf("have %v, want %v", err, ErrNotFound)
	}

	_, err = service.Claim(namespace, created.Code, uint64(rand.Int63()))
	if err != nil {
		t.Fatal(err)
	}

	if err := service.Release(namespace, created.Code); err != nil {
		t.Fatal(err)
	}

	cs, err := service.Query(namespace, QueryOptions{
		Codes: []string{created.Code},
		Used:  &unused,
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(cs), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := cs[0].UsedByID, uint64(0); have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePut(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put"
		service   = p(t, namespace)
		c         = testCode()
	)

	created, err := service.Put(namespace, c)
	if err != nil {
		t.Fatal(err)
	}

	cs, err := service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := len(cs), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := cs[0], created; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}

	created.Deleted = true

	updated, err := service.Put(namespace, created)
	if err != nil {
		t.Fatal(err)
	}

	cs, err = service.Query(namespace, QueryOptions{
		IDs: []uint64{created.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	if have, want := cs[0], updated; !reflect.DeepEqual(have, want) {
		t.Errorf("have %v, want %v", have, want)
	}
}

func testServicePutDuplicate(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_put_duplicate"
		service   = p(t, namespace)
	)

	created, err := service.Put(namespace, testCode())
	if err != nil {
		t.Fatal(err)
	}

	dupe := testCode()
	dupe.Code = created.Code

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

	// missing Code
	_, err := service.Put(namespace, &Code{
		OwnerID: 123,
	})
	if !IsInvalidCode(err) {
		t.Errorf("expected error: %s", ErrInvalidCode)
	}

	// missing OwnerID
	_, err = service.Put(namespace, &Code{
		Code: "deadbeef",
	})
	if !IsInvalidCode(err) {
		t.Errorf("expected error: %s", ErrInvalidCode)
	}

	// consumer on unused code
	_, err = service.Put(namespace, &Code{
		Code:     "deadbeef",
		OwnerID:  123,
		UsedByID: 456,
	})
	if !IsInvalidCode(err) {
		t.Errorf("expected error: %s", ErrInvalidCode)
	}
}

func testServiceQuery(t *testing.T, p prepareFunc) {
	var (
		namespace = "service_query"
		service   = p(t, namespace)
		deleted   = true
		used      = true
		ownerID   = uint64(rand.Int63())
	)

	for _, c := range testCodeList(ownerID) {
		_, err := service.Put(namespace, c)
		if err != nil {
			t.Fatal(err)
		}
	}

	anchor, err := service.Put(namespace, testCode())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[*QueryOptions]int{
		{}:                               10,
		{Codes: []string{anchor.Code}}:   1,
		{Deleted: &deleted}:              2,
		{IDs: []uint64{anchor.ID}}:       1,
		{Limit: 5}:                       5,
		{OwnerIDs: []uint64{ownerID}}:    9,
		{Used: &used}:                    3,
	}

	for opts, want := range cases {
		cs, err := service.Query(namespace, *opts)
		if err != nil {
			t.Fatal(err)
		}

		if have := len(cs); have != want {
			t.Errorf("have %v, want %v", have, want)
		}
	}
}

func testCodeList(ownerID uint64) List {
	cs := List{}

	for i := 0; i < 4; i++ {
		c := testCode()
		c.OwnerID = ownerID

		cs = append(cs, c)
	}

	for i := 0; i < 3; i++ {
		c := testCode()
		c.OwnerID = ownerID
		c.Used = true
		c.UsedByID = uint64(rand.Int63())

		cs = append(cs, c)
	}

	for i := 0; i < 2; i++ {
		c := testCode()
		c.OwnerID = ownerID
		c.Deleted = true

		cs = append(cs, c)
	}

	return cs
}

func testCode() *Code {
	return &Code{
		Code:    fmt.Sprintf("code-%d", rand.Int63()),
		OwnerID: uint64(rand.Int63()),
	}
}
