package core

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/peergate/peergate/service/code"
	"github.com/peergate/peergate/service/user"
)

func createCode(
	t *testing.T,
	codes code.Service,
	ns string,
	ownerID uint64,
) *code.Code {
	c, err := codes.Put(ns, &code.Code{
		Code:    fmt.Sprintf("code-%d", rand.Int63()),
		OwnerID: ownerID,
	})
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func createUser(t *testing.T, users user.Service, ns string) *user.User {
	u, err := users.Put(ns, testUser())
	if err != nil {
		t.Fatal(err)
	}

	return u
}

func testUser() *user.User {
	return &user.User{
		Enabled:                true,
		FriendRequestCode:      fmt.Sprintf("frc-%d", rand.Int63()),
		Nickname:               fmt.Sprintf("nick-%d", rand.Int63()),
		RemainingReferralSlots: user.DefaultReferralSlots,
		UsedReferralCode:       user.CodeNone,
	}
}
