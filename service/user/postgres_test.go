//go:build integration
// +build integration

package user

import (
	"flag"
	"fmt"
	"os/user"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/peergate/peergate/platform/pg"
)

var pgTestURL string

func TestPostgresClaimReferralSlot(t *testing.T) {
	testServiceClaimReferralSlot(t, preparePostgres)
}

func TestPostgresPut(t *testing.T) {
	testServicePut(t, preparePostgres)
}

func TestPostgresPutDuplicate(t *testing.T) {
	testServicePutDuplicate(t, preparePostgres)
}

func TestPostgresPutInvalid(t *testing.T) {
	testServicePutInvalid(t, preparePostgres)
}

func TestPostgresQuery(t *testing.T) {
	testServiceQuery(t, preparePostgres)
}

func preparePostgres(t *testing.T, namespace string) Service {
	db, err := sqlx.Connect("postgres", pgTestURL)
	if err != nil {
		t.Fatal(err)
	}

	s := PostgresService(db)

	if err := s.Teardown(namespace); err != nil {
		t.Fatal(err)
	}

	return s
}

func init() {
	u, err := user.Current()
	if err != nil {
		panic(err)
	}

	url := flag.String(
		"postgres.url",
		fmt.Sprintf(pg.URLTest, u.Username),
		"Postgres connection URL",
	)
	flag.Parse()

	pgTestURL = *url
}
