package sessionrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/postgres/memberrepo"
	"github.com/eightonethree/cafe-api/internal/adapters/postgres/testutil"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	sessionrepoport "github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
)

func TestContract_PostgresSessionRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunSessionRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(pool), nil
		},
		func(t *testing.T) (sessionrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
	)
}
