package voucherrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/postgres/memberrepo"
	"github.com/eightonethree/cafe-api/internal/adapters/postgres/testutil"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	voucherrepoport "github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

func TestContract_PostgresVoucherRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunVoucherRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(pool), nil
		},
		func(t *testing.T) (voucherrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
	)
}
