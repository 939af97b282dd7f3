package voucherrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	voucherrepoport "github.com/eightonethree/cafe-api/internal/ports/out/voucherrepo"
)

func TestContract_VoucherRepo(t *testing.T) {
	contracttest.RunVoucherRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(), nil
		},
		func(t *testing.T) (voucherrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
