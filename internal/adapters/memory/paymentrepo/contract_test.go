package paymentrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/eightonethree/cafe-api/internal/ports/out/paymentrepo"
)

func TestContract_PaymentRepo(t *testing.T) {
	contracttest.RunPaymentRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(), nil
		},
		func(t *testing.T, members memberrepoport.Repository) (paymentrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(members), nil
		},
	)
}
