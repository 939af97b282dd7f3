package bookingrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	bookingrepoport "github.com/eightonethree/cafe-api/internal/ports/out/bookingrepo"
)

func TestContract_BookingRepo(t *testing.T) {
	contracttest.RunBookingRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(), nil
		},
		func(t *testing.T) (bookingrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
