package postrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	postrepoport "github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
)

func TestContract_PostRepo(t *testing.T) {
	contracttest.RunPostRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(), nil
		},
		func(t *testing.T) (postrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
