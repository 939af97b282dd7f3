package sessionrepo

import (
	"testing"

	"github.com/eightonethree/cafe-api/internal/adapters/contracttest"
	"github.com/eightonethree/cafe-api/internal/adapters/memory/memberrepo"
	memberrepoport "github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
	sessionrepoport "github.com/eightonethree/cafe-api/internal/ports/out/sessionrepo"
)

func TestContract_SessionRepo(t *testing.T) {
	contracttest.RunSessionRepo(
		t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memberrepo.NewRepo(), nil
		},
		func(t *testing.T) (sessionrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
