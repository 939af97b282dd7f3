package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
	"github.com/eightonethree/cafe-api/internal/ports/out/postrepo"
)

const (
	maxTitleLength = 120
	maxBodyLength  = 2000

	DefaultListLimit = 50
	MaxListLimit     = 100
)

type MemberGate interface {
	RequireApproved(ctx context.Context, id domain.MemberID) (domain.Member, error)
}

type Service struct {
	repo     postrepo.Repository
	members  MemberGate
	clk      clockport.Clock
	activity activity.Recorder
}

func NewService(repo postrepo.Repository, members MemberGate, clk clockport.Clock, rec activity.Recorder) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	return &Service{repo: repo, members: members, clk: clk, activity: rec}
}

func (s *Service) Post(ctx context.Context, author domain.MemberID, title, body string) (domain.BoardPost, error) {
	m, err := s.members.RequireApproved(ctx, author)
	if err != nil {
		return domain.BoardPost{}, err
	}

	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	details := map[string]any{}
	if n := utf8.RuneCountInString(title); n == 0 || n > maxTitleLength {
		details["title"] = fmt.Sprintf("must be 1 to %d characters", maxTitleLength)
	}
	if n := utf8.RuneCountInString(body); n == 0 || n > maxBodyLength {
		details["body"] = fmt.Sprintf("must be 1 to %d characters", maxBodyLength)
	}
	if len(details) > 0 {
		return domain.BoardPost{}, apperr.Validation("invalid post", details)
	}

	p := domain.BoardPost{
		ID:         domain.PostID(uuid.NewString()),
		AuthorID:   author,
		AuthorName: m.DisplayName,
		Title:      title,
		Body:       body,
		CreatedAt:  s.clk.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.BoardPost{}, err
	}
	s.activity.Record(ctx, activity.Entry{
		Kind:     "board.posted",
		MemberID: &p.AuthorID,
		Message:  m.DisplayName + " posted \"" + p.Title + "\"",
	})
	return p, nil
}

// List returns live posts, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]domain.BoardPost, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

// Delete removes a post. Only the author or an admin may delete; anyone else gets not found.
func (s *Service) Delete(ctx context.Context, caller domain.MemberID, role domain.Role, id domain.PostID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, postrepo.ErrNotFound) {
			return notFound()
		}
		return err
	}
	if p.AuthorID != caller && role != domain.RoleAdmin {
		return notFound()
	}
	if err := s.repo.SoftDelete(ctx, id, s.clk.Now()); err != nil {
		if errors.Is(err, postrepo.ErrNotFound) {
			return notFound()
		}
		return err
	}
	s.activity.Record(ctx, activity.Entry{
		Kind:     "board.deleted",
		MemberID: &p.AuthorID,
		Message:  "post \"" + p.Title + "\" removed",
		Data:     map[string]any{"postId": string(id), "by": string(caller)},
	})
	return nil
}

func notFound() *apperr.Error {
	return apperr.NotFound("POST_NOT_FOUND", "post not found")
}
