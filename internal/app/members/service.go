package members

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/domain"
	"github.com/eightonethree/cafe-api/internal/platform/validation"
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
	"github.com/eightonethree/cafe-api/internal/ports/out/memberrepo"
)

const maxBioLength = 500

type Service struct {
	repo     memberrepo.Repository
	clk      clockport.Clock
	mailer   mailerport.Mailer
	activity activity.Recorder
	validate *validation.Validator

	newMemberID func() domain.MemberID

	// BcryptCost is lowered in tests.
	BcryptCost int

	dummyMu   sync.Mutex
	dummy     []byte
	dummyCost int
}

func NewService(repo memberrepo.Repository, clk clockport.Clock, mailer mailerport.Mailer, rec activity.Recorder) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	return &Service{
		repo:     repo,
		clk:      clk,
		mailer:   mailer,
		activity: rec,
		validate: validation.New(),
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
		BcryptCost: bcrypt.DefaultCost,
	}
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (domain.Member, error) {
	in.DisplayName = domain.NormalizeHumanName(in.DisplayName)
	in.Email = strings.TrimSpace(in.Email)
	if details := s.validate.Struct(in); details != nil {
		return domain.Member{}, apperr.Validation("invalid sign-up", details)
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return domain.Member{}, apperr.Validation("invalid email", map[string]any{"email": err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		return domain.Member{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clk.Now()
	m := memberrepo.Member{
		ID:           s.newMemberID(),
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		Phone:        validation.NormalizePhone(in.Phone),
		PasswordHash: hash,
		Role:         domain.RoleMember,
		Status:       domain.MemberStatusPending,
		Plan:         in.Plan,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, memberrepo.ErrEmailAlreadyBound) {
			return domain.Member{}, emailInUse()
		}
		return domain.Member{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "member.signed_up",
		MemberID: &m.ID,
		Message:  m.DisplayName + " signed up",
		Data:     map[string]any{"plan": string(m.Plan)},
	})
	return ToDomain(m), nil
}

// Authenticate checks credentials. Pending members may sign in to see their status;
// rejected and suspended members may not.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.Member, error) {
	m, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			// Burn comparable time so unknown emails are not distinguishable.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
			return domain.Member{}, invalidCredentials()
		}
		return domain.Member{}, err
	}
	if err := bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(password)); err != nil {
		return domain.Member{}, invalidCredentials()
	}
	switch m.Status {
	case domain.MemberStatusRejected, domain.MemberStatusSuspended:
		return domain.Member{}, apperr.Forbidden("MEMBER_DISABLED", "This membership is not active.")
	}
	return ToDomain(m), nil
}

// dummyHash is compared against for unknown emails. It uses the current BcryptCost so the
// miss takes as long as a real check.
func (s *Service) dummyHash() []byte {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummy == nil || s.dummyCost != s.BcryptCost {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.BcryptCost)
		s.dummyCost = s.BcryptCost
	}
	return s.dummy
}

func (s *Service) GetMe(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	return ToDomain(m), nil
}

// Get is the admin view of any member.
func (s *Service) Get(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	return s.GetMe(ctx, id)
}

// RequireApproved returns the member when they may use the portal.
func (s *Service) RequireApproved(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if m.Status != domain.MemberStatusApproved {
		return domain.Member{}, apperr.Forbidden("MEMBER_NOT_APPROVED", "Your membership has not been approved.")
	}
	return ToDomain(m), nil
}

func (s *Service) UpdateMe(ctx context.Context, id domain.MemberID, in UpdateMeInput) (domain.Member, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}

	if in.DisplayName.IsSpecified() {
		if in.DisplayName.IsNull() {
			return domain.Member{}, apperr.Validation("invalid displayName", map[string]any{"displayName": "cannot be null"})
		}
		displayName := domain.NormalizeHumanName(in.DisplayName.Value())
		if displayName == "" {
			return domain.Member{}, apperr.Validation("invalid displayName", map[string]any{"displayName": "must be non-empty"})
		}
		m.DisplayName = displayName
	}

	if in.Phone.IsSpecified() {
		if in.Phone.IsNull() {
			return domain.Member{}, apperr.Validation("invalid phone", map[string]any{"phone": "cannot be null"})
		}
		if !validation.ValidPhone(in.Phone.Value()) {
			return domain.Member{}, apperr.Validation("invalid phone", map[string]any{"phone": "phone must be a phone number with 8 to 15 digits"})
		}
		m.Phone = validation.NormalizePhone(in.Phone.Value())
	}

	if in.Bio.IsSpecified() {
		if in.Bio.IsNull() {
			m.Bio = nil
		} else {
			bio := strings.TrimSpace(in.Bio.Value())
			if len([]rune(bio)) > maxBioLength {
				return domain.Member{}, apperr.Validation("invalid bio", map[string]any{"bio": fmt.Sprintf("must be at most %d characters", maxBioLength)})
			}
			m.Bio = &bio
		}
	}

	if in.Password.IsSpecified() {
		if in.Password.IsNull() {
			return domain.Member{}, apperr.Validation("invalid password", map[string]any{"password": "cannot be null"})
		}
		pw := in.Password.Value()
		if len(pw) < 8 || len(pw) > 72 {
			return domain.Member{}, apperr.Validation("invalid password", map[string]any{"password": "must be 8 to 72 characters"})
		}
		if bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(in.CurrentPassword)) != nil {
			return domain.Member{}, apperr.Validation("invalid currentPassword", map[string]any{"currentPassword": "does not match"})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.BcryptCost)
		if err != nil {
			return domain.Member{}, fmt.Errorf("hash password: %w", err)
		}
		m.PasswordHash = hash
	}

	m.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}
	return ToDomain(m), nil
}

func (s *Service) List(ctx context.Context, status domain.MemberStatus) ([]domain.Member, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("invalid status", map[string]any{"status": "must be one of PENDING, APPROVED, REJECTED, SUSPENDED"})
	}
	ms, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, ToDomain(m))
	}
	return out, nil
}

func (s *Service) Approve(ctx context.Context, admin, id domain.MemberID) (domain.Member, error) {
	return s.transition(ctx, admin, id, domain.MemberStatusApproved)
}

func (s *Service) Reject(ctx context.Context, admin, id domain.MemberID) (domain.Member, error) {
	return s.transition(ctx, admin, id, domain.MemberStatusRejected)
}

func (s *Service) Suspend(ctx context.Context, admin, id domain.MemberID) (domain.Member, error) {
	return s.transition(ctx, admin, id, domain.MemberStatusSuspended)
}

func (s *Service) Reinstate(ctx context.Context, admin, id domain.MemberID) (domain.Member, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if m.Status != domain.MemberStatusSuspended {
		return domain.Member{}, invalidTransition(m.Status, domain.MemberStatusApproved)
	}
	return s.transition(ctx, admin, id, domain.MemberStatusApproved)
}

func (s *Service) transition(ctx context.Context, admin, id domain.MemberID, next domain.MemberStatus) (domain.Member, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if !m.Status.CanTransitionTo(next) {
		return domain.Member{}, invalidTransition(m.Status, next)
	}
	prev := m.Status
	m.Status = next
	m.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:     "member." + strings.ToLower(string(next)),
		MemberID: &m.ID,
		Message:  fmt.Sprintf("%s: %s -> %s", m.DisplayName, prev, next),
		Data:     map[string]any{"by": string(admin), "from": string(prev), "to": string(next)},
	})
	s.notify(ctx, m, prev)
	return ToDomain(m), nil
}

// notify mails the member about approval decisions. A mail failure does not undo the
// status change.
func (s *Service) notify(ctx context.Context, m memberrepo.Member, prev domain.MemberStatus) {
	if s.mailer == nil {
		return
	}
	var msg mailerport.Message
	switch {
	case m.Status == domain.MemberStatusApproved && prev == domain.MemberStatusPending:
		msg = mailerport.Message{Subject: "Your membership is approved", Body: "Welcome to 813! You can now check in, book a desk and collect your daily voucher."}
	case m.Status == domain.MemberStatusRejected:
		msg = mailerport.Message{Subject: "Your membership application", Body: "Unfortunately we cannot offer you a membership right now."}
	default:
		return
	}
	msg.ToName = m.DisplayName
	msg.ToEmail = m.Email
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.activity.Record(ctx, activity.Entry{
			Kind:     "mail.failed",
			MemberID: &m.ID,
			Message:  "could not send " + strings.ToLower(string(m.Status)) + " mail: " + err.Error(),
		})
	}
}

// CreateAdmin bootstraps an approved administrator account.
func (s *Service) CreateAdmin(ctx context.Context, in CreateAdminInput) (domain.Member, error) {
	in.DisplayName = domain.NormalizeHumanName(in.DisplayName)
	in.Email = strings.TrimSpace(in.Email)
	if details := s.validate.Struct(in); details != nil {
		return domain.Member{}, apperr.Validation("invalid admin", details)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		return domain.Member{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.clk.Now()
	m := memberrepo.Member{
		ID:           s.newMemberID(),
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.MemberStatusApproved,
		Plan:         domain.PlanMonthly,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, memberrepo.ErrEmailAlreadyBound) {
			return domain.Member{}, emailInUse()
		}
		return domain.Member{}, err
	}
	return ToDomain(m), nil
}

func (s *Service) get(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return memberrepo.Member{}, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return memberrepo.Member{}, err
	}
	return m, nil
}

func emailInUse() *apperr.Error {
	return apperr.Conflict("EMAIL_ALREADY_IN_USE", "email address is already in use", nil)
}

func invalidCredentials() *apperr.Error {
	return &apperr.Error{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "email or password is incorrect"}
}

func invalidTransition(from, to domain.MemberStatus) *apperr.Error {
	return apperr.Conflict("INVALID_STATUS_TRANSITION", "member status cannot change this way", map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

// ToDomain converts a stored member to its public shape, dropping the password hash.
func ToDomain(m memberrepo.Member) domain.Member {
	out := domain.Member{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		Phone:       m.Phone,
		Role:        m.Role,
		Status:      m.Status,
		Plan:        m.Plan,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Bio != nil {
		v := *m.Bio
		out.Bio = &v
	}
	if m.PaidThrough != nil {
		v := *m.PaidThrough
		out.PaidThrough = &v
	}
	return out
}
