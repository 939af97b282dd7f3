package site

import (
	"context"
	"strings"
	"time"

	"github.com/eightonethree/cafe-api/internal/app/activity"
	"github.com/eightonethree/cafe-api/internal/app/apperr"
	"github.com/eightonethree/cafe-api/internal/platform/validation"
	clockport "github.com/eightonethree/cafe-api/internal/ports/out/clock"
	mailerport "github.com/eightonethree/cafe-api/internal/ports/out/mailer"
)

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,max=4000"`
}

type Service struct {
	content  Content
	loc      *time.Location
	clk      clockport.Clock
	mailer   mailerport.Mailer
	activity activity.Recorder
	validate *validation.Validator
}

func NewService(content Content, loc *time.Location, clk clockport.Clock, mailer mailerport.Mailer, rec activity.Recorder) *Service {
	if rec == nil {
		rec = activity.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{content: content, loc: loc, clk: clk, mailer: mailer, activity: rec, validate: validation.New()}
}

func (s *Service) Content() Content { return s.content }

func (s *Service) Location() *time.Location { return s.loc }

// OpenNow reports whether the café is open right now.
func (s *Service) OpenNow() bool { return s.content.OpenAt(s.clk.Now(), s.loc) }

// SubmitContact validates a contact form message and forwards it to the café inbox.
func (s *Service) SubmitContact(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if details := s.validate.Struct(in); details != nil {
		return apperr.Validation("invalid contact message", details)
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return apperr.Validation("invalid email", map[string]any{"email": err.Error()})
	}

	s.activity.Record(ctx, activity.Entry{
		Kind:    "site.contact",
		Message: "Contact message from " + in.Name + " <" + in.Email + ">",
		Data:    map[string]any{"email": in.Email},
	})

	if s.mailer == nil || s.content.Contact.Email == "" {
		return nil
	}
	err := s.mailer.Send(ctx, mailerport.Message{
		ToName:  s.content.Name,
		ToEmail: s.content.Contact.Email,
		Subject: "Contact form: " + in.Name,
		Body:    in.Message + "\n\nReply to: " + in.Email,
	})
	if err != nil {
		s.activity.Record(ctx, activity.Entry{Kind: "mail.failed", Message: "could not forward contact message: " + err.Error()})
	}
	return nil
}
