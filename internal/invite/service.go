package invite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/printdesk/printdesk/pkg"
)

var ErrInviteNotFound = errors.New("invite not found")

// Repo is the document store surface for invite codes. Claim must be
// atomic: look up and remove in one step, so two registrations can never
// consume the same code.
type Repo interface {
	Create(ctx context.Context, inv *Invite) error
	List(ctx context.Context) ([]*Invite, error)
	Delete(ctx context.Context, code string) error
	Claim(ctx context.Context, code string) (*Invite, error)
}

// Service owns the invite lifecycle: generated by an administrator,
// consumed exactly once during registration or revoked manually. Every
// change publishes on the invites topic so the administration screen
// stays live.
type Service struct {
	repo   Repo
	pub    events.Publisher
	logger apt.Logger
}

func NewService(repo Repo, pub events.Publisher, logger apt.Logger) *Service {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Service{
		repo:   repo,
		pub:    pub,
		logger: logger,
	}
}

func (s *Service) Generate(ctx context.Context) (*Invite, error) {
	inv := NewInvite()
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("cannot create invite: %w", err)
	}
	s.publishChange(ctx, pkg.EventCreated, inv.Code)
	return inv, nil
}

func (s *Service) List(ctx context.Context) ([]*Invite, error) {
	return s.repo.List(ctx)
}

func (s *Service) Revoke(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		return fmt.Errorf("cannot revoke invite: %w", err)
	}
	s.publishChange(ctx, pkg.EventDeleted, code)
	return nil
}

// Consume claims the code before the caller creates the identity. The
// original flow checked existence first and deleted after account
// creation, which could leave a consumed-but-present code when the
// delete failed; claiming up front closes that race. Callers that fail
// after a successful claim should Reinstate the invite.
func (s *Service) Consume(ctx context.Context, code string) (*Invite, error) {
	inv, err := s.repo.Claim(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("cannot consume invite: %w", err)
	}
	if inv == nil {
		return nil, ErrInviteNotFound
	}
	s.publishChange(ctx, pkg.EventDeleted, code)
	return inv, nil
}

// Reinstate puts a claimed invite back, best effort.
func (s *Service) Reinstate(ctx context.Context, inv *Invite) {
	if inv == nil {
		return
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		s.logger.Errorf("cannot reinstate invite %s: %v", inv.Code, err)
		return
	}
	s.publishChange(ctx, pkg.EventCreated, inv.Code)
}

func (s *Service) publishChange(ctx context.Context, eventType, code string) {
	if s.pub == nil {
		return
	}
	event := pkg.NewChangeEvent(eventType, "invites", code)
	msg, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf("cannot marshal invite change event: %v", err)
		return
	}
	if err := s.pub.Publish(ctx, pkg.InvitesTopic, msg); err != nil {
		s.logger.Errorf("cannot publish invite change event: %v", err)
	}
}
