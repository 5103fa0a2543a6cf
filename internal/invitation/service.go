package invitation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Request describes one invitation to create.
type Request struct {
	Email       string
	Role        string
	ScheduledAt string
}

// Service creates invitations and queues their delivery mail.
type Service struct {
	repo      *Repository
	publisher MailPublisher
	newID     func() string
	now       func() time.Time
}

// NewService creates a Service. publisher may be nil when mail delivery
// is handled elsewhere.
func NewService(repo *Repository, publisher MailPublisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// Create stores a single invitation and queues its mail.
func (s *Service) Create(ctx context.Context, orgID, invitedBy string, req Request) (*InvitationItem, error) {
	inv := New(s.newID(), orgID, req.Email, req.Role, invitedBy, req.ScheduledAt, s.now().UTC())
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishInvitation(ctx, inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// CreateBulk creates a batch of invitations concurrently. The first
// failure cancels the remaining creates; invitations already written
// stay written.
func (s *Service) CreateBulk(ctx context.Context, orgID, invitedBy string, reqs []Request) ([]*InvitationItem, error) {
	results := make([]*InvitationItem, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			inv, err := s.Create(ctx, orgID, invitedBy, req)
			if err != nil {
				return err
			}
			results[i] = inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
