// Package customer keeps the registry of chat users: registration, profile,
// locale and the super-admin broadcast and direct messages.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// broadcastParallelism bounds concurrent sends of one broadcast. The
// messenger paces each chat on its own.
const broadcastParallelism = 8

// DealerChecker answers whether a customer may order
type DealerChecker interface {
	Check(ctx context.Context, userID int64, phone string, force bool) fulfillment.DealerVerdict
}

// Service manages customers
type Service struct {
	users     fulfillment.UserRepository
	roster    *fulfillment.Roster
	dealers   DealerChecker
	messenger notification.Messenger
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a customer service
func NewService(users fulfillment.UserRepository, roster *fulfillment.Roster, dealers DealerChecker, messenger notification.Messenger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:     users,
		roster:    roster,
		dealers:   dealers,
		messenger: messenger,
		logger:    logger,
		now:       time.Now,
	}
}

// Identity is what the chat platform tells about a sender
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Register records a first-seen user or refreshes the activity of a known
// one. The flag reports whether the user was created.
func (s *Service) Register(ctx context.Context, id Identity) (*fulfillment.User, bool, error) {
	now := s.now()
	u, err := s.users.FindByID(ctx, id.ID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		u = fulfillment.NewUser(id.ID, id.Username, id.FirstName, id.LastName, now)
		if err := s.users.Save(ctx, u); err != nil {
			return nil, false, err
		}
		s.logger.Info("User registered", zap.Int64("user_id", id.ID), zap.String("username", id.Username))
		return u, true, nil
	case err != nil:
		return nil, false, err
	}

	u.Username = id.Username
	u.FirstName = id.FirstName
	u.LastName = id.LastName
	u.Touch(now)
	if err := s.users.Save(ctx, u); err != nil {
		return nil, false, err
	}
	return u, false, nil
}

// Touch records activity of a known user. Unknown users are ignored.
func (s *Service) Touch(ctx context.Context, userID int64) error {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	u.Touch(s.now())
	return s.users.Save(ctx, u)
}

// SetLanguage switches the locale of a user
func (s *Service) SetLanguage(ctx context.Context, userID int64, locale fulfillment.Locale) (*fulfillment.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.SetLanguage(locale)
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ProfileInput is the registration form
type ProfileInput struct {
	Phone     string
	City      string
	FullName  string
	Latitude  *float64
	Longitude *float64
}

// CompleteProfile stores registration data and re-checks dealer eligibility
// against the oracle, bypassing the cache
func (s *Service) CompleteProfile(ctx context.Context, userID int64, in ProfileInput) (*fulfillment.User, fulfillment.DealerVerdict, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fulfillment.DealerVerdict{}, err
	}
	if err := u.CompleteProfile(in.Phone, in.City, in.FullName, in.Latitude, in.Longitude); err != nil {
		return nil, fulfillment.DealerVerdict{}, err
	}
	u.Touch(s.now())
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fulfillment.DealerVerdict{}, err
	}

	verdict := s.dealers.Check(ctx, userID, u.PhoneDigits(), true)
	s.logger.Info("Profile completed",
		zap.Int64("user_id", userID),
		zap.Bool("dealer_active", verdict.IsActive),
		zap.String("dealer_status", verdict.Status))
	return u, verdict, nil
}

// Profile returns a user
func (s *Service) Profile(ctx context.Context, userID int64) (*fulfillment.User, error) {
	return s.users.FindByID(ctx, userID)
}

// Stats summarizes the user base. Super-admin only.
func (s *Service) Stats(ctx context.Context, actorID int64) (fulfillment.UserStats, error) {
	if !s.roster.IsSuperAdmin(actorID) {
		return fulfillment.UserStats{}, shared.NewAuthorizationError("Only the super-admin may view user statistics")
	}
	return s.users.Stats(ctx, s.now())
}

// BroadcastResult counts the outcome of a broadcast
type BroadcastResult struct {
	Delivered int
	Failed    int
}

// Broadcast sends text to every registered user. Super-admin only. A failed
// delivery is counted, never fatal.
func (s *Service) Broadcast(ctx context.Context, actorID int64, text string) (BroadcastResult, error) {
	if !s.roster.IsSuperAdmin(actorID) {
		return BroadcastResult{}, shared.NewAuthorizationError("Only the super-admin may broadcast")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return BroadcastResult{}, shared.NewValidationError("Broadcast text is empty")
	}
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}

	var delivered, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastParallelism)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.messenger.SendMessage(gctx, id, text, nil); err != nil {
				failed.Add(1)
				s.logger.Debug("Broadcast delivery failed", zap.Int64("user_id", id), zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := BroadcastResult{Delivered: int(delivered.Load()), Failed: int(failed.Load())}
	s.logger.Info("Broadcast finished",
		zap.Int64("actor_id", actorID),
		zap.Int("delivered", res.Delivered),
		zap.Int("failed", res.Failed))
	return res, nil
}

// SendDirect delivers a message from the super-admin to one user
func (s *Service) SendDirect(ctx context.Context, actorID, targetID int64, text string) error {
	if !s.roster.IsSuperAdmin(actorID) {
		return shared.NewAuthorizationError("Only the super-admin may message users")
	}
	if targetID == 0 {
		return shared.NewValidationError("Recipient id is missing")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return shared.NewValidationError("Message text is empty")
	}
	if _, err := s.messenger.SendMessage(ctx, targetID, text, nil); err != nil {
		s.logger.Warn("Direct message failed", zap.Int64("user_id", targetID), zap.Error(err))
		return shared.NewUpstreamError(fmt.Sprintf("Failed to message user %d", targetID), err)
	}
	s.logger.Info("Direct message sent",
		zap.Int64("actor_id", actorID),
		zap.Int64("user_id", targetID))
	return nil
}
