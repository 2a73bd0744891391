// Package vtop logs students into the portal, scrapes their academic
// records and serves the stored records.
package vtop

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"vtop-backend/lib/chrono"
	"vtop-backend/services/session"
)

const (
	DefaultCaptchaAttempts = 3
	DefaultScrapeTimeout   = time.Minute * 5
)

// persistTimeout bounds saving a scraped record, it does not share the
// scrape deadline.
const persistTimeout = time.Second * 30

type Options struct {
	Sessions *session.Store
	Records  RecordStore
	// CaptchaAttempts is how many times PrepareLogin asks for a login form
	// with an image captcha, 0 fails without any request.
	CaptchaAttempts int
	// ScrapeTimeout bounds a whole scrape, 0 picks the default.
	ScrapeTimeout time.Duration
	Clock         chrono.API
}

type Service struct {
	sessions        *session.Store
	records         RecordStore
	captchaAttempts int
	scrapeTimeout   time.Duration
	clock           chrono.API
	locks           *userLocks
}

func NewService(opts Options) *Service {
	if opts.ScrapeTimeout <= 0 {
		opts.ScrapeTimeout = DefaultScrapeTimeout
	}
	if opts.CaptchaAttempts < 0 {
		opts.CaptchaAttempts = 0
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}
	return &Service{
		sessions:        opts.Sessions,
		records:         opts.Records,
		captchaAttempts: opts.CaptchaAttempts,
		scrapeTimeout:   opts.ScrapeTimeout,
		clock:           opts.Clock,
		locks:           newUserLocks(),
	}
}

// CreateSession starts a fresh portal session for userId, replacing any
// previous one.
func (s *Service) CreateSession(userId string) error {
	_, err := s.sessions.Create(userId)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	slog.Info("session created", "user_id", userId)
	return nil
}

// Logout deletes the stored record of userId with any session state left
// behind, it succeeds when there is nothing to delete.
func (s *Service) Logout(ctx context.Context, userId string) error {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	s.sessions.Delete(userId)
	s.sessions.DeleteToken(userId)

	err := s.records.Delete(ctx, userId)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	slog.InfoContext(ctx, "logged out and removed student record", "user_id", userId)
	return nil
}
