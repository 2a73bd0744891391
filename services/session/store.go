// Package session keeps the portal clients and csrf tokens of users who
// are in the middle of logging in or scraping.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"vtop-backend/lib/chrono"
	"vtop-backend/lib/scrapers/vtop"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("csrf token not found")
	ErrEmptyToken      = errors.New("csrf token is empty")
)

const (
	DefaultTimeout       = time.Minute * 15
	DefaultSweepInterval = time.Minute * 10
	DefaultCapacity      = 4096
)

type Options struct {
	// Timeout is how long an entry lives without being refreshed.
	Timeout       time.Duration
	SweepInterval time.Duration
	// Capacity bounds each registry, the least recently used entry is
	// dropped once it is reached.
	Capacity  int
	Clock     chrono.API
	NewClient func() (*vtop.Client, error)
}

type clientEntry struct {
	client      *vtop.Client
	createdAt   time.Time
	refreshedAt time.Time
}

type tokenEntry struct {
	value    string
	issuedAt time.Time
}

// Store holds one portal client and one csrf token per user. Both expire
// independently after Options.Timeout.
type Store struct {
	timeout       time.Duration
	sweepInterval time.Duration
	clock         chrono.API
	newClient     func() (*vtop.Client, error)

	// guards refreshedAt of the entries and read-then-remove sequences
	mutex   sync.Mutex
	clients *lru.Cache[string, *clientEntry]
	tokens  *lru.Cache[string, tokenEntry]
}

func NewStore(opts Options) (*Store, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardImpl()
	}
	if opts.NewClient == nil {
		opts.NewClient = func() (*vtop.Client, error) {
			return vtop.NewClient(vtop.ClientOptions{Clock: opts.Clock})
		}
	}

	clients, err := lru.NewWithEvict(opts.Capacity, func(_ string, entry *clientEntry) {
		entry.client.Close()
	})
	if err != nil {
		return nil, err
	}
	tokens, err := lru.New[string, tokenEntry](opts.Capacity)
	if err != nil {
		return nil, err
	}

	return &Store{
		timeout:       opts.Timeout,
		sweepInterval: opts.SweepInterval,
		clock:         opts.Clock,
		newClient:     opts.NewClient,
		clients:       clients,
		tokens:        tokens,
	}, nil
}

func (s *Store) expired(t time.Time) bool {
	return s.clock.Now().Sub(t) > s.timeout
}

// Create registers a fresh client for userId, replacing any previous one.
func (s *Store) Create(userId string) (*vtop.Client, error) {
	client, err := s.newClient()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	entry := &clientEntry{
		client:      client,
		createdAt:   now,
		refreshedAt: now,
	}

	client.Http.OnAfterResponse(func(_ *resty.Client, _ *resty.Response) error {
		s.touch(entry)
		return nil
	})

	s.mutex.Lock()
	previous, replaced := s.clients.Peek(userId)
	evicted := s.clients.Add(userId, entry)
	s.mutex.Unlock()

	if replaced {
		previous.client.Close()
	}
	if evicted {
		slog.Warn("session registry is full, dropped the least recently used session", "capacity", s.clients.Len())
	}
	return client, nil
}

func (s *Store) touch(entry *clientEntry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entry.refreshedAt = s.clock.Now()
}

// Get returns the client of userId, an expired client is removed and
// reported as absent.
func (s *Store) Get(userId string) (*vtop.Client, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.clients.Get(userId)
	if !ok {
		return nil, false
	}
	if s.expired(entry.refreshedAt) {
		s.clients.Remove(userId)
		return nil, false
	}
	return entry.client, true
}

// Validate checks that a session was created for userId, it does not
// look at expiry.
func (s *Store) Validate(userId string) error {
	if !s.clients.Contains(userId) {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) Delete(userId string) {
	s.clients.Remove(userId)
}

func (s *Store) SetToken(userId, value string) error {
	if value == "" {
		return ErrEmptyToken
	}
	evicted := s.tokens.Add(userId, tokenEntry{
		value:    value,
		issuedAt: s.clock.Now(),
	})
	if evicted {
		slog.Warn("token registry is full, dropped the least recently used token", "capacity", s.tokens.Len())
	}
	return nil
}

// Token returns the csrf token of userId, an expired token is removed and
// reported as absent.
func (s *Store) Token(userId string) (string, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.tokens.Get(userId)
	if !ok {
		return "", false
	}
	if s.expired(entry.issuedAt) {
		s.tokens.Remove(userId)
		return "", false
	}
	return entry.value, true
}

func (s *Store) ValidateToken(userId string) error {
	if !s.tokens.Contains(userId) {
		return ErrTokenNotFound
	}
	return nil
}

func (s *Store) DeleteToken(userId string) {
	s.tokens.Remove(userId)
}

// Sweep removes every expired client and token and returns how many
// entries it removed.
func (s *Store) Sweep() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for _, userId := range s.clients.Keys() {
		entry, ok := s.clients.Peek(userId)
		if !ok || !s.expired(entry.refreshedAt) {
			continue
		}
		if !s.clients.Remove(userId) {
			slog.Warn("failed to remove expired session", "user_id", userId)
			continue
		}
		removed++
	}
	for _, userId := range s.tokens.Keys() {
		entry, ok := s.tokens.Peek(userId)
		if !ok || !s.expired(entry.issuedAt) {
			continue
		}
		if !s.tokens.Remove(userId) {
			slog.Warn("failed to remove expired token", "user_id", userId)
			continue
		}
		removed++
	}
	return removed
}

// Run sweeps the store every sweep interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	slog.InfoContext(ctx, "start daemon", "task", "sweep expired sessions", "interval", s.sweepInterval)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed := s.Sweep()
			if removed > 0 {
				slog.DebugContext(ctx, "swept expired sessions", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Len returns the number of live client and token entries.
func (s *Store) Len() (clients int, tokens int) {
	return s.clients.Len(), s.tokens.Len()
}
