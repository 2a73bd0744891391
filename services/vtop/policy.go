package vtop

import (
	"context"
	"log/slog"
	"sync"
)

// FieldPolicy decides what a per semester field becomes when scraping one
// of its semesters fails.
type FieldPolicy int

const (
	// TolerateSemester stores a fallback value for the failed semester and
	// keeps the others.
	TolerateSemester FieldPolicy = iota
	// BlankField drops the whole field, it is stored as null.
	BlankField
)

func (p FieldPolicy) String() string {
	switch p {
	case TolerateSemester:
		return "tolerate_semester"
	case BlankField:
		return "blank_field"
	}
	return "unknown"
}

// marks and gpa keep partial results, timetable and attendance do not.
var fieldPolicies = map[Field]FieldPolicy{
	FieldMarks:       TolerateSemester,
	FieldCgpaDetails: TolerateSemester,
	FieldTimetable:   BlankField,
	FieldAttendance:  BlankField,
}

// collectSemesters calls fetch for every semester in order and applies the
// policy of field to failures. A nil map means the field was blanked.
func collectSemesters[T any](
	ctx context.Context,
	field Field,
	semesters []string,
	fallback T,
	fetch func(ctx context.Context, semester string) (T, error),
) map[string]T {
	policy := fieldPolicies[field]
	out := make(map[string]T, len(semesters))
	for _, semester := range semesters {
		value, err := fetch(ctx, semester)
		if err == nil {
			scrapePhaseTotal.WithLabelValues(string(field), outcomeOk).Inc()
			out[semester] = value
			continue
		}

		slog.WarnContext(
			ctx, "failed to scrape semester",
			"field", field,
			"semester", semester,
			"policy", policy,
			"err", err,
		)
		if policy == BlankField {
			scrapePhaseTotal.WithLabelValues(string(field), outcomeBlanked).Inc()
			return nil
		}
		scrapePhaseTotal.WithLabelValues(string(field), outcomeFailed).Inc()
		out[semester] = fallback
	}
	return out
}

type userLock struct {
	slot chan struct{}
	refs int
}

// userLocks serializes scrapes of the same user, waiting respects the
// caller's context.
type userLocks struct {
	mutex sync.Mutex
	locks map[string]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: map[string]*userLock{}}
}

func (l *userLocks) acquire(ctx context.Context, userId string) (release func(), err error) {
	l.mutex.Lock()
	lock, ok := l.locks[userId]
	if !ok {
		lock = &userLock{slot: make(chan struct{}, 1)}
		l.locks[userId] = lock
	}
	lock.refs++
	l.mutex.Unlock()

	select {
	case lock.slot <- struct{}{}:
		return func() {
			<-lock.slot
			l.unref(userId, lock)
		}, nil
	case <-ctx.Done():
		l.unref(userId, lock)
		return nil, ctx.Err()
	}
}

func (l *userLocks) unref(userId string, lock *userLock) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, userId)
	}
}
