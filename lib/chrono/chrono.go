package chrono

import (
	"sync"
	"time"
	_ "time/tzdata"
)

// India is the portal's timezone, Asia/Kolkata.
var India *time.Location

func init() {
	var err error
	India, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
}

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location.
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() StandardImpl {
	return StandardImpl{location: India}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// ManualImpl is a clock that only moves when told to.
type ManualImpl struct {
	mutex sync.Mutex
	now   time.Time
}

func NewManualImpl(start time.Time) *ManualImpl {
	return &ManualImpl{now: start.In(India)}
}

func (m *ManualImpl) Now() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.now
}

func (m *ManualImpl) Location() *time.Location {
	return India
}

func (m *ManualImpl) Advance(d time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = m.now.Add(d)
}
