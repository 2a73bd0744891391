package vtop

import (
	"context"
	"testing"
	"time"
	"vtop-backend/lib/chrono"
	"vtop-backend/lib/scrapers/vtop"
	"vtop-backend/lib/scrapers/vtop/vtoptest"
	"vtop-backend/lib/testutil"
	"vtop-backend/services/session"
	"vtop-backend/services/vtop/db"

	"github.com/stretchr/testify/require"
)

const (
	testUser = vtoptest.DefaultUser
	fall     = "CH20232401"
	winter   = "CH20232405"
)

type testEnv struct {
	service  *Service
	sessions *session.Store
	records  SqlStore
	portal   *vtoptest.Portal
	clock    *chrono.ManualImpl
}

func setup(t testing.TB, configure ...func(*Options)) (testEnv, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/vtop",
		DbSchema: db.Schema,
	})

	portal := vtoptest.NewPortal()
	clock := chrono.NewManualImpl(time.Date(2024, time.April, 20, 10, 0, 0, 0, chrono.India))

	sessions, err := session.NewStore(session.Options{
		Clock: clock,
		NewClient: func() (*vtop.Client, error) {
			return vtop.NewClient(vtop.ClientOptions{
				BaseUrl:           portal.URL(),
				RequestsPerSecond: -1,
				Clock:             clock,
			})
		},
	})
	require.NoError(t, err)

	records := NewSqlStore(res.DB)
	opts := Options{
		Sessions:        sessions,
		Records:         records,
		CaptchaAttempts: DefaultCaptchaAttempts,
		Clock:           clock,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	env := testEnv{
		service:  NewService(opts),
		sessions: sessions,
		records:  records,
		portal:   portal,
		clock:    clock,
	}
	return env, func() {
		portal.Close()
		cleanup()
	}
}

// login walks the whole handshake with the right credentials.
func (e testEnv) login(t testing.TB, ctx context.Context) {
	t.Helper()

	require.NoError(t, e.service.CreateSession(testUser))
	captcha, err := e.service.PrepareLogin(ctx, testUser)
	require.NoError(t, err)
	require.NotEmpty(t, captcha)

	result, err := e.service.Login(ctx, testUser, Credentials{
		Password: vtoptest.DefaultPassword,
		Captcha:  vtoptest.DefaultCaptcha,
	})
	require.NoError(t, err)
	require.Equal(t, LoginSucceeded, result.Outcome, result.Message)
}

func TestLogout(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	env.login(t, ctx)
	_, err := env.service.Scrape(ctx, testUser, true)
	require.NoError(t, err)

	_, err = env.service.GetField(ctx, testUser, FieldProfile)
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(ctx, testUser))
	_, err = env.service.GetField(ctx, testUser, FieldProfile)
	require.ErrorIs(t, err, ErrRecordNotFound)

	// nothing left to delete
	require.NoError(t, env.service.Logout(ctx, testUser))
}

func TestLogoutDropsSession(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	env.login(t, ctx)

	require.NoError(t, env.service.Logout(ctx, testUser))
	require.ErrorIs(t, env.sessions.Validate(testUser), ErrSessionNotFound)
	require.ErrorIs(t, env.sessions.ValidateToken(testUser), session.ErrTokenNotFound)
}
