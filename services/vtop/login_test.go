package vtop

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"vtop-backend/lib/scrapers/vtop/vtoptest"

	"github.com/stretchr/testify/require"
)

func TestPrepareLoginWithoutSession(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	_, err := env.service.PrepareLogin(context.Background(), testUser)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = env.service.Login(context.Background(), testUser, Credentials{})
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.Equal(t, 0, env.portal.TotalCount())
}

func TestCaptchaAttempts(t *testing.T) {
	testCases := []struct {
		name     string
		attempts int
		misses   int
		ok       bool
	}{
		{name: "no attempts", attempts: 0, misses: 0, ok: false},
		{name: "first attempt", attempts: 1, misses: 0, ok: true},
		{name: "single attempt misses", attempts: 1, misses: 1, ok: false},
		{name: "second attempt", attempts: 2, misses: 1, ok: true},
		{name: "last attempt", attempts: 3, misses: 2, ok: true},
		{name: "every attempt misses", attempts: 3, misses: 3, ok: false},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			env, cleanup := setup(t, func(o *Options) {
				o.CaptchaAttempts = test.attempts
			})
			defer cleanup()

			env.portal.SetCaptchaMisses(test.misses)
			require.NoError(t, env.service.CreateSession(testUser))

			captcha, err := env.service.PrepareLogin(context.Background(), testUser)
			if test.ok {
				require.NoError(t, err)
				require.True(t, strings.HasPrefix(captcha, "data:image/jpeg;base64,"))
			} else {
				require.ErrorIs(t, err, ErrCaptchaUnavailable)
			}

			rounds := test.attempts
			if test.ok {
				rounds = test.misses + 1
			}
			require.Equal(t, rounds, env.portal.Count("/vtop/open/page"))
			require.Equal(t, rounds, env.portal.Count("/vtop/prelogin/setup"))
		})
	}
}

func TestPrepareLoginMissingCsrf(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	env.portal.SetOmitCsrf(true)
	require.NoError(t, env.service.CreateSession(testUser))

	_, err := env.service.PrepareLogin(context.Background(), testUser)
	require.ErrorIs(t, err, ErrCsrfExtractionFailed)
	require.Equal(t, 1, env.portal.Count("/vtop/open/page"))
	require.Equal(t, 0, env.portal.Count("/vtop/prelogin/setup"))
}

func TestPrepareLoginPortalDown(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	env.portal.Fail("/vtop/open/page", http.StatusServiceUnavailable)
	require.NoError(t, env.service.CreateSession(testUser))

	_, err := env.service.PrepareLogin(context.Background(), testUser)
	require.ErrorIs(t, err, ErrCaptchaUnavailable)
	require.Equal(t, DefaultCaptchaAttempts, env.portal.Count("/vtop/open/page"))
}

func TestLoginRejectedThenRetried(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, env.service.CreateSession(testUser))
	_, err := env.service.PrepareLogin(ctx, testUser)
	require.NoError(t, err)

	result, err := env.service.Login(ctx, testUser, Credentials{
		Password: "wrong",
		Captcha:  vtoptest.DefaultCaptcha,
	})
	require.NoError(t, err)
	require.Equal(t, LoginResult{
		Outcome: LoginRejected,
		Message: "Invalid Username/Password, Please try again",
	}, result)

	// the session and its csrf token survive a rejected login
	require.NoError(t, env.sessions.Validate(testUser))
	_, ok := env.sessions.Token(testUser)
	require.True(t, ok)

	_, err = env.service.PrepareLogin(ctx, testUser)
	require.NoError(t, err)
	result, err = env.service.Login(ctx, testUser, Credentials{
		Password: vtoptest.DefaultPassword,
		Captcha:  vtoptest.DefaultCaptcha,
	})
	require.NoError(t, err)
	require.Equal(t, LoginSucceeded, result.Outcome)

	csrf, ok := env.sessions.Token(testUser)
	require.True(t, ok)
	require.NotEmpty(t, csrf)
}

func TestLoginOutcomes(t *testing.T) {
	testCases := []struct {
		name     string
		redirect string
		status   int
		outcome  LoginOutcome
		message  string
		err      error
	}{
		{
			name:     "unknown page",
			redirect: "/vtop/initialProcess",
			outcome:  LoginUnexpected,
			message:  "unexpected error in login",
		},
		{
			name:    "request failure",
			status:  http.StatusBadGateway,
			outcome: LoginUnexpected,
			message: "error in request : ",
		},
		{
			name:     "error page without banner",
			redirect: "/vtop/initialProcess?error=true",
			err:      ErrExtractionFailed,
		},
		{
			name:     "content page without csrf",
			redirect: "/vtop/initialProcess?next=content",
			err:      ErrCsrfExtractionFailed,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			env, cleanup := setup(t)
			defer cleanup()

			ctx := context.Background()
			require.NoError(t, env.service.CreateSession(testUser))
			_, err := env.service.PrepareLogin(ctx, testUser)
			require.NoError(t, err)

			if test.redirect != "" {
				env.portal.SetLoginRedirect(test.redirect)
			}
			if test.status != 0 {
				env.portal.Fail("/vtop/login", test.status)
			}

			result, err := env.service.Login(ctx, testUser, Credentials{
				Password: vtoptest.DefaultPassword,
				Captcha:  vtoptest.DefaultCaptcha,
			})
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.outcome, result.Outcome)
			require.True(t, strings.HasPrefix(result.Message, test.message), result.Message)
		})
	}
}

func TestLoginWithStaleCsrf(t *testing.T) {
	env, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, env.service.CreateSession(testUser))
	_, err := env.service.PrepareLogin(ctx, testUser)
	require.NoError(t, err)
	require.NoError(t, env.sessions.SetToken(testUser, "stale"))

	result, err := env.service.Login(ctx, testUser, Credentials{
		Password: vtoptest.DefaultPassword,
		Captcha:  vtoptest.DefaultCaptcha,
	})
	require.NoError(t, err)
	require.Equal(t, LoginUnexpected, result.Outcome)
}
