package vtop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"vtop-backend/lib/scrapers/vtop"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type LoginOutcome int

const (
	LoginSucceeded LoginOutcome = iota
	// LoginRejected means the portal showed an error banner (wrong
	// password or captcha), the session is kept so the user can retry.
	LoginRejected
	// LoginUnexpected means the login ended neither on the content page
	// nor on the error page, or the request itself failed.
	LoginUnexpected
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSucceeded:
		return "succeeded"
	case LoginRejected:
		return "rejected"
	case LoginUnexpected:
		return "unexpected"
	}
	return "unknown"
}

type LoginResult struct {
	Outcome LoginOutcome
	Message string
}

type Credentials struct {
	Password string
	Captcha  string
}

// PrepareLogin opens the login form of the portal and returns its captcha
// image as a data uri. The portal sometimes serves a form with a
// recaptcha instead, it is requested again up to the configured number of
// attempts.
func (s *Service) PrepareLogin(ctx context.Context, userId string) (string, error) {
	ctx, span := tracer.Start(ctx, "PrepareLogin")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userId))

	client, ok := s.sessions.Get(userId)
	if !ok {
		return "", ErrSessionNotFound
	}

	for attempt := 1; attempt <= s.captchaAttempts; attempt++ {
		slog.DebugContext(ctx, "requesting image captcha", "user_id", userId, "attempt", attempt)

		captcha, err := s.requestCaptcha(ctx, userId, client)
		if err == nil {
			return captcha, nil
		}
		if errors.Is(err, ErrCsrfExtractionFailed) {
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.WarnContext(ctx, "captcha attempt failed", "user_id", userId, "attempt", attempt, "err", err)
	}

	span.SetStatus(codes.Error, ErrCaptchaUnavailable.Error())
	return "", fmt.Errorf("%w after %d attempts", ErrCaptchaUnavailable, s.captchaAttempts)
}

func (s *Service) requestCaptcha(ctx context.Context, userId string, client *vtop.Client) (string, error) {
	open, err := client.OpenPage(ctx)
	if err != nil {
		return "", err
	}
	csrf, err := vtop.ExtractOpenPageCsrf(open.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCsrfExtractionFailed, err)
	}
	err = s.sessions.SetToken(userId, csrf)
	if err != nil {
		return "", err
	}

	prelogin, err := client.Prelogin(ctx, csrf)
	if err != nil {
		return "", err
	}
	return vtop.ExtractCaptcha(prelogin.Body)
}

// finalPath is the part of the final url the login outcome is read from,
// the host is left out so that it never matches by accident.
func finalPath(finalUrl string) string {
	parsed, err := url.Parse(finalUrl)
	if err != nil {
		return finalUrl
	}
	return parsed.RequestURI()
}

// Login submits the credentials with the captcha answer and classifies the
// outcome by the url the portal redirected to.
func (s *Service) Login(ctx context.Context, userId string, creds Credentials) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userId))

	client, ok := s.sessions.Get(userId)
	if !ok {
		return LoginResult{}, ErrSessionNotFound
	}
	// a missing token is sent as is, the portal answers with a redirect
	// that is classified as unexpected
	csrf, _ := s.sessions.Token(userId)

	page, err := client.SubmitLogin(ctx, vtop.LoginForm{
		Username: userId,
		Password: creds.Password,
		Captcha:  creds.Captcha,
		Csrf:     csrf,
	})
	if err != nil {
		slog.WarnContext(ctx, "login request failed", "user_id", userId, "err", err)
		return s.loginResult(LoginResult{
			Outcome: LoginUnexpected,
			Message: fmt.Sprintf("error in request : %s", err.Error()),
		}), nil
	}

	path := finalPath(page.FinalUrl)
	slog.DebugContext(ctx, "login redirected", "user_id", userId, "path", path)

	switch {
	case strings.Contains(path, "error"):
		banner, err := vtop.ExtractLoginError(page.Body)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return LoginResult{}, fmt.Errorf("%w: login error banner: %w", ErrExtractionFailed, err)
		}
		return s.loginResult(LoginResult{Outcome: LoginRejected, Message: banner}), nil
	case strings.Contains(path, "content"):
		csrf, err := vtop.ExtractContentCsrf(page.Body)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return LoginResult{}, fmt.Errorf("%w: %w", ErrCsrfExtractionFailed, err)
		}
		err = s.sessions.SetToken(userId, csrf)
		if err != nil {
			return LoginResult{}, err
		}
		return s.loginResult(LoginResult{Outcome: LoginSucceeded}), nil
	}

	slog.WarnContext(ctx, "login ended on an unexpected page", "user_id", userId, "path", path)
	return s.loginResult(LoginResult{
		Outcome: LoginUnexpected,
		Message: "unexpected error in login",
	}), nil
}

func (s *Service) loginResult(result LoginResult) LoginResult {
	loginTotal.WithLabelValues(result.Outcome.String()).Inc()
	return result
}
