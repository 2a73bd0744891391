package vtop

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"vtop-backend/lib/scrapers/vtop/vtoptest"
	"vtop-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) (*Client, *vtoptest.Portal, func()) {
	cleanupTelemetry := telemetry.SetupForTesting(t, "test:scrapers/vtop")
	portal := vtoptest.NewPortal()

	client, err := NewClient(ClientOptions{
		BaseUrl:           portal.URL(),
		RequestsPerSecond: -1,
	})
	require.NoError(t, err)

	return client, portal, func() {
		client.Close()
		portal.Close()
		cleanupTelemetry()
	}
}

func login(t testing.TB, ctx context.Context, client *Client, password string) Page {
	open, err := client.OpenPage(ctx)
	require.NoError(t, err)
	csrf, err := ExtractOpenPageCsrf(open.Body)
	require.NoError(t, err)

	prelogin, err := client.Prelogin(ctx, csrf)
	require.NoError(t, err)
	_, err = ExtractCaptcha(prelogin.Body)
	require.NoError(t, err)

	page, err := client.SubmitLogin(ctx, LoginForm{
		Username: vtoptest.DefaultUser,
		Password: password,
		Captcha:  vtoptest.DefaultCaptcha,
		Csrf:     csrf,
	})
	require.NoError(t, err)
	return page
}

func TestClientLogin(t *testing.T) {
	client, portal, cleanup := setup(t)
	defer cleanup()

	ctx, span := tracer.Start(context.Background(), "TestClientLogin")
	defer span.End()

	page := login(t, ctx, client, "wrong")
	require.Contains(t, page.FinalUrl, "/vtop/login/error")
	banner, err := ExtractLoginError(page.Body)
	require.NoError(t, err)
	require.NotEmpty(t, banner)

	page = login(t, ctx, client, vtoptest.DefaultPassword)
	require.True(t, strings.HasSuffix(page.FinalUrl, "/vtop/content"), page.FinalUrl)
	csrf, err := ExtractContentCsrf(page.Body)
	require.NoError(t, err)

	profilePage, err := client.Profile(ctx, vtoptest.DefaultUser, csrf)
	require.NoError(t, err)
	profile, err := ExtractProfile(profilePage.Body)
	require.NoError(t, err)
	require.Equal(t, vtoptest.DefaultName, profile.Name)
	require.Equal(t, vtoptest.DefaultUser, profile.RegistrationNumber)

	semestersPage, err := client.Semesters(ctx, vtoptest.DefaultUser, csrf)
	require.NoError(t, err)
	semesters, err := ExtractSemesters(semestersPage.Body)
	require.NoError(t, err)
	require.Len(t, semesters, 2)

	for _, semester := range semesters {
		marksPage, err := client.Marks(ctx, vtoptest.DefaultUser, csrf, semester.Code)
		require.NoError(t, err)
		marks, err := ExtractMarks(marksPage.Body)
		require.NoError(t, err)
		require.Contains(t, marks, "CSE1001")
	}
	require.Equal(t, 2, portal.Count("/vtop/examinations/doStudentMarkView"))
}

func TestClientStaleCsrf(t *testing.T) {
	client, _, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	page := login(t, ctx, client, vtoptest.DefaultPassword)
	require.Contains(t, page.FinalUrl, "content")

	page, err := client.Profile(ctx, vtoptest.DefaultUser, "stale")
	require.NoError(t, err)
	_, err = ExtractProfile(page.Body)
	require.ErrorIs(t, err, ErrAnchorNotFound)
}

func TestClientUnexpectedStatus(t *testing.T) {
	client, portal, cleanup := setup(t)
	defer cleanup()

	portal.Fail("/vtop/open/page", http.StatusServiceUnavailable)

	page, err := client.OpenPage(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.Equal(t, http.StatusServiceUnavailable, page.Status)
}

func TestClientCancelled(t *testing.T) {
	client, portal, cleanup := setup(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.OpenPage(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, portal.TotalCount())
}
