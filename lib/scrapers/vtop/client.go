package vtop

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"
	"vtop-backend/lib/chrono"
	"vtop-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://vtopcc.vit.ac.in"

const (
	pathOpenPage          = "/vtop/open/page"
	pathPrelogin          = "/vtop/prelogin/setup"
	pathLogin             = "/vtop/login"
	pathProfile           = "/vtop/studentsRecord/StudentProfileAllView"
	pathSemesters         = "/vtop/academics/common/StudentTimeTableChn"
	pathTimetable         = "/vtop/processViewTimeTable"
	pathMarks             = "/vtop/examinations/doStudentMarkView"
	pathAttendance        = "/vtop/processViewStudentAttendance"
	pathSemesterGrades    = "/vtop/examinations/examGradeView/doStudentGradeView"
	pathGradeHistory      = "/vtop/examinations/examGradeView/StudentGradeHistory"
	userAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultMaxRedirects   = 10
	defaultRequestsPerSec = 4
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
	Pool    time.Duration
}

// DefaultTimeouts are the network bounds applied to every portal request.
var DefaultTimeouts = Timeouts{
	Connect: time.Second * 10,
	Read:    time.Second * 30,
	Write:   time.Second * 10,
	Pool:    time.Second * 10,
}

type ClientOptions struct {
	BaseUrl  string
	Timeouts Timeouts
	// RequestsPerSecond limits the request rate of a single client, 0
	// picks the default and a negative value disables the limit.
	RequestsPerSecond  float64
	InsecureSkipVerify bool
	CloudflareBypass   bool
	Clock              chrono.API
}

// Client is one authenticated (or authenticating) portal session, it owns
// its own cookie jar.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	clock chrono.API
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.Timeouts == (Timeouts{}) {
		o.Timeouts = DefaultTimeouts
	}
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = defaultRequestsPerSec
	}
	if o.Clock == nil {
		o.Clock = chrono.NewStandardImpl()
	}
	return o
}

func newTransport(opts ClientOptions) http.RoundTripper {
	dialer := &net.Dialer{
		Timeout:   opts.Timeouts.Connect,
		KeepAlive: time.Second * 30,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   opts.Timeouts.Write,
		ResponseHeaderTimeout: opts.Timeouts.Read,
		IdleConnTimeout:       opts.Timeouts.Pool,
		ExpectContinueTimeout: time.Second,
		MaxIdleConnsPerHost:   4,
		TLSClientConfig: &tls.Config{
			// the portal has served incomplete certificate chains before
			InsecureSkipVerify: opts.InsecureSkipVerify,
		},
	}
	if opts.CloudflareBypass {
		return cloudflarebp.AddCloudFlareByPass(transport)
	}
	return transport
}

func NewClient(opts ClientOptions) (*Client, error) {
	opts = opts.withDefaults()

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetTransport(newTransport(opts))

	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(defaultMaxRedirects),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
	)
	client.SetTimeout(opts.Timeouts.Connect + opts.Timeouts.Write + opts.Timeouts.Read)

	if opts.RequestsPerSecond > 0 {
		// max burst >= rps just means that no requests will be dropped
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
		clock:   opts.Clock,
	}, nil
}

// Page is a fetched portal page.
type Page struct {
	Body     []byte
	FinalUrl string
	Status   int
}

func toPage(res *resty.Response) Page {
	return Page{
		Body:     res.Body(),
		FinalUrl: restyutil.FinalUrl(res),
		Status:   res.StatusCode(),
	}
}

func checkStatus(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status())
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (Page, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return Page{}, err
	}
	return toPage(res), checkStatus(res)
}

func (c *Client) postForm(ctx context.Context, path string, form map[string]string, headers map[string]string) (Page, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetFormData(form).
		Post(path)
	if err != nil {
		return Page{}, err
	}
	return toPage(res), checkStatus(res)
}

// Close drops the idle connections kept by the client.
func (c *Client) Close() {
	c.Http.GetClient().CloseIdleConnections()
}

func (c *Client) nocache() string {
	return strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
}

// the portal's scripts send `new Date().toUTCString()` as the "x" field.
func (c *Client) utcStamp() string {
	return c.clock.Now().UTC().Format(http.TimeFormat)
}

// OpenPage fetches the public landing page carrying the first csrf token.
func (c *Client) OpenPage(ctx context.Context) (Page, error) {
	ctx, span := tracer.Start(ctx, "OpenPage")
	defer span.End()
	return c.get(ctx, pathOpenPage)
}

// Prelogin submits the landing form, the response holds the login form and
// its captcha.
func (c *Client) Prelogin(ctx context.Context, csrf string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Prelogin")
	defer span.End()
	return c.postForm(ctx, pathPrelogin, map[string]string{
		"_csrf": csrf,
		"flag":  "VTOP",
	}, nil)
}

type LoginForm struct {
	Username string
	Password string
	Captcha  string
	Csrf     string
}

// SubmitLogin posts the credentials and follows the redirect chain, the
// final url tells whether the login worked.
func (c *Client) SubmitLogin(ctx context.Context, form LoginForm) (Page, error) {
	ctx, span := tracer.Start(ctx, "SubmitLogin")
	defer span.End()
	return c.postForm(ctx, pathLogin, map[string]string{
		"username":   form.Username,
		"password":   form.Password,
		"captchaStr": form.Captcha,
		"_csrf":      form.Csrf,
	}, map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Referer":      c.BaseUrl.JoinPath(pathLogin).String(),
	})
}

func (c *Client) menuPage(ctx context.Context, path, userId, csrf string) (Page, error) {
	return c.postForm(ctx, path, map[string]string{
		"verifyMenu":   "true",
		"authorizedID": userId,
		"_csrf":        csrf,
		"nocache":      c.nocache(),
	}, nil)
}

func (c *Client) Profile(ctx context.Context, userId, csrf string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Profile")
	defer span.End()
	return c.menuPage(ctx, pathProfile, userId, csrf)
}

// Semesters fetches the timetable menu page whose semester dropdown lists
// every semester of the student.
func (c *Client) Semesters(ctx context.Context, userId, csrf string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Semesters")
	defer span.End()
	return c.menuPage(ctx, pathSemesters, userId, csrf)
}

func (c *Client) GradeHistory(ctx context.Context, userId, csrf string) (Page, error) {
	ctx, span := tracer.Start(ctx, "GradeHistory")
	defer span.End()
	return c.menuPage(ctx, pathGradeHistory, userId, csrf)
}

func (c *Client) Timetable(ctx context.Context, userId, csrf, semester string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Timetable")
	defer span.End()
	return c.postForm(ctx, pathTimetable, map[string]string{
		"_csrf":         csrf,
		"semesterSubId": semester,
		"authorizedID":  userId,
		"x":             c.utcStamp(),
	}, nil)
}

func (c *Client) Attendance(ctx context.Context, userId, csrf, semester string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Attendance")
	defer span.End()
	return c.postForm(ctx, pathAttendance, map[string]string{
		"_csrf":         csrf,
		"semesterSubId": semester,
		"authorizedID":  userId,
		"x":             c.utcStamp(),
	}, nil)
}

func (c *Client) Marks(ctx context.Context, userId, csrf, semester string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Marks")
	defer span.End()
	return c.postForm(ctx, pathMarks, map[string]string{
		"authorizedID":  userId,
		"semesterSubId": semester,
		"_csrf":         csrf,
	}, nil)
}

// SemesterGrades fetches the grade view of one semester which carries its
// gpa.
func (c *Client) SemesterGrades(ctx context.Context, userId, csrf, semester string) (Page, error) {
	ctx, span := tracer.Start(ctx, "SemesterGrades")
	defer span.End()
	return c.postForm(ctx, pathSemesterGrades, map[string]string{
		"authorizedID":  userId,
		"semesterSubId": semester,
		"_csrf":         csrf,
	}, nil)
}
