// Package vtoptest runs an in-process imitation of the portal for tests.
package vtoptest

import (
	"embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

//go:embed pages/*.html
var pages embed.FS

// Page returns the raw fixture with the given name (without extension).
func Page(name string) []byte {
	contents, err := pages.ReadFile("pages/" + name + ".html")
	if err != nil {
		panic(err)
	}
	return contents
}

// Render returns a fixture with its {{placeholders}} substituted, the
// replacements are old, new pairs.
func Render(name string, replacements ...string) []byte {
	return []byte(strings.NewReplacer(replacements...).Replace(string(Page(name))))
}

const (
	DefaultUser     = "22BCE1001"
	DefaultPassword = "hunter2"
	DefaultCaptcha  = "ABC12"
	DefaultName     = "ADA LOVELACE"

	sessionCookie = "JSESSIONID"
)

type session struct {
	csrf          string
	authenticated bool
}

// Portal serves the login handshake and every scraped page. fixtures are
// returned for all semesters unless a failure is injected.
type Portal struct {
	Server *httptest.Server

	mutex    sync.Mutex
	name     string
	password string
	// number of prelogin responses that still come without a captcha
	captchaMisses int
	loginRedirect string
	omitCsrf      bool
	failures      map[string]int
	counts        map[string]int
	sessions      map[string]*session
	nextId        int
}

func NewPortal() *Portal {
	p := &Portal{
		name:     DefaultName,
		password: DefaultPassword,
		failures: map[string]int{},
		counts:   map[string]int{},
		sessions: map[string]*session{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/vtop/open/page", p.handleOpenPage)
	mux.HandleFunc("/vtop/prelogin/setup", p.handlePrelogin)
	mux.HandleFunc("/vtop/login", p.handleLogin)
	mux.HandleFunc("/vtop/login/error", p.handleLoginError)
	mux.HandleFunc("/vtop/content", p.handleContent)
	mux.HandleFunc("/vtop/initialProcess", p.handleInitialProcess)
	mux.HandleFunc("/vtop/studentsRecord/StudentProfileAllView", p.authenticated("profile"))
	mux.HandleFunc("/vtop/academics/common/StudentTimeTableChn", p.authenticated("semesters"))
	mux.HandleFunc("/vtop/processViewTimeTable", p.authenticated("timetable"))
	mux.HandleFunc("/vtop/examinations/doStudentMarkView", p.authenticated("marks"))
	mux.HandleFunc("/vtop/processViewStudentAttendance", p.authenticated("attendance"))
	mux.HandleFunc("/vtop/examinations/examGradeView/doStudentGradeView", p.authenticated("grade_view"))
	mux.HandleFunc("/vtop/examinations/examGradeView/StudentGradeHistory", p.authenticated("grade_history"))

	p.Server = httptest.NewServer(mux)
	return p
}

func (p *Portal) URL() string {
	return p.Server.URL
}

func (p *Portal) Close() {
	p.Server.Close()
}

// SetName changes the student name rendered on the profile page.
func (p *Portal) SetName(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.name = name
}

// SetCaptchaMisses makes the next n prelogin responses come without a
// captcha image.
func (p *Portal) SetCaptchaMisses(n int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.captchaMisses = n
}

// SetOmitCsrf makes the landing page render without a csrf token.
func (p *Portal) SetOmitCsrf(omit bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.omitCsrf = omit
}

// SetLoginRedirect overrides where a successful login redirects to.
func (p *Portal) SetLoginRedirect(path string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.loginRedirect = path
}

// Fail makes requests to path (optionally narrowed to one semester with
// "path?semesterSubId=CODE") answer with the given status.
func (p *Portal) Fail(target string, status int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.failures[target] = status
}

// Count returns how many requests were made to path.
func (p *Portal) Count(path string) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.counts[path]
}

// TotalCount returns how many requests the portal received.
func (p *Portal) TotalCount() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	total := 0
	for _, n := range p.counts {
		total += n
	}
	return total
}

func (p *Portal) render(w http.ResponseWriter, page string, replacements ...string) {
	w.Header().Set("Content-Type", "text/html;charset=UTF-8")
	w.Write(Render(page, replacements...))
}

// begin records the request and returns the caller's session, creating
// one when create is set. p.mutex is held on return.
func (p *Portal) begin(w http.ResponseWriter, r *http.Request, create bool) *session {
	p.mutex.Lock()
	p.counts[r.URL.Path]++

	cookie, err := r.Cookie(sessionCookie)
	if err == nil {
		if s, ok := p.sessions[cookie.Value]; ok {
			return s
		}
	}
	if !create {
		return nil
	}

	p.nextId++
	id := fmt.Sprintf("session-%d", p.nextId)
	s := &session{}
	p.sessions[id] = s
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/vtop"})
	return s
}

func (p *Portal) rotate(s *session) string {
	p.nextId++
	s.csrf = fmt.Sprintf("csrf-%d", p.nextId)
	return s.csrf
}

func (p *Portal) failure(r *http.Request) int {
	if status, ok := p.failures[r.URL.Path+"?semesterSubId="+r.PostFormValue("semesterSubId")]; ok {
		return status
	}
	return p.failures[r.URL.Path]
}

func (p *Portal) handleOpenPage(w http.ResponseWriter, r *http.Request) {
	s := p.begin(w, r, true)
	defer p.mutex.Unlock()
	if status := p.failure(r); status != 0 {
		w.WriteHeader(status)
		return
	}
	csrf := p.rotate(s)
	if p.omitCsrf {
		csrf = ""
	}
	p.render(w, "open_page", "{{csrf}}", csrf)
}

func (p *Portal) handlePrelogin(w http.ResponseWriter, r *http.Request) {
	s := p.begin(w, r, false)
	defer p.mutex.Unlock()
	if status := p.failure(r); status != 0 {
		w.WriteHeader(status)
		return
	}
	if s == nil || r.PostFormValue("_csrf") != s.csrf || r.PostFormValue("flag") != "VTOP" {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if p.captchaMisses > 0 {
		p.captchaMisses--
		p.render(w, "prelogin_recaptcha", "{{csrf}}", s.csrf)
		return
	}
	p.render(w, "prelogin", "{{csrf}}", s.csrf)
}

func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	s := p.begin(w, r, false)
	defer p.mutex.Unlock()
	if status := p.failure(r); status != 0 {
		w.WriteHeader(status)
		return
	}
	if r.Method != http.MethodPost {
		p.render(w, "prelogin", "{{csrf}}", "")
		return
	}
	if s == nil || r.PostFormValue("_csrf") != s.csrf {
		http.Redirect(w, r, "/vtop/initialProcess", http.StatusFound)
		return
	}
	if r.PostFormValue("username") == "" ||
		r.PostFormValue("password") != p.password ||
		r.PostFormValue("captchaStr") != DefaultCaptcha {
		http.Redirect(w, r, "/vtop/login/error", http.StatusFound)
		return
	}

	s.authenticated = true
	target := "/vtop/content"
	if p.loginRedirect != "" {
		target = p.loginRedirect
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (p *Portal) handleLoginError(w http.ResponseWriter, r *http.Request) {
	s := p.begin(w, r, true)
	defer p.mutex.Unlock()
	p.render(w, "login_error", "{{csrf}}", p.rotate(s))
}

func (p *Portal) handleContent(w http.ResponseWriter, r *http.Request) {
	s := p.begin(w, r, false)
	defer p.mutex.Unlock()
	if s == nil || !s.authenticated {
		http.Redirect(w, r, "/vtop/login", http.StatusFound)
		return
	}
	p.render(w, "content", "{{csrf}}", p.rotate(s), "{{user}}", DefaultUser)
}

func (p *Portal) handleInitialProcess(w http.ResponseWriter, r *http.Request) {
	p.begin(w, r, false)
	defer p.mutex.Unlock()
	fmt.Fprint(w, "<html><body>Session expired</body></html>")
}

func (p *Portal) authenticated(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := p.begin(w, r, false)
		defer p.mutex.Unlock()
		if status := p.failure(r); status != 0 {
			w.WriteHeader(status)
			return
		}
		if r.Method != http.MethodPost || s == nil || !s.authenticated || r.PostFormValue("_csrf") != s.csrf {
			http.Redirect(w, r, "/vtop/initialProcess", http.StatusFound)
			return
		}
		p.render(w, page, "{{name}}", p.name, "{{user}}", r.PostFormValue("authorizedID"))
	}
}
