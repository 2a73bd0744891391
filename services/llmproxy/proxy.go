package llmproxy

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("vtop.services.llmproxy")

const (
	EnvServerIp   = "LLM_SERVER_IP"
	EnvServerPort = "LLM_SERVER_PORT"

	maxLineSize = 1 << 20
)

var (
	ErrNotConfigured       = errors.New("llm server not configured")
	ErrUpstreamUnavailable = errors.New("llm server unavailable")
)

// ErrorLine is sent in place of the rest of the stream when the llm server
// cannot be reached or fails midway.
var ErrorLine = mustLine(streamEvent{
	Type: "error",
	Data: "Internal server error while contacting LLM.",
})

type streamEvent struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func mustLine(v any) []byte {
	line, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return append(line, '\n')
}

type Question struct {
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
	Query string `json:"query"`
	// Dummy asks the llm server for a canned answer.
	Dummy bool `json:"dummy"`
}

func (q Question) Validate() error {
	if q.Name == "" || q.RegNo == "" || q.Query == "" {
		return fmt.Errorf("invalid input data")
	}
	return nil
}

type Proxy struct {
	client *resty.Client
	getenv func(string) string
}

type Options struct {
	// Getenv defaults to os.Getenv, the target is read on every call so
	// the environment can change while running.
	Getenv func(string) string
}

func NewProxy(opts Options) Proxy {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	// answers are streamed for as long as the llm takes, the request
	// context bounds them instead
	client.SetTimeout(0)
	restyutil.InstrumentClient(client, tracer, nil)

	return Proxy{client: client, getenv: opts.Getenv}
}

// Target returns the base url of the llm server.
func (p Proxy) Target() (string, error) {
	ip := p.getenv(EnvServerIp)
	if ip == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNotConfigured, EnvServerIp)
	}
	port := p.getenv(EnvServerPort)
	if port == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNotConfigured, EnvServerPort)
	}
	target := fmt.Sprintf("%s:%s", ip, port)
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	return target, nil
}

func endpoint(target string, question Question) (string, any) {
	if question.Dummy {
		return target + "/dummy_invoke", map[string]string{}
	}
	return target + "/invoke", map[string]string{
		"name":   question.Name,
		"reg_no": question.RegNo,
		"query":  question.Query,
	}
}

// Relay posts the question to the llm server at target and copies every
// line of the answer to w as it arrives, each followed by a newline. When
// the server fails ErrorLine is written and an ErrUpstreamUnavailable is
// returned.
func (p Proxy) Relay(ctx context.Context, target string, question Question, w io.Writer) error {
	ctx, span := tracer.Start(ctx, "Relay")
	defer span.End()
	span.SetAttributes(
		attribute.String("reg_no", question.RegNo),
		attribute.Bool("dummy", question.Dummy),
	)

	lines, err := p.relay(ctx, target, question, w)
	span.SetAttributes(attribute.Int("lines", lines))
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "relay failed")
	slog.ErrorContext(ctx, "error while contacting llm server", "reg_no", question.RegNo, "lines", lines, "err", err)

	_, writeErr := w.Write(ErrorLine)
	if writeErr != nil {
		slog.WarnContext(ctx, "failed to write error line", "err", writeErr)
	}
	flush(w)
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

func (p Proxy) relay(ctx context.Context, target string, question Question, w io.Writer) (int, error) {
	url, payload := endpoint(target, question)
	res, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetDoNotParseResponse(true).
		Post(url)
	if err != nil {
		return 0, err
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("unexpected response status: %s", res.Status())
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lines := 0
	for scanner.Scan() {
		_, err := io.WriteString(w, scanner.Text()+"\n")
		if err != nil {
			// the client went away
			return lines, err
		}
		flush(w)
		lines++
	}
	return lines, scanner.Err()
}

func flush(w io.Writer) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
