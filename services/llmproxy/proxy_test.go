package llmproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"vtop-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func setup(t testing.TB, handler http.HandlerFunc) (Proxy, string, func()) {
	cleanupTelemetry := telemetry.SetupForTesting(t, "test:services/llmproxy")
	server := httptest.NewServer(handler)
	proxy := NewProxy(Options{})
	return proxy, server.URL, func() {
		server.Close()
		cleanupTelemetry()
	}
}

func TestTarget(t *testing.T) {
	testCases := []struct {
		ip       string
		port     string
		expected string
	}{
		{ip: "10.0.0.2", port: "8001", expected: "http://10.0.0.2:8001"},
		{ip: "https://llm.internal", port: "443", expected: "https://llm.internal:443"},
		{ip: "", port: "8001"},
		{ip: "10.0.0.2", port: ""},
	}

	for _, test := range testCases {
		proxy := NewProxy(Options{Getenv: env(map[string]string{
			EnvServerIp:   test.ip,
			EnvServerPort: test.port,
		})})
		target, err := proxy.Target()
		if test.expected == "" {
			require.ErrorIs(t, err, ErrNotConfigured)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, test.expected, target)
	}
}

func TestQuestionValidate(t *testing.T) {
	require.NoError(t, Question{Name: "Ada", RegNo: "22BCE1001", Query: "attendance?"}.Validate())
	require.Error(t, Question{RegNo: "22BCE1001", Query: "attendance?"}.Validate())
	require.Error(t, Question{Name: "Ada", Query: "attendance?"}.Validate())
	require.Error(t, Question{Name: "Ada", RegNo: "22BCE1001"}.Validate())
}

func TestRelay(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	proxy, target, cleanup := setup(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		err := json.NewDecoder(r.Body).Decode(&gotBody)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type":"token","data":"You have"}`+"\n")
		w.(http.Flusher).Flush()
		fmt.Fprint(w, "\n")
		fmt.Fprint(w, `{"type":"token","data":" 92% attendance"}`+"\n")
		fmt.Fprint(w, `{"type":"end"}`)
	})
	defer cleanup()

	out := &bytes.Buffer{}
	err := proxy.Relay(context.Background(), target, Question{
		Name:  "ADA LOVELACE",
		RegNo: "22BCE1001",
		Query: "what is my attendance?",
	}, out)
	require.NoError(t, err)

	require.Equal(t, "/invoke", gotPath)
	require.Equal(t, map[string]string{
		"name":   "ADA LOVELACE",
		"reg_no": "22BCE1001",
		"query":  "what is my attendance?",
	}, gotBody)
	require.Equal(
		t,
		`{"type":"token","data":"You have"}`+"\n"+
			"\n"+
			`{"type":"token","data":" 92% attendance"}`+"\n"+
			`{"type":"end"}`+"\n",
		out.String(),
	)
}

func TestRelayDummy(t *testing.T) {
	var gotPath, gotBody string
	proxy, target, cleanup := setup(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		fmt.Fprint(w, `{"type":"end"}`+"\n")
	})
	defer cleanup()

	out := &bytes.Buffer{}
	err := proxy.Relay(context.Background(), target, Question{
		Name:  "ADA LOVELACE",
		RegNo: "22BCE1001",
		Query: "hello",
		Dummy: true,
	}, out)
	require.NoError(t, err)
	require.Equal(t, "/dummy_invoke", gotPath)
	require.JSONEq(t, `{}`, gotBody)
	require.Equal(t, `{"type":"end"}`+"\n", out.String())
}

func TestRelayFailures(t *testing.T) {
	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		closed   bool
		expected string
	}{
		{
			name:     "unreachable",
			closed:   true,
			expected: string(ErrorLine),
		},
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, "<html>bad gateway</html>")
			},
			expected: string(ErrorLine),
		},
		{
			name: "connection dropped midway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"type":"token","data":"You"}`+"\n")
				w.(http.Flusher).Flush()
				conn, _, err := w.(http.Hijacker).Hijack()
				if err != nil {
					return
				}
				conn.Close()
			},
			expected: `{"type":"token","data":"You"}` + "\n" + string(ErrorLine),
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			proxy, target, cleanup := setup(t, test.handler)
			if test.closed {
				cleanup()
			} else {
				defer cleanup()
			}

			out := &bytes.Buffer{}
			err := proxy.Relay(context.Background(), target, Question{
				Name:  "ADA LOVELACE",
				RegNo: "22BCE1001",
				Query: "hello",
			}, out)
			require.ErrorIs(t, err, ErrUpstreamUnavailable)
			require.Equal(t, test.expected, out.String())
		})
	}
}

func TestErrorLine(t *testing.T) {
	require.Equal(t, `{"type":"error","data":"Internal server error while contacting LLM."}`+"\n", string(ErrorLine))
}
