// Package e2e runs the Gherkin scenarios under features/ against an
// in-process registry server.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"warranty/internal/auth/token"
	"warranty/internal/platform/middleware"
	"warranty/internal/warranty/handler"
	"warranty/internal/warranty/service"
	"warranty/internal/warranty/store/memory"
	"warranty/pkg/domain"
	"warranty/pkg/testutil"
)

// TestContext holds one scenario's server and the last response.
type TestContext struct {
	server  *httptest.Server
	clock   *testutil.StubClock
	jwt     *token.JWTService
	parties map[string]domain.Address

	lastStatus int
	lastBody   []byte
}

// NewTestContext starts a fresh registry with an empty memory backend and a
// clock frozen at 2024-01-15 10:30 UTC.
func NewTestContext() *TestContext {
	clock := testutil.FixedClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := token.NewJWTService("e2e-signing-key", "warranty")
	svc := service.New(memory.NewCertificateStore(), memory.NewOwnershipLedger(), memory.NewRunner(),
		service.WithClock(clock),
		service.WithEmitter(memory.NewOutbox()),
		service.WithLogger(logger),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	handler.New(svc, logger, jwt).Register(r)

	return &TestContext{
		server:  httptest.NewServer(r),
		clock:   clock,
		jwt:     jwt,
		parties: map[string]domain.Address{"zero": domain.ZeroAddress},
	}
}

func (tc *TestContext) Close() {
	tc.server.Close()
}

// Address returns a stable address for a named party; names are assigned
// addresses in order of first use.
func (tc *TestContext) Address(name string) domain.Address {
	if addr, ok := tc.parties[name]; ok {
		return addr
	}
	addr := domain.Address(fmt.Sprintf("0x%040x", len(tc.parties)))
	tc.parties[name] = addr
	return addr
}

// TokenFor mints a bearer token for a named party.
func (tc *TestContext) TokenFor(name string) (string, error) {
	return tc.jwt.Issue(tc.Address(name), time.Hour)
}

func (tc *TestContext) Advance(d time.Duration) {
	tc.clock.Advance(d)
}

func (tc *TestContext) POST(path string, body any, bearer string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return tc.do(req)
}

func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.server.URL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) StatusCode() int {
	return tc.lastStatus
}

// ResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", strings.TrimSpace(string(tc.lastBody)))
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q field: %s", field, strings.TrimSpace(string(tc.lastBody)))
	}
	return v, nil
}

// DecodeResponse unmarshals the last response body into v.
func (tc *TestContext) DecodeResponse(v any) error {
	return json.Unmarshal(tc.lastBody, v)
}
