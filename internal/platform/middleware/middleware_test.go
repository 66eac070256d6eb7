package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"warranty/pkg/domain"
	"warranty/pkg/requestcontext"
)

const alice = domain.Address("0x00000000000000000000000000000000000000a1")

type stubValidator struct {
	caller domain.Address
	err    error
	seen   string
}

func (s *stubValidator) Caller(token string) (domain.Address, error) {
	s.seen = token
	return s.caller, s.err
}

type MiddlewareSuite struct {
	suite.Suite
	logs   *bytes.Buffer
	logger *slog.Logger
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.logs = &bytes.Buffer{}
	s.logger = slog.New(slog.NewJSONHandler(s.logs, nil))
}

func (s *MiddlewareSuite) TestRequireCaller() {
	s.Run("valid token sets caller", func() {
		v := &stubValidator{caller: alice}
		var got domain.Address
		h := RequireCaller(v, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = requestcontext.Caller(r.Context())
		}))

		req := httptest.NewRequest(http.MethodPost, "/certificates", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		s.Equal(http.StatusOK, rr.Code)
		s.Equal(alice, got)
		s.Equal("abc.def.ghi", v.seen)
	})

	s.Run("missing header is unauthorized", func() {
		h := RequireCaller(&stubValidator{}, s.logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			s.Fail("next must not run")
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/certificates", nil))

		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), `"error":"unauthorized"`)
	})

	s.Run("rejected token is unauthorized", func() {
		h := RequireCaller(&stubValidator{err: errors.New("expired")}, s.logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			s.Fail("next must not run")
		}))
		req := httptest.NewRequest(http.MethodPost, "/certificates", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), "Invalid or expired token")
		s.Contains(s.logs.String(), "invalid token")
	})
}

func (s *MiddlewareSuite) TestRequestIDGeneratedAndPropagated() {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	s.NotEmpty(seen)
	s.Equal(seen, rr.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	s.Equal("req-42", seen)
	s.Equal("req-42", rr.Header().Get(HeaderRequestID))
}

func (s *MiddlewareSuite) TestLoggerRecordsStatus() {
	h := RequestID(Logger(s.logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/certificates/count", nil))

	s.Contains(s.logs.String(), `"status":418`)
	s.Contains(s.logs.String(), `"path":"/certificates/count"`)
	s.Contains(s.logs.String(), `"request_id"`)
}

func (s *MiddlewareSuite) TestRecovery() {
	h := Recovery(s.logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusInternalServerError, rr.Code)
	s.NotContains(rr.Body.String(), "boom")
	s.Contains(s.logs.String(), "panic recovered")
}

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, want: "203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, want: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "ipv6 remote addr", remote: "[::1]:5555", want: "[::1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadataStoresIP(t *testing.T) {
	var ip string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "198.51.100.7", ip)
}
