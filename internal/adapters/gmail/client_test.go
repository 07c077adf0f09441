package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

type recorded struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (r *recorded) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, _ := io.ReadAll(req.Body)
	r.requests = append(r.requests, req.Method+" "+req.URL.Path+"?"+req.URL.RawQuery)
	r.bodies = append(r.bodies, string(b))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc, err := gmailv1.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	cfg := config.GmailConfig{
		User:           "me",
		RequestTimeout: 5 * time.Second,
		Breaker:        config.BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ConsecutiveFailures: 3},
	}
	return NewClient(svc, cfg, nil), rec
}

func writeAPIError(w http.ResponseWriter, code int, reason, message string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"errors":  []map[string]string{{"reason": reason, "message": message}},
		},
	})
}

func TestListMessages(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"messages":      []map[string]string{{"id": "a", "threadId": "t1"}, {"id": "b", "threadId": "t2"}},
			"nextPageToken": "next",
		})
	})

	page, err := c.ListMessages(context.Background(), `from:"x@y.com"`, "tok", 50)
	require.NoError(t, err)
	assert.Equal(t, []core.MessageRef{{ID: "a", ThreadID: "t1"}, {ID: "b", ThreadID: "t2"}}, page.Messages)
	assert.Equal(t, "next", page.NextPageToken)

	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	assert.True(t, strings.HasPrefix(req, "GET /gmail/v1/users/me/messages?"), req)
	assert.Contains(t, req, "maxResults=50")
	assert.Contains(t, req, "pageToken=tok")
	assert.Contains(t, req, "q=from%3A%22x%40y.com%22")
}

func TestGetMessageConvertsPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "format=full")
		_ = json.NewEncoder(w).Encode(&gmailv1.Message{
			Id:       "m1",
			ThreadId: "t1",
			LabelIds: []string{"INBOX", "CATEGORY_PROMOTIONS"},
			Snippet:  "hello",
			Payload: &gmailv1.MessagePart{
				MimeType: "multipart/alternative",
				Headers:  []*gmailv1.MessagePartHeader{{Name: "From", Value: "Shop <deals@shop.com>"}},
				Parts: []*gmailv1.MessagePart{
					{MimeType: "text/plain", Body: &gmailv1.MessagePartBody{Data: "aGk"}},
					{MimeType: "text/html", Body: &gmailv1.MessagePartBody{Data: "PGI-aGk8L2I-"}},
				},
			},
		})
	})

	msg, err := c.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, []string{"INBOX", "CATEGORY_PROMOTIONS"}, msg.LabelIDs)
	require.NotNil(t, msg.Payload)
	assert.Equal(t, "Shop <deals@shop.com>", core.HeaderValue(msg, "from"))
	require.Len(t, msg.Payload.Parts, 2)
	assert.Equal(t, "aGk", msg.Payload.Parts[0].Data)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		reason    string
		message   string
		transient bool
		notFound  bool
	}{
		{"not found", 404, "notFound", "Requested entity was not found.", false, true},
		{"too many requests", 429, "rateLimitExceeded", "Too many requests", true, false},
		{"server error", 500, "backendError", "Backend Error", true, false},
		{"unavailable", 503, "backendError", "Service unavailable", true, false},
		{"rate limited 403", 403, "userRateLimitExceeded", "User Rate Limit Exceeded", true, false},
		{"forbidden", 403, "insufficientPermissions", "Insufficient Permission", false, false},
		{"unauthorized", 401, "authError", "Invalid Credentials", false, false},
		{"bad request", 400, "invalidArgument", "Invalid query", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.code, tt.reason, tt.message)
			})
			_, err := c.GetMessage(context.Background(), "m1")
			require.Error(t, err)

			var pe *core.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.transient, core.IsTransient(err))
			assert.Equal(t, tt.notFound, errors.Is(err, core.ErrNotFound))
		})
	}
}

func TestClassifyTransportErrors(t *testing.T) {
	err := classifyError(context.Background(), "list", errors.New("connection reset by peer"))
	assert.True(t, core.IsTransient(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = classifyError(ctx, "list", errors.New("context canceled"))
	assert.False(t, core.IsTransient(err))
	assert.ErrorIs(t, err, context.Canceled)

	err = classifyError(context.Background(), "list", &googleapi.Error{Code: 502})
	assert.True(t, core.IsTransient(err))
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	status := http.StatusNotFound
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, status, "x", "x")
	})

	// client errors never trip the breaker
	for i := 0; i < 5; i++ {
		_, err := c.GetMessage(context.Background(), "m")
		assert.ErrorIs(t, err, core.ErrNotFound)
	}
	assert.Equal(t, "closed", c.BreakerState())

	status = http.StatusServiceUnavailable
	for i := 0; i < 3; i++ {
		_, _ = c.GetMessage(context.Background(), "m")
	}
	assert.Equal(t, "open", c.BreakerState())

	calls := len(rec.requests)
	_, err := c.GetMessage(context.Background(), "m")
	assert.True(t, core.IsTransient(err))
	assert.Len(t, rec.requests, calls, "open breaker must not reach the API")
}

func TestTrashAndBatchDelete(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/trash") {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "m1"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.TrashMessage(context.Background(), "m1"))
	require.NoError(t, c.BatchDelete(context.Background(), []string{"a", "b"}))
	require.NoError(t, c.BatchDelete(context.Background(), nil))

	require.Len(t, rec.requests, 2)
	assert.True(t, strings.HasPrefix(rec.requests[0], "POST /gmail/v1/users/me/messages/m1/trash"))
	assert.True(t, strings.HasPrefix(rec.requests[1], "POST /gmail/v1/users/me/messages/batchDelete"))
	assert.JSONEq(t, `{"ids": ["a", "b"]}`, rec.bodies[1])
}

func TestParseCode(t *testing.T) {
	code, err := parseCode("  4/abc  ")
	require.NoError(t, err)
	assert.Equal(t, "4/abc", code)

	code, err = parseCode("http://127.0.0.1:8080/?state=state-token&code=4%2Fxyz&scope=mail")
	require.NoError(t, err)
	assert.Equal(t, "4/xyz", code)

	_, err = parseCode("http://127.0.0.1:8080/?state=x")
	assert.Error(t, err)
	_, err = parseCode("")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}
	require.NoError(t, saveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "rt", got.RefreshToken)

	a := NewAuthenticator(config.GmailConfig{TokenFile: path}, nil, io.Discard, nil)
	require.NoError(t, a.Reset())
	require.NoError(t, a.Reset())
	_, err = readToken(path)
	assert.Error(t, err)
}
