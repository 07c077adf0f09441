package unsubscribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

type fakeMessages map[string]*core.RawMessage

func (f fakeMessages) GetMessage(_ context.Context, id string) (*core.RawMessage, error) {
	if m, ok := f[id]; ok {
		return m, nil
	}
	return nil, &core.ProviderError{Op: "get message", Code: 404, Err: core.ErrNotFound}
}

func message(listUnsub, plain, html string) *core.RawMessage {
	root := &core.MessagePart{
		MimeType: "multipart/alternative",
		Headers:  []core.Header{{Name: "From", Value: "Deals <deals@shop.com>"}},
	}
	if listUnsub != "" {
		root.Headers = append(root.Headers, core.Header{Name: "list-unsubscribe", Value: listUnsub})
	}
	if plain != "" {
		root.Parts = append(root.Parts, &core.MessagePart{MimeType: "text/plain", Data: base64.URLEncoding.EncodeToString([]byte(plain))})
	}
	if html != "" {
		root.Parts = append(root.Parts, &core.MessagePart{MimeType: "text/html", Data: base64.URLEncoding.EncodeToString([]byte(html))})
	}
	return &core.RawMessage{ID: "m1", Payload: root}
}

type site struct {
	mu   sync.Mutex
	hits []string
	srv  *httptest.Server
}

func newSite(t *testing.T, routes map[string]http.HandlerFunc) *site {
	t.Helper()
	s := &site{}
	mux := http.NewServeMux()
	for path, h := range routes {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.hits = append(s.hits, r.URL.RequestURI())
			s.mu.Unlock()
			h(w, r)
		})
	}
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *site) url(path string) string { return s.srv.URL + path }

func (s *site) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}
}

func newResolver(msgs fakeMessages, timeout time.Duration) *Resolver {
	return NewResolver(msgs, config.UnsubscribeConfig{Timeout: timeout, UserAgent: "test-agent"}, nil, nil)
}

func TestParseListUnsubscribe(t *testing.T) {
	got := ParseListUnsubscribe("<mailto:leave@x.com?subject=unsub>, <http://x.com/u>, <https://x.com/u?id=1>, <ftp://nope>")
	assert.Equal(t, []string{"https://x.com/u?id=1", "http://x.com/u", "mailto:leave@x.com?subject=unsub"}, got)

	assert.Empty(t, ParseListUnsubscribe(""))
	assert.Empty(t, ParseListUnsubscribe("https://no-brackets.com"))
}

func TestFindBodyLink(t *testing.T) {
	html := `<p><a href="https://shop.com/item">Buy</a> <a href="#">top</a>
		<a href="https://shop.com/e/123">Manage preferences</a>
		<a href="https://shop.com/unsubscribe?u=1">Unsubscribe</a></p>`
	assert.Equal(t, "https://shop.com/e/123", FindBodyLink(html, ""))

	plain := "Thanks for reading.\nTo stop these mails visit https://news.io/opt-out/abc. Bye"
	assert.Equal(t, "https://news.io/opt-out/abc", FindBodyLink("", plain))

	assert.Equal(t, "mailto:remove@list.org", FindBodyLink(`<a href="mailto:remove@list.org">here</a>`, ""))
	assert.Empty(t, FindBodyLink(`<a href="https://shop.com">Shop</a>`, "hello https://shop.com/item"))
}

func TestHeaderConfirmationSucceeds(t *testing.T) {
	s := newSite(t, map[string]http.HandlerFunc{
		"/unsub": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			assert.NotEmpty(t, r.Header.Get("Accept"))
			fmt.Fprint(w, "<h1>You have been Unsubscribed</h1>")
		},
	})
	msgs := fakeMessages{"m1": message("<mailto:x@shop.com>, <"+s.url("/unsub")+">", "", "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "deals@shop.com", "m1")
	assert.Equal(t, core.UnsubscribeSucceeded, res.Outcome)
	assert.Equal(t, s.url("/unsub"), res.Target)
	assert.Equal(t, "deals@shop.com", res.Sender)
}

func TestMailtoOnlyHeader(t *testing.T) {
	msgs := fakeMessages{"m1": message("<mailto:leave@shop.com>", "", "")}
	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "deals@shop.com", "m1")
	assert.Equal(t, core.UnsubscribeMailtoOnly, res.Outcome)
	assert.Equal(t, "mailto:leave@shop.com", res.Target)
	assert.True(t, res.Outcome.Succeeded())
}

func TestNoMechanism(t *testing.T) {
	msgs := fakeMessages{"m1": message("", "Hi there", "<p>No links</p>")}
	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeNoMechanism, res.Outcome)
}

func TestFetchFailed(t *testing.T) {
	res := newResolver(fakeMessages{}, time.Second).Unsubscribe(context.Background(), "a@b.com", "missing")
	assert.Equal(t, core.UnsubscribeFetchFailed, res.Outcome)
	assert.False(t, res.Outcome.Succeeded())
}

func TestBodyLinkFallbackRequested(t *testing.T) {
	s := newSite(t, map[string]http.HandlerFunc{"/prefs": reply("<p>Thanks, we got it.</p>")})
	html := `<a href="` + s.url("/prefs") + `">Update your preferences</a>`
	msgs := fakeMessages{"m1": message("", "", html)}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeRequested, res.Outcome)
	assert.Equal(t, "HTTP 200", res.Detail)
}

func TestHeaderFailureFallsBackToBody(t *testing.T) {
	s := newSite(t, map[string]http.HandlerFunc{
		"/broken": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"/optout": reply("You will no longer receive these emails."),
	})
	plain := "Leave the list: " + s.url("/optout")
	msgs := fakeMessages{"m1": message("<"+s.url("/broken")+">", plain, "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeSucceeded, res.Outcome)
	assert.Equal(t, s.url("/optout"), res.Target)
	assert.Equal(t, []string{"/broken", "/optout"}, s.paths())
}

func TestHTTPErrorWithoutFallback(t *testing.T) {
	s := newSite(t, map[string]http.HandlerFunc{
		"/gone": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) },
	})
	msgs := fakeMessages{"m1": message("<"+s.url("/gone")+">", "", "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeHTTPError, res.Outcome)
	assert.Equal(t, "HTTP 404", res.Detail)
}

func TestHTTPFailureWithMailtoIsPartialSuccess(t *testing.T) {
	s := newSite(t, map[string]http.HandlerFunc{
		"/gone": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusGone) },
	})
	msgs := fakeMessages{"m1": message("<"+s.url("/gone")+">, <mailto:leave@shop.com>", "", "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeMailtoOnly, res.Outcome)
	assert.Contains(t, res.Detail, "HTTP 410")
}

func TestFormSubmission(t *testing.T) {
	queries := make(chan url.Values, 1)
	s := newSite(t, map[string]http.HandlerFunc{
		"/unsub": reply(`<form action="/confirm" method="post">
			<input type="hidden" name="token" value="abc">
			<input type="checkbox" name="all" value="1" checked>
			<input type="checkbox" name="survey" value="1">
			<button>Remove me</button></form>`),
		"/confirm": func(w http.ResponseWriter, r *http.Request) {
			queries <- r.URL.Query()
			fmt.Fprint(w, "ok")
		},
	})
	msgs := fakeMessages{"m1": message("<"+s.url("/unsub")+">", "", "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeFormSubmitted, res.Outcome)
	var submitted url.Values
	select {
	case submitted = <-queries:
	default:
	}
	require.NotNil(t, submitted)
	assert.Equal(t, "abc", submitted.Get("token"))
	assert.Equal(t, "1", submitted.Get("all"))
	assert.False(t, submitted.Has("survey"))
}

func TestTimeout(t *testing.T) {
	s := newSite(t, map[string]http.HandlerFunc{
		"/slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	})
	msgs := fakeMessages{"m1": message("<"+s.url("/slow")+">", "", "")}

	res := newResolver(msgs, 50*time.Millisecond).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeTimeout, res.Outcome)
}

func TestTLSError(t *testing.T) {
	srv := httptest.NewTLSServer(reply("unsubscribed"))
	defer srv.Close()
	msgs := fakeMessages{"m1": message("<"+srv.URL+"/u>", "", "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeTLSError, res.Outcome)
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(reply("unsubscribed"))
	target := srv.URL + "/u"
	srv.Close()
	msgs := fakeMessages{"m1": message("<"+target+">", "", "")}

	res := newResolver(msgs, time.Second).Unsubscribe(context.Background(), "a@b.com", "m1")
	assert.Equal(t, core.UnsubscribeConnectionError, res.Outcome)
}

func TestClassifyTransportDeadline(t *testing.T) {
	outcome, _ := classifyTransport(fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	assert.Equal(t, core.UnsubscribeTimeout, outcome)

	outcome, _ = classifyTransport(errors.New("connection refused"))
	assert.Equal(t, core.UnsubscribeConnectionError, outcome)
}
