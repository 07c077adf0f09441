package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/inbox-sweeper/internal/config"
)

// Scopes requested for the mailbox. Batch delete needs full access.
var Scopes = []string{
	gmailv1.GmailModifyScope,
	gmailv1.GmailLabelsScope,
	gmailv1.MailGoogleComScope,
}

const loopbackWait = 2 * time.Minute

// Authenticator turns the OAuth client secret and the cached token into a Gmail service
type Authenticator struct {
	cfg    config.GmailConfig
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator. Prompts are written to out and
// pasted codes read from in.
func NewAuthenticator(cfg config.GmailConfig, in io.Reader, out io.Writer, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{cfg: cfg, in: in, out: out, logger: logger}
}

// Service returns an authenticated Gmail service, running the consent flow
// when no usable token is cached.
func (a *Authenticator) Service(ctx context.Context) (*gmailv1.Service, error) {
	b, err := os.ReadFile(a.cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials at %s: %w", a.cfg.CredentialsFile, err)
	}
	oauthCfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse oauth config: %w", err)
	}

	tok, err := readToken(a.cfg.TokenFile)
	if err != nil {
		a.logger.Info("No cached token, starting authorization", zap.String("token_file", a.cfg.TokenFile))
		tok, err = a.tokenFromWeb(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(a.cfg.TokenFile, tok); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// Reset removes the cached token so the next run asks for consent again
func (a *Authenticator) Reset() error {
	if err := os.Remove(a.cfg.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// tokenFromWeb waits for the loopback redirect and falls back to a pasted code
func (a *Authenticator) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)
		srv := &http.Server{
			ReadHeaderTimeout: 5 * time.Second,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				code := r.URL.Query().Get("code")
				if code == "" {
					http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
					return
				}
				fmt.Fprintln(w, "Authorization complete. You can close this window.")
				select {
				case codeCh <- code:
				default:
				}
			}),
		}
		go func() { _ = srv.Serve(ln) }()
		defer func() { _ = srv.Shutdown(context.Background()) }()

		fmt.Fprintln(a.out, "Open this URL in your browser to authorize inbox-sweeper:")
		fmt.Fprintln(a.out, cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case code := <-codeCh:
			return exchange(ctx, cfg, code)
		case <-time.After(loopbackWait):
			fmt.Fprintln(a.out, "Timed out waiting for the redirect.")
		}
	}

	fmt.Fprintln(a.out, "Open this URL, then paste the authorization code or the full redirect URL:")
	fmt.Fprintln(a.out, cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	fmt.Fprint(a.out, "> ")

	sc := bufio.NewScanner(a.in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read authorization code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := parseCode(sc.Text())
	if err != nil {
		return nil, err
	}
	return exchange(ctx, cfg, code)
}

// parseCode accepts either a bare code or the redirect URL carrying it
func parseCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return tok, nil
}
