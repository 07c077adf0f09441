package unsubscribe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/core"
)

var confirmationPhrases = []string{
	"unsubscribed",
	"no longer receive",
	"successfully removed",
	"been removed",
	"opted out",
	"unsubscribe successful",
}

var formKeywords = []string{"unsubscribe", "remove", "opt"}

// invoke fetches an HTTP(S) unsubscribe target and classifies the outcome
func (r *Resolver) invoke(ctx context.Context, sender, target string) core.UnsubscribeResult {
	res := core.UnsubscribeResult{Sender: sender, Target: target}

	resp, body, err := r.get(ctx, target)
	if err != nil {
		res.Outcome, res.Detail = classifyTransport(err)
		return res
	}
	if resp.StatusCode >= 400 {
		res.Outcome = core.UnsubscribeHTTPError
		res.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return res
	}

	lower := strings.ToLower(body)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(lower, phrase) {
			res.Outcome = core.UnsubscribeSucceeded
			res.Detail = fmt.Sprintf("confirmation found: %q", phrase)
			return res
		}
	}

	if formURL, ok := unsubscribeForm(body, resp.Request.URL); ok {
		formResp, _, err := r.get(ctx, formURL)
		switch {
		case err != nil:
			_, detail := classifyTransport(err)
			r.logger.Debug("Unsubscribe form submission failed", zap.String("action", formURL), zap.Error(err))
			res.Outcome = core.UnsubscribeRequested
			res.Detail = "form submission failed: " + detail
		case formResp.StatusCode >= 400:
			res.Outcome = core.UnsubscribeRequested
			res.Detail = fmt.Sprintf("form submission returned HTTP %d", formResp.StatusCode)
		default:
			res.Outcome = core.UnsubscribeFormSubmitted
			res.Target = formURL
			res.Detail = fmt.Sprintf("HTTP %d", formResp.StatusCode)
		}
		return res
	}

	res.Outcome = core.UnsubscribeRequested
	res.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return res
}

func (r *Resolver) get(ctx context.Context, target string) (*http.Response, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody))
	if err != nil {
		return nil, "", err
	}
	return resp, string(b), nil
}

// unsubscribeForm finds the first form that mentions unsubscribing and
// returns its GET submission URL.
func unsubscribeForm(body string, base *url.URL) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	var target string
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		action := form.AttrOr("action", "")
		html, _ := form.Html()
		if !mentionsAny(action+" "+html, formKeywords) {
			return true
		}

		u, err := base.Parse(action)
		if err != nil {
			return true
		}
		q := u.Query()
		form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
			switch strings.ToLower(in.AttrOr("type", "")) {
			case "checkbox", "radio":
				if _, checked := in.Attr("checked"); !checked {
					return
				}
			}
			q.Add(in.AttrOr("name", ""), in.AttrOr("value", ""))
		})
		u.RawQuery = q.Encode()
		target = u.String()
		return false
	})
	return target, target != ""
}

func mentionsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// classifyTransport maps a failed request onto an unsubscribe outcome
func classifyTransport(err error) (core.UnsubscribeOutcome, string) {
	var (
		netErr    net.Error
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		certErr   x509.CertificateInvalidError
		verifyErr *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return core.UnsubscribeTimeout, err.Error()
	case errors.As(err, &netErr) && netErr.Timeout():
		return core.UnsubscribeTimeout, err.Error()
	case errors.As(err, &verifyErr), errors.As(err, &unknownCA), errors.As(err, &hostErr),
		errors.As(err, &certErr), errors.As(err, &recordErr):
		return core.UnsubscribeTLSError, err.Error()
	default:
		return core.UnsubscribeConnectionError, err.Error()
	}
}
