package fetcher

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	DefaultTimeout = 15 * time.Second
	HeadTimeout    = 5 * time.Second
	ReadTimeout    = 30 * time.Second

	ScrapeMaxBytes = 500_000
	PageMaxBytes   = 5_000_000
	HeadMaxBytes   = 50_000
)

var xmlEncodingRe = regexp.MustCompile(`^\s*<\?xml[^>]*?\sencoding=["']([A-Za-z0-9._:-]+)["']`)

type Options struct {
	Timeout  time.Duration
	Headers  map[string]string
	MaxBytes int
}

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func New(httpClient *http.Client, userAgent string) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Fetcher{httpClient: httpClient, userAgent: userAgent}
}

// Fetch downloads url and returns its body decoded to UTF-8, truncated to MaxBytes.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	timeout := cmp.Or(opts.Timeout, DefaultTimeout)
	maxBytes := cmp.Or(opts.MaxBytes, PageMaxBytes)

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.do(reqCtx, url, opts.Headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := readCapped(ctx, resp.Body, maxBytes)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	text, err := decode(data, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	if len(text) > maxBytes {
		text = truncate(text, maxBytes)
	}

	return text, nil
}

// FetchHead reads only the beginning of a page, stopping after </head> or HeadMaxBytes.
func (f *Fetcher) FetchHead(ctx context.Context, url string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, HeadTimeout)
	defer cancel()

	resp, err := f.do(reqCtx, url, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	chunk := make([]byte, 8192)
	for buf.Len() < HeadMaxBytes {
		n, readErr := resp.Body.Read(chunk)
		buf.Write(chunk[:n])
		if bytes.Contains(buf.Bytes(), []byte("</head>")) {
			break
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", &FetchError{URL: url, Err: readErr}
		}
	}

	return decode(buf.Bytes(), resp.Header.Get("Content-Type"))
}

func (f *Fetcher) do(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchError{URL: url, Err: fmt.Errorf("request timed out: %w", err)}
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	return resp, nil
}

// readCapped reads at most maxBytes plus a small margin so multi-byte
// encodings are not cut mid-character before decoding.
func readCapped(ctx context.Context, body io.Reader, maxBytes int) ([]byte, error) {
	readCtx, cancel := context.WithTimeout(ctx, ReadTimeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := io.ReadAll(io.LimitReader(body, int64(maxBytes)+4))
		done <- result{data, err}
	}()

	select {
	case r := <-done:
		return r.data, r.err
	case <-readCtx.Done():
		return nil, fmt.Errorf("body read timed out: %w", readCtx.Err())
	}
}

// decode converts data to UTF-8. The Content-Type charset wins over an XML
// prolog encoding declaration.
func decode(data []byte, contentType string) (string, error) {
	label := cmp.Or(charsetLabel(contentType), xmlEncoding(data))

	if label != "" && !strings.EqualFold(label, "utf-8") && !strings.EqualFold(label, "utf8") {
		if enc, err := htmlindex.Get(label); err == nil {
			if text, err := decodeWith(enc, data); err == nil {
				return text, nil
			}
			slog.Debug("Charset decode failed, falling back", "charset", label)
		}
		if text, err := decodeWith(charmap.ISO8859_1, data); err == nil {
			return text, nil
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func charsetLabel(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func xmlEncoding(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if m := xmlEncodingRe.FindSubmatch(data[:min(len(data), 256)]); m != nil {
		return string(m[1])
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
