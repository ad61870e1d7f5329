package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// translateClientTimeout bounds the whole HTTP exchange.
	translateClientTimeout = 20 * time.Second
	// translateRequestTimeout cancels a single request; it normally fires first.
	translateRequestTimeout = 5 * time.Second
	// maxTranslateBody caps how much of a response is read.
	maxTranslateBody = 1 << 20
)

// Translator turns caption text into the target language. Implementations
// never fail: on any problem they return the input.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) string
}

// TranslationClient calls a dictionary-style translate endpoint that answers
// GET ?client=..&sl=auto&tl=..&q=.. with [["translated", ...], ...].
type TranslationClient struct {
	endpoint       string
	clientID       string
	requestTimeout time.Duration
	http           *http.Client
	log            *logrus.Entry

	// base is cancelled by Shutdown/Close to abort every in-flight call.
	base     context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	closing  sync.Once
}

// TranslationOption customises a TranslationClient.
type TranslationOption func(*TranslationClient)

// WithRequestTimeout overrides the per-request cancellation.
func WithRequestTimeout(d time.Duration) TranslationOption {
	return func(c *TranslationClient) { c.requestTimeout = d }
}

// WithHTTPClient replaces the HTTP client (tests inject stalled transports).
func WithHTTPClient(hc *http.Client) TranslationOption {
	return func(c *TranslationClient) { c.http = hc }
}

// NewTranslationClient creates a client for endpoint.
func NewTranslationClient(endpoint, clientID string, log *logrus.Logger, opts ...TranslationOption) *TranslationClient {
	if log == nil {
		log = discardLogger()
	}
	base, cancel := context.WithCancel(context.Background())
	c := &TranslationClient{
		endpoint:       endpoint,
		clientID:       clientID,
		requestTimeout: translateRequestTimeout,
		http:           &http.Client{Timeout: translateClientTimeout},
		log:            log.WithField("component", "translator"),
		base:           base,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate returns the translation of text, or text itself if the endpoint
// fails, times out or answers with something unusable. Blank text returns ""
// without a request.
func (c *TranslationClient) Translate(ctx context.Context, text, targetLanguage string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if c.base.Err() != nil {
		return text
	}

	c.inflight.Add(1)
	defer c.inflight.Done()

	translated, err := c.fetch(ctx, text, targetLanguage)
	if err != nil {
		err = &CaptureError{Kind: KindTranslation, Op: "TranslationClient.Translate", Err: err}
		c.log.WithError(err).Debug("translation failed, keeping original text")
		return text
	}
	c.log.Debugf("translated %q -> %q", text, translated)
	return translated
}

func (c *TranslationClient) fetch(ctx context.Context, text, targetLanguage string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	stop := context.AfterFunc(c.base, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.requestURL(text, targetLanguage), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxTranslateBody))
		return "", fmt.Errorf("translate endpoint: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTranslateBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return parseTranslation(body)
}

func (c *TranslationClient) requestURL(text, targetLanguage string) string {
	q := url.Values{}
	q.Set("client", c.clientID)
	q.Set("sl", "auto")
	q.Set("tl", targetLanguage)
	q.Set("q", text)

	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + q.Encode()
}

// parseTranslation extracts the first string of the first inner array.
func parseTranslation(body []byte) (string, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", fmt.Errorf("empty response")
	}
	if strings.TrimSpace(rows[0][0]) == "" {
		return "", fmt.Errorf("blank translation")
	}
	return rows[0][0], nil
}

// Shutdown aborts in-flight requests and waits for them to return, bounded
// by ctx, then releases pooled connections.
func (c *TranslationClient) Shutdown(ctx context.Context) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.closeIdle()
	return err
}

// Close is the synchronous fallback for Shutdown. It is safe to call after
// Shutdown and never panics.
func (c *TranslationClient) Close() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("error during translator cleanup: %v", r)
		}
	}()
	c.cancel()
	c.closeIdle()
}

func (c *TranslationClient) closeIdle() {
	c.closing.Do(func() {
		c.http.CloseIdleConnections()
		c.log.Debug("translator connections released")
	})
}
