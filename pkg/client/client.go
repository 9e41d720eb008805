// Package client implements the ingestion client shared by all policies.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/netboxlabs/orb-discovery/pkg/translate"
	"github.com/netboxlabs/orb-discovery/pkg/version"
	"github.com/projectdiscovery/gologger"
	"github.com/rs/xid"
)

// ErrClientNotInitialized is returned by Ingest before a successful Init.
var ErrClientNotInitialized = errors.New("Diode client not initialized")

// DefaultTimeout bounds a single ingest request
const DefaultTimeout = 30 * time.Second

// Options configures the ingestion transport
type Options struct {
	TLSVerify bool
	Timeout   time.Duration
	Logger    *gologger.Logger
}

// Client sends translated entities to the ingestion endpoint. Init takes
// effect once; ingest calls are serialized.
type Client struct {
	opts Options

	once    sync.Once
	initErr error

	mu       sync.Mutex
	endpoint string
	http     *http.Client
}

// New returns an uninitialized client
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = gologger.DefaultLogger
	}
	return &Client{opts: opts}
}

// Init configures the client for target. Only the first call has an effect;
// later calls return the first call's result.
func (c *Client) Init(target, apiKey string) error {
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.initErr = c.init(target, apiKey)
	})
	return c.initErr
}

func (c *Client) init(target, apiKey string) error {
	if target == "" {
		return errors.New("ingestion target is empty")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return fmt.Errorf("ingestion target %q must be an http or https url", target)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !c.opts.TLSVerify,
		},
	}
	c.http = &http.Client{
		Timeout: c.opts.Timeout,
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req.Header.Set("X-Api-Key", apiKey)
			req.Header.Set("X-Request-Id", xid.New().String())
			req.Header.Set("User-Agent", version.UserAgent())
			return transport.RoundTrip(req)
		}),
	}
	c.endpoint = strings.TrimSuffix(target, "/") + "/ingest"
	return nil
}

type ingestRequest struct {
	Producer string             `json:"producer_app_name"`
	Version  string             `json:"producer_app_version"`
	Entities []translate.Entity `json:"entities"`
}

// Ingest posts entities on behalf of the named policy
func (c *Client) Ingest(ctx context.Context, name string, entities []translate.Entity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http == nil {
		return ErrClientNotInitialized
	}

	err := c.post(ctx, entities)
	if err != nil {
		c.opts.Logger.Error().Msgf("ingestion failed for %s : %s", name, err)
		return err
	}
	c.opts.Logger.Info().Msgf("Policy %s: Successful ingestion", name)
	return nil
}

func (c *Client) post(ctx context.Context, entities []translate.Entity) error {
	body, err := json.Marshal(ingestRequest{
		Producer: "orb-discovery",
		Version:  version.GetVersion(),
		Entities: entities,
	})
	if err != nil {
		return fmt.Errorf("error marshaling entities: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (rf roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return rf(req)
}
