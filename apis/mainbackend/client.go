// Package mainbackend talks to the main auth backend that issues the bearer tokens
// this service accepts.
package mainbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/zeptools/gw-invoice/sec"
)

const JWKSEndpoint = "/.well-known/jwks.json"

var ErrNoJWKS = errors.New("jwks not published")

type Client struct {
	*http.Client // [Embedded]
	Host         string
	ClientID     string // ID of this App as a Client of the MainBackendAPI
}

func New(host string, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Client: httpClient, Host: host, ClientID: clientID}
}

// RequestJWKS sends the request. The caller is responsible for closing response.Body.
func (c *Client) RequestJWKS(ctx context.Context) (*http.Response, error) {
	upstrUrl := c.Host + JWKSEndpoint
	upstrReq, err := http.NewRequestWithContext(ctx, http.MethodGet, upstrUrl, nil) // *http.Request
	if err != nil {
		return nil, err
	}
	if c.ClientID != "" {
		upstrReq.Header.Set("Client-Id", c.ClientID)
	}
	upstrReq.Header.Set("Accept", "application/jwk-set+json, application/json")
	return c.Do(upstrReq) // *http.Response
}

// GetJWKS fetches JWKS from the main backend's .well-known URL
func (c *Client) GetJWKS(ctx context.Context) (*sec.JWKS, error) {
	upstrRes, err := c.RequestJWKS(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := upstrRes.Body.Close(); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}()
	if upstrRes.StatusCode == http.StatusNotFound {
		return nil, ErrNoJWKS
	}
	if upstrRes.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP Status Code: %d", upstrRes.StatusCode)
	}
	var jwks sec.JWKS
	if err = json.NewDecoder(upstrRes.Body).Decode(&jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// RefreshKeys merges the backend's current keys into keys
func (c *Client) RefreshKeys(ctx context.Context, keys *sec.KeySet) error {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return fmt.Errorf("fetch jwks from %s: %w", c.Host, err)
	}
	n, err := keys.Merge(jwks)
	if err != nil {
		return err
	}
	log.Printf("[INFO] %d keys fetched from %s", n, c.Host)
	return nil
}
