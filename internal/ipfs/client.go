// Package ipfs is a client for the content-addressed file store's node API.
// The rest of the application treats the returned CIDs as opaque identifiers.
package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to an IPFS node over its HTTP API. All endpoints are POST per
// the node API convention.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds the configuration for the IPFS client.
type Config struct {
	APIAddress string        // e.g. "http://127.0.0.1:5001/api/v0"
	Timeout    time.Duration // Request timeout (default: 60 seconds)
}

// NewClient creates a new IPFS node API client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.APIAddress, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add streams a file to the store and returns its content address.
func (c *Client) Add(ctx context.Context, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add", pr)
	if err != nil {
		return "", fmt.Errorf("create add request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("add file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("add file: unexpected status %d", resp.StatusCode)
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", fmt.Errorf("decode add response: %w", err)
	}
	if added.Hash == "" {
		return "", fmt.Errorf("add file: empty hash in response")
	}

	return added.Hash, nil
}

// Cat returns a reader over the file stored under the given CID. The caller
// must close it.
func (c *Client) Cat(ctx context.Context, cid string) (io.ReadCloser, error) {
	resp, err := c.post(ctx, "/cat", url.Values{"arg": {cid}})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Pin pins a CID on the local node so garbage collection keeps it.
func (c *Client) Pin(ctx context.Context, cid string) error {
	return c.postDiscard(ctx, "/pin/add", url.Values{"arg": {cid}})
}

// Unpin removes the local pin for a CID.
func (c *Client) Unpin(ctx context.Context, cid string) error {
	return c.postDiscard(ctx, "/pin/rm", url.Values{"arg": {cid}})
}

// ListPins returns the CIDs currently pinned on the node.
func (c *Client) ListPins(ctx context.Context) ([]string, error) {
	resp, err := c.post(ctx, "/pin/ls", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listed struct {
		Keys map[string]struct {
			Type string `json:"Type"`
		} `json:"Keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, fmt.Errorf("decode pin list: %w", err)
	}

	cids := make([]string, 0, len(listed.Keys))
	for cid := range listed.Keys {
		cids = append(cids, cid)
	}

	return cids, nil
}

// GarbageCollect triggers a repo garbage collection on the node.
func (c *Client) GarbageCollect(ctx context.Context) error {
	return c.postDiscard(ctx, "/repo/gc", nil)
}

// Remove unpins a CID and garbage-collects so the bytes leave the local node.
func (c *Client) Remove(ctx context.Context, cid string) error {
	if err := c.Unpin(ctx, cid); err != nil {
		return err
	}
	return c.GarbageCollect(ctx)
}

func (c *Client) post(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) postDiscard(ctx context.Context, path string, query url.Values) error {
	resp, err := c.post(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
