// Package testgem is a typed client for the TestGem HTTP API.
package testgem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

type Kind string

const (
	KindDocuments  Kind = "documents"
	KindNotes      Kind = "notes"
	KindWorkspaces Kind = "workspaces"
)

type Record struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

type Dashboard struct {
	Documents  []Record `json:"documents"`
	Notes      []Record `json:"notes"`
	Workspaces []Record `json:"workspaces"`
}

type Proposal struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	RecordID    string    `json:"recordId"`
	Instruction string    `json:"instruction"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Export struct {
	Data     []byte
	Filename string
	MimeType string
}

type ExportLink struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SearchResult struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Query   string         `json:"query"`
	Engine  string         `json:"engine"`
}

type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIError is a non-2xx response decoded from the server's {code, error} body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.httpClient = c }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &out)
	return out, err
}

func (c *Client) List(ctx context.Context, kind Kind) ([]Record, error) {
	var out struct {
		Items []Record `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/"+string(kind), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Create(ctx context.Context, kind Kind, title, content string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/api/"+string(kind), map[string]string{"title": title, "content": content}, &out)
	return out, err
}

func (c *Client) Rename(ctx context.Context, kind Kind, id, title string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPut, recordPath(kind, id, "title"), map[string]string{"title": title}, &out)
	return out, err
}

func (c *Client) UpdateContent(ctx context.Context, kind Kind, id, content string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPut, recordPath(kind, id, "content"), map[string]string{"content": content}, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, kind Kind, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(kind, id, ""), nil, nil)
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/generate", map[string]string{"prompt": prompt}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) ProposeEdit(ctx context.Context, kind Kind, id, instruction string) (Proposal, error) {
	var out Proposal
	err := c.do(ctx, http.MethodPost, recordPath(kind, id, "ai-edit"), map[string]string{"instruction": instruction}, &out)
	return out, err
}

func (c *Client) AcceptProposal(ctx context.Context, proposalID string) (Record, error) {
	var out Record
	err := c.do(ctx, http.MethodPost, "/api/proposals/"+url.PathEscape(proposalID)+"/accept", nil, &out)
	return out, err
}

func (c *Client) RejectProposal(ctx context.Context, proposalID string) error {
	return c.do(ctx, http.MethodPost, "/api/proposals/"+url.PathEscape(proposalID)+"/reject", nil, nil)
}

func (c *Client) Search(ctx context.Context, text string, kind Kind, limit int) (SearchResponse, error) {
	query := url.Values{}
	query.Set("q", text)
	if kind != "" {
		query.Set("kind", string(kind))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out SearchResponse
	err := c.do(ctx, http.MethodGet, "/api/search?"+query.Encode(), nil, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, kind Kind, id string) ([]Commit, error) {
	var out struct {
		Commits []Commit `json:"commits"`
	}
	if err := c.do(ctx, http.MethodGet, recordPath(kind, id, "history"), nil, &out); err != nil {
		return nil, err
	}
	return out.Commits, nil
}

func (c *Client) Export(ctx context.Context, kind Kind, id, format string) (*Export, error) {
	path := recordPath(kind, id, "export") + "?format=" + url.QueryEscape(format)
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return &Export{
		Data:     data,
		Filename: attachmentName(resp.Header.Get("Content-Disposition")),
		MimeType: resp.Header.Get("Content-Type"),
	}, nil
}

func (c *Client) ExportLink(ctx context.Context, kind Kind, id, format string) (ExportLink, error) {
	var out ExportLink
	err := c.do(ctx, http.MethodPost, recordPath(kind, id, "export/link")+"?format="+url.QueryEscape(format), nil, &out)
	return out, err
}

func recordPath(kind Kind, id, suffix string) string {
	path := "/api/" + string(kind) + "/" + url.PathEscape(id)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

// attachmentName returns the bare file name from a Content-Disposition
// header. Any directory part sent by the server is dropped.
func attachmentName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	name := filepath.Base(strings.ReplaceAll(params["filename"], `\`, "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	var payload struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil && json.Unmarshal(data, &payload) == nil {
		if payload.Code != "" {
			apiErr.Code = payload.Code
		}
		apiErr.Message = payload.Error
	}
	return nil, apiErr
}
