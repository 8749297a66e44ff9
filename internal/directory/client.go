// Package directory reads users from a public demo directory (dummyjson.com
// compatible) and filters them in memory.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public demo directory.
const DefaultBaseURL = "https://dummyjson.com"

// Person is a directory entry. Company and address are nested the way the
// directory returns them.
type Person struct {
	ID        int     `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Company   Company `json:"company"`
	Address   Address `json:"address"`
}

// Company holds the employer name and the job title.
type Company struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Address holds the only address part the browser needs.
type Address struct {
	Country string `json:"country"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type listResponse struct {
	Users []Person `json:"users"`
	Total int      `json:"total"`
}

// Client handles communication with the directory API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a directory client with a request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListUsers fetches the directory's user list
func (c *Client) ListUsers(ctx context.Context) ([]Person, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("directory error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if list.Users == nil {
		list.Users = []Person{}
	}

	return list.Users, nil
}
