package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var httpTimeout = 5 * time.Second

// APIClient is a thin wrapper over the server's HTTP surface, shared by the
// one-shot CLI commands and the watch TUI.
type APIClient struct {
	BaseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Login registers the username and reports whether the server granted admin.
func (c *APIClient) Login(username string) (loginResponse, error) {
	var resp loginResponse
	err := c.doJSONRequest(http.MethodPost, "/login", usernameRequest{Username: username}, &resp)
	return resp, err
}

func (c *APIClient) Heartbeat(username string) error {
	return c.doJSONRequest(http.MethodPost, "/heartbeat", usernameRequest{Username: username}, nil)
}

func (c *APIClient) Logout(username string) error {
	return c.doJSONRequest(http.MethodPost, "/logout", usernameRequest{Username: username}, nil)
}

// Users fetches the active-user snapshot.
func (c *APIClient) Users() (usersResponse, error) {
	var resp usersResponse
	err := c.doJSONRequest(http.MethodGet, "/users", nil, &resp)
	return resp, err
}

func (c *APIClient) Notify(username string) error {
	return c.doJSONRequest(http.MethodPost, "/notify", usernameRequest{Username: username}, nil)
}

// NotifyAll broadcasts and returns how many users were notified.
func (c *APIClient) NotifyAll() (int, error) {
	var resp struct {
		Success  bool `json:"success"`
		Notified int  `json:"notified"`
	}
	err := c.doJSONRequest(http.MethodPost, "/notify-all", nil, &resp)
	return resp.Notified, err
}

// CheckNotification polls the mailbox. A nil notification means none was
// pending.
func (c *APIClient) CheckNotification(username string) (*Notification, error) {
	var resp checkNotificationResponse
	if err := c.doJSONRequest(http.MethodPost, "/check-notification", usernameRequest{Username: username}, &resp); err != nil {
		return nil, err
	}
	if !resp.HasNotification {
		return nil, nil
	}
	return resp.Notification, nil
}

func (c *APIClient) doJSONRequest(method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
