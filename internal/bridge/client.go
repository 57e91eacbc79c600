// Package bridge is the REST client for the WhatsApp bridge, the
// process holding the actual WhatsApp session. The agent's tools call
// through it to send messages and look up contacts.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the bridge REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Contact is a WhatsApp contact known to the bridge.
type Contact struct {
	JID   string `json:"jid"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
}

// Interaction is the most recent message exchanged with a contact.
type Interaction struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	IsFromMe  bool   `json:"is_from_me"`
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendMessage sends a text message through the bridge.
func (c *Client) SendMessage(ctx context.Context, recipient, message string) error {
	var resp sendResponse
	if err := c.post(ctx, "/send", sendRequest{Recipient: recipient, Message: message}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("bridge rejected send to %s: %s", recipient, resp.Message)
	}
	return nil
}

// SearchContacts looks up contacts by name or phone number fragment.
func (c *Client) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	var contacts []Contact
	path := "/contacts/search?q=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// LastInteraction returns the most recent message with a contact.
func (c *Client) LastInteraction(ctx context.Context, jid string) (*Interaction, error) {
	var it Interaction
	path := "/chats/" + url.PathEscape(jid) + "/last"
	if err := c.get(ctx, path, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("bridge: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bridge: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("bridge: create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bridge: %s %s: HTTP %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("bridge: decode response: %w", err)
		}
	}
	return nil
}
