package main

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

	"github.com/manav03panchal/nodiverse/internal/store"
)

// apiClient seeds through a running server so connected rooms get new_user.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) CreateUser(ctx context.Context, nu store.NewUser) (store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodPost, "/users/", map[string]any{
		"name": nu.Name, "email": nu.Email, "role": nu.Role, "profile": nu.Profile,
	}, &u)
	return u, err
}

func (c *apiClient) GetEvent(ctx context.Context, id string) (store.Event, error) {
	var ev store.Event
	err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(id), nil, &ev)
	return ev, err
}

func (c *apiClient) AddParticipant(ctx context.Context, eventID, userID, role string) (store.EventParticipant, error) {
	var ep store.EventParticipant
	err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/participants", map[string]any{
		"user_id": userID, "event_id": eventID, "role": role,
	}, &ep)
	return ep, err
}

// do sends body as JSON and decodes a 200 response into out. 404 and 409
// come back as the matching store sentinels.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, store.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, store.ErrConflict)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
}
