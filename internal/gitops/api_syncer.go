package gitops

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// APISyncer drives the delivery controller through its REST API. This is
// the rich strategy: it can force refreshes, trigger syncs with pruning, and
// read precise per-application status.
type APISyncer struct {
	baseURL  string
	username string
	password string
	client   *http.Client

	mu    sync.Mutex
	token string
}

// NewAPISyncer creates an APISyncer against the given base URL. The
// endpoint is typically a port-forward with a self-signed certificate, so
// certificate verification is skipped.
func NewAPISyncer(baseURL, username, password string) *APISyncer {
	return &APISyncer{
		baseURL:  baseURL,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Strategy implements Syncer.
func (s *APISyncer) Strategy() string { return "api" }

// AppExists implements Syncer.
func (s *APISyncer) AppExists(ctx context.Context, app string) (bool, error) {
	status, _, err := s.do(ctx, http.MethodGet, "/api/v1/applications/"+url.PathEscape(app), nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusForbidden:
		// The API reports missing applications as 403 when RBAC hides
		// their existence.
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d looking up application %s", status, app)
	}
}

// Sync implements Syncer. A hard refresh first makes the controller re-read
// the repository before the sync is requested.
func (s *APISyncer) Sync(ctx context.Context, app string) error {
	path := "/api/v1/applications/" + url.PathEscape(app)

	status, _, err := s.do(ctx, http.MethodGet, path+"?refresh=hard", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("refresh of application %s failed with status %d", app, status)
	}

	body, err := json.Marshal(map[string]interface{}{"prune": true})
	if err != nil {
		return err
	}
	status, respBody, err := s.do(ctx, http.MethodPost, path+"/sync", body)
	if err != nil {
		return err
	}
	// An already-running sync is not a failure; the status poll picks it up.
	if status != http.StatusOK && status != http.StatusBadRequest {
		return fmt.Errorf("sync of application %s failed with status %d: %s", app, status, respBody)
	}
	return nil
}

// Status implements Syncer.
func (s *APISyncer) Status(ctx context.Context, app string) (AppStatus, error) {
	status, body, err := s.do(ctx, http.MethodGet, "/api/v1/applications/"+url.PathEscape(app), nil)
	if err != nil {
		return AppStatus{}, err
	}
	if status != http.StatusOK {
		return AppStatus{}, fmt.Errorf("status read of application %s failed with status %d", app, status)
	}

	var parsed struct {
		Status struct {
			Sync struct {
				Status string `json:"status"`
			} `json:"sync"`
			Health struct {
				Status string `json:"status"`
			} `json:"health"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return AppStatus{}, fmt.Errorf("failed to parse application %s status: %w", app, err)
	}
	return AppStatus{
		SyncStatus:   parsed.Status.Sync.Status,
		HealthStatus: parsed.Status.Health.Status,
	}, nil
}

// EnableAutoSync implements Syncer.
func (s *APISyncer) EnableAutoSync(ctx context.Context, app string) error {
	patch := map[string]interface{}{
		"spec": map[string]interface{}{
			"syncPolicy": map[string]interface{}{
				"automated": map[string]interface{}{
					"prune":    true,
					"selfHeal": true,
				},
			},
		},
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{
		"patch":     string(patchJSON),
		"patchType": "merge",
	})
	if err != nil {
		return err
	}

	status, respBody, err := s.do(ctx, http.MethodPatch, "/api/v1/applications/"+url.PathEscape(app), body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("enabling auto-sync for %s failed with status %d: %s", app, status, respBody)
	}
	return nil
}

// do performs an authenticated request, logging in on first use and once
// more on an expired token.
func (s *APISyncer) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	token, err := s.ensureToken(ctx, false)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := s.request(ctx, method, path, body, token)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		token, err = s.ensureToken(ctx, true)
		if err != nil {
			return 0, nil, err
		}
		return s.request(ctx, method, path, body, token)
	}
	return status, respBody, nil
}

func (s *APISyncer) request(ctx context.Context, method, path string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to delivery controller failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (s *APISyncer) ensureToken(ctx context.Context, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && !force {
		return s.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/session", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session request failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse session response: %w", err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("session response contained no token")
	}
	s.token = parsed.Token
	return s.token, nil
}
