package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ErrNoToken is returned when an auth endpoint answers 2xx without a token.
var ErrNoToken = errors.New("no access token in response")

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	return c.authenticate(ctx, "login", "/login", username, password)
}

// Register creates an account. The server answers with a token as well.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	return c.authenticate(ctx, "register", "/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, op, path, username, password string) (string, error) {
	var resp tokenResponse
	err := c.do(ctx, op, http.MethodPost, path, credentials{Username: username, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoToken)
	}
	return resp.AccessToken, nil
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}{oldPassword, newPassword}
	return c.do(ctx, "change password", http.MethodPost, "/change-password", body, nil)
}

// ListFolders fetches the folders of a repository, in server order.
func (c *Client) ListFolders(ctx context.Context, repoID int64) ([]Folder, error) {
	var resp struct {
		Folders []Folder `json:"folders"`
	}
	if err := c.do(ctx, "list folders", http.MethodGet, fmt.Sprintf("/folders/%d", repoID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Folders == nil {
		return []Folder{}, nil
	}
	return resp.Folders, nil
}

// CreateFolder creates a folder and returns its id. parentID may be nil for a
// top-level folder.
func (c *Client) CreateFolder(ctx context.Context, repoID int64, name string, parentID *int64) (int64, error) {
	body := struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id"`
	}{name, parentID}

	// Older servers wrap the id in a data envelope.
	var resp struct {
		ID   int64 `json:"id"`
		Data *struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, "create folder", http.MethodPost, fmt.Sprintf("/folders/%d", repoID), body, &resp); err != nil {
		return 0, err
	}
	if resp.ID == 0 && resp.Data != nil {
		return resp.Data.ID, nil
	}
	return resp.ID, nil
}

// Stats fetches the dashboard counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.do(ctx, "stats", http.MethodGet, "/stats", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// History fetches past synchronizations.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.do(ctx, "history", http.MethodGet, "/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetSettings fetches the integration credentials.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	settings := Settings{}
	if err := c.do(ctx, "get settings", http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings stores the integration credentials.
func (c *Client) SaveSettings(ctx context.Context, settings Settings) error {
	return c.do(ctx, "save settings", http.MethodPost, "/settings", settings, nil)
}

// Preview fetches a summary of a single issue.
func (c *Client) Preview(ctx context.Context, issueKey string) (IssuePreview, error) {
	body := struct {
		TaskKey string `json:"task_key"`
	}{issueKey}
	var preview IssuePreview
	if err := c.do(ctx, "preview", http.MethodPost, "/preview", body, &preview); err != nil {
		return IssuePreview{}, err
	}
	return preview, nil
}

// Sync runs a synchronization and returns one result per issue key.
func (c *Client) Sync(ctx context.Context, req SyncRequest) ([]SyncResult, error) {
	var resp struct {
		Results []SyncResult `json:"results"`
	}
	if err := c.do(ctx, "sync", http.MethodPost, "/sync", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
