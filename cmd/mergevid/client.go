package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// apiClient is a thin HTTP client for the daemon's job API.
type apiClient struct {
	base   string
	userID int64
	http   *http.Client
}

func newAPIClient(base string, userID int64) *apiClient {
	return &apiClient{
		base:   base,
		userID: userID,
		http:   &http.Client{Timeout: 5 * time.Minute},
	}
}

type clipView struct {
	Position     int    `json:"position"`
	OriginalName string `json:"original_name"`
}

type jobView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	HasOutput    bool       `json:"has_output"`
	OutputURL    string     `json:"output_url"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Clips        []clipView `json:"clips,omitempty"`
}

type createResponse struct {
	Job    jobView `json:"job"`
	TaskID string  `json:"task_id"`
}

type apiError struct {
	Message any `json:"message"`
}

func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-ID", strconv.FormatInt(c.userID, 10))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody apiError
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Message != nil {
			return fmt.Errorf("daemon returned %s: %v", resp.Status, errBody.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) listJobs(ctx context.Context) ([]jobView, error) {
	var jobs []jobView
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, "", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *apiClient) getJob(ctx context.Context, id string) (*jobView, error) {
	var job jobView
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id, nil, "", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *apiClient) retryJob(ctx context.Context, id string) (string, error) {
	var resp struct {
		TaskID string `json:"task_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+id+"/retry", nil, "", &resp); err != nil {
		return "", err
	}
	return resp.TaskID, nil
}

// submitJob uploads the given files as a new merge job, in argument order.
func (c *apiClient) submitJob(ctx context.Context, name string, paths []string) (*createResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			return nil, err
		}
	}
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open clip %s: %w", path, err)
		}
		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("attach clip %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", &buf, writer.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
