package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/api"
)

// apiClient is a thin HTTP client for the daemon API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) Status() (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *apiClient) ListClips() ([]api.Item, error) {
	var out api.ListResponse
	err := c.do(http.MethodGet, "/api/audio", nil, &out)
	return out.Files, err
}

func (c *apiClient) ListMerged() ([]api.Item, error) {
	var out api.ListResponse
	err := c.do(http.MethodGet, "/api/processed", nil, &out)
	return out.Files, err
}

func (c *apiClient) Merge(req api.MergeRequest) (api.MergeResponse, error) {
	var out api.MergeResponse
	err := c.do(http.MethodPost, "/api/merge", req, &out)
	return out, err
}

func (c *apiClient) TaskStatus(taskID string) (api.TaskStatusResponse, error) {
	var out api.TaskStatusResponse
	err := c.do(http.MethodPost, "/api/check-processing-status", api.TaskRequest{TaskID: taskID}, &out)
	return out, err
}

func (c *apiClient) Cancel(taskID string) (api.CancelResponse, error) {
	var out api.CancelResponse
	err := c.do(http.MethodPost, "/api/cancel-processing", api.TaskRequest{TaskID: taskID}, &out)
	return out, err
}

func (c *apiClient) Remove(id string, merged bool) error {
	collection := "audio"
	if merged {
		collection = "processed"
	}
	return c.do(http.MethodDelete, "/api/"+collection+"/"+id, nil, nil)
}

func (c *apiClient) Clear(merged bool) (api.DeleteAllResponse, error) {
	collection := "audio"
	if merged {
		collection = "processed"
	}
	var out api.DeleteAllResponse
	err := c.do(http.MethodDelete, "/api/"+collection+"/all", nil, &out)
	return out, err
}

func (c *apiClient) Upload(paths []string) (api.UploadListResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return api.UploadListResponse{}, fmt.Errorf("open %s: %w", path, err)
		}
		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		file.Close()
		if err != nil {
			return api.UploadListResponse{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return api.UploadListResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/upload", &body)
	if err != nil {
		return api.UploadListResponse{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return api.UploadListResponse{}, wrapTransportError(err)
	}
	defer resp.Body.Close()

	var out api.UploadListResponse
	if err := decodeResponse(resp, &out); err != nil {
		return api.UploadListResponse{}, err
	}
	return out, nil
}

func (c *apiClient) do(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapTransportError(err error) error {
	return fmt.Errorf("connect to daemon: %w (is clipforged running?)", err)
}
