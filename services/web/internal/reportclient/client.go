package reportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailyreport/pkg/domain"
)

const maxBodyBytes = 1 << 20

// ErrUnexpectedResponse wraps a 2xx response whose body could not be decoded.
var ErrUnexpectedResponse = errors.New("unexpected response")

// Client calls the backend report and upload endpoints for one visitor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a non-2xx report response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// NewClient constructs a report client sharing the visitor's cookie jar.
func NewClient(baseURL string, jar http.CookieJar, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}
}

func (c *Client) List(ctx context.Context) ([]domain.Report, error) {
	var reports []domain.Report
	if err := c.doJSON(ctx, http.MethodGet, "/api/reports", nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// Tags returns the tag names known to the backend.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.doJSON(ctx, http.MethodGet, "/api/reports/tags", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Create posts a new report and returns the backend's confirmation text.
func (c *Client) Create(ctx context.Context, report domain.Report) (string, error) {
	return c.doText(ctx, http.MethodPost, "/api/reports", report)
}

func (c *Client) Update(ctx context.Context, report domain.Report) error {
	_, err := c.doText(ctx, http.MethodPut, "/api/reports/"+url.PathEscape(report.ID), report)
	return err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.doText(ctx, http.MethodDelete, "/api/reports/"+url.PathEscape(id), nil)
	return err
}

// Upload sends an image as multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (domain.UploadResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return domain.UploadResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return domain.UploadResult{}, err
	}
	if err := writer.Close(); err != nil {
		return domain.UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return domain.UploadResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result domain.UploadResult
	if err := c.do(req, &result); err != nil {
		return domain.UploadResult{}, err
	}
	if strings.TrimSpace(result.URL) == "" {
		return domain.UploadResult{}, fmt.Errorf("%w: upload returned no url", ErrUnexpectedResponse)
	}
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return jsonAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnexpectedResponse, req.URL.Path, err)
	}
	return nil
}

func (c *Client) doText(ctx context.Context, method, path string, payload any) (string, error) {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= 300 {
		return "", &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// jsonAPIError reads the error or message field of a JSON error body, falling
// back to the raw text.
func jsonAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &errResp) == nil {
		switch {
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.Message != "":
			msg = errResp.Message
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
