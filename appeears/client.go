// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package appeears

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alecsandermergen11/SMAP-auto-download/model"
	"github.com/alecsandermergen11/SMAP-auto-download/util"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 4096

// Client talks to the AppEEARS REST API. It doubles as the log context of
// everything it does.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	sessionID  string
}

// NewClient returns a client for cfg.APIURL with the configured pacing and timeout.
func NewClient(cfg util.Config) *Client {
	return &Client{
		BaseURL:    cfg.APIURL,
		HTTPClient: util.HTTPClient(cfg.HTTPTimeout, util.NewLimiter(cfg)),
	}
}

// AppName returns the application name
func (c *Client) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating one if needed
func (c *Client) SessionID() string {
	if c.sessionID == "" {
		c.sessionID, _ = util.PsuUUID()
	}
	return c.sessionID
}

// Login exchanges Earthdata credentials for a bearer token, which is kept
// on the client for the following calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	response, err := c.request(ctx, requestInput{method: http.MethodPost, path: "login", username: username, password: password})
	if err != nil {
		return "", util.LogSimpleErr(c, "Failed to reach the AppEEARS login endpoint", err)
	}
	defer response.Body.Close()
	if err = c.checkResponse(response, "Login refused"); err != nil {
		return "", err
	}
	var result loginResponse
	if err = c.decode(response, &result); err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", util.LogSimpleErr(c, "AppEEARS login returned no token", errors.New("empty token"))
	}
	c.Token = result.Token
	util.LogInfo(c, "Logged in to AppEEARS as "+username)
	return result.Token, nil
}

// SubmitTask posts req and returns the task id assigned by the service.
func (c *Client) SubmitTask(ctx context.Context, req TaskRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", util.LogSimpleErr(c, fmt.Sprintf("Failed to marshal task %v", req.TaskName), err)
	}
	response, err := c.request(ctx, requestInput{method: http.MethodPost, path: "task", body: body, contentType: "application/json", bearer: true})
	if err != nil {
		return "", util.LogSimpleErr(c, fmt.Sprintf("Failed to submit task %v", req.TaskName), err)
	}
	defer response.Body.Close()
	if err = c.checkResponse(response, fmt.Sprintf("Task %v was rejected", req.TaskName)); err != nil {
		return "", err
	}
	var result submitResponse
	if err = c.decode(response, &result); err != nil {
		return "", err
	}
	if result.TaskID == "" {
		return "", util.LogSimpleErr(c, fmt.Sprintf("No task id returned for %v", req.TaskName), errors.New("empty task_id"))
	}
	return result.TaskID, nil
}

// TaskStatus performs one status query. A task the service no longer knows
// is reported as failed; a redirect to the bundle means the task is done.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	response, err := c.request(ctx, requestInput{method: http.MethodGet, path: "status/" + url.PathEscape(taskID), bearer: true})
	if err != nil {
		return TaskStatus{}, err
	}
	defer response.Body.Close()
	if response.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, response.Body)
		return TaskStatus{TaskID: taskID, Status: model.StatusFailed, Message: NotFoundMessage}, nil
	}
	if err = c.checkResponse(response, "Failed to check task "+taskID); err != nil {
		return TaskStatus{}, err
	}
	var result TaskStatus
	if err = c.decode(response, &result); err != nil {
		return TaskStatus{}, err
	}
	if result.Status == "" && response.Request != nil && strings.Contains(response.Request.URL.Path, "/bundle/") {
		result.Status = model.StatusDone
	}
	if result.TaskID == "" {
		result.TaskID = taskID
	}
	return result, nil
}

// Bundle lists the files of a finished task.
func (c *Client) Bundle(ctx context.Context, taskID string) (Bundle, error) {
	response, err := c.request(ctx, requestInput{method: http.MethodGet, path: "bundle/" + url.PathEscape(taskID), bearer: true})
	if err != nil {
		return Bundle{}, err
	}
	defer response.Body.Close()
	if err = c.checkResponse(response, "Failed to list files of task "+taskID); err != nil {
		return Bundle{}, err
	}
	var result Bundle
	if err = c.decode(response, &result); err != nil {
		return Bundle{}, err
	}
	return result, nil
}

// OpenFile starts the download of one bundle file. The caller closes Body.
func (c *Client) OpenFile(ctx context.Context, taskID, fileID string) (*FileStream, error) {
	path := "bundle/" + url.PathEscape(taskID) + "/" + url.PathEscape(fileID)
	response, err := c.request(ctx, requestInput{method: http.MethodGet, path: path, bearer: true})
	if err != nil {
		return nil, err
	}
	if err = c.checkResponse(response, "Failed to download file "+fileID); err != nil {
		response.Body.Close()
		return nil, err
	}
	return &FileStream{Body: response.Body, ContentLength: response.ContentLength}, nil
}

type requestInput struct {
	method      string
	path        string
	body        []byte
	contentType string
	bearer      bool
	username    string
	password    string
}

// request resolves input.path against BaseURL and performs the call.
func (c *Client) request(ctx context.Context, input requestInput) (*http.Response, error) {
	baseURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %v: %w", c.BaseURL, err)
	}
	relativeURL, err := url.Parse(input.path)
	if err != nil {
		return nil, fmt.Errorf("parse path %v: %w", input.path, err)
	}
	inputURL := baseURL.ResolveReference(relativeURL).String()

	request, err := http.NewRequestWithContext(ctx, input.method, inputURL, bytes.NewReader(input.body))
	if err != nil {
		return nil, err
	}
	if input.contentType != "" {
		request.Header.Set("Content-Type", input.contentType)
	}
	switch {
	case input.bearer:
		if c.Token == "" {
			return nil, fmt.Errorf("%w: not logged in", ErrUnauthorized)
		}
		request.Header.Set("Authorization", "Bearer "+c.Token)
	case input.username != "":
		request.SetBasicAuth(input.username, input.password)
	}

	util.LogAudit(c, util.LogAuditInput{Actor: "appeears/request", Action: input.method, Actee: inputURL, Message: "Requesting data from AppEEARS", Severity: util.DEBUG})
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	response, err := httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	util.LogAudit(c, util.LogAuditInput{Actor: inputURL, Action: input.method + " response", Actee: "appeears/request", Message: response.Status, Severity: util.DEBUG})
	return response, nil
}

// checkResponse turns a non-2xx response into an error carrying the server's body.
func (c *Client) checkResponse(response *http.Response, message string) error {
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	httpErr := util.HTTPErr{Status: response.StatusCode, Message: strings.TrimSpace(string(body))}

	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		util.LogAlert(c, fmt.Sprintf("%v: %v", message, httpErr))
		return fmt.Errorf("%v: %w: %w", message, ErrUnauthorized, httpErr)
	case response.StatusCode == http.StatusNotFound:
		util.LogAlert(c, fmt.Sprintf("%v: %v", message, httpErr))
		return fmt.Errorf("%v: %w: %w", message, ErrNotFound, httpErr)
	case response.StatusCode >= 400 && response.StatusCode < 500:
		util.LogAlert(c, fmt.Sprintf("%v: %v", message, httpErr))
		return fmt.Errorf("%v: %w", message, httpErr)
	default:
		return util.LogSimpleErr(c, message, httpErr)
	}
}

func (c *Client) decode(response *http.Response, v interface{}) error {
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return util.LogSimpleErr(c, "Failed to read AppEEARS response", err)
	}
	if err = json.Unmarshal(body, v); err != nil {
		apiErr := util.Error{LogMsg: "Failed to Unmarshal response from AppEEARS: " + err.Error(),
			SimpleMsg:  "AppEEARS returned an unexpected response. See log for further details.",
			Response:   string(body),
			URL:        response.Request.URL.String(),
			HTTPStatus: response.StatusCode}
		return apiErr.Log(c, "")
	}
	return nil
}
