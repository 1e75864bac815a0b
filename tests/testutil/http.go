package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stocker/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient sends requests straight into an http.Handler, typically the gin
// engine, with a bearer token attached.
type APIClient struct {
	Handler http.Handler
	Token   string
	// Header is added to every request.
	Header http.Header
}

func NewAPIClient(h http.Handler, token string) *APIClient {
	return &APIClient{Handler: h, Token: token, Header: http.Header{}}
}

// WithToken returns a copy of the client that authenticates as token.
func (c *APIClient) WithToken(token string) *APIClient {
	cp := *c
	cp.Token = token
	cp.Header = c.Header.Clone()
	return &cp
}

// Do sends body as JSON when it is not nil.
func (c *APIClient) Do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.serve(req)
}

// Upload posts data as the multipart "file" field along with fields.
func (c *APIClient) Upload(t *testing.T, path, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.serve(req)
}

func (c *APIClient) serve(req *http.Request) *httptest.ResponseRecorder {
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)
	return w
}

// Envelope decodes the response body into the API envelope.
func Envelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// Data decodes the envelope's data member into T.
func Data[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var resp struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

// AssertError checks the status code and the envelope's error code.
func AssertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())
	resp := Envelope(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
}
