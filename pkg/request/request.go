package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// StatusError is a non 2xx answer. Message holds the "message" or "error"
// field of a json body when there is one.
type StatusError struct {
	Code    int
	Status  string
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status is %s: %s", e.Status, e.Message)
	}

	return "status is " + e.Status
}

// Code returns the http status of a StatusError or 0.
func Code(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}

	return 0
}

type Request struct {
	client  *http.Client
	url     string
	method  string
	token   string
	login   string
	passw   string
	body    io.Reader
	headers map[string]string
	args    map[string]string
	logger  *slog.Logger
}

func New(c *http.Client, logger *slog.Logger) *Request {
	return &Request{client: c, method: http.MethodGet, logger: logger, headers: make(map[string]string)}
}

func (r *Request) URL(url string) *Request {
	r.url = url

	return r
}

func (r *Request) Put() *Request {
	r.method = http.MethodPut

	return r
}

func (r *Request) Post() *Request {
	r.method = http.MethodPost

	return r
}

func (r *Request) Patch() *Request {
	r.method = http.MethodPatch

	return r
}

func (r *Request) Delete() *Request {
	r.method = http.MethodDelete

	return r
}

func (r *Request) Token(token string) *Request {
	r.token = token

	return r
}

func (r *Request) Auth(login, passw string) *Request {
	r.login = login
	r.passw = passw

	return r
}

func (r *Request) Headers(headers map[string]string) *Request {
	for k, v := range headers {
		r.headers[k] = v
	}

	return r
}

func (r *Request) Args(args map[string]string) *Request {
	r.args = args

	return r
}

func (r *Request) Body(body io.Reader) *Request {
	r.body = body

	return r
}

// JSON sets obj encoded as json as the body.
func (r *Request) JSON(obj any) *Request {
	b, err := json.Marshal(obj)
	if err != nil {
		r.body = errReader{err}
		return r
	}

	r.body = bytes.NewReader(b)
	r.headers["Content-Type"] = "application/json"

	return r
}

// Form sets url encoded values as the body.
func (r *Request) Form(values url.Values) *Request {
	r.body = strings.NewReader(values.Encode())
	r.headers["Content-Type"] = "application/x-www-form-urlencoded"

	return r
}

type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}

func (r *Request) DoRes(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, err
	}

	req.Header.Del("User-Agent")

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	} else {
		if r.login != "" {
			req.SetBasicAuth(r.login, r.passw)
		}
	}

	if len(r.args) > 0 {
		q := req.URL.Query()

		for k, v := range r.args {
			q.Add(k, v)
		}

		req.URL.RawQuery = q.Encode()
	}

	res, err := r.client.Do(req)
	if err != nil {
		if r.logger != nil {
			r.logger.Info(fmt.Sprintf("%s %s - error %s", r.method, req.URL.Path, err.Error()))
		}

		return res, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		if r.logger != nil {
			r.logger.Warn(fmt.Sprintf("%s %s - %d", r.method, req.URL.Path, res.StatusCode))
		}

		se := &StatusError{Code: res.StatusCode, Status: res.Status}

		if res.Body != nil {
			se.Body, _ = io.ReadAll(io.LimitReader(res.Body, 64*1024))
			se.Message = readMessage(se.Body)
			_ = res.Body.Close()
		}

		return res, se
	}

	if r.logger != nil {
		r.logger.Debug(fmt.Sprintf("%s %s - %d", r.method, req.URL.Path, res.StatusCode))
	}

	return res, nil
}

func readMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}

	if m.Message != "" {
		return m.Message
	}

	return m.Error
}

func (r *Request) Do(ctx context.Context) (io.ReadCloser, error) {
	res, err := r.DoRes(ctx)

	if err != nil {
		return nil, err
	}

	if res.Body == nil {
		return nil, fmt.Errorf("null body")
	}

	return res.Body, nil
}

func (r *Request) GetJSON(ctx context.Context, obj any) error {
	b, err := r.Do(ctx)

	if err != nil {
		return err
	}

	defer b.Close()

	if obj == nil {
		_, err = io.Copy(io.Discard, b)
		return err
	}

	dec := json.NewDecoder(b)

	return dec.Decode(obj)
}
