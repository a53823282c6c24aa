// Package clam speaks the wire protocol of a remote
// CLAM processing server. The server is consumed as a
// black box: jobs are created, fed input files, started,
// polled, and their result archives downloaded.
package clam

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Client abstracts one remote CLAM server.
type Client interface {
	Metadata(ctx context.Context) (*MetadataDocument, error)
	Create(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	UploadInput(ctx context.Context, id, templateID, path string) error
	Start(ctx context.Context, id string, parameters map[string]interface{}) error
	Status(ctx context.Context, id string) (*StatusDocument, error)
	DownloadArchive(ctx context.Context, id, format, dest string) error
}

type client struct {
	hostname string
	username string
	password string
	http     *http.Client
}

// New returns a Client for the CLAM server at hostname.
// Basic auth is used when both username and password are
// non-empty.
func New(hostname, username, password string) Client {
	return &client{
		hostname: strings.TrimSuffix(hostname, "/"),
		username: username,
		password: password,
		http:     &http.Client{},
	}
}

func (c *client) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.hostname+path, body)
	if err != nil {
		return nil, err
	}

	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	return req, nil
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "clam server unreachable")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf(
			"clam server returned %v for %v %v",
			resp.StatusCode,
			req.Method,
			req.URL.Path,
		)
	}

	return resp, nil
}

// Metadata fetches and parses the server's service index.
func (c *client) Metadata(ctx context.Context) (*MetadataDocument, error) {
	req, err := c.request(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return ParseMetadata(data)
}

// Create allocates a new job on the server. It fails when
// the identifier is already taken.
func (c *client) Create(ctx context.Context, id string) error {
	req, err := c.request(ctx, http.MethodPut, "/"+id+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

// Delete discards a job and all of its remote state.
func (c *client) Delete(ctx context.Context, id string) error {
	req, err := c.request(ctx, http.MethodDelete, "/"+id+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

// UploadInput binds the local file at path to the named
// input template slot of the job.
func (c *client) UploadInput(ctx context.Context, id, templateID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open input file %v", path)
	}
	defer f.Close()

	var (
		buf = &strings.Builder{}
		w   = multipart.NewWriter(buf)
	)

	if err = w.WriteField("inputtemplate", templateID); err != nil {
		return err
	}

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}

	if _, err = io.Copy(part, f); err != nil {
		return err
	}

	if err = w.Close(); err != nil {
		return err
	}

	req, err := c.request(
		ctx,
		http.MethodPost,
		"/"+id+"/input/"+url.PathEscape(filepath.Base(path)),
		strings.NewReader(buf.String()),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

// Start begins remote execution of the job with the given
// parameter values.
func (c *client) Start(ctx context.Context, id string, parameters map[string]interface{}) error {
	form := url.Values{}
	for name, value := range parameters {
		form.Set(name, fmt.Sprintf("%v", value))
	}

	req, err := c.request(
		ctx,
		http.MethodPost,
		"/"+id+"/",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return err
	}

	return resp.Body.Close()
}

// Status fetches and parses the job's XML status document.
func (c *client) Status(ctx context.Context, id string) (*StatusDocument, error) {
	req, err := c.request(ctx, http.MethodGet, "/"+id+"/", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return ParseStatus(data)
}

// DownloadArchive fetches the job's output archive in the
// given format and writes it to dest.
func (c *client) DownloadArchive(ctx context.Context, id, format, dest string) error {
	req, err := c.request(ctx, http.MethodGet, "/"+id+"/output/"+format, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err = io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
