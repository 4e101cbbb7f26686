package bridge

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostwire/wasm-bridge/errors"
)

// MaxModuleSize caps a fetched module binary (64MB).
const MaxModuleSize = 64 << 20

// wasmContentType is the media type a server must send for the
// streaming read path.
const wasmContentType = "application/wasm"

// Source identifies where a module binary comes from. Construct one
// with FromBytes, FromFile or FromURL.
type Source struct {
	bytes []byte
	path  string
	url   string
}

// FromBytes wraps an in-memory binary.
func FromBytes(b []byte) Source {
	return Source{bytes: b}
}

// FromFile reads the binary from the local filesystem at load time.
func FromFile(path string) Source {
	return Source{path: path}
}

// FromURL fetches the binary over HTTP at load time. The streaming
// read is preferred; a response without the application/wasm content
// type falls back to a buffered read with a warning, not an error.
func FromURL(url string) Source {
	return Source{url: url}
}

// String describes the source for logs and errors.
func (s Source) String() string {
	switch {
	case s.url != "":
		return s.url
	case s.path != "":
		return s.path
	default:
		return "<bytes>"
	}
}

func (s Source) resolve(ctx context.Context, client *http.Client) ([]byte, error) {
	switch {
	case s.url != "":
		return fetchModule(ctx, client, s.url)
	case s.path != "":
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, errors.Load("read "+s.path, err)
		}
		return data, nil
	case len(s.bytes) > 0:
		return s.bytes, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty module source")
	}
}

func fetchModule(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Load("build request for "+url, err)
	}
	req.Header.Set("Accept", wasmContentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Load("fetch "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Detail("fetch %s: status %d", url, resp.StatusCode).
			Build()
	}

	body := io.LimitReader(resp.Body, MaxModuleSize)
	contentType := resp.Header.Get("Content-Type")
	if mediaType(contentType) == wasmContentType {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, errors.Load("stream "+url, err)
		}
		return data, nil
	}

	// Wrong media type: degrade to a buffered read rather than fail,
	// the way misconfigured servers are usually tolerated.
	Logger().Warn("content type is not application/wasm, using buffered load",
		zap.String("url", url),
		zap.String("content_type", contentType))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, errors.Load("buffer "+url, err)
	}
	return buf.Bytes(), nil
}

func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
