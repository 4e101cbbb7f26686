package imports

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hostwire/wasm-bridge/closure"
	"github.com/hostwire/wasm-bridge/codec"
	"github.com/hostwire/wasm-bridge/errors"
)

// MaxFetchBody caps a response body read (16MB).
const MaxFetchBody = 16 << 20

// Fetch bridges HTTP requests as continuations. Begin returns a
// pending request id immediately; the network round trip runs off the
// bridge's thread, and Poll delivers each completion by invoking the
// module's registered closure with the response. The closure receives
// (request id, status, body handle); the body handle resolves to the
// raw bytes in the handle table and belongs to the module afterwards.
type Fetch struct {
	env      Env
	client   *http.Client
	inflight map[uint32]*closure.Closure
	done     chan fetchResult
	nextID   uint32
}

type fetchResult struct {
	err    error
	body   []byte
	id     uint32
	status uint32
}

// NewFetch creates the fetch capability. client may be nil for a
// default with a 30s timeout.
func NewFetch(env Env, client *http.Client) *Fetch {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetch{
		env:      env,
		client:   client,
		inflight: make(map[uint32]*closure.Closure),
		done:     make(chan fetchResult, 16),
	}
}

func (f *Fetch) Namespace() string {
	return "hostwire:fetch"
}

// Begin starts a GET of the URL at (urlPtr, urlLen) and registers the
// closure (fnPtr, envPtr) as its continuation. Returns the request id.
func (f *Fetch) Begin(ctx context.Context, urlPtr, urlLen, fnPtr, envPtr uint32) (uint32, error) {
	url, err := codec.Decode(f.env.Memory(), urlPtr, urlLen)
	if err != nil {
		return 0, err
	}

	f.nextID++
	id := f.nextID
	f.inflight[id] = f.env.WrapClosure(fnPtr, envPtr)

	go func() {
		f.done <- f.do(id, url)
	}()
	return id, nil
}

func (f *Fetch) do(id uint32, url string) fetchResult {
	resp, err := f.client.Get(url)
	if err != nil {
		return fetchResult{id: id, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBody))
	if err != nil {
		return fetchResult{id: id, err: err}
	}
	return fetchResult{id: id, status: uint32(resp.StatusCode), body: body}
}

// Poll delivers finished requests and returns how many completed.
// Failures are funneled to the error sink and delivered as status 0
// with a null body handle; the continuation always runs.
func (f *Fetch) Poll(ctx context.Context) (uint32, error) {
	var delivered uint32
	for {
		select {
		case res := <-f.done:
			cl, ok := f.inflight[res.id]
			if !ok {
				continue
			}
			delete(f.inflight, res.id)

			var bodyHandle uint64
			if res.err != nil {
				f.env.CaptureHostError(f.Namespace(), "begin", errors.HostCall(f.Namespace(), "begin", res.err))
			} else {
				bodyHandle = uint64(f.env.Heap().Allocate(res.body))
			}

			_, err := cl.Invoke(ctx, uint64(res.id), uint64(res.status), bodyHandle)
			_, _ = cl.Drop(ctx)
			if err != nil {
				return delivered, err
			}
			delivered++
		default:
			return delivered, nil
		}
	}
}

// InflightCount returns the number of requests awaiting delivery.
func (f *Fetch) InflightCount() int {
	return len(f.inflight)
}
