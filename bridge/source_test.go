package bridge

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hostwire/wasm-bridge/errors"
)

func TestSourceFromBytes(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D}
	got, err := FromBytes(data).resolve(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("bytes source changed the data")
	}
}

func TestSourceFromFile(t *testing.T) {
	data := []byte("not really wasm but bytes")
	path := filepath.Join(t.TempDir(), "mod.wasm")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FromFile(path).resolve(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("file content mismatch")
	}
}

func TestSourceFromMissingFile(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "absent.wasm")).resolve(context.Background(), nil)
	if err == nil {
		t.Fatal("missing file should fail")
	}
	target := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindLoadFailed}
	if !stderrors.Is(err, target) {
		t.Fatalf("err = %v, want load_failed", err)
	}
}

func TestSourceEmpty(t *testing.T) {
	if _, err := (Source{}).resolve(context.Background(), nil); err == nil {
		t.Fatal("empty source should fail")
	}
}

func TestFetchStreamingWithWasmContentType(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/wasm")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	logs := captureWarnLogs(t)

	got, err := FromURL(srv.URL).resolve(context.Background(), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("fetched bytes mismatch")
	}
	if logs.Len() != 0 {
		t.Fatalf("correct content type must not warn, got %v", logs.All())
	}
}

func TestFetchBufferedFallbackWarns(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	logs := captureWarnLogs(t)

	got, err := FromURL(srv.URL).resolve(context.Background(), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("fallback must still deliver the bytes")
	}

	entries := logs.FilterMessageSnippet("buffered").All()
	if len(entries) != 1 {
		t.Fatalf("want one fallback warning, got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["content_type"] != "text/plain" {
		t.Fatalf("warning fields = %v", fields)
	}
}

func TestFetchContentTypeParameterStillStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/wasm; charset=binary")
		_, _ = w.Write([]byte{0x00})
	}))
	defer srv.Close()

	logs := captureWarnLogs(t)

	if _, err := FromURL(srv.URL).resolve(context.Background(), srv.Client()); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 0 {
		t.Fatal("media type parameters must not trigger the fallback")
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := FromURL(srv.URL).resolve(context.Background(), srv.Client())
	if err == nil {
		t.Fatal("404 should fail the load")
	}
	target := &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindLoadFailed}
	if !stderrors.Is(err, target) {
		t.Fatalf("err = %v, want load_failed", err)
	}
}

// captureWarnLogs routes the package logger into an observer for the
// duration of the test.
func captureWarnLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })
	return logs
}
