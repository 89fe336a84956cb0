package httpmsg

import (
	"io"
	"net"
	"strings"
	"testing"
)

func TestResponseFixedLength(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		w := NewResponseWriter(server, false)
		w.Status = StatusOK
		w.Header.Set("Content-Type", "text/plain")
		w.WriteString("hello")
		if err := w.End(); err != nil {
			t.Error(err)
		}
	}()

	raw, _ := io.ReadAll(client)
	<-done

	text := string(raw)
	if !strings.HasPrefix(text, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("status line wrong: %q", text)
	}
	if !strings.Contains(text, "Content-Length: 5\r\n") {
		t.Errorf("missing Content-Length: %q", text)
	}
	if strings.Contains(text, "Transfer-Encoding") {
		t.Errorf("fixed-length response must not be chunked: %q", text)
	}
	if !strings.HasSuffix(text, "\r\n\r\nhello") {
		t.Errorf("body missing or misplaced: %q", text)
	}
}

func TestResponseSwitchesToChunkedOverThreshold(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		w := NewResponseWriter(server, false)
		w.Status = StatusOK
		w.SetMaxBuffer(8)
		w.SetMaxChunkSize(4)
		w.WriteString("0123456789")
		if err := w.End(); err != nil {
			t.Error(err)
		}
	}()

	raw, _ := io.ReadAll(client)
	<-done

	text := string(raw)
	if !strings.Contains(text, "Transfer-Encoding: chunked\r\n") {
		t.Errorf("expected chunked framing: %q", text)
	}
	if !strings.HasSuffix(text, "0\r\n\r\n") {
		t.Errorf("missing terminating chunk: %q", text)
	}
}

func TestResponseHeadSuppressesBody(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		w := NewResponseWriter(server, true)
		w.Status = StatusOK
		w.WriteString("this body must never reach the wire")
		if err := w.End(); err != nil {
			t.Error(err)
		}
	}()

	raw, _ := io.ReadAll(client)
	<-done

	text := string(raw)
	if strings.Contains(text, "must never reach the wire") {
		t.Errorf("HEAD response leaked body: %q", text)
	}
	if !strings.Contains(text, "Content-Length: 35\r\n") {
		t.Errorf("HEAD response must still report body size: %q", text)
	}
}

func TestResponseDoubleEndFails(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go io.ReadAll(client)

	w := NewResponseWriter(server, false)
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != ErrResponseAlreadySent {
		t.Errorf("second End() = %v, want ErrResponseAlreadySent", err)
	}
}
