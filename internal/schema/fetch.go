package schema

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
)

// FetchTimeout bounds how long a single document fetch may take before it
// is abandoned (§4.3).
const FetchTimeout = 30 * time.Second

// Fetcher pulls the gateway's configuration document over a plain HTTP/1.0
// GET on port 80, feeding the response body into ExtractSchema once
// complete. The read side is driven entirely by reactor fd readiness; no
// goroutine blocks on the network independently of the reactor loop, per
// §5's single-goroutine core constraint.
type Fetcher struct {
	r    *reactor.Reactor
	addr string // host:80
	path string
}

// NewFetcher returns a Fetcher that will GET path from addr (host:80).
func NewFetcher(r *reactor.Reactor, addr, path string) *Fetcher {
	return &Fetcher{r: r, addr: addr, path: path}
}

// Fetch performs one GET and invokes done with the parsed Generation, or a
// non-nil error if the connection, request, or parse failed. done is
// called from the reactor goroutine.
//
// The document is tens of kilobytes and may arrive in many small chunks
// over a slow link; rather than blocking a goroutine on a full read, each
// readiness notification from the reactor reads whatever is currently
// available into a growing buffer, and only connection close triggers the
// parse.
func (f *Fetcher) Fetch(done func(Generation, error)) {
	conn, err := net.DialTimeout("tcp", f.addr, 5*time.Second)
	if err != nil {
		done(Generation{}, fmt.Errorf("schema: dial %s: %w", f.addr, err))
		return
	}
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		done(Generation{}, fmt.Errorf("schema: connection to %s is not TCP", f.addr))
		return
	}

	// File() duplicates the socket's fd into a blocking-mode *os.File the
	// reactor can poll directly; the duplicate is closed alongside conn in
	// cleanup.
	file, err := tc.File()
	if err != nil {
		conn.Close()
		done(Generation{}, fmt.Errorf("schema: extracting fd for %s: %w", f.addr, err))
		return
	}

	req := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", f.path, f.addr)
	if _, err := conn.Write([]byte(req)); err != nil {
		file.Close()
		conn.Close()
		done(Generation{}, fmt.Errorf("schema: write request: %w", err))
		return
	}

	var buf bytes.Buffer
	var handle *reactor.PollHandle
	var timeout *reactor.TimeoutHandle
	finished := false

	cleanup := func() {
		if handle != nil {
			f.r.RemovePollFdHandle(handle)
		}
		if timeout != nil {
			f.r.RemoveTimeout(timeout)
		}
		file.Close()
		conn.Close()
	}

	finish := func(err error) {
		if finished {
			return
		}
		finished = true
		cleanup()
		if err != nil {
			done(Generation{}, err)
			return
		}
		body, ferr := splitHTTPBody(buf.Bytes())
		if ferr != nil {
			done(Generation{}, ferr)
			return
		}
		gen, perr := ExtractSchema(bytes.NewReader(body))
		done(gen, perr)
	}

	readChunk := func(revents int16) bool {
		chunk := make([]byte, 4096)
		n, rerr := file.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if rerr != nil {
			// EOF (or any read error) ends the fetch; HTTP/1.0 with
			// Connection: close has no length framing beyond the close.
			finish(nil)
			return false
		}
		return true
	}

	handle = f.r.AddPollFd(int(file.Fd()), unix.POLLIN, readChunk)
	timeout = f.r.AddTimeout(FetchTimeout, func() {
		finish(fmt.Errorf("schema: fetch from %s timed out after %s", f.addr, FetchTimeout))
	})
}

// splitHTTPBody strips the HTTP/1.0 status line and headers, returning the
// body. It does not validate the status code; a non-200 response simply
// yields a body ExtractSchema will fail to parse, surfacing as a fetch
// error (§7).
func splitHTTPBody(raw []byte) ([]byte, error) {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(raw, sep)
	if idx < 0 {
		return nil, fmt.Errorf("schema: malformed HTTP response: no header terminator")
	}
	return raw[idx+len(sep):], nil
}
