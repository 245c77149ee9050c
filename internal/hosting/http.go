package hosting

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts applied when the configuration leaves them at zero.
const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultReadTimeout    = 60 * time.Second
)

// ClientOptions configures the HTTP client shared by service adapters.
type ClientOptions struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
}

// NewHTTPClient returns a client whose dial is bounded by ConnectTimeout and
// whose response headers must arrive within ReadTimeout. Uploads can take
// longer than ReadTimeout, so no overall client timeout is set.
func NewHTTPClient(opts ClientOptions) *http.Client {
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	read := opts.ReadTimeout
	if read <= 0 {
		read = DefaultReadTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read

	var rt http.RoundTripper = transport
	if opts.UserAgent != "" {
		rt = userAgentTransport{agent: opts.UserAgent, next: transport}
	}
	return &http.Client{Transport: rt}
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(req)
}
