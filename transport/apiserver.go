package transport

import (
	"net"
	"strconv"
	"strings"
)

// DefaultRendezvousPort is the rendezvous port assumed when a custom
// rendezvous server is configured without one. The API server listens two
// ports below it.
const DefaultRendezvousPort = 21116

// ResolveAPIServer picks the API origin. An explicit apiServer wins. Otherwise
// the origin is derived from a custom rendezvous server (first entry when
// several are listed) as http://host:(port-2). With neither set, fallback is
// returned.
func ResolveAPIServer(apiServer, rendezvousServer, fallback string) string {
	if s := strings.TrimSpace(apiServer); s != "" {
		return strings.TrimRight(s, "/")
	}

	rs := strings.TrimSpace(rendezvousServer)
	if i := strings.IndexAny(rs, ",;"); i >= 0 {
		rs = strings.TrimSpace(rs[:i])
	}
	if rs == "" {
		return strings.TrimRight(fallback, "/")
	}

	host, portText, err := net.SplitHostPort(rs)
	if err != nil {
		return "http://" + net.JoinHostPort(strings.Trim(rs, "[]"), strconv.Itoa(DefaultRendezvousPort-2))
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 2 {
		port = DefaultRendezvousPort
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port-2))
}
