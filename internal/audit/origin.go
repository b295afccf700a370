package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Origin returns the client address of req: the first X-Forwarded-For hop,
// else the host of the connection's remote address, else nil.
func Origin(req *http.Request) *string {
	if req == nil {
		return nil
	}
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return &first
		}
	}
	if req.RemoteAddr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		return nil
	}
	return &host
}

type originKey struct{}

// WithOrigin stores the client address of the current request on ctx
func WithOrigin(ctx context.Context, origin *string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the address stored by WithOrigin
func OriginFrom(ctx context.Context) *string {
	o, _ := ctx.Value(originKey{}).(*string)
	return o
}
