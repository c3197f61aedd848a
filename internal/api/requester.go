package api

import "context"

// Resolver builds concrete requests from descriptors.
//
// Commands that only preview requests (dry runs, cURL export) depend on this
// interface rather than on a full Client.
type Resolver interface {
	Resolve(d Descriptor) (*ResolvedRequest, error)
}

// Doer performs one exchange for an already resolved request.
type Doer interface {
	Do(ctx context.Context, req *ResolvedRequest) (*Response, error)
}

var (
	_ Resolver = (*Client)(nil)
	_ Doer     = (*Transport)(nil)
)
