package common

const (
	// AuthorizationHeaderName carries the bearer token on HTTP requests and
	// as gRPC metadata key.
	AuthorizationHeaderName = "authorization"

	// RequestIDHeaderName is propagated on every HTTP request and response.
	RequestIDHeaderName = "X-Request-Id"

	// BearerScheme prefixes the token in the authorization header.
	BearerScheme = "Bearer"
)
