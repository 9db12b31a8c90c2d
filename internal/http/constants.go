package http

const (
	KEY_HEADER_AUTHORIZATION      = "Authorization"
	KEY_HEADER_CONTENT_TYPE       = "Content-Type"
	KEY_HEADER_REQUEST_ID         = "X-Request-Id"
	VALUE_HEADER_APPLICATION_JSON = "application/json"
)

// MAX_BODY_BYTES bounds every request body read by the servers.
const MAX_BODY_BYTES = 1 << 20
