package constants

const (
	APP_STOREFRONT           = "storefront"
	APP_ORDER_SERVICE        = "order-service"
	APP_NOTIFICATION_SERVICE = "notification-service"
	APP_CART                 = "cart"
	AUDIENCE_OPERATOR        = "storefront-operator"
)

const (
	CHANNEL_ORDERS = "storefront:orders"
)

const (
	KEY_APP_NAME       = "app"
	KEY_BODY           = "body"
	KEY_CACHE_KEY      = "cacheKey"
	KEY_CART_LINES     = "cartLines"
	KEY_CHANNEL        = "channel"
	KEY_CONFIG         = "config"
	KEY_DB_DRIVER      = "dbDriver"
	KEY_HEADER         = "header"
	KEY_ORDER          = "order"
	KEY_ORDER_EVENT    = "orderEvent"
	KEY_ORIGIN         = "origin"
	KEY_PERSISTED      = "persisted"
	KEY_PROCESS        = "process"
	KEY_QUANTITY       = "quantity"
	KEY_REQUEST        = "request"
	KEY_REQUEST_HOST   = "host"
	KEY_REQUEST_ID     = "requestId"
	KEY_REQUEST_IP     = "requesterIP"
	KEY_REQUEST_METHOD = "requestMethod"
	KEY_REQUEST_URI    = "requestURI"
	KEY_REQUEST_URL    = "requestURL"
	KEY_SESSION        = "session"
	KEY_SKU            = "sku"
	KEY_SPAN_ID        = "spanId"
	KEY_STATUS_CODE    = "statusCode"
	KEY_TAG            = "tag"
	KEY_TOTAL_AMOUNT   = "totalAmount"
	KEY_TOTAL_CARATS   = "totalCarats"
	KEY_TOTAL_KG       = "totalKg"
	KEY_TRACE_ID       = "traceId"
)
