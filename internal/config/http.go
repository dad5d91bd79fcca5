package config

const (
	HCType        = "Content-Type"
	HAccept       = "Accept"
	HCacheControl = "Cache-Control"

	HHxRequest  = "HX-Request"
	HHxRedirect = "HX-Redirect"
	HHxTrigger  = "HX-Trigger"

	CTypeJSON  = "application/json; charset=utf-8"
	CTypeHTML  = "text/html; charset=utf-8"
	CTypeEvent = "text/event-stream"
	CTypeText  = "text/plain; charset=utf-8"

	AcceptJSON = "application/json"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)
