package logkey

// Keys shared by every slog call so log lines can be joined on them.
const (
	TraceID   = "TRACE_ID"
	ERROR     = "ERROR"
	UserID    = "USER_ID"
	GuestKey  = "GUEST_KEY"
	ProductID = "PRODUCT_ID"
	Reference = "REFERENCE"
	OrderCode = "ORDER_CODE"
)
