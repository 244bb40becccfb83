package response

// transport 层自身产生的业务码
const (
	CodeInvalidBody     = "INVALID_BODY"
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
	CodeRouteNotFound   = "ROUTE_NOT_FOUND"
	CodeTimeout         = "REQUEST_TIMEOUT"
	CodeInvalidParams   = "INVALID_PARAMS"
)

const (
	MsgOK             = "Request successful"
	MsgInvalidBody    = "Invalid request body"
	MsgInvalidParams  = "Invalid request parameters"
	MsgTooLarge       = "Request body too large"
	MsgRouteNotFound  = "Route not found"
	MsgTimeout        = "Request timed out"
	MsgServerBusy     = "Server busy, please retry later"
	MsgTooManyRequest = "Too many requests"
)
