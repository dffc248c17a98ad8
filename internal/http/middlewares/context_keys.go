package middlewares

const (
	CtxRequestID  = "request_id"
	CtxSessionID  = "session_id"
	ctxController = "auth.controller"
	ctxSessions   = "auth.sessions"
)
