package defs

type RequestContext struct {
	TraceID string
}

const (
	MethodWebsocket string = "WEBSOCKET"
	PathPrefix      string = "/api/v1"
	EmptyString     string = ""

	ResourceAgents string = "agents"
	ResourceLogs   string = "logs"
)

var ConnectionState = struct {
	Closed     string
	Open       string
	Connecting string
}{
	Closed:     "CLOSED",
	Open:       "OPEN",
	Connecting: "CONNECTING",
}
