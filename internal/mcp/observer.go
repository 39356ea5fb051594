package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/elasticmcp/internal/gateway"
)

// loggerName tags log notifications sent to clients.
const loggerName = "elasticmcp"

// sessionLogger forwards gateway notes to the client as notifications/message.
// The session drops messages below the level the client asked for.
type sessionLogger struct {
	session *mcp.ServerSession
}

func (l sessionLogger) Info(ctx context.Context, msg string) {
	l.log(ctx, "info", msg)
}

func (l sessionLogger) Error(ctx context.Context, msg string) {
	l.log(ctx, "error", msg)
}

func (l sessionLogger) log(ctx context.Context, level mcp.LoggingLevel, msg string) {
	_ = l.session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: loggerName,
		Data:   msg,
	})
}

// sessionObserver returns an observer for ss, or nil when there is no
// session to notify.
func sessionObserver(ss *mcp.ServerSession) gateway.Observer {
	if ss == nil {
		return nil
	}
	return sessionLogger{session: ss}
}
