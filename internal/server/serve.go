package server

import (
	"github.com/mark3labs/mcp-go/server"
)

// Serve starts the server on stdio and blocks until the stream closes.
func (ms *MCPServer) Serve() error {
	ms.logger.Info("starting MCP server", "transport", "stdio")
	return server.ServeStdio(ms.server)
}

// ServeHTTP starts the server with the HTTP/SSE transport.
func (ms *MCPServer) ServeHTTP(addr string) error {
	ms.logger.Info("starting MCP server", "transport", "sse", "addr", addr)
	sseServer := server.NewSSEServer(ms.server,
		server.WithBaseURL("http://"+addr),
		server.WithStaticBasePath("/mcp"),
	)
	return sseServer.Start(addr)
}
