// Package client provides a Go client for the Databricks MCP server. It
// opens a transport session (stdio subprocess, streamable HTTP, or
// in-process for tests), exposes one typed convenience method per tool, and
// unwraps the server's response envelope back into pkg/types values. Error
// envelopes are surfaced as *types.ToolError so callers can branch on the
// error kind without matching message text.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/benniehaelen/databricks-mcp-server/pkg/version"
)

// initRequestTimeout bounds the MCP initialization handshake.
const initRequestTimeout = 10 * time.Second

// Client is a scoped connection to the Databricks MCP server. Construct it
// with one of the Connect functions and release it with Close; Close is
// safe to call more than once and tears the session down exactly once.
type Client struct {
	mcp *mcpclient.Client

	closeOnce sync.Once
	closeErr  error
}

// ConnectStdio launches the server as a subprocess and opens an MCP session
// over its standard input/output.
func ConnectStdio(ctx context.Context, command string, env []string, args ...string) (*Client, error) {
	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdio client: %w", err)
	}
	return initialize(ctx, c)
}

// ConnectStreamableHTTP opens an MCP session against a server reachable at
// the given streamable HTTP endpoint.
func ConnectStreamableHTTP(ctx context.Context, url string) (*Client, error) {
	c, err := mcpclient.NewStreamableHttpClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create streamable HTTP client: %w", err)
	}
	return initialize(ctx, c)
}

// ConnectInProcess opens an MCP session directly against an in-process
// server, without any transport bytes. Used by tests.
func ConnectInProcess(ctx context.Context, srv *mcpserver.MCPServer) (*Client, error) {
	c, err := mcpclient.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-process client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start in-process transport: %w", err)
	}
	return initialize(ctx, c)
}

func initialize(ctx context.Context, c *mcpclient.Client) (*Client, error) {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "databricks-mcp-client",
		Version: version.GetVersion(),
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	initCtx, cancel := context.WithTimeout(ctx, initRequestTimeout)
	defer cancel()

	if _, err := c.Initialize(initCtx, initRequest); err != nil {
		_ = c.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("initialization request to MCP server timed out after %s", initRequestTimeout)
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("connection to the MCP server was refused: %w", err)
		}
		return nil, fmt.Errorf("failed to initialize connection with MCP server: %w", err)
	}

	return &Client{mcp: c}, nil
}

// Close tears down the transport session. Repeated calls are no-ops.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.mcp.Close()
	})
	return c.closeErr
}

// ListTools returns the server's static tool declarations.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	resp, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, remoteUnavailable(err)
	}
	return resp.Tools, nil
}

// ListResources returns the server's resource declarations.
func (c *Client) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	resp, err := c.mcp.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, remoteUnavailable(err)
	}
	return resp.Resources, nil
}

// ReadResource reads a resource snapshot by URI and returns its text body.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	resp, err := c.mcp.ReadResource(ctx, req)
	if err != nil {
		return "", protocolError(err)
	}
	for _, contents := range resp.Contents {
		if text, ok := contents.(mcp.TextResourceContents); ok {
			return text.Text, nil
		}
	}
	return "", fmt.Errorf("resource %s returned no text contents", uri)
}

// ListPrompts returns the server's prompt template declarations.
func (c *Client) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	resp, err := c.mcp.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, remoteUnavailable(err)
	}
	return resp.Prompts, nil
}

// GetPrompt renders the named prompt template with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.mcp.GetPrompt(ctx, req)
	if err != nil {
		return nil, protocolError(err)
	}
	return resp, nil
}
