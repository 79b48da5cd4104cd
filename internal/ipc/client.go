package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[R any](c *Client, method string, req any) (*R, error) {
	var resp R
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownResponse](c, "Shutdown", ShutdownRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// LinesAdd splits text into lines and queues them.
func (c *Client) LinesAdd(req LinesAddRequest) (*LinesAddResponse, error) {
	return call[LinesAddResponse](c, "LinesAdd", req)
}

// LinesList returns queued lines, optionally filtered by status.
func (c *Client) LinesList(statuses []string) (*LinesListResponse, error) {
	return call[LinesListResponse](c, "LinesList", LinesListRequest{Statuses: statuses})
}

// LineUpdate edits a queued line.
func (c *Client) LineUpdate(req LineUpdateRequest) (*LineUpdateResponse, error) {
	return call[LineUpdateResponse](c, "LineUpdate", req)
}

// LinesRemove deletes lines by id.
func (c *Client) LinesRemove(ids []string) (*LinesRemoveResponse, error) {
	return call[LinesRemoveResponse](c, "LinesRemove", LinesRemoveRequest{IDs: ids})
}

// LineMove moves a line to a new position.
func (c *Client) LineMove(from, to int) (*LineMoveResponse, error) {
	return call[LineMoveResponse](c, "LineMove", LineMoveRequest{From: from, To: to})
}

// LinesClear removes every line.
func (c *Client) LinesClear() (*LinesClearResponse, error) {
	return call[LinesClearResponse](c, "LinesClear", LinesClearRequest{})
}

// LinesSelect replaces the selection.
func (c *Client) LinesSelect(ids []string) (*LinesSelectResponse, error) {
	return call[LinesSelectResponse](c, "LinesSelect", LinesSelectRequest{IDs: ids})
}

// LinesRetry resets failed lines to pending.
func (c *Client) LinesRetry(ids []string) (*LinesRetryResponse, error) {
	return call[LinesRetryResponse](c, "LinesRetry", LinesRetryRequest{IDs: ids})
}

// SessionGet returns session settings.
func (c *Client) SessionGet() (*SessionResponse, error) {
	return call[SessionResponse](c, "SessionGet", SessionGetRequest{})
}

// SessionUpdate changes session settings.
func (c *Client) SessionUpdate(req SessionUpdateRequest) (*SessionResponse, error) {
	return call[SessionResponse](c, "SessionUpdate", req)
}

// RunStart begins a run.
func (c *Client) RunStart(policy string, concurrency int) (*RunResponse, error) {
	return call[RunResponse](c, "RunStart", RunStartRequest{Policy: policy, Concurrency: concurrency})
}

// RunPause pauses the active run.
func (c *Client) RunPause() (*RunResponse, error) {
	return call[RunResponse](c, "RunPause", RunControlRequest{})
}

// RunResume resumes a paused run.
func (c *Client) RunResume() (*RunResponse, error) {
	return call[RunResponse](c, "RunResume", RunControlRequest{})
}

// RunStop stops the active run.
func (c *Client) RunStop() (*RunResponse, error) {
	return call[RunResponse](c, "RunStop", RunControlRequest{})
}

// Stats returns run progress.
func (c *Client) Stats() (*StatsResponse, error) {
	return call[StatsResponse](c, "Stats", StatsRequest{})
}

// History returns the export ledger.
func (c *Client) History() (*HistoryResponse, error) {
	return call[HistoryResponse](c, "History", HistoryRequest{})
}

// HistoryClear empties the export ledger.
func (c *Client) HistoryClear() (*HistoryClearResponse, error) {
	return call[HistoryClearResponse](c, "HistoryClear", HistoryClearRequest{})
}

// RecoveryShow describes a restorable snapshot.
func (c *Client) RecoveryShow() (*RecoveryResponse, error) {
	return call[RecoveryResponse](c, "RecoveryShow", RecoveryRequest{})
}

// RecoveryRestore restores the previous session.
func (c *Client) RecoveryRestore() (*RecoveryResponse, error) {
	return call[RecoveryResponse](c, "RecoveryRestore", RecoveryRequest{})
}

// RecoveryDiscard deletes the stored snapshot.
func (c *Client) RecoveryDiscard() (*RecoveryResponse, error) {
	return call[RecoveryResponse](c, "RecoveryDiscard", RecoveryRequest{})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// DatabaseHealth retrieves database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
