package ttsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject suffixes appended to the configured prefix.
const (
	subjectSynthesize      = "synthesize"
	subjectSynthesizeBatch = "synthesize.batch"
	subjectCredits         = "credits"
	subjectEvents          = "events.>"
)

// Envelope wraps every NATS reply: exactly one of Result or Error is set.
type Envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ServiceError   `json:"error,omitempty"`
}

// NATSClient talks to the TTS service with NATS request/reply and receives
// progress and credit events on a wildcard subscription.
type NATSClient struct {
	conn         *nats.Conn
	prefix       string
	timeout      time.Duration
	batchTimeout time.Duration
	ownsConn     bool
}

// DialNATS connects to url and returns a client owning the connection.
func DialNATS(url, prefix string, timeout, batchTimeout time.Duration) (*NATSClient, error) {
	conn, err := nats.Connect(url,
		nats.Name("voicequeue"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	client := NewNATSClient(conn, prefix, timeout, batchTimeout)
	client.ownsConn = true
	return client, nil
}

// NewNATSClient wraps an existing connection. The caller keeps ownership of conn.
func NewNATSClient(conn *nats.Conn, prefix string, timeout, batchTimeout time.Duration) *NATSClient {
	if batchTimeout < timeout {
		batchTimeout = timeout
	}
	return &NATSClient{
		conn:         conn,
		prefix:       strings.Trim(prefix, "."),
		timeout:      timeout,
		batchTimeout: batchTimeout,
	}
}

func (c *NATSClient) subject(suffix string) string {
	return c.prefix + "." + suffix
}

// Synthesize renders a single line.
func (c *NATSClient) Synthesize(ctx context.Context, req SynthesizeRequest) (SynthesizeResult, error) {
	if err := validateSingle(req); err != nil {
		return SynthesizeResult{}, err
	}
	var result SynthesizeResult
	if err := c.request(ctx, subjectSynthesize, c.timeout, req, &result); err != nil {
		return SynthesizeResult{}, err
	}
	if result.OutputPath == "" {
		result.OutputPath = req.OutputPath
	}
	return result, nil
}

// SynthesizeBatch submits all items as one request.
func (c *NATSClient) SynthesizeBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := validateBatch(req); err != nil {
		return BatchResult{}, err
	}
	var result BatchResult
	if err := c.request(ctx, subjectSynthesizeBatch, c.batchTimeout, req, &result); err != nil {
		return BatchResult{}, err
	}
	return result, nil
}

// CreditBalance returns the remaining credits.
func (c *NATSClient) CreditBalance(ctx context.Context) (int, error) {
	var payload struct {
		Total int `json:"total"`
	}
	if err := c.request(ctx, subjectCredits, c.timeout, struct{}{}, &payload); err != nil {
		return 0, err
	}
	return payload.Total, nil
}

// Subscribe delivers events published under <prefix>.events until ctx ends.
func (c *NATSClient) Subscribe(ctx context.Context, handler func(Event)) error {
	sub, err := c.conn.Subscribe(c.subject(subjectEvents), func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		if event.Type == "" {
			event.Type = msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.subject(subjectEvents), err)
	}
	if err := c.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return nil
}

// Ping verifies the connection is up.
func (c *NATSClient) Ping(ctx context.Context) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", c.conn.Status())
	}
	return c.conn.FlushWithContext(ctx)
}

// Close drains the connection when this client owns it.
func (c *NATSClient) Close() error {
	if !c.ownsConn {
		return nil
	}
	if err := c.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

func (c *NATSClient) request(ctx context.Context, suffix string, timeout time.Duration, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	subject := c.subject(suffix)
	msg, err := c.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("request %s: %w", subject, err)
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return fmt.Errorf("decode %s reply: %w", subject, err)
	}
	if env.Error != nil {
		return env.Error
	}
	if len(env.Result) == 0 {
		return fmt.Errorf("%s reply carried no result", subject)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", subject, err)
	}
	return nil
}
