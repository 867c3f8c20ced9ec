package ema

import (
	"context"
	"fmt"
	"strings"

	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/message"
)

// Client sends commands to one robot controller. Each call is its own TCP session.
//
// A Client must be used by one goroutine at a time: the controller processes a single
// outstanding request.
type Client struct {
	cfg    *ConnectionConfig
	logger logger.Logger
}

// NewClient creates a client for the controller described by cfg.
func NewClient(cfg *ConnectionConfig) (*Client, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.GetLogger().With("robot", cfg.Addr()),
	}, nil
}

// Config returns the configuration the client was built from.
func (c *Client) Config() *ConnectionConfig { return c.cfg }

// Send sends cmd and returns the decoded reply if it satisfies exp.
func (c *Client) Send(ctx context.Context, cmd string, exp Expectation) (*message.Reply, error) {
	_, reply, err := c.roundTrip(ctx, cmd, exp)
	if err != nil {
		return nil, err
	}

	return reply, nil
}

// SendRaw sends cmd and returns the undecoded reply text if it satisfies exp.
func (c *Client) SendRaw(ctx context.Context, cmd string, exp Expectation) (string, error) {
	raw, _, err := c.roundTrip(ctx, cmd, exp)
	if err != nil {
		return "", err
	}

	return raw, nil
}

// SendCommand encodes cmd and sends it.
func (c *Client) SendCommand(ctx context.Context, cmd message.Command, exp Expectation) (*message.Reply, error) {
	return c.Send(ctx, cmd.Encode(), exp)
}

func (c *Client) roundTrip(ctx context.Context, cmd string, exp Expectation) (string, *message.Reply, error) {
	if err := exp.validate(); err != nil {
		return "", nil, err
	}

	if !strings.HasSuffix(cmd, string(message.Delimiter)) {
		cmd += string(message.Delimiter)
	}

	metrics := c.cfg.metrics
	metrics.incCommandSendCount()

	b, err := c.cfg.exchanger.Exchange(ctx, c.cfg.host, c.cfg.port, []byte(cmd), c.cfg.timeout)
	if err != nil {
		metrics.incTransportErrCount()
		c.logger.Warn("exchange failed", "command", cmd, "error", err)

		return "", nil, fmt.Errorf("ema: send %q: %w", cmd, err)
	}

	raw := string(b)
	reply, err := classify(cmd, raw, exp)
	if err != nil {
		switch err.(type) {
		case *CommandError:
			metrics.incCommandFailCount()
		case *UnexpectedReplyError:
			metrics.incUnexpectedReplyCount()
		}
		c.logger.Warn("command rejected", "command", cmd, "reply", raw, "expect", exp.String(), "error", err)

		return "", nil, err
	}

	metrics.incCommandDoneCount()
	c.logger.Debug("command completed", "command", cmd, "reply", raw)

	return raw, reply, nil
}

// classify decides whether raw satisfies exp.
func classify(cmd, raw string, exp Expectation) (*message.Reply, error) {
	reply, decodeErr := message.Decode(raw)

	if exp.HasToken() && raw == exp.token {
		if decodeErr != nil {
			return nil, fmt.Errorf("ema: reply to %q: %w", cmd, decodeErr)
		}
		return reply, nil
	}

	if decodeErr == nil && reply.IsFailure() {
		return nil, &CommandError{Command: cmd, Reply: raw, Detail: reply.Detail()}
	}

	if exp.HasToken() {
		return nil, &UnexpectedReplyError{Command: cmd, Expected: exp.token, Actual: raw}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("ema: reply to %q: %w", cmd, decodeErr)
	}

	return reply, nil
}
