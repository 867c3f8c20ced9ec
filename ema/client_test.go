package ema

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/message"
	"github.com/emacontrol/go-ema/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	os.Exit(m.Run())
}

// fakeExchanger answers every request with a fixed reply.
type fakeExchanger struct {
	reply   string
	err     error
	sent    []string
	timeout time.Duration
}

func (f *fakeExchanger) Exchange(_ context.Context, _ string, _ int, payload []byte, timeout time.Duration) ([]byte, error) {
	f.sent = append(f.sent, string(payload))
	f.timeout = timeout
	if f.err != nil {
		return nil, f.err
	}

	return []byte(f.reply), nil
}

func newTestClient(t *testing.T, x transport.Exchanger) *Client {
	t.Helper()

	cfg, err := NewConnectionConfig("127.0.0.1", 10000, WithExchanger(x), WithTimeout(2*time.Second))
	require.NoError(t, err)

	client, err := NewClient(cfg)
	require.NoError(t, err)

	return client
}

func TestClient_Send(t *testing.T) {
	ctx := context.Background()
	fx := &fakeExchanger{reply: "Command:done;"}
	client := newTestClient(t, fx)

	// Normal behaviour
	raw, err := client.SendRaw(ctx, "Command;", NoExpectation())
	require.NoError(t, err)
	assert.Equal(t, "Command:done;", raw)

	reply, err := client.Send(ctx, "Command;", ExpectSuccess("Command:done;"))
	require.NoError(t, err)
	assert.Equal(t, &message.Reply{Command: "Command", Result: "done", State: message.State{}}, reply)
	assert.Equal(t, 2*time.Second, fx.timeout)

	// A fail reply is fatal without an expectation...
	fx.reply = "Command:fail;"
	_, err = client.Send(ctx, "Command;", NoExpectation())
	require.ErrorIs(t, err, ErrCommandFailed)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "Command:fail;", cmdErr.Reply)
	assert.Contains(t, err.Error(), "failed")

	// ...unless it is exactly the awaited reply...
	raw, err = client.SendRaw(ctx, "Command;", ExpectSpecific("Command:fail;"))
	require.NoError(t, err)
	assert.Equal(t, "Command:fail;", raw)

	// ...and still fatal when something else was awaited.
	_, err = client.SendRaw(ctx, "Command;", ExpectSuccess("Command:done;"))
	require.ErrorIs(t, err, ErrCommandFailed)
	_, err = client.SendRaw(ctx, "Command;", ExpectSpecific("Command:fail_'Other';"))
	require.ErrorIs(t, err, ErrCommandFailed)

	// Anything else is unexpected.
	fx.reply = "Command:squirrel;"
	_, err = client.SendRaw(ctx, "Command;", ExpectSuccess("Command:done;"))
	require.ErrorIs(t, err, ErrUnexpectedReply)

	var unexpected *UnexpectedReplyError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, "Command:done;", unexpected.Expected)
	assert.Equal(t, "Command:squirrel;", unexpected.Actual)
	assert.Contains(t, err.Error(), "unexpected")

	// Without expectation a non-failure reply is accepted as is.
	reply, err = client.Send(ctx, "Command;", NoExpectation())
	require.NoError(t, err)
	assert.Equal(t, "squirrel", reply.Result)
}

func TestClient_FailureDetail(t *testing.T) {
	fx := &fakeExchanger{reply: "powerOn:fail_'RobotPowerCannotBeSwitched';"}
	client := newTestClient(t, fx)

	_, err := client.Send(context.Background(), "powerOn;", ExpectSuccess("powerOn:done;"))

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "RobotPowerCannotBeSwitched", cmdErr.Detail)
	assert.Contains(t, err.Error(), "RobotPowerCannotBeSwitched")
}

func TestClient_InvalidExpectation(t *testing.T) {
	fx := &fakeExchanger{reply: "Command:fail;"}
	client := newTestClient(t, fx)

	_, err := client.Send(context.Background(), "Command;", ExpectSuccess("Command:fail;"))
	require.ErrorIs(t, err, ErrInvalidExpectation)
	assert.Empty(t, fx.sent, "nothing may be sent for an invalid expectation")
}

func TestClient_AppendsDelimiter(t *testing.T) {
	fx := &fakeExchanger{reply: "powerOff:done;"}
	client := newTestClient(t, fx)

	_, err := client.Send(context.Background(), "powerOff", NoExpectation())
	require.NoError(t, err)

	cmd := message.NewCommand("setCoords", message.P("X", message.IntValue(7)), message.P("Y", message.IntValue(4)))
	fx.reply = "setCoords:done;"
	_, err = client.SendCommand(context.Background(), cmd, ExpectSuccess("setCoords:done;"))
	require.NoError(t, err)

	assert.Equal(t, []string{"powerOff;", "setCoords:#X7#Y4;"}, fx.sent)
}

func TestClient_MalformedReply(t *testing.T) {
	fx := &fakeExchanger{reply: ":done;"}
	client := newTestClient(t, fx)

	_, err := client.Send(context.Background(), "reset;", NoExpectation())
	require.ErrorIs(t, err, message.ErrEmptyCommand)

	_, err = client.Send(context.Background(), "reset;", ExpectSuccess("reset:done;"))
	require.ErrorIs(t, err, ErrUnexpectedReply)
}

func TestClient_TransportError(t *testing.T) {
	fx := &fakeExchanger{err: transport.ErrFraming}
	client := newTestClient(t, fx)

	_, err := client.Send(context.Background(), "next;", ExpectSuccess("moveNext:done;"))
	require.ErrorIs(t, err, transport.ErrFraming)
	require.False(t, errors.Is(err, ErrCommandFailed))
}

func TestClient_Metrics(t *testing.T) {
	fx := &fakeExchanger{}
	client := newTestClient(t, fx)
	ctx := context.Background()

	fx.reply = "pickSample:done;"
	_, _ = client.Send(ctx, "pick;", ExpectSuccess("pickSample:done;"))
	fx.reply = "pickSample:fail;"
	_, _ = client.Send(ctx, "pick;", ExpectSuccess("pickSample:done;"))
	fx.reply = "pickSample:busy;"
	_, _ = client.Send(ctx, "pick;", ExpectSuccess("pickSample:done;"))
	fx.err = transport.ErrFraming
	_, _ = client.Send(ctx, "pick;", ExpectSuccess("pickSample:done;"))

	m := client.Config().Metrics()
	assert.Equal(t, uint64(4), m.CommandSendCount.Load())
	assert.Equal(t, uint64(1), m.CommandDoneCount.Load())
	assert.Equal(t, uint64(1), m.CommandFailCount.Load())
	assert.Equal(t, uint64(1), m.UnexpectedReplyCount.Load())
	assert.Equal(t, uint64(1), m.TransportErrCount.Load())

	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	collectors := m.Collectors()
	require.Len(t, collectors, 5)
	assert.InDelta(t, 4.0, testutil.ToFloat64(collectors[0]), 0)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestClient_NilConfig(t *testing.T) {
	_, err := NewClient(nil)
	require.ErrorIs(t, err, ErrConnConfigNil)
}

func TestClient_LogsRejections(t *testing.T) {
	l := logger.NewMockLogger().AllowAll()
	fx := &fakeExchanger{reply: "moveGate:fail_'Collision';"}

	cfg, err := NewConnectionConfig("127.0.0.1", 10000, WithExchanger(fx), WithLogger(l))
	require.NoError(t, err)
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "gate;", ExpectSuccess("moveGate:done;"))
	require.Error(t, err)
	assert.True(t, l.Logged("Warn", "command rejected"))

	fx.reply = "moveGate:done;"
	_, err = client.Send(context.Background(), "gate;", ExpectSuccess("moveGate:done;"))
	require.NoError(t, err)
	assert.True(t, l.Logged("Debug", "command completed"))

	fx.err = transport.ErrFraming
	_, err = client.Send(context.Background(), "gate;", ExpectSuccess("moveGate:done;"))
	require.Error(t, err)
	assert.True(t, l.Logged("Warn", "exchange failed"))
}
