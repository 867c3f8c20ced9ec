package ema

import (
	"testing"
	"time"

	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionConfig_Defaults(t *testing.T) {
	cfg, err := NewConnectionConfig("127.0.0.1", 10000)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host())
	assert.Equal(t, 10000, cfg.Port())
	assert.Equal(t, "127.0.0.1:10000", cfg.Addr())
	assert.Equal(t, DefaultTimeout, cfg.Timeout())
	assert.NotNil(t, cfg.GetLogger())
	assert.NotNil(t, cfg.Metrics())
	assert.IsType(t, &transport.Dialer{}, cfg.exchanger)
}

func TestNewConnectionConfig_WithOptions(t *testing.T) {
	l := logger.NewMockLogger()
	m := &ClientMetrics{}
	cfg, err := NewConnectionConfig("localhost", 5000,
		WithTimeout(5*time.Second),
		WithLogger(l),
		WithMetrics(m),
	)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Same(t, l, cfg.GetLogger())
	assert.Same(t, m, cfg.Metrics())
}

func TestNewConnectionConfig_Invalid(t *testing.T) {
	_, err := NewConnectionConfig("!!!invalid!!!", 5000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid host")

	_, err = NewConnectionConfig("127.0.0.1", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")

	_, err = NewConnectionConfig("127.0.0.1", 70000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")

	_, err = NewConnectionConfig("127.0.0.1", 5000, WithTimeout(time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	_, err = NewConnectionConfig("127.0.0.1", 5000, WithLogger(nil))
	require.Error(t, err)

	_, err = NewConnectionConfig("127.0.0.1", 5000, WithExchanger(nil))
	require.Error(t, err)

	_, err = NewConnectionConfig("127.0.0.1", 5000, WithMetrics(nil))
	require.Error(t, err)
}

func TestExpectation(t *testing.T) {
	assert.False(t, NoExpectation().HasToken())
	assert.Equal(t, ExpectNothing, NoExpectation().Kind())
	assert.Equal(t, "nothing", NoExpectation().String())

	e := ExpectSuccess("moveNext:done;")
	assert.True(t, e.HasToken())
	assert.Equal(t, ExpectToken, e.Kind())
	assert.Equal(t, "moveNext:done;", e.Token())
	assert.Equal(t, `success("moveNext:done;")`, e.String())
	require.NoError(t, e.validate())

	require.ErrorIs(t, ExpectSuccess("powerOn:fail;").validate(), ErrInvalidExpectation)
	require.NoError(t, ExpectSpecific("powerOn:fail;").validate())
	assert.Equal(t, ExpectExact, ExpectSpecific("x").Kind())
}
