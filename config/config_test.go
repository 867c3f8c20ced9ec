package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emacontrol/go-ema/calib"
	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse(`
[robot]
host = " 10.0.0.5 "
port = 10001
timeout = "90s"

[calibration]
backend = "Redis"
redis_addr = "redis:6379"
redis_key = "i04:calibration"

[geometry]
rotate_sense = -1

[log]
level = "debug"
console = true
`)
	require.NoError(t, err)

	assert.Equal(t, Robot{Host: "10.0.0.5", Port: 10001, Timeout: 90 * time.Second}, cfg.Robot)
	assert.Equal(t, BackendRedis, cfg.Calibration.Backend)
	assert.Equal(t, "redis:6379", cfg.Calibration.RedisAddr)
	assert.Equal(t, "i04:calibration", cfg.Calibration.RedisKey)
	assert.Equal(t, "~/.robot.ini", cfg.Calibration.Path)
	assert.Equal(t, geometry.CounterClockwise, cfg.Geometry.RotateSense)
	assert.Equal(t, Log{Level: logger.DebugLevel, Console: true}, cfg.Log)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", "[robot\nhost = 1"},
		{"unknown key", "[robot]\nspeed = 3"},
		{"timeout", "[robot]\ntimeout = \"soon\""},
		{"rotate sense", "[geometry]\nrotate_sense = 0"},
		{"log level", "[log]\nlevel = \"loud\""},
		{"backend", "[calibration]\nbackend = \"s3\""},
		{"empty path", "[calibration]\npath = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
		})
	}

	_, err := Parse("[calibration]\nbackend = \"s3\"")
	require.ErrorIs(t, err, ErrUnknownBackend)
	_, err = Parse("[geometry]\nrotate_sense = 2")
	require.ErrorIs(t, err, geometry.ErrInvalidRotateSense)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emactl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[robot]\nhost = \"robot\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "robot", cfg.Robot.Host)
	assert.Equal(t, DefaultPort, cfg.Robot.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_DefaultPathMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConfig_ConnectionConfig(t *testing.T) {
	cfg := Default()
	cfg.Robot.Host = "10.0.0.5"
	cfg.Robot.Timeout = 5 * time.Second

	cc, err := cfg.ConnectionConfig()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:10000", cc.Addr())
	assert.Equal(t, 5*time.Second, cc.Timeout())
}

func TestConfig_OpenStore(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	store, closeFn, err := cfg.OpenStore(logger.GetLogger())
	require.NoError(t, err)
	defer closeFn()

	fs, ok := store.(*calib.FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(home, ".robot.ini"), fs.Path())

	cfg.Calibration.Backend = BackendRedis
	store, closeFn, err = cfg.OpenStore(logger.GetLogger())
	require.NoError(t, err)
	defer closeFn()

	rs, ok := store.(*calib.RedisStore)
	require.True(t, ok)
	assert.Equal(t, calib.DefaultRedisKey, rs.Key())
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := ExpandHome("~/x/robot.ini")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "robot.ini"), p)

	p, err = ExpandHome("/etc/robot.ini")
	require.NoError(t, err)
	assert.Equal(t, "/etc/robot.ini", p)
}
