// Package simulator implements a robot controller that speaks the sample-mounting protocol.
//
// It serves one request per TCP connection, like the physical controller, and keeps just
// enough state (power, homing, selected magazine slot, spinner offset) to answer every
// command issued by package robot. Tests script failures with Override and inspect the
// commands received with Received.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/internal/pool"
	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultSpinHome is the spinner position reported before WithSpinHome is applied.
var DefaultSpinHome = geometry.Pos(982, 393, -653)

const readTimeout = 5 * time.Second

// state keys
const (
	keyPower   = "power"
	keyHomed   = "homed"
	keyRunning = "running"
	keyCoordX  = "coords.X"
	keyCoordY  = "coords.Y"
	keyOffsetX = "offset.X"
	keyOffsetY = "offset.Y"
	keyOffsetZ = "offset.Z"
)

// motions maps motion commands to the name echoed in their reply.
var motions = map[string]string{
	"next":    "moveNext",
	"pick":    "pickSample",
	"gate":    "moveGate",
	"spinner": "moveSpinner",
	"release": "releaseSample",
	"offside": "moveOffside",
	"current": "moveCurrent",
}

// Server is a simulated robot controller.
type Server struct {
	logger      logger.Logger
	spinHome    geometry.Position
	motionDelay time.Duration
	requests    *prometheus.CounterVec

	state     *xsync.MapOf[string, message.Value]
	overrides *xsync.MapOf[string, string]

	// mu serialises request handling; the controller runs one command at a time.
	mu       sync.Mutex
	received []string

	ln     net.Listener
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger of the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSpinHome sets the spinner position reported by getSpinHomePosition.
func WithSpinHome(p geometry.Position) Option {
	return func(s *Server) { s.spinHome = p }
}

// WithMotionDelay makes every motion command take d before it replies.
func WithMotionDelay(d time.Duration) Option {
	return func(s *Server) { s.motionDelay = d }
}

// WithPowerOn starts the simulated robot powered.
func WithPowerOn() Option {
	return func(s *Server) { s.state.Store(keyPower, message.StringValue("On")) }
}

// WithRegisterer registers an ema_simulator_requests_total counter, labelled by command.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ema",
			Subsystem: "simulator",
			Name:      "requests_total",
			Help:      "Requests handled by the simulated robot controller.",
		}, []string{"command"})
		reg.MustRegister(s.requests)
	}
}

// New creates a stopped server. The robot starts powered off.
func New(opts ...Option) *Server {
	s := &Server{
		logger:    logger.GetLogger(),
		spinHome:  DefaultSpinHome,
		state:     xsync.NewMapOf[string, message.Value](),
		overrides: xsync.NewMapOf[string, string](),
	}
	s.state.Store(keyPower, message.StringValue("Off"))

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves until ctx is done or
// Close is called.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("simulator: listen %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.ln = ln
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		_ = ln.Close()
	}()
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()

	s.logger.Info("simulator listening", "addr", ln.Addr().String())

	return nil
}

// Close stops the server and waits for in-flight requests.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Host returns the listening host.
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Override makes the server answer command name with reply, whatever its state.
func (s *Server) Override(name, reply string) {
	s.overrides.Store(name, reply)
}

// ClearOverride removes an override set with Override.
func (s *Server) ClearOverride(name string) {
	s.overrides.Delete(name)
}

// Received returns the requests handled so far, in order.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.received))
	copy(out, s.received)

	return out
}

// ResetReceived clears the request log.
func (s *Server) ResetReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = nil
}

// Powered reports whether the simulated robot power is on.
func (s *Server) Powered() bool {
	v, _ := s.state.Load(keyPower)
	return v == message.StringValue("On")
}

// Homed reports whether setHomed has been received.
func (s *Server) Homed() bool {
	_, ok := s.state.Load(keyHomed)
	return ok
}

// Coords returns the magazine slot selected by the last setCoords.
func (s *Server) Coords() (x, y int64) {
	if v, ok := s.state.Load(keyCoordX); ok {
		x = int64(v.(message.IntValue))
	}
	if v, ok := s.state.Load(keyCoordY); ok {
		y = int64(v.(message.IntValue))
	}

	return x, y
}

// SpinOffset returns the offset set by the last setSpinPositionOffset.
func (s *Server) SpinOffset() geometry.Position {
	get := func(key string) float64 {
		v, ok := s.state.Load(key)
		if !ok {
			return 0
		}
		f, _ := message.AsFloat(v)
		return f
	}

	return geometry.Pos(get(keyOffsetX), get(keyOffsetY), get(keyOffsetZ))
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("simulator accept failed", "error", err)
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(readTimeout))

	req, err := readRequest(conn)
	if err != nil {
		s.logger.Warn("simulator read failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	// Motions may legitimately take longer than the read timeout.
	_ = conn.SetDeadline(time.Time{})

	reply := s.handle(ctx, req)
	if _, err := io.WriteString(conn, reply); err != nil {
		s.logger.Warn("simulator write failed", "error", err)
	}
}

// readRequest reads up to the delimiter or the client's half-close.
func readRequest(r io.Reader) (string, error) {
	var acc []byte
	buf := make([]byte, 128)

	for {
		n, err := r.Read(buf)
		acc = append(acc, buf[:n]...)
		if i := bytes.IndexByte(acc, message.Delimiter); i >= 0 {
			return string(acc[:i+1]), nil
		}
		if errors.Is(err, io.EOF) && len(acc) > 0 {
			return string(acc), nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (s *Server) handle(ctx context.Context, raw string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = append(s.received, raw)

	req, err := message.Decode(raw)
	if err != nil {
		return fail("error", "MalformedRequest")
	}
	if s.requests != nil {
		s.requests.WithLabelValues(req.Command).Inc()
	}

	reply := s.dispatch(ctx, req)
	s.logger.Debug("simulator request", "request", raw, "reply", reply)

	return reply
}

func (s *Server) dispatch(ctx context.Context, req *message.Reply) string {
	name := req.Command
	if reply, ok := s.overrides.Load(name); ok {
		return reply
	}

	if echo, ok := motions[name]; ok {
		if !s.Powered() {
			return fail(echo, "RobotPowerOff")
		}
		if err := pool.Sleep(ctx, s.motionDelay); err != nil {
			return fail(echo, "Aborted")
		}
		return done(echo)
	}

	switch name {
	case "powerOn":
		s.state.Store(keyPower, message.StringValue("On"))
		return done(name)
	case "powerOff":
		s.state.Store(keyPower, message.StringValue("Off"))
		s.state.Delete(keyRunning)
		return done(name)
	case "start":
		if !s.Powered() {
			return fail(name, "RobotPowerOff")
		}
		s.state.Store(keyRunning, message.StringValue("Yes"))
		return done(name)
	case "stopMotor":
		s.state.Delete(keyRunning)
		return done(name)
	case "reset", "restartMotor":
		return done(name)
	case "setHomed":
		s.state.Store(keyHomed, message.StringValue("Yes"))
		return done(name)
	case "getPowerState":
		v, _ := s.state.Load(keyPower)
		return name + ":#" + v.String() + ";"
	case "setCoords":
		x, okX := req.State[message.Tag("X")].(message.IntValue)
		y, okY := req.State[message.Tag("Y")].(message.IntValue)
		if !okX || !okY {
			return fail(name, "InvalidCoords")
		}
		s.state.Store(keyCoordX, x)
		s.state.Store(keyCoordY, y)
		return done(name)
	case "getCoords":
		x, y := s.Coords()
		return message.Encode(name, message.P("X", message.IntValue(x)), message.P("Y", message.IntValue(y)))
	case "getSpinHomePosition":
		return message.Encode(name,
			message.P("X", number(s.spinHome.X)),
			message.P("Y", number(s.spinHome.Y)),
			message.P("Z", number(s.spinHome.Z)),
			message.P("RX", message.IntValue(90)),
			message.P("RY", message.IntValue(0)),
			message.P("RZ", message.IntValue(0)),
		)
	case "setSpinPositionOffset":
		keys := map[string]string{"X": keyOffsetX, "Y": keyOffsetY, "Z": keyOffsetZ}
		for tag := range keys {
			if _, ok := message.AsFloat(req.State[message.Tag(tag)]); !ok {
				return fail(name, "InvalidOffset")
			}
		}
		for tag, key := range keys {
			s.state.Store(key, req.State[message.Tag(tag)])
		}
		return done(name)
	}

	return fail(name, "UnknownCommand")
}

func done(name string) string {
	return name + ":" + message.ResultDone + ";"
}

func fail(name, detail string) string {
	return name + ":" + message.ResultFail + "_'" + detail + "';"
}

// number reports integral values as integers, the way the controller does.
func number(f float64) message.Value {
	if f == float64(int64(f)) {
		return message.IntValue(int64(f))
	}
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', geometry.Digits, 64), 64)
	return message.FloatValue(v)
}
