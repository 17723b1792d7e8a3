// Package step drives a swarm one scheduled tick at a time.  The host calls
// Solve whenever its inputs change and Tick whenever a previously requested
// tick comes due; both return an Output telling the host whether and when to
// call Tick again.
package step

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/geom"
	"github.com/rwcarlsen/biorithm/swarm"
)

const (
	// Unbounded as an iteration count runs the swarm until it is stopped.
	Unbounded = -1
	// MinInterval is the shortest tick interval a host may request.
	MinInterval = time.Millisecond
)

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Input is everything the host supplies on each invocation.
type Input struct {
	Run   bool
	Reset bool
	// Iterations is the number of ticks to run or Unbounded.
	Iterations int
	// Interval is the delay between ticks; it must be at least
	// MinInterval.
	Interval time.Duration
	// Agents are the starting positions used whenever the swarm is
	// rebuilt.
	Agents  []r3.Vec
	Fitness geom.Curve
	swarm.Params
}

// Valid reports whether in carries everything a step needs.
func (in Input) Valid() bool {
	return in.Interval >= MinInterval &&
		in.Iterations >= Unbounded &&
		in.Agents != nil &&
		in.Fitness != nil &&
		in.Boundary != nil
}

// Request asks the host to call Tick again after a delay.
type Request struct {
	After time.Duration
}

type Output struct {
	// Skipped is set when the inputs were invalid and nothing happened.
	Skipped bool
	State   State
	// Iterations is the number of ticks completed since the last reset.
	Iterations int
	// Paths holds the history of every particle that has moved.
	Paths [][]r3.Vec
	Best  biorithm.Point
	// Next is non-nil when the host should schedule another tick.
	Next *Request
}

type Option func(*Controller)

// DB records every tick to the trace tables in db.
func DB(db *sql.DB) Option {
	return func(c *Controller) {
		c.db = db
	}
}

func Logger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// ResetOnIterationChange controls whether a change of the requested
// iteration count rebuilds the swarm.  It is on by default.
func ResetOnIterationChange(reset bool) Option {
	return func(c *Controller) {
		c.resetOnChange = reset
	}
}

// SwarmOptions are passed to every swarm the controller builds.
func SwarmOptions(opts ...swarm.Option) Option {
	return func(c *Controller) {
		c.swarmOpts = append(c.swarmOpts, opts...)
	}
}

// Controller is the run/reset state machine around a swarm.  It is not safe
// for concurrent use; the host must not call Tick before the previous call
// returned.
type Controller struct {
	target    int
	remaining int
	completed int
	state     State
	runs      int

	swarm         *swarm.Swarm
	swarmOpts     []swarm.Option
	resetOnChange bool

	db  *sql.DB
	log zerolog.Logger
}

func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		target:        math.MinInt,
		resetOnChange: true,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.initdb(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) State() State { return c.state }

// Remaining returns the number of ticks left, or Unbounded.
func (c *Controller) Remaining() int { return c.remaining }

// Swarm returns the current swarm or nil before the first valid Solve.
func (c *Controller) Swarm() *swarm.Swarm { return c.swarm }

func (c *Controller) bounded() bool { return c.target != Unbounded }

// Solve evaluates new host inputs.  It rebuilds the swarm on an explicit
// reset, on the first valid call and, unless disabled, when the iteration
// count changes.  Clearing the run flag stops a running swarm and setting it
// starts a freshly built one; a stopped swarm only runs again after a reset.
func (c *Controller) Solve(in Input) (Output, error) {
	if !in.Valid() {
		return c.skipped(), nil
	}

	if c.swarm == nil || in.Reset || (c.resetOnChange && in.Iterations != c.target) {
		if err := c.reset(in); err != nil {
			return Output{}, err
		}
	}

	switch {
	case !in.Run && c.state == Running:
		c.stop("run flag cleared")
	case in.Run && c.state == Idle:
		c.state = Running
		c.log.Info().Msg("swarm started")
	}
	if c.bounded() && c.remaining == 0 && c.state == Running {
		c.stop("no iterations left")
	}

	return c.output(in), nil
}

// Tick performs one scheduled step: a velocity update followed by a position
// update.  It does nothing unless the controller is running.  A failed update
// is returned without counting as a completed step.  A failure to record the
// trace is logged and does not fail the tick.
func (c *Controller) Tick(in Input) (Output, error) {
	if !in.Valid() {
		return c.skipped(), nil
	}
	if c.state != Running || c.swarm == nil {
		return c.output(in), nil
	}
	if !in.Run {
		c.stop("run flag cleared")
		return c.output(in), nil
	}

	if err := c.swarm.Update(in.Params, in.Fitness); err != nil {
		c.log.Error().Err(err).Int("iteration", c.completed+1).Msg("tick failed")
		return Output{}, fmt.Errorf("step: iteration %v: %w", c.completed+1, err)
	}
	if c.bounded() {
		c.remaining--
	}
	c.completed++

	c.log.Debug().
		Int("iteration", c.completed).
		Int("remaining", c.remaining).
		Float64("best", c.swarm.Best().Val).
		Msg("tick")

	if err := c.updateDb(); err != nil {
		c.log.Error().Err(err).Int("iteration", c.completed).Msg("trace not recorded")
	}

	if c.bounded() && c.remaining == 0 {
		c.stop("no iterations left")
	}
	return c.output(in), nil
}

func (c *Controller) reset(in Input) error {
	s, err := swarm.New(in.Agents, in.Fitness, c.swarmOpts...)
	if err != nil {
		return fmt.Errorf("step: building swarm: %w", err)
	}

	c.swarm = s
	c.target = in.Iterations
	c.remaining = in.Iterations
	c.completed = 0
	c.runs++
	c.state = Idle
	if in.Run {
		c.state = Running
	}

	c.log.Info().
		Int("agents", len(in.Agents)).
		Int("iterations", in.Iterations).
		Float64("best", s.Best().Val).
		Str("state", c.state.String()).
		Msg("swarm reset")
	return nil
}

func (c *Controller) stop(why string) {
	c.state = Stopped
	ev := c.log.Info().
		Int("iterations", c.completed).
		Float64("best", c.swarm.Best().Val).
		Str("reason", why)
	if leader := c.swarm.Pop.Best(); leader != nil {
		ev = ev.Int("leader", leader.Id)
	}
	ev.Msg("swarm stopped")
}

func (c *Controller) skipped() Output {
	return Output{Skipped: true, State: c.state, Iterations: c.completed}
}

func (c *Controller) output(in Input) Output {
	if c.swarm == nil {
		return Output{State: c.state}
	}
	out := Output{
		State:      c.state,
		Iterations: c.completed,
		Paths:      c.swarm.Pop.Paths(),
		Best:       c.swarm.Best(),
	}
	if c.state == Running && in.Run {
		out.Next = &Request{After: in.Interval}
	}
	return out
}
