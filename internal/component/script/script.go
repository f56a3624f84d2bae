// Package script runs user Lua scripts against the event stream.
//
// Scripts live in the scripts directory and are loaded in name order at
// startup. They see a single global table:
//
//	aparte.on(kind, fn)  -- call fn(event) for every event of kind
//	aparte.log(msg)      -- write msg to the client log
//	aparte.join(room)    -- join a group chat on the current account
package script

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"
	"mellium.im/xmpp/jid"

	"github.com/dshills/aparte/internal/core"
	"github.com/dshills/aparte/internal/event"
	"github.com/dshills/aparte/internal/logger"
)

// DefaultTimeout bounds a single handler call.
const DefaultTimeout = time.Second

// Component hosts the Lua state.
type Component struct {
	dir     string
	timeout time.Duration
	log     logger.Logger

	L        *lua.LState
	core     *core.Core
	handlers map[event.Kind][]*lua.LFunction
	scripts  []string
}

// Option configures the component.
type Option func(*Component)

// WithTimeout bounds every handler call to d.
func WithTimeout(d time.Duration) Option {
	return func(s *Component) {
		s.timeout = d
	}
}

// New creates a script component reading dir. An empty dir disables
// scripting.
func New(dir string, opts ...Option) *Component {
	s := &Component{
		dir:      dir,
		timeout:  DefaultTimeout,
		log:      logger.Nop(),
		handlers: make(map[event.Kind][]*lua.LFunction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements core.Component.
func (s *Component) Name() string { return "script" }

// Init creates the Lua state and runs every script. A script that fails to
// load aborts startup.
func (s *Component) Init(c *core.Core) error {
	s.log = c.Log().Named("script")
	s.core = c
	s.L = newState()
	s.installAPI()

	if s.dir == "" {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.lua"))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := s.load(path); err != nil {
			return fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		s.scripts = append(s.scripts, filepath.Base(path))
	}
	s.log.Info("scripts loaded", logger.Int("count", len(s.scripts)))
	return nil
}

func (s *Component) load(path string) error {
	fn, err := s.L.LoadFile(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	s.L.Push(fn)
	return s.L.PCall(0, lua.MultRet, nil)
}

// Scripts returns the names of the loaded scripts.
func (s *Component) Scripts() []string {
	return append([]string(nil), s.scripts...)
}

// Close releases the Lua state.
func (s *Component) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}

func (s *Component) installAPI() {
	api := s.L.NewTable()
	s.L.SetFuncs(api, map[string]lua.LGFunction{
		"on":   s.luaOn,
		"log":  s.luaLog,
		"join": s.luaJoin,
	})
	s.L.SetGlobal("aparte", api)
}

func (s *Component) luaOn(L *lua.LState) int {
	kind := event.Kind(L.CheckString(1))
	fn := L.CheckFunction(2)
	s.handlers[kind] = append(s.handlers[kind], fn)
	return 0
}

func (s *Component) luaLog(L *lua.LState) int {
	s.log.Info(L.CheckString(1))
	return 0
}

func (s *Component) luaJoin(L *lua.LState) int {
	room, err := jid.Parse(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	acct, _ := s.core.CurrentAccount()
	s.core.Schedule(event.Join{Account: acct, JID: room})
	return 0
}

// OnEvent implements core.Component.
func (s *Component) OnEvent(_ *core.Core, ev event.Event) {
	fns := s.handlers[ev.Kind()]
	if len(fns) == 0 || s.L == nil {
		return
	}
	tbl := eventTable(s.L, ev)
	for _, fn := range fns {
		if err := s.call(fn, tbl); err != nil {
			s.log.Error("script handler failed",
				logger.String("event", string(ev.Kind())),
				logger.Error(err),
			)
		}
	}
}

func (s *Component) call(fn *lua.LFunction, arg lua.LValue) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, arg)
}

var _ core.Component = (*Component)(nil)
