package script

import (
	lua "github.com/yuin/gopher-lua"
)

// newState returns a Lua state with only the base, table, string and math
// libraries. Nothing in it can reach the file system or spawn processes.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// The base library still loads code from disk or strings.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
