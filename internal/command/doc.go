// Package command parses user input lines into typed commands.
//
// Commands are declared with a Spec: a name, ordered typed parameters and
// either a handler or child commands. A Registry resolves the first tokens of
// a line through the command tree, converts the remaining tokens against the
// parameters and returns a Command or a *ParseError describing the offending
// token and what was expected.
//
//	reg := command.NewRegistry[*core.Core]()
//	reg.Define(&command.Spec[*core.Core]{
//	    Name: "join",
//	    Params: []command.Param{
//	        {Name: "room", Type: command.TypeAddress, Kind: command.Required},
//	    },
//	    Handler: join,
//	})
//	err := reg.Execute(c, "/join room@conference.example/nick")
//
// The registry is generic over the value handed to handlers so that it does
// not depend on the core package.
package command
