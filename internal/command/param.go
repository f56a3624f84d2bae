package command

import (
	"fmt"
	"strconv"
	"strings"

	"mellium.im/xmpp/jid"
)

// ParamType defines the type of a command parameter.
type ParamType uint8

const (
	// TypeString is a free-form string.
	TypeString ParamType = iota

	// TypeBool is a boolean written on|off (true|false, yes|no, 1|0 accepted).
	TypeBool

	// TypeAddress is a bare or full protocol address.
	TypeAddress

	// TypeInt is a base 10 integer.
	TypeInt
)

// String returns the name of the type as shown in usage messages.
func (t ParamType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "on|off"
	case TypeAddress:
		return "address"
	case TypeInt:
		return "integer"
	default:
		return "unknown"
	}
}

// ParamKind defines how a parameter appears on the command line.
type ParamKind uint8

const (
	// Required is a positional parameter that must be present.
	Required ParamKind = iota

	// Optional is a positional parameter that may be omitted. Optional
	// parameters follow all required ones.
	Optional

	// Keyword is a name=value token accepted anywhere after the command name.
	Keyword
)

// Param describes one command parameter.
type Param struct {
	// Name identifies the parameter in the parsed command.
	Name string

	// Type is the value type tokens are converted to.
	Type ParamType

	// Kind is how the parameter is written.
	Kind ParamKind

	// Default is used when an optional or keyword parameter is absent.
	// Nil means the parameter is simply missing from the parsed command.
	Default any

	// Doc describes the parameter.
	Doc string
}

// convert turns a raw token into a typed value.
func (p *Param) convert(token string) (any, error) {
	switch p.Type {
	case TypeString:
		return token, nil
	case TypeBool:
		return parseBool(token)
	case TypeAddress:
		addr, err := jid.Parse(token)
		if err != nil {
			return nil, err
		}
		return addr, nil
	case TypeInt:
		return strconv.Atoi(token)
	default:
		return nil, fmt.Errorf("parameter %q has unknown type %d", p.Name, p.Type)
	}
}

// usage renders the parameter the way it is written in a usage line.
func (p *Param) usage() string {
	switch p.Kind {
	case Required:
		return "<" + p.Name + ">"
	case Optional:
		return "[<" + p.Name + ">]"
	default:
		return "[" + p.Name + "=" + p.Type.String() + "]"
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
