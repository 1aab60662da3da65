// Package irload reads SSA and machine IR fixtures written in YAML.
//
// An SSA module lists functions, blocks and instructions. Values are
// written as "%name" for the result of an earlier instruction, "$N" for
// parameter N, or an integer literal:
//
//	module: demo
//	functions:
//	  - name: square
//	    params: [i32]
//	    ret: i32
//	    blocks:
//	      - name: entry
//	        insts:
//	          - {def: a, op: alloca, type: i32}
//	          - {op: store, args: ["$0", "%a"]}
//	          - {def: x, op: load, type: i32, args: ["%a"]}
//	          - {def: y, op: mul, type: i32, args: ["%x", "%x"]}
//	          - {op: ret, args: ["%y"]}
//
// A machine function declares its virtual registers by type (v1, v2, ...
// in order) and uses target or pseudo opcode names:
//
//	name: f
//	regs: [i32, i32]
//	frame: [i64]
//	blocks:
//	  - name: entry
//	    instrs:
//	      - {op: MOVri32, defs: [v1], args: ["$5"]}
//	      - {op: ADDri32, defs: [v2], args: [v1, "$1"]}
//	      - {op: ret.marker, args: [v2]}
//
// Machine operands are "vN", "$N", "[fi#N]", "@symbol", "bb:name" or a
// physical register name such as "eax".
package irload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSyntax is wrapped by every error describing a malformed fixture
var ErrSyntax = errors.New("irload: syntax error")

func syntaxErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}

func decode(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 0, 64)
}

// Kind is the kind of fixture a document holds
type Kind int

const (
	KindModule  Kind = iota // SSA module: top-level "functions"
	KindMachine             // machine function: top-level "blocks"
)

func (k Kind) String() string {
	if k == KindMachine {
		return "machine"
	}
	return "module"
}

// Detect reports which loader a fixture is meant for
func Detect(data []byte) (Kind, error) {
	var top map[string]yaml.Node
	if err := decode(data, &top); err != nil {
		return 0, err
	}
	if _, ok := top["functions"]; ok {
		return KindModule, nil
	}
	if _, ok := top["blocks"]; ok {
		return KindMachine, nil
	}
	return 0, syntaxErr("fixture has neither functions nor blocks")
}
