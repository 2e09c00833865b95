// Package filter compiles tcpdump-style capture filter expressions into
// BPF programs without cgo. Live libpcap sessions compile natively and do
// not go through this package; it serves replay sessions, AF_PACKET
// sessions and up-front expression validation.
package filter

import (
	"fmt"

	pcapfilter "github.com/packetcap/go-pcap/filter"
	"golang.org/x/net/bpf"
)

// Compile compiles expr into BPF instructions.
func Compile(expr string) ([]bpf.Instruction, error) {
	e := pcapfilter.NewExpression(expr)
	insts, err := e.Compile().Compile()
	if err != nil {
		return nil, fmt.Errorf("filter: compiling %q: %w", expr, err)
	}
	return insts, nil
}

// CompileRaw compiles and assembles expr into raw instructions suitable
// for attaching to a kernel socket.
func CompileRaw(expr string) ([]bpf.RawInstruction, error) {
	insts, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	raw, err := bpf.Assemble(insts)
	if err != nil {
		return nil, fmt.Errorf("filter: assembling %q: %w", expr, err)
	}
	return raw, nil
}

// NewVM compiles expr into a user-space BPF virtual machine, used to
// filter records in software where the backend cannot filter natively.
func NewVM(expr string) (*bpf.VM, error) {
	insts, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	vm, err := bpf.NewVM(insts)
	if err != nil {
		return nil, fmt.Errorf("filter: building VM for %q: %w", expr, err)
	}
	return vm, nil
}

// Validate reports whether expr is a well-formed filter expression.
func Validate(expr string) error {
	_, err := Compile(expr)
	return err
}
