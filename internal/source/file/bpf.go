package file

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/bpf"

	"nprint.dev/nprint/internal/core"
)

// Filter is a compiled classic-BPF program run against raw frames.
type Filter struct {
	vm *bpf.VM
}

// CompileFilter parses a program in tcpdump -ddd form: one instruction per
// line (or comma-separated), each "opcode jt jf k" in decimal. An optional
// leading line holding only the instruction count is accepted and ignored.
func CompileFilter(program string) (*Filter, error) {
	raw, err := parseProgram(program)
	if err != nil {
		return nil, err
	}

	insns, allDecoded := bpf.Disassemble(raw)
	if !allDecoded {
		return nil, fmt.Errorf("%w: bpf program contains unknown opcodes", core.ErrConfigInvalid)
	}

	vm, err := bpf.NewVM(insns)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bpf program: %v", core.ErrConfigInvalid, err)
	}
	return &Filter{vm: vm}, nil
}

// Match reports whether the frame passes the filter.
func (f *Filter) Match(data []byte) bool {
	n, err := f.vm.Run(data)
	return err == nil && n > 0
}

func parseProgram(program string) ([]bpf.RawInstruction, error) {
	lines := strings.FieldsFunc(program, func(r rune) bool {
		return r == '\n' || r == ','
	})

	var raw []bpf.RawInstruction
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if i == 0 && len(fields) == 1 {
			// tcpdump -ddd emits the instruction count first.
			continue
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: bpf instruction %q wants 4 fields", core.ErrConfigInvalid, line)
		}

		vals := make([]uint64, 4)
		for j, bits := range []int{16, 8, 8, 32} {
			v, err := strconv.ParseUint(fields[j], 10, bits)
			if err != nil {
				return nil, fmt.Errorf("%w: bpf instruction %q: %v", core.ErrConfigInvalid, line, err)
			}
			vals[j] = v
		}
		raw = append(raw, bpf.RawInstruction{
			Op: uint16(vals[0]),
			Jt: uint8(vals[1]),
			Jf: uint8(vals[2]),
			K:  uint32(vals[3]),
		})
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty bpf program", core.ErrConfigInvalid)
	}
	return raw, nil
}
