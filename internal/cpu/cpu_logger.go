package cpu

import (
	"fmt"

	"nitro-core-dx/internal/debug"
)

// CPULogLevel controls how much detail CPULoggerAdapter forwards to the
// underlying debug.Logger.
type CPULogLevel int

const (
	CPULogNone CPULogLevel = iota
	CPULogErrors
	CPULogBranches
	CPULogRegisters
	CPULogInstructions
	CPULogTrace
)

var opcodeMnemonics = map[uint8]string{
	0x00: "NOP", 0x76: "HALT", 0x10: "STOP", 0xF3: "DI", 0xFB: "EI",
	0xC3: "JP", 0xC9: "RET", 0xD9: "RETI", 0xCD: "CALL", 0xCB: "PREFIX CB",
	0x07: "RLCA", 0x0F: "RRCA", 0x17: "RLA", 0x1F: "RRA",
	0x27: "DAA", 0x2F: "CPL", 0x37: "SCF", 0x3F: "CCF",
}

// CPULoggerAdapter adapts debug.Logger to internal/cpu.LoggerInterface,
// tracking the previous CPUState so CPULogRegisters can report whether
// any register changed since the last step.
type CPULoggerAdapter struct {
	logger    *debug.Logger
	level     CPULogLevel
	enabled   bool
	lastState CPUState
}

// NewCPULoggerAdapter creates an adapter forwarding to logger at the given
// detail level.
func NewCPULoggerAdapter(logger *debug.Logger, level CPULogLevel) *CPULoggerAdapter {
	return &CPULoggerAdapter{logger: logger, level: level, enabled: true}
}

// SetLevel changes the logging detail level.
func (a *CPULoggerAdapter) SetLevel(level CPULogLevel) {
	a.level = level
}

// SetEnabled enables or disables CPU logging entirely.
func (a *CPULoggerAdapter) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// LogCPU implements cpu.LoggerInterface.
func (a *CPULoggerAdapter) LogCPU(opcode uint8, state CPUState, cycles int) {
	if !a.enabled || a.logger == nil || a.level == CPULogNone {
		return
	}

	isBranch := isBranchOpcode(opcode)
	regChanged := a.detectRegisterChange(state)

	var logLevel debug.LogLevel
	switch a.level {
	case CPULogErrors:
		a.lastState = state
		return
	case CPULogBranches:
		if !isBranch {
			a.lastState = state
			return
		}
		logLevel = debug.LogLevelInfo
	case CPULogRegisters:
		if !isBranch && !regChanged {
			a.lastState = state
			return
		}
		logLevel = debug.LogLevelInfo
	case CPULogInstructions:
		logLevel = debug.LogLevelDebug
	default: // CPULogTrace
		logLevel = debug.LogLevelTrace
	}

	a.logger.LogCPU(logLevel, a.formatInstruction(opcode, state), a.stateData(state, cycles, regChanged))
	a.lastState = state
}

func isBranchOpcode(opcode uint8) bool {
	switch opcode {
	case 0xC3, 0xC2, 0xCA, 0xD2, 0xDA, // JP
		0x18, 0x20, 0x28, 0x30, 0x38, // JR
		0xCD, 0xC4, 0xCC, 0xD4, 0xDC, // CALL
		0xC9, 0xC0, 0xC8, 0xD0, 0xD8, 0xD9, // RET/RETI
		0xE9: // JP (HL)
		return true
	}
	return opcode >= 0xC7 && opcode&0xC7 == 0xC7 // RST xx
}

func (a *CPULoggerAdapter) formatInstruction(opcode uint8, state CPUState) string {
	name, ok := opcodeMnemonics[opcode]
	if !ok {
		name = fmt.Sprintf("0x%02X", opcode)
	}
	return fmt.Sprintf("%s @ PC:%04X", name, state.PC)
}

func (a *CPULoggerAdapter) stateData(state CPUState, cycles int, regChanged bool) map[string]interface{} {
	data := map[string]interface{}{
		"pc":     fmt.Sprintf("%04X", state.PC),
		"sp":     fmt.Sprintf("%04X", state.SP),
		"a":      state.A,
		"f":      fmt.Sprintf("%08b", state.F),
		"bc":     fmt.Sprintf("%02X%02X", state.B, state.C),
		"de":     fmt.Sprintf("%02X%02X", state.D, state.E),
		"hl":     fmt.Sprintf("%02X%02X", state.H, state.L),
		"ime":    state.IME,
		"halted": state.Halted,
		"cycles": cycles,
	}
	if regChanged {
		data["registers_changed"] = true
	}
	return data
}

func (a *CPULoggerAdapter) detectRegisterChange(state CPUState) bool {
	return state.A != a.lastState.A ||
		state.F != a.lastState.F ||
		state.B != a.lastState.B ||
		state.C != a.lastState.C ||
		state.D != a.lastState.D ||
		state.E != a.lastState.E ||
		state.H != a.lastState.H ||
		state.L != a.lastState.L ||
		state.SP != a.lastState.SP
}
