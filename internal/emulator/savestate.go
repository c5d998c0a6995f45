package emulator

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"nitro-core-dx/internal/apu"
	"nitro-core-dx/internal/cpu"
	"nitro-core-dx/internal/input"
	"nitro-core-dx/internal/memory"
	"nitro-core-dx/internal/ppu"
)

// saveStateVersion guards against loading a snapshot produced by an
// incompatible build; bump whenever a component's State shape changes.
const saveStateVersion uint16 = 1

// SaveState is an emulator snapshot of the CPU registers, bus, PPU, APU
// and joypad state. The cartridge is not part of it: neither the ROM
// (read-only, re-supplied by the host from the same image), nor the
// MBC's bank-select and RAM-enable registers, nor external RAM (the
// battery-backed kind is persisted separately via Emulator.SaveBattery/
// LoadBattery). The CPU's pending-EI latch is unexported, so gob does
// not carry it either.
type SaveState struct {
	Version uint16

	CPUState   cpu.CPUState
	BusState   memory.State
	PPUState   ppu.State
	APUState   apu.State
	InputState input.State

	Running bool
	Paused  bool
}

// SaveState serializes the current emulator snapshot with gob, matching
// the teacher's save-state encoding idiom.
func (e *Emulator) SaveState() ([]byte, error) {
	state := SaveState{
		Version:    saveStateVersion,
		CPUState:   e.CPU.State,
		BusState:   e.Bus.SaveState(),
		PPUState:   e.PPU.SaveState(),
		APUState:   e.APU.SaveState(),
		InputState: e.Input.SaveState(),
		Running:    e.Running,
		Paused:     e.Paused,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode save state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadState restores a snapshot produced by SaveState.
func (e *Emulator) LoadState(data []byte) error {
	var state SaveState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode save state: %w", err)
	}
	if state.Version != saveStateVersion {
		return fmt.Errorf("unsupported save state version: %d (expected %d)", state.Version, saveStateVersion)
	}

	e.CPU.State = state.CPUState
	e.Bus.LoadState(state.BusState)
	e.PPU.LoadState(state.PPUState)
	e.APU.LoadState(state.APUState)
	e.Input.LoadState(state.InputState)
	e.Running = state.Running
	e.Paused = state.Paused

	return nil
}

// SaveStateToFile serializes the current snapshot and writes it to filename.
func (e *Emulator) SaveStateToFile(filename string) error {
	data, err := e.SaveState()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write save state file: %w", err)
	}
	return nil
}

// LoadStateFromFile reads filename and restores it via LoadState.
func (e *Emulator) LoadStateFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read save state file: %w", err)
	}
	return e.LoadState(data)
}
