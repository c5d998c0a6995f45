package clock

import (
	"fmt"
)

// Stepper is one of the bus-driven components (PPU, APU, or the bus's own
// timer) advanced in lockstep with the CPU. cycles is the number of
// T-cycles (machine cycles * 4) the CPU instruction just retired took.
type Stepper func(cycles int)

// Scheduler drives the single-threaded cooperative loop this core uses:
// the CPU retires exactly one instruction, reports how many T-cycles it
// took, and every other bus-borrowed component advances by that same
// quantum before the next instruction is fetched. There is no
// independent component cadence and nothing may suspend mid-step,
// matching original_source/Gameboi/EmulationController.h's
// emulate_instruction().
type Scheduler struct {
	TotalCycles uint64

	CPUStep func() (int, error)
	Steppers []Stepper
}

// NewScheduler creates a scheduler with no steppers wired; call AddStepper
// for each of the bus/PPU/APU before running.
func NewScheduler(cpuStep func() (int, error)) *Scheduler {
	return &Scheduler{CPUStep: cpuStep}
}

// AddStepper registers a component to advance after every CPU instruction.
func (s *Scheduler) AddStepper(step Stepper) {
	s.Steppers = append(s.Steppers, step)
}

// StepInstruction retires exactly one CPU instruction and advances every
// registered stepper by the cycles it took. Returns the cycle count.
func (s *Scheduler) StepInstruction() (int, error) {
	if s.CPUStep == nil {
		return 0, fmt.Errorf("scheduler: no CPU step function wired")
	}

	cycles, err := s.CPUStep()
	if err != nil {
		return 0, fmt.Errorf("CPU step error: %w", err)
	}

	for _, step := range s.Steppers {
		step(cycles)
	}

	s.TotalCycles += uint64(cycles)
	return cycles, nil
}

// StepScanline retires instructions until the PPU latches ScanlineOver,
// matching emulate_scanline()'s loop-then-reset shape.
func (s *Scheduler) StepScanline(scanlineOver func() bool, resetScanlineOver func()) error {
	for !scanlineOver() {
		if _, err := s.StepInstruction(); err != nil {
			return err
		}
	}
	resetScanlineOver()
	return nil
}

// StepFrame retires instructions until the PPU latches FrameOver,
// matching emulate_frame()'s loop-then-reset shape.
func (s *Scheduler) StepFrame(frameOver func() bool, resetFrameOver func()) error {
	for !frameOver() {
		if _, err := s.StepInstruction(); err != nil {
			return err
		}
	}
	resetFrameOver()
	return nil
}

// Reset zeroes the cumulative cycle counter.
func (s *Scheduler) Reset() {
	s.TotalCycles = 0
}
