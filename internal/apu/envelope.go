package apu

// Envelope tracks a channel's volume-fade state: the initial volume and
// fade direction loaded from an NRx2 register, ticked once per envelope
// period (64 Hz quanta accumulated by APU.Step).
type Envelope struct {
	initialVolume uint8
	period        uint8
	incrementing  bool

	ticks          int
	currentVolume  int
	previousVolume int

	// Update is set whenever the scaled volume changes, so a caller can
	// react (a real device would re-push the channel's mixer gain).
	Update bool
}

// Reset reloads the envelope from an NRx2-shaped register byte: bits 7-4
// initial volume, bit 3 direction, bits 2-0 period. currentVolume is left
// untouched until the next Count tick, matching original_source's
// Envelope::reset (it never assigns current_volume).
func (e *Envelope) Reset(reg uint8) {
	e.initialVolume = (reg >> 4) & 0x0F
	e.period = reg & 0x07
	e.incrementing = reg&0x08 != 0
	e.ticks = 0
	e.Update = true
}

// Count advances the envelope by one period tick, clamping the running
// volume to 0..15 and capping ticks at 128 as the original implementation
// does (the counter has no effect on output beyond that point).
func (e *Envelope) Count() {
	if e.ticks >= 128 {
		return
	}
	e.ticks++
	e.currentVolume = e.volumeAt(e.ticks)
	if e.currentVolume != e.previousVolume {
		e.Update = true
	}
	e.previousVolume = e.currentVolume
}

func (e *Envelope) volumeAt(ticks int) int {
	if e.period == 0 {
		return int(e.initialVolume)
	}
	step := ticks / int(e.period)
	output := int(e.initialVolume)
	if e.incrementing {
		output += step
	} else {
		output -= step
	}
	if output > 0x0F {
		return 0x0F
	}
	if output < 0 {
		return 0
	}
	return output
}

// Volume returns the current 0..15 volume level.
func (e *Envelope) Volume() uint8 {
	return uint8(e.currentVolume)
}

// EnvelopeState is a flat snapshot of an Envelope's private counters, for
// save-states (gob only round-trips exported fields, so a plain struct
// copy across package boundaries would silently drop them).
type EnvelopeState struct {
	InitialVolume  uint8
	Period         uint8
	Incrementing   bool
	Ticks          int
	CurrentVolume  int
	PreviousVolume int
}

// SaveState captures this envelope's full counter state.
func (e *Envelope) SaveState() EnvelopeState {
	return EnvelopeState{
		InitialVolume: e.initialVolume, Period: e.period, Incrementing: e.incrementing,
		Ticks: e.ticks, CurrentVolume: e.currentVolume, PreviousVolume: e.previousVolume,
	}
}

// LoadState restores a previously captured snapshot.
func (e *Envelope) LoadState(s EnvelopeState) {
	e.initialVolume, e.period, e.incrementing = s.InitialVolume, s.Period, s.Incrementing
	e.ticks, e.currentVolume, e.previousVolume = s.Ticks, s.CurrentVolume, s.PreviousVolume
	e.Update = true
}
