package apu

// Register offsets within the FF10-FF3F sound register block.
const (
	regNR10 = 0x00 // FF10 square1 sweep
	regNR11 = 0x01 // FF11 square1 duty/length
	regNR12 = 0x02 // FF12 square1 envelope
	regNR13 = 0x03 // FF13 square1 freq lo
	regNR14 = 0x04 // FF14 square1 freq hi/trigger

	regNR21 = 0x06 // FF16 square2 duty/length
	regNR22 = 0x07 // FF17 square2 envelope
	regNR23 = 0x08 // FF18 square2 freq lo
	regNR24 = 0x09 // FF19 square2 freq hi/trigger

	regNR30 = 0x0A // FF1A wave DAC enable
	regNR31 = 0x0B // FF1B wave length
	regNR32 = 0x0C // FF1C wave volume shift
	regNR33 = 0x0D // FF1D wave freq lo
	regNR34 = 0x0E // FF1E wave freq hi/trigger

	regNR41 = 0x10 // FF20 noise length
	regNR42 = 0x11 // FF21 noise envelope
	regNR43 = 0x12 // FF22 noise freq/poly counter
	regNR44 = 0x13 // FF23 noise trigger

	regNR50 = 0x14 // FF24 master volume/vin
	regNR51 = 0x15 // FF25 channel panning
	regNR52 = 0x16 // FF26 power control

	waveRAMStart = 0x20 // FF30-FF3F, 16 bytes of packed 4-bit samples
	regsSize     = 0x30
)

const (
	ChannelSquare1 = 0
	ChannelSquare2 = 1
	ChannelWave    = 2
	ChannelNoise   = 3
)

// waveShiftVolume maps NR32 bits 6-5 to a 0..15 equivalent shade, matching
// the {0, 100, 50, 25} percentage table from original_source scaled to the
// 0-15 range the other three channels report.
var waveShiftVolume = [4]uint8{0, 15, 7, 3}

// APU models the DMG's four-channel sound generator register file plus
// the envelope and length-counter bookkeeping the spec requires; it does
// not synthesize or play audio (no audio device in scope). Implements
// memory.IOHandler.
type APU struct {
	regs [regsSize]uint8

	Square1Env Envelope
	Square2Env Envelope
	NoiseEnv   Envelope

	square1Playing bool
	square2Playing bool
	wavePlaying    bool
	noisePlaying   bool

	cyclesSinceLength   int
	cyclesSinceEnvelope int
}

// NewAPU creates an APU with NR52 set to the documented DMG power-up
// value (see internal/memory.Bus.Reset, which writes this same byte).
func NewAPU() *APU {
	a := &APU{}
	a.regs[regNR52] = 0xF1
	return a
}

// Read8 reads a sound register or a wave-RAM byte.
func (a *APU) Read8(addr uint16) uint8 {
	offset := addr - 0xFF10
	if int(offset) >= regsSize {
		return 0xFF
	}
	switch offset {
	case regNR14, regNR24, regNR34, regNR44:
		return a.regs[offset] | 0xBF // trigger bit always reads back set
	default:
		return a.regs[offset]
	}
}

// Write8 writes a sound register or a wave-RAM byte, handling the
// trigger-bit (bit 7 of NRx4) side effect inline.
func (a *APU) Write8(addr uint16, value uint8) {
	offset := addr - 0xFF10
	if int(offset) >= regsSize {
		return
	}
	a.regs[offset] = value

	switch offset {
	case regNR14:
		if value&0x80 != 0 {
			a.regs[offset] &^= 0x80
			a.square1Playing = true
		}
	case regNR24:
		if value&0x80 != 0 {
			a.regs[offset] &^= 0x80
			a.square2Playing = true
		}
	case regNR34:
		if value&0x80 != 0 {
			a.regs[offset] &^= 0x80
			a.wavePlaying = true
		}
	case regNR44:
		if value&0x80 != 0 {
			a.regs[offset] &^= 0x80
			a.noisePlaying = true
		}
	}

	a.refreshChannels()
}

// EnvelopeWritten reloads the envelope belonging to whichever NRx2
// register the bus forwarded this call for (FF12/FF17/FF21). The bus
// decides which writes qualify; see memory.Bus.noteEnvelopeTrigger.
func (a *APU) EnvelopeWritten(addr uint16) {
	switch addr {
	case 0xFF12:
		a.Square1Env.Reset(a.regs[regNR12])
	case 0xFF17:
		a.Square2Env.Reset(a.regs[regNR22])
	case 0xFF21:
		a.NoiseEnv.Reset(a.regs[regNR42])
	}
}

// refreshChannels re-derives each channel's playing flag from its length
// counter and length-enable bit, matching update_square_channels'/
// update_noise_channel's disable check in original_source.
func (a *APU) refreshChannels() {
	if a.regs[regNR52]&0x80 == 0 {
		a.square1Playing = false
		a.square2Playing = false
		a.wavePlaying = false
		a.noisePlaying = false
		return
	}

	if a.regs[regNR11]&0x3F == 0 && a.regs[regNR14]&0x40 != 0 {
		a.square1Playing = false
	}
	if a.regs[regNR21]&0x3F == 0 && a.regs[regNR24]&0x40 != 0 {
		a.square2Playing = false
	}
	if a.regs[regNR31] == 0 && a.regs[regNR34]&0x40 != 0 {
		a.wavePlaying = false
	}
	if a.regs[regNR30]&0x80 == 0 {
		a.wavePlaying = false
	}
	if a.regs[regNR41]&0x3F == 0 && a.regs[regNR44]&0x40 != 0 {
		a.noisePlaying = false
	}
}

// Step advances the envelope and length-counter timers by elapsed T-cycles,
// decrementing length counters every 16384 cycles (256 Hz) and ticking
// envelopes every 65536 cycles (64 Hz).
func (a *APU) Step(cycles int) {
	a.cyclesSinceLength += cycles
	for a.cyclesSinceLength >= 16384 {
		a.decrementLengthCounters()
		a.cyclesSinceLength -= 16384
	}

	a.cyclesSinceEnvelope += cycles
	for a.cyclesSinceEnvelope >= 65536 {
		a.updateEnvelopes()
		a.cyclesSinceEnvelope -= 65536
	}
}

// decrementLengthCounters ticks all four length counters down by one and
// disables a channel once its counter (combined with its length-enable
// bit) reaches zero. The wave channel's counter lives in NR31 itself,
// unlike original_source's decrement_length_counters, which computes the
// new value from NR31 but writes it back into NR21 (square2's length
// register) instead; see DESIGN.md.
func (a *APU) decrementLengthCounters() {
	if length := a.regs[regNR11] & 0x3F; length > 0 {
		a.regs[regNR11] = (a.regs[regNR11] &^ 0x3F) | (length - 1)
	}
	if length := a.regs[regNR21] & 0x3F; length > 0 {
		a.regs[regNR21] = (a.regs[regNR21] &^ 0x3F) | (length - 1)
	}
	if a.regs[regNR31] > 0 {
		a.regs[regNR31]--
	}
	if length := a.regs[regNR41] & 0x3F; length > 0 {
		a.regs[regNR41] = (a.regs[regNR41] &^ 0x3F) | (length - 1)
	}
	a.refreshChannels()
}

func (a *APU) updateEnvelopes() {
	if a.square1Playing {
		a.Square1Env.Count()
	}
	if a.square2Playing {
		a.Square2Env.Count()
	}
	if a.noisePlaying {
		a.NoiseEnv.Count()
	}
}

// GetChannelState satisfies debug.APUStateReader: playing flag, the raw
// frequency/period field, a 0..15 volume, and a duty-or-mode selector
// whose meaning depends on the channel (duty cycle for the squares, the
// volume-shift index for wave, LFSR width for noise).
func (a *APU) GetChannelState(channel int) (playing bool, frequency uint16, volume uint8, dutyOrMode uint8) {
	switch channel {
	case ChannelSquare1:
		freq := uint16(a.regs[regNR14]&0x07)<<8 | uint16(a.regs[regNR13])
		return a.square1Playing, freq, a.Square1Env.Volume(), a.regs[regNR11] >> 6
	case ChannelSquare2:
		freq := uint16(a.regs[regNR24]&0x07)<<8 | uint16(a.regs[regNR23])
		return a.square2Playing, freq, a.Square2Env.Volume(), a.regs[regNR21] >> 6
	case ChannelWave:
		freq := uint16(a.regs[regNR34]&0x07)<<8 | uint16(a.regs[regNR33])
		shift := (a.regs[regNR32] >> 5) & 0x03
		return a.wavePlaying, freq, waveShiftVolume[shift], shift
	case ChannelNoise:
		mode := (a.regs[regNR43] >> 3) & 0x01 // NR43 bit 3: 1 = 7-bit LFSR width
		return a.noisePlaying, uint16(a.regs[regNR43]), a.NoiseEnv.Volume(), mode
	default:
		return false, 0, 0, 0
	}
}

// GetMasterEnable reports NR52 bit 7, satisfying debug.APUStateReader.
func (a *APU) GetMasterEnable() bool {
	return a.regs[regNR52]&0x80 != 0
}

// State is a flat snapshot of the entire APU, for save-states.
type State struct {
	Regs [regsSize]uint8

	Square1Env EnvelopeState
	Square2Env EnvelopeState
	NoiseEnv   EnvelopeState

	Square1Playing bool
	Square2Playing bool
	WavePlaying    bool
	NoisePlaying   bool

	CyclesSinceLength   int
	CyclesSinceEnvelope int
}

// SaveState captures the complete APU state for serialization.
func (a *APU) SaveState() State {
	return State{
		Regs:                a.regs,
		Square1Env:          a.Square1Env.SaveState(),
		Square2Env:          a.Square2Env.SaveState(),
		NoiseEnv:            a.NoiseEnv.SaveState(),
		Square1Playing:      a.square1Playing,
		Square2Playing:      a.square2Playing,
		WavePlaying:         a.wavePlaying,
		NoisePlaying:        a.noisePlaying,
		CyclesSinceLength:   a.cyclesSinceLength,
		CyclesSinceEnvelope: a.cyclesSinceEnvelope,
	}
}

// LoadState restores a previously captured snapshot.
func (a *APU) LoadState(s State) {
	a.regs = s.Regs
	a.Square1Env.LoadState(s.Square1Env)
	a.Square2Env.LoadState(s.Square2Env)
	a.NoiseEnv.LoadState(s.NoiseEnv)
	a.square1Playing = s.Square1Playing
	a.square2Playing = s.Square2Playing
	a.wavePlaying = s.WavePlaying
	a.noisePlaying = s.NoisePlaying
	a.cyclesSinceLength = s.CyclesSinceLength
	a.cyclesSinceEnvelope = s.CyclesSinceEnvelope
}
