package apu

import "testing"

func TestTriggerBitClearedInStorageButReadsBackSet(t *testing.T) {
	a := NewAPU()
	a.regs[regNR52] = 0x80 // master enable, so refreshChannels doesn't mute

	a.Write8(0xFF14, 0x87) // trigger + freq-hi bits

	if a.regs[regNR14]&0x80 != 0 {
		t.Errorf("trigger bit not cleared in stored register")
	}
	if !a.square1Playing {
		t.Errorf("square1Playing not set after trigger")
	}
	if got := a.Read8(0xFF14); got&0x80 == 0 {
		t.Errorf("Read8(NR14) = 0x%02X, want bit 7 set on readback regardless of stored value", got)
	}
}

func TestEnvelopeWrittenResetsOnlyTargetChannel(t *testing.T) {
	a := NewAPU()
	a.Write8(0xFF12, 0x80) // square1 envelope: vol 8, period 0 (volume fixed at initial)
	a.EnvelopeWritten(0xFF12)
	a.Square1Env.Count() // reset leaves currentVolume stale; one tick settles it

	if a.Square1Env.Volume() != 8 {
		t.Errorf("Square1Env.Volume() = %d, want 8", a.Square1Env.Volume())
	}
	if a.Square2Env.Volume() != 0 {
		t.Errorf("Square2Env.Volume() = %d, want 0 (untouched)", a.Square2Env.Volume())
	}

	a.Write8(0xFF21, 0x70) // noise envelope: vol 7, period 0
	a.EnvelopeWritten(0xFF21)
	a.NoiseEnv.Count()
	if a.NoiseEnv.Volume() != 7 {
		t.Errorf("NoiseEnv.Volume() = %d, want 7", a.NoiseEnv.Volume())
	}
}

func TestEnvelopeCountsDownAfterDecrementingTrigger(t *testing.T) {
	a := NewAPU()
	a.regs[regNR52] = 0x80
	a.Write8(0xFF12, 0x83) // vol 8, decrement, period 3
	a.EnvelopeWritten(0xFF12)
	a.Write8(0xFF14, 0x80) // trigger square1

	a.Step(65536 * 9) // nine 64 Hz ticks = 3 full period-3 steps

	if got := a.Square1Env.Volume(); got != 5 {
		t.Errorf("Square1Env.Volume() after 9 ticks = %d, want 5 (8 - 9/3)", got)
	}
}

func TestWaveLengthCounterLivesInNR31(t *testing.T) {
	a := NewAPU()
	a.regs[regNR52] = 0x80
	a.Write8(0xFF1A, 0x80) // DAC enable
	a.Write8(0xFF1B, 0x02) // length = 2
	a.Write8(0xFF1E, 0xC0) // trigger, length-enable

	a.Step(16384) // one 256 Hz length tick

	if a.regs[regNR31] != 1 {
		t.Errorf("NR31 = %d, want 1 (decremented in place)", a.regs[regNR31])
	}
	if a.regs[regNR21] != 0 {
		t.Errorf("NR21 = 0x%02X, want untouched by the wave channel's length counter", a.regs[regNR21])
	}
}

func TestLengthCounterDisablesChannelAtZero(t *testing.T) {
	a := NewAPU()
	a.regs[regNR52] = 0x80
	a.regs[regNR11] = 1 // length = 1 tick remaining
	a.Write8(0xFF14, 0xC0) // trigger, length-enable

	if !a.square1Playing {
		t.Fatalf("square1Playing not set after trigger")
	}

	a.Step(16384) // length hits 0, should disable

	if a.square1Playing {
		t.Errorf("square1Playing still true after length counter reached 0")
	}
}

func TestMasterDisableSilencesAllChannels(t *testing.T) {
	a := NewAPU()
	a.regs[regNR52] = 0x80
	a.Write8(0xFF14, 0x80)
	a.Write8(0xFF19, 0x80)

	a.Write8(0xFF26, 0x00) // clear master enable

	if a.square1Playing || a.square2Playing {
		t.Errorf("channels still playing after NR52 master disable")
	}
}
