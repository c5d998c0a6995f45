package input

// Button bit positions within the two P1 nibble groups.
const (
	ButtonRight  = 0
	ButtonLeft   = 1
	ButtonUp     = 2
	ButtonDown   = 3
	ButtonA      = 0
	ButtonB      = 1
	ButtonSelect = 2
	ButtonStart  = 3
)

// InputSystem is the DMG's direct-read joypad register (P1/FF00): bits
// 4-5 select which button group is visible, bits 0-3 read back the group
// state with 0 meaning pressed. There is no latch; the CPU always sees
// the current state of whichever group is selected. Implements
// memory.IOHandler.
type InputSystem struct {
	selectBits uint8 // raw bits 4-5 of the last P1 write

	directionKeys uint8 // bit per Button{Right,Left,Up,Down}, 1 = pressed
	actionKeys    uint8 // bit per Button{A,B,Select,Start}, 1 = pressed
}

// NewInputSystem creates an input system with nothing pressed and no
// group selected, so P1 reads 0xFF until the CPU selects a group.
func NewInputSystem() *InputSystem {
	return &InputSystem{selectBits: 0x30}
}

// Read8 returns the P1 register, composing the select bits the CPU wrote
// with whichever button group they select. original_source's P1()
// returns the raw register contents unselected if neither group bit is
// clear; this mirrors that exactly.
func (i *InputSystem) Read8(addr uint16) uint8 {
	if addr != 0xFF00 {
		return 0xFF
	}

	if i.selectBits&0x10 == 0 {
		return i.selectBits | 0xC0 | (^i.directionKeys & 0x0F)
	}
	if i.selectBits&0x20 == 0 {
		return i.selectBits | 0xC0 | (^i.actionKeys & 0x0F)
	}
	return i.selectBits | 0xCF
}

// Write8 updates the group-select bits (4-5); bits 0-3 are read-only from
// the CPU's perspective.
func (i *InputSystem) Write8(addr uint16, value uint8) {
	if addr != 0xFF00 {
		return
	}
	i.selectBits = value & 0x30
}

// SetButton updates one direction-pad button's pressed state.
func (i *InputSystem) SetButton(button uint8, pressed bool) {
	i.directionKeys = setBit(i.directionKeys, button, pressed)
}

// SetAction updates one action button (A/B/Select/Start)'s pressed state.
func (i *InputSystem) SetAction(button uint8, pressed bool) {
	i.actionKeys = setBit(i.actionKeys, button, pressed)
}

func setBit(bits uint8, position uint8, set bool) uint8 {
	if set {
		return bits | (1 << position)
	}
	return bits &^ (1 << position)
}

// State is a flat snapshot of the joypad's latched button state, for
// save-states.
type State struct {
	SelectBits    uint8
	DirectionKeys uint8
	ActionKeys    uint8
}

// SaveState captures the current button/select state.
func (i *InputSystem) SaveState() State {
	return State{SelectBits: i.selectBits, DirectionKeys: i.directionKeys, ActionKeys: i.actionKeys}
}

// LoadState restores a previously captured snapshot.
func (i *InputSystem) LoadState(s State) {
	i.selectBits, i.directionKeys, i.actionKeys = s.SelectBits, s.DirectionKeys, s.ActionKeys
}
