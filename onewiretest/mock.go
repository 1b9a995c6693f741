package onewiretest

import "github.com/mklimuk/onewire"

// ResetBehaviorFunc defines the function signature for reset behavior.
// It returns the presence answer or an error.
type ResetBehaviorFunc func() (bool, error)

// TouchBitBehaviorFunc defines the function signature for bit slot
// behavior.
type TouchBitBehaviorFunc func(level bool) (bool, error)

// TouchByteBehaviorFunc defines the function signature for byte slot
// behavior.
type TouchByteBehaviorFunc func(b byte) (byte, error)

var _ onewire.Transport = &TransportMock{}

// TransportMock is a mock transport that uses behavior functions to
// produce results without requiring any hardware. Unlike Net it carries
// no protocol knowledge, which makes it the right tool for fault
// injection.
//
// Example usage:
//
//	tr := NewTransportMock(
//		func() (bool, error) { return false, nil },
//		nil, nil,
//	)
type TransportMock struct {
	resetBehavior ResetBehaviorFunc
	bitBehavior   TouchBitBehaviorFunc
	byteBehavior  TouchByteBehaviorFunc
}

// NewTransportMock creates a new mock transport with the given behavior
// functions. Nil behaviors fall back to an idle bus: no presence, slots
// echo back.
func NewTransportMock(reset ResetBehaviorFunc, bit TouchBitBehaviorFunc, touch TouchByteBehaviorFunc) *TransportMock {
	return &TransportMock{resetBehavior: reset, bitBehavior: bit, byteBehavior: touch}
}

// Reset answers with the reset behavior function.
func (m *TransportMock) Reset() (bool, error) {
	if m.resetBehavior == nil {
		return false, nil
	}
	return m.resetBehavior()
}

// TouchBit answers with the bit behavior function.
func (m *TransportMock) TouchBit(level bool) (bool, error) {
	if m.bitBehavior == nil {
		return level, nil
	}
	return m.bitBehavior(level)
}

// TouchByte answers with the byte behavior function.
func (m *TransportMock) TouchByte(b byte) (byte, error) {
	if m.byteBehavior == nil {
		return b, nil
	}
	return m.byteBehavior(b)
}
