package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDigitalPort is a mock gobot adaptor using testify/mock.
type MockDigitalPort struct {
	mock.Mock
}

func (m *MockDigitalPort) DigitalRead(id string) (int, error) {
	args := m.Called(id)
	return args.Int(0), args.Error(1)
}

func (m *MockDigitalPort) DigitalWrite(id string, v byte) error {
	args := m.Called(id, v)
	return args.Error(0)
}

func TestGobotPin_Levels(t *testing.T) {
	conn := new(MockDigitalPort)
	// Construction releases the line, which on gobot is a read.
	conn.On("DigitalRead", "7").Return(1, nil).Once()

	p := NewGobotPin(conn, "7")
	require.NoError(t, p.Err())

	conn.On("DigitalWrite", "7", byte(0)).Return(nil).Once()
	p.DriveLow()

	conn.On("DigitalWrite", "7", byte(1)).Return(nil).Once()
	p.DriveHigh()

	conn.On("DigitalRead", "7").Return(1, nil).Once()
	assert.True(t, p.Read())

	conn.On("DigitalRead", "7").Return(0, nil).Once()
	assert.False(t, p.Read())

	conn.On("DigitalWrite", "7", byte(1)).Return(nil).Once()
	p.Output(true)

	conn.On("DigitalRead", "7").Return(1, nil).Once()
	p.Release()

	require.NoError(t, p.Err())
	conn.AssertExpectations(t)
}

func TestGobotPin_StickyErr(t *testing.T) {
	conn := new(MockDigitalPort)
	conn.On("DigitalRead", "12").Return(1, nil).Once()
	p := NewGobotPin(conn, "12")

	first := errors.New("pin export failed")
	conn.On("DigitalWrite", "12", byte(0)).Return(first).Once()
	p.DriveLow()

	err := p.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, first))
	assert.Contains(t, err.Error(), "gobot pin 12")

	// A read failure afterwards reports low and keeps the first error.
	conn.On("DigitalRead", "12").Return(0, errors.New("gone")).Once()
	assert.False(t, p.Read())
	assert.Equal(t, err, p.Err())

	conn.AssertExpectations(t)
}
