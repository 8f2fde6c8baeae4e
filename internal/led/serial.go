package led

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/coreman2200/funtimes-ledcloud/internal/ledserial"
)

// Serial streams frames to a microcontroller bridge using the ledserial
// protocol.
type Serial struct {
	mu    sync.Mutex
	port  io.WriteCloser
	order Order
	count int
	wire  []byte
}

// OpenSerial opens the device (usually /dev/ttyUSB0 or /dev/ttyACM0) and
// announces the strip length.
func OpenSerial(device string, baud, count int, order Order) (*Serial, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", device)
	}
	s, err := NewSerial(port, count, order)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// NewSerial wraps an open port and sends the hello packet.
func NewSerial(port io.WriteCloser, count int, order Order) (*Serial, error) {
	if count <= 0 || count > 0xFFFF {
		return nil, errors.Errorf("invalid LED count: %d", count)
	}
	if err := ledserial.Write(port, ledserial.HelloPacket{NumLEDs: uint16(count)}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize bridge")
	}
	return &Serial{
		port:  port,
		order: order,
		count: count,
		wire:  make([]byte, count*3),
	}, nil
}

func (s *Serial) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return errors.New("serial closed")
	}
	if err := checkLen(rgb, s.count); err != nil {
		return err
	}
	s.order.Reorder(s.wire, rgb)
	return ledserial.Write(s.port, ledserial.FramePacket{Pix: s.wire})
}

// Close blanks the strip and closes the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := ledserial.Write(s.port, ledserial.ClearPacket{})
	if cerr := s.port.Close(); err == nil {
		err = cerr
	}
	s.port = nil
	return err
}
