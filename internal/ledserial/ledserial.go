// Package ledserial implements the framed protocol spoken to a
// microcontroller bridge that drives the strip over a serial line.
//
// Every packet is a type byte, the payload, then a little-endian CRC32
// (IEEE) of type and payload.
package ledserial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

var ErrChecksum = errors.New("packet checksum mismatch")

// PacketType identifies a packet on the wire.
type PacketType uint8

const (
	TypeHello PacketType = iota
	TypeClear
	TypeFrame
)

func (t PacketType) String() string {
	switch t {
	case TypeHello:
		return "hello"
	case TypeClear:
		return "clear"
	case TypeFrame:
		return "frame"
	default:
		return fmt.Sprintf("PacketType(%d)", t)
	}
}

// Packet is a host-to-bridge packet.
type Packet interface {
	Type() PacketType
}

// HelloPacket announces the strip length. It must precede any frame.
type HelloPacket struct {
	NumLEDs uint16
}

// ClearPacket blanks the strip.
type ClearPacket struct{}

// FramePacket carries 3 bytes per LED, already in the strip's wire order.
type FramePacket struct {
	Pix []byte
}

func (HelloPacket) Type() PacketType { return TypeHello }
func (ClearPacket) Type() PacketType { return TypeClear }
func (FramePacket) Type() PacketType { return TypeFrame }

// ReadContext carries what the reader needs to size variable payloads.
type ReadContext struct {
	NumLEDs uint16
}

// Write encodes p to w.
func Write(w io.Writer, p Packet) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if _, err := mw.Write([]byte{byte(p.Type())}); err != nil {
		return errors.Wrap(err, "failed to write packet type")
	}

	switch p := p.(type) {
	case HelloPacket:
		if err := binary.Write(mw, Endianness, p.NumLEDs); err != nil {
			return errors.Wrap(err, "failed to write hello")
		}
	case ClearPacket:
	case FramePacket:
		if _, err := mw.Write(p.Pix); err != nil {
			return errors.Wrap(err, "failed to write frame")
		}
	default:
		return errors.Errorf("unknown packet type: %T", p)
	}

	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return errors.Wrap(err, "failed to write packet checksum")
	}
	return nil
}

// Read decodes one packet from r.
func Read(r io.Reader, rc ReadContext) (Packet, error) {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var typ [1]byte
	if _, err := io.ReadFull(tr, typ[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read packet type")
	}

	var p Packet
	switch t := PacketType(typ[0]); t {
	case TypeHello:
		var h HelloPacket
		if err := binary.Read(tr, Endianness, &h.NumLEDs); err != nil {
			return nil, errors.Wrap(err, "failed to read hello")
		}
		p = h
	case TypeClear:
		p = ClearPacket{}
	case TypeFrame:
		f := FramePacket{Pix: make([]byte, 3*int(rc.NumLEDs))}
		if _, err := io.ReadFull(tr, f.Pix); err != nil {
			return nil, errors.Wrap(err, "failed to read frame")
		}
		p = f
	default:
		return nil, errors.Errorf("unknown packet type: %s", t)
	}

	var sum uint32
	if err := binary.Read(r, Endianness, &sum); err != nil {
		return nil, errors.Wrap(err, "failed to read packet checksum")
	}
	if sum != hash.Sum32() {
		return nil, ErrChecksum
	}
	return p, nil
}
