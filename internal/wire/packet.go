// Package wire encodes and decodes the fixed 48-byte NTP datagram used by
// version 3 client/server exchanges.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const PacketSize = 48

// Version is the protocol version stamped on outgoing requests.
const Version byte = 3

var (
	ErrSizeMismatch         = errors.New("packet size mismatch")
	ErrImplausibleTimestamp = errors.New("implausible transmit timestamp")
	ErrTimestampOutOfRange  = errors.New("timestamp out of range")
)

type Mode byte

const (
	ModeReserved Mode = iota
	ModeSymmetricActive
	ModeSymmetricPassive
	ModeClient
	ModeServer
	ModeBroadcast
)

// Stratum is a server's distance from a primary reference clock.
type Stratum uint8

// StratumUnknown marks a server that has never answered.
const StratumUnknown Stratum = 255

func (s Stratum) String() string {
	switch {
	case s == 0:
		return "unspecified"
	case s == 1:
		return "primary"
	case s <= 15:
		return "secondary"
	case s == 16:
		return "unsynchronized"
	case s == StratumUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

type Packet struct {
	Leap    byte /* leap indicator */
	Version byte /* version number */
	Mode    Mode /* association mode */
	Fields
}

// Fields is the fixed-width remainder of the packet after the first byte,
// laid out exactly as it travels on the wire.
type Fields struct {
	Stratum        Stratum
	Poll           int8
	Precision      int8
	RootDelay      uint32
	RootDispersion uint32
	ReferenceID    uint32
	ReferenceTime  uint64
	OriginTime     uint64
	ReceiveTime    uint64
	TransmitTime   uint64
}

// Encode serializes a packet into its 48-byte big-endian wire form.
func Encode(packet Packet) []byte {
	firstByte := (packet.Leap << 6) | (packet.Version << 3) | byte(packet.Mode)

	var buffer bytes.Buffer
	binary.Write(&buffer, binary.BigEndian, firstByte)
	binary.Write(&buffer, binary.BigEndian, &packet.Fields)
	return buffer.Bytes()
}

// EncodeRequest builds a client request whose originate timestamp carries
// origin in NTP seconds. Every other field stays zero.
func EncodeRequest(origin time.Time) []byte {
	return Encode(Packet{
		Version: Version,
		Mode:    ModeClient,
		Fields: Fields{
			OriginTime: TimestampFromUnixSeconds(origin.Unix()),
		},
	})
}

func Decode(encoded []byte) (*Packet, error) {
	if len(encoded) != PacketSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(encoded), PacketSize)
	}

	reader := bytes.NewReader(encoded)
	firstByte, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	packet := &Packet{
		Leap:    firstByte >> 6,
		Version: (firstByte >> 3) & 0b111,
		Mode:    Mode(firstByte & 0b111),
	}
	if err := binary.Read(reader, binary.BigEndian, &packet.Fields); err != nil {
		return nil, err
	}
	return packet, nil
}

// DecodedTime is a response's transmit timestamp converted to the Unix epoch.
type DecodedTime struct {
	Seconds      int64
	Microseconds int64
	Stratum      Stratum
}

func (d DecodedTime) Time() time.Time {
	return time.Unix(d.Seconds, d.Microseconds*1e3).UTC()
}

// DecodeResponse validates a server reply and extracts its transmit time.
// Replies whose seconds field sits below one billion are rejected: such
// servers report uptime instead of wall time, a common misconfiguration.
func DecodeResponse(encoded []byte) (DecodedTime, error) {
	packet, err := Decode(encoded)
	if err != nil {
		return DecodedTime{}, err
	}

	seconds := int64(packet.TransmitTime >> 32)
	if seconds < minPlausibleSeconds {
		return DecodedTime{}, fmt.Errorf("%w: transmit seconds %d", ErrImplausibleTimestamp, seconds)
	}

	unixSeconds := seconds - UnixEraOffset
	if unixSeconds < UnixTimeMin || unixSeconds > UnixTimeMax {
		return DecodedTime{}, fmt.Errorf("%w: unix seconds %d", ErrTimestampOutOfRange, unixSeconds)
	}

	return DecodedTime{
		Seconds:      unixSeconds,
		Microseconds: FractionToMicroseconds(uint32(packet.TransmitTime)),
		Stratum:      packet.Stratum,
	}, nil
}
