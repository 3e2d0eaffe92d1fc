package wire

import (
	"errors"
	"testing"
	"time"
)

func makeResponse(ntpSeconds int64, fraction uint32, stratum Stratum) []byte {
	return Encode(Packet{
		Version: Version,
		Mode:    ModeServer,
		Fields: Fields{
			Stratum:      stratum,
			TransmitTime: uint64(ntpSeconds)<<32 | uint64(fraction),
		},
	})
}

func TestEncodeRequestShape(t *testing.T) {
	encoded := EncodeRequest(time.Unix(1_700_000_000, 0))

	if len(encoded) != PacketSize {
		t.Fatalf("request length = %d, want %d", len(encoded), PacketSize)
	}
	// Leap 0, version 3, mode 3.
	if encoded[0] != 0b00_011_011 {
		t.Errorf("first byte = %#08b, want %#08b", encoded[0], 0b00_011_011)
	}

	packet, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := int64(packet.OriginTime>>32), 1_700_000_000+UnixEraOffset; got != want {
		t.Errorf("originate seconds = %d, want %d", got, want)
	}
	if frac := uint32(packet.OriginTime); frac != 0 {
		t.Errorf("originate fraction = %d, want 0", frac)
	}
	if packet.TransmitTime != 0 || packet.ReceiveTime != 0 || packet.ReferenceTime != 0 {
		t.Error("timestamps other than originate must stay zero")
	}
}

func TestDecodeResponse(t *testing.T) {
	// 2024-01-01T00:00:00Z in NTP seconds.
	const newYear2024 = 1_704_067_200 + 2_208_988_800

	tests := []struct {
		name    string
		encoded []byte
		want    DecodedTime
		wantErr error
	}{
		{
			name:    "new year 2024",
			encoded: makeResponse(newYear2024, 0, 2),
			want:    DecodedTime{Seconds: 1_704_067_200, Microseconds: 0, Stratum: 2},
		},
		{
			name:    "half second fraction",
			encoded: makeResponse(newYear2024, 0x80000000, 1),
			want:    DecodedTime{Seconds: 1_704_067_200, Microseconds: 500_000, Stratum: 1},
		},
		{
			name:    "truncated packet",
			encoded: makeResponse(newYear2024, 0, 2)[:47],
			wantErr: ErrSizeMismatch,
		},
		{
			name:    "oversized packet",
			encoded: append(makeResponse(newYear2024, 0, 2), 0),
			wantErr: ErrSizeMismatch,
		},
		{
			name:    "uptime instead of wall time",
			encoded: makeResponse(999_999_999, 0, 2),
			wantErr: ErrImplausibleTimestamp,
		},
		{
			name:    "just before year 2000",
			encoded: makeResponse(946_684_799+2_208_988_800, 0, 2),
			wantErr: ErrTimestampOutOfRange,
		},
		{
			name:    "past the 32-bit ceiling",
			encoded: makeResponse(2_147_483_648+2_208_988_800, 0, 2),
			wantErr: ErrTimestampOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResponse(tt.encoded)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("decoded = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodedTimeTime(t *testing.T) {
	d := DecodedTime{Seconds: 1_704_067_200, Microseconds: 250_000}
	want := time.Date(2024, time.January, 1, 0, 0, 0, 250_000_000, time.UTC)
	if got := d.Time(); !got.Equal(want) {
		t.Errorf("Time() = %v, want %v", got, want)
	}
}

func TestStratumString(t *testing.T) {
	tests := []struct {
		stratum Stratum
		want    string
	}{
		{0, "unspecified"},
		{1, "primary"},
		{2, "secondary"},
		{15, "secondary"},
		{16, "unsynchronized"},
		{17, "invalid"},
		{StratumUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.stratum.String(); got != tt.want {
			t.Errorf("Stratum(%d).String() = %q, want %q", tt.stratum, got, tt.want)
		}
	}
}
