package info

import (
	"context"
	"fmt"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/gear"
	"github.com/fluffware/go-dali/internal/dali/driver"
)

// MemoryErrorKind discriminates MemoryError's two causes.
type MemoryErrorKind int

const (
	// LengthMismatch means DTR0's final content didn't match the number
	// of bytes actually read back.
	LengthMismatch MemoryErrorKind = iota
	// InvalidMemoryArea means the gear answered fewer bytes than the
	// bank's fixed layout requires, so decoding it further isn't safe.
	InvalidMemoryArea
)

// MemoryError reports a structural problem reading a memory bank, as
// opposed to a plain Timeout (which just means the gear doesn't carry
// that bank).
type MemoryError struct {
	Kind MemoryErrorKind
	Got  int
	Want int
}

func (e *MemoryError) Error() string {
	if e.Kind == InvalidMemoryArea {
		return fmt.Sprintf("info: trying to read an unimplemented memory area (got %d of %d bytes)", e.Got, e.Want)
	}
	return fmt.Sprintf("info: DTR0 doesn't match read length (got %d, expected %d)", e.Got, e.Want)
}

func lengthMismatchError(got, want int) error {
	return &MemoryError{Kind: LengthMismatch, Got: got, Want: want}
}

func invalidMemoryAreaError(got, want int) error {
	return &MemoryError{Kind: InvalidMemoryArea, Got: got, Want: want}
}

// readRange reads length bytes of bank starting at start, by setting
// DTR1 to bank and DTR0 to start then issuing READ_MEMORY_LOCATION
// repeatedly (each read auto-increments DTR0 on the gear). A bare
// Timeout partway through ends the read early rather than failing it;
// the final DTR0 readback then confirms how far the gear actually got.
func readRange(ctx context.Context, d driver.Driver, a addr.Address, bank uint8, start uint8, length int) ([]byte, error) {
	if out := d.SendFrame(ctx, gear.DTR1(bank).Frame(), priority1NoReply()); out.Err() != nil {
		return nil, out.Err()
	}
	if out := d.SendFrame(ctx, gear.DTR0(start).Frame(), priority1NoReply()); out.Err() != nil {
		return nil, out.Err()
	}

	data := make([]byte, 0, length)
	for i := 0; i < length; i++ {
		out := d.SendFrame(ctx, gear.ReadMemoryLocation(a).Frame(), priority1())
		if out.Err() != nil {
			return nil, out.Err()
		}
		b, ok := out.Answered()
		if !ok {
			break
		}
		data = append(data, b)
	}

	dtr0, ok, err := queryGear(ctx, d, gear.QueryContentDTR0(a))
	if err != nil {
		return nil, err
	}
	var want int
	if len(data) < length {
		want = len(data) + 1 + int(start)
	} else {
		want = int(start) + length
	}
	if ok && int(dtr0) != want&0xff {
		return data, lengthMismatchError(len(data), length)
	}
	return data, nil
}

// MemoryBank0 decodes the fixed part of part-102 memory bank 0: GTIN,
// firmware/hardware versions, device identification, and the IEC
// 62386-102 edition markers.
type MemoryBank0 struct {
	GTIN              uint64
	FirmwareVersion   uint16
	IDNumber          uint64
	HardwareVersion   uint16
	Version101        uint8
	Version102        uint8
	Version103        uint8
	NControlDevices   uint8
	NControlGears     uint8
	ControlGearIndex  uint8
}

const bank0ReadLength = 0x19

// ReadMemoryBank0 reads bank 0 of the addressed gear starting at byte
// offset 2 (past the bank's own length/checksum-control bytes) and
// decodes the fixed layout IEC 62386-102 defines for it.
func ReadMemoryBank0(ctx context.Context, d driver.Driver, a addr.Address) (*MemoryBank0, error) {
	data, err := readRange(ctx, d, a, 0, 2, bank0ReadLength)
	if err != nil {
		return nil, err
	}
	if len(data) != bank0ReadLength {
		return nil, invalidMemoryAreaError(len(data), bank0ReadLength)
	}

	// data is bank 0 starting at offset 2, so byte 0 here is offset 2.
	at := func(offset int) byte { return data[offset-2] }

	var gtin [8]byte
	for i := 0; i < 6; i++ {
		gtin[2+i] = at(0x03 + i)
	}
	b := &MemoryBank0{
		GTIN:             beUint64(gtin[:]),
		FirmwareVersion:  uint16(at(0x09))<<8 | uint16(at(0x0a)),
		IDNumber:         beUint64(padLeft(data[0x0b-2:0x13-2], 8)),
		HardwareVersion:  uint16(at(0x13))<<8 | uint16(at(0x14)),
		Version101:       at(0x15),
		Version102:       at(0x16),
		Version103:       at(0x17),
		NControlDevices:  at(0x18),
		NControlGears:    at(0x19),
		ControlGearIndex: at(0x1a),
	}
	return b, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func padLeft(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func (b *MemoryBank0) String() string {
	return fmt.Sprintf("MemoryBank0{gtin=%d fw=%d.%d hw=%d.%d id=%d}",
		b.GTIN, b.FirmwareVersion>>8, b.FirmwareVersion&0xff,
		b.HardwareVersion>>8, b.HardwareVersion&0xff, b.IDNumber)
}
