// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

// FirmwareArgsSize is the packed size of FirmwareArgs on the device.
const FirmwareArgsSize = 28

// FirmwareArgs is the boot parameter record both loader stages read from
// offset 8 of their own image. Fields are in device order.
type FirmwareArgs struct {
	CpuID uint32

	// PLL
	ExtClk   uint8
	CpuSpeed uint8
	PhmDiv   uint8
	UseUart  uint8
	Baudrate uint32

	// SDRAM
	BusWidth   uint8
	BankNum    uint8
	RowAddr    uint8
	ColAddr    uint8
	IsMobile   uint8
	IsBusShare uint8

	// debug, Start and Size bound the stage 1 memory test
	DebugOps uint8
	PinNum   uint8
	Start    uint32
	Size     uint32
}

func (a FirmwareArgs) MarshalBinary() ([]byte, error) {
	buf := NewBuffer(FirmwareArgsSize)

	buf.WriteUint32LE(a.CpuID)
	buf.Write([]byte{a.ExtClk, a.CpuSpeed, a.PhmDiv, a.UseUart})
	buf.WriteUint32LE(a.Baudrate)
	buf.Write([]byte{a.BusWidth, a.BankNum, a.RowAddr, a.ColAddr, a.IsMobile, a.IsBusShare})
	buf.Write([]byte{a.DebugOps, a.PinNum})
	buf.WriteUint32LE(a.Start)
	buf.WriteUint32LE(a.Size)

	return buf.Bytes(), nil
}

func (a *FirmwareArgs) UnmarshalBinary(data []byte) error {
	buf := &Buffer{}
	buf.Write(data)

	var err error

	if a.CpuID, err = buf.ReadUint32LE(); err != nil {
		return err
	}

	for _, field := range []*uint8{&a.ExtClk, &a.CpuSpeed, &a.PhmDiv, &a.UseUart} {
		if *field, err = buf.ReadUint8(); err != nil {
			return err
		}
	}

	if a.Baudrate, err = buf.ReadUint32LE(); err != nil {
		return err
	}

	for _, field := range []*uint8{&a.BusWidth, &a.BankNum, &a.RowAddr, &a.ColAddr, &a.IsMobile,
		&a.IsBusShare, &a.DebugOps, &a.PinNum} {
		if *field, err = buf.ReadUint8(); err != nil {
			return err
		}
	}

	if a.Start, err = buf.ReadUint32LE(); err != nil {
		return err
	}

	a.Size, err = buf.ReadUint32LE()

	return err
}

// Patch overwrites the record at its fixed offset inside image. Patching
// twice yields the same bytes as patching once.
func (a FirmwareArgs) Patch(image []byte) error {
	if len(image) < firmwareArgsOffs+FirmwareArgsSize {
		return NewUsbError("patch firmware args", ErrImageTooShort, len(image), nil)
	}

	record, err := a.MarshalBinary()

	if err != nil {
		return err
	}

	copy(image[firmwareArgsOffs:], record)

	return nil
}
