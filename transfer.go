// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"github.com/google/gousb"
)

// vendorRequest issues a host to device vendor request without data stage.
// Anything but a zero byte acknowledge rejects the command; vendor commands
// are never retried.
func (s *Session) vendorRequest(op string, request uint8, value uint16, index uint16) error {
	if err := s.checkOpen(op); err != nil {
		return err
	}

	status, err := s.dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice,
		request, value, index, nil)

	if err != nil || status != 0 {
		logger.Errorf("can't %s on XBurst device: %d", op, status)
		return NewUsbError(op, ErrCommandRejected, status, err)
	}

	logger.Tracef("vendor request 0x%02x [%04x:%04x] acknowledged", request, value, index)

	return nil
}

// SetDataAddress tells the device the RAM address for the next upload.
func (s *Session) SetDataAddress(address uint32) error {
	return s.vendorRequest("set data address", reqSetDataAddress, addrMsb(address), addrLsb(address))
}

// SetDataLength tells the device the length of the next upload.
func (s *Session) SetDataLength(length uint32) error {
	return s.vendorRequest("set data length", reqSetDataLength, addrMsb(length), addrLsb(length))
}

func (s *Session) FlushCaches() error {
	return s.vendorRequest("flush cache", reqFlushCaches, 0, 0)
}

// StartExecution jumps to address using the stage 1 or stage 2 entry
// request.
func (s *Session) StartExecution(stage Stage, address uint32) error {
	var request uint8

	switch stage {
	case Stage1:
		request = reqProgramStart1
	case Stage2:
		request = reqProgramStart2
	default:
		return NewUsbError("start execution", ErrInvalidStage, int(stage), nil)
	}

	return s.vendorRequest("start the uploaded binary", request, addrMsb(address), addrLsb(address))
}

func (s *Session) NandOps(op NandOp) error {
	return s.vendorRequest("set nand ops", reqNandOps, uint16(op)&0xffff, 0)
}

func (s *Session) SdramOps(op SdramOp) error {
	return s.vendorRequest("run sdram ops", reqSdramOps, uint16(op), 0)
}

func (s *Session) Configure(op ConfigOp) error {
	return s.vendorRequest("init configuration", reqConfiguration, uint16(op), 0)
}

// Reset drops the cached identity before asking the device to reset, the
// chip must be identified again afterwards.
func (s *Session) Reset(op ResetOp) error {
	s.identity = nil

	return s.vendorRequest("reset", reqReset, uint16(op), 0)
}

// WriteData pushes buffer to the bulk out endpoint as one transfer.
func (s *Session) WriteData(buffer []byte) error {
	if err := s.checkOpen("send bulk data"); err != nil {
		return err
	}

	written, err := s.intf.Write(buffer)

	if err != nil || written != len(buffer) {
		logger.Errorf("can't send bulk data to XBurst CPU: %d of %d bytes", written, len(buffer))
		return NewUsbError("send bulk data", ErrIncompleteTransfer, written, err)
	}

	return nil
}

// ReadData reads exactly length bytes from the bulk in endpoint.
func (s *Session) ReadData(length int) ([]byte, error) {
	if err := s.checkOpen("read bulk data"); err != nil {
		return nil, err
	}

	buffer := make([]byte, length)

	read, err := s.intf.Read(buffer)

	if err != nil || read != length {
		logger.Errorf("can't read bulk data from XBurst device: %d of %d bytes", read, length)
		return nil, NewUsbError("read bulk data", ErrIncompleteTransfer, read, err)
	}

	return buffer, nil
}
