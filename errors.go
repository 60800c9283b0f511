// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"fmt"
)

// ErrorClass groups error codes by the protocol step that produced them.
type ErrorClass int

const (
	DiscoveryError ErrorClass = iota
	IdentificationError
	CommandError
	TransferError
	ImageError
	HandoffError
)

func (c ErrorClass) String() string {
	switch c {
	case DiscoveryError:
		return "discovery"
	case IdentificationError:
		return "identification"
	case CommandError:
		return "command"
	case TransferError:
		return "transfer"
	case ImageError:
		return "image"
	case HandoffError:
		return "handoff"
	default:
		return "unknown"
	}
}

// UsbErrorCode is usable as an error target, errors.Is(err, ErrImageTooShort)
// matches any *UsbError carrying that code.
type UsbErrorCode int

const (
	ErrNoDeviceFound UsbErrorCode = iota + 1
	ErrAmbiguousDevice
	ErrOpenFailed
	ErrInterfaceNotFound
	ErrClaimFailed
	ErrIdentificationFailed
	ErrUnrecognizedChipTag
	ErrCommandRejected
	ErrIncompleteTransfer
	ErrFileReadFailed
	ErrImageTooShort
	ErrInvalidStage
	ErrHandoffFailed
)

var usbErrorText = map[UsbErrorCode]string{
	ErrNoDeviceFound:        "no XBurst device found",
	ErrAmbiguousDevice:      "too many XBurst devices found",
	ErrOpenFailed:           "can't open XBurst device",
	ErrInterfaceNotFound:    "can't find XBurst interface",
	ErrClaimFailed:          "can't claim XBurst interface",
	ErrIdentificationFailed: "can't retrieve XBurst CPU information",
	ErrUnrecognizedChipTag:  "unrecognized XBurst CPU tag",
	ErrCommandRejected:      "vendor command rejected",
	ErrIncompleteTransfer:   "incomplete bulk transfer",
	ErrFileReadFailed:       "can't read firmware file",
	ErrImageTooShort:        "firmware image too short",
	ErrInvalidStage:         "invalid loader stage",
	ErrHandoffFailed:        "uploaded image did not boot",
}

func (c UsbErrorCode) Error() string {
	if text, ok := usbErrorText[c]; ok {
		return text
	}

	return fmt.Sprintf("unknown error code %d", int(c))
}

func (c UsbErrorCode) Class() ErrorClass {
	switch c {
	case ErrNoDeviceFound, ErrAmbiguousDevice, ErrOpenFailed, ErrInterfaceNotFound, ErrClaimFailed:
		return DiscoveryError
	case ErrIdentificationFailed, ErrUnrecognizedChipTag:
		return IdentificationError
	case ErrCommandRejected:
		return CommandError
	case ErrIncompleteTransfer:
		return TransferError
	case ErrFileReadFailed, ErrImageTooShort, ErrInvalidStage:
		return ImageError
	default:
		return HandoffError
	}
}

// UsbError names the failed operation and keeps the raw transport status,
// which is the byte count or libusb result the step returned.
type UsbError struct {
	Op     string
	Code   UsbErrorCode
	Status int
	Err    error
}

func (e *UsbError) Error() string {
	msg := fmt.Sprintf("%s: %s (status %d)", e.Op, e.Code.Error(), e.Status)

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *UsbError) Unwrap() error {
	return e.Err
}

func (e *UsbError) Is(target error) bool {
	code, ok := target.(UsbErrorCode)

	return ok && code == e.Code
}

func NewUsbError(op string, code UsbErrorCode, status int, err error) error {
	return &UsbError{Op: op, Code: code, Status: status, Err: err}
}
