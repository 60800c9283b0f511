// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import "time"

// vendor requests, these must match the boot rom and the stage 2 agent
const (
	reqGetCpuInfo     = 0x00
	reqSetDataAddress = 0x01
	reqSetDataLength  = 0x02
	reqFlushCaches    = 0x03
	reqProgramStart1  = 0x04
	reqProgramStart2  = 0x05
	reqNorOps         = 0x06
	reqNandOps        = 0x07
	reqSdramOps       = 0x08
	reqConfiguration  = 0x09
	reqGetNum         = 0x0a
	reqReset          = 0x0b
)

// usb endpoint definitions
const (
	usbEndpointIn  = 0x80
	usbEndpointOut = 0x00

	usbRxEndpointNo = 1 | usbEndpointIn
	usbTxEndpointNo = 1 | usbEndpointOut

	// DefaultTimeout is applied to every control and bulk transfer.
	DefaultTimeout = 5000 * time.Millisecond
)

// StageAddress is the RAM address both loader stages are uploaded to and
// started from.
const StageAddress uint32 = 0x80002000

const (
	cpuInfoLength    = 8
	firmwareArgsOffs = 8

	vendorSpecificClass    = 0xff
	vendorSpecificSubClass = 0x00

	maxInterfaceNumber = 255
)

// device side timing, not protocol dependencies
const (
	identifyDelay = 2 * time.Millisecond
	startDelay    = 100 * time.Microsecond
)

type Stage int

const (
	Stage1 Stage = 1
	Stage2 Stage = 2
)

// NandOp is an opaque opcode handed to the stage 2 agent.
type NandOp uint16

const (
	NandQuery NandOp = iota
	NandInit
	NandMarkBad
	NandReadOob
	NandReadRaw
	NandErase
	NandRead
	NandProgram
	NandReadToRam
)

type SdramOp uint16

const (
	SdramLoad SdramOp = 0
)

type ConfigOp uint16

const (
	ConfigFlashInfo ConfigOp = 0
	ConfigHand      ConfigOp = 1
)

type ResetOp uint16

const (
	ResetDevice ResetOp = 0
)
