// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

type ChipID uint16

const (
	ChipJZ4740 ChipID = 0x4740
	ChipJZ4750 ChipID = 0x4750
	ChipJZ4760 ChipID = 0x4760
	ChipJZ4770 ChipID = 0x4770
)

func (c ChipID) String() string {
	return fmt.Sprintf("JZ%04x", uint16(c))
}

// BootStage tells whether the rom loader or the uploaded stage 2 agent
// answers on the bus.
type BootStage int

const (
	StageUnbooted BootStage = iota
	StageBootloader
)

func (s BootStage) String() string {
	if s == StageBootloader {
		return "in bootloader stage"
	}

	return "unbooted"
}

type ChipIdentity struct {
	Chip  ChipID
	Stage BootStage
}

func (c ChipIdentity) String() string {
	return fmt.Sprintf("%s (%s)", c.Chip, c.Stage)
}

var supportedChipTags = map[string]ChipIdentity{
	"JZ4740V1": {ChipJZ4740, StageUnbooted},
	"JZ4750V1": {ChipJZ4750, StageUnbooted},
	"JZ4760V1": {ChipJZ4760, StageUnbooted},
	"JZ4770V1": {ChipJZ4770, StageUnbooted},
	"Boot4740": {ChipJZ4740, StageBootloader},
	"Boot4750": {ChipJZ4750, StageBootloader},
	"Boot4760": {ChipJZ4760, StageBootloader},
	"Boot4770": {ChipJZ4770, StageBootloader},
}

// ParseChipTag maps the 8 byte cpu info reply to a chip identity.
func ParseChipTag(tag []byte) (ChipIdentity, error) {
	if len(tag) != cpuInfoLength {
		return ChipIdentity{}, NewUsbError("parse cpu tag", ErrIdentificationFailed, len(tag), nil)
	}

	if val, ok := supportedChipTags[cString(tag)]; ok {
		return val, nil
	}

	return ChipIdentity{}, NewUsbError("parse cpu tag", ErrUnrecognizedChipTag, len(tag),
		fmt.Errorf("got %q", cString(tag)))
}

// Identify queries the cpu info tag. The identity is only valid until the
// next upload or reset, so callers re-query instead of caching it.
func (s *Session) Identify() (ChipIdentity, error) {
	s.identity = nil

	if err := s.checkOpen("identify"); err != nil {
		return ChipIdentity{}, err
	}

	buffer := make([]byte, cpuInfoLength)

	time.Sleep(identifyDelay)

	n, err := s.dev.Control(gousb.ControlIn|gousb.ControlVendor|gousb.ControlDevice,
		reqGetCpuInfo, 0, 0, buffer)

	if err != nil || n != cpuInfoLength {
		return ChipIdentity{}, NewUsbError("identify", ErrIdentificationFailed, n, err)
	}

	logger.Infof("CPU data: %s", cString(buffer))

	identity, err := ParseChipTag(buffer)

	if err != nil {
		return ChipIdentity{}, err
	}

	logger.Debugf("identified %s", identity)

	s.identity = &identity

	return identity, nil
}

// LastIdentity returns the identity read by the most recent successful
// Identify call.
func (s *Session) LastIdentity() (ChipIdentity, bool) {
	if s.identity == nil {
		return ChipIdentity{}, false
	}

	return *s.identity, true
}
