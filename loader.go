// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"fmt"
	"time"
)

// LoadStage uploads the loader stage stored at path to StageAddress, starts
// it and checks that the device came back. Any failure leaves the device in
// an undefined state until it is reset.
func (s *Session) LoadStage(path string, stage Stage) error {
	if stage != Stage1 && stage != Stage2 {
		return NewUsbError("load stage", ErrInvalidStage, int(stage), nil)
	}

	image, err := ReadImage(path)

	if err != nil {
		return err
	}

	return s.LoadStageImage(image, stage)
}

// LoadStageImage runs the upload and handoff sequence on an in-memory image.
// The firmware args record is patched into image in place.
func (s *Session) LoadStageImage(image []byte, stage Stage) error {
	if stage != Stage1 && stage != Stage2 {
		return NewUsbError("load stage", ErrInvalidStage, int(stage), nil)
	}

	if len(image) == 0 {
		return NewUsbError("load stage", ErrFileReadFailed, 0, fmt.Errorf("empty image"))
	}

	previous, known := s.LastIdentity()

	args := s.args
	if known {
		args.CpuID = uint32(previous.Chip)
	}

	if err := args.Patch(image); err != nil {
		return err
	}

	if err := s.SetDataAddress(StageAddress); err != nil {
		return err
	}

	logger.Infof("Download stage %d program and execute at 0x%08x", stage, StageAddress)

	if err := s.WriteData(image); err != nil {
		return err
	}

	logger.Info("Download done.")

	if stage == Stage2 {
		if err := s.prepareStage2(); err != nil {
			return err
		}
	}

	time.Sleep(startDelay)

	if err := s.StartExecution(stage, StageAddress); err != nil {
		return err
	}

	time.Sleep(startDelay)

	return s.confirmHandoff(stage, previous, known)
}

// prepareStage2 checks that the stage 1 loader answers and flushes the data
// cache so the uploaded agent is visible to instruction fetch.
func (s *Session) prepareStage2() error {
	identity, err := s.Identify()

	if err != nil {
		return err
	}

	if identity.Stage != StageBootloader {
		logger.Debugf("stage 1 still reports %s before stage 2 start", identity)
	}

	return s.FlushCaches()
}

func (s *Session) confirmHandoff(stage Stage, previous ChipIdentity, known bool) error {
	op := fmt.Sprintf("start stage %d", stage)

	identity, err := s.Identify()

	if err != nil {
		return NewUsbError(op, ErrHandoffFailed, 0, err)
	}

	if known && identity.Chip != previous.Chip {
		return NewUsbError(op, ErrHandoffFailed, int(identity.Chip),
			fmt.Errorf("device changed from %s to %s", previous.Chip, identity.Chip))
	}

	if stage == Stage2 && identity.Stage != StageBootloader {
		return NewUsbError(op, ErrHandoffFailed, int(identity.Chip),
			fmt.Errorf("device reports %s", identity))
	}

	return nil
}

// Boot identifies the device and, unless the stage 2 agent already runs,
// loads both stages.
func (s *Session) Boot(stage1Path string, stage2Path string) error {
	identity, err := s.Identify()

	if err != nil {
		return err
	}

	if identity.Stage == StageBootloader {
		logger.Infof("%s already booted", identity.Chip)
		return nil
	}

	if err := s.LoadStage(stage1Path, Stage1); err != nil {
		return err
	}

	return s.LoadStage(stage2Path, Stage2)
}

// LoadToSDRAM copies data to address through the stage 2 agent.
func (s *Session) LoadToSDRAM(address uint32, data []byte) error {
	if err := s.SetDataAddress(address); err != nil {
		return err
	}

	if err := s.SetDataLength(uint32(len(data))); err != nil {
		return err
	}

	if err := s.WriteData(data); err != nil {
		return err
	}

	logger.Infof("Loaded %d bytes to SDRAM at 0x%08x", len(data), address)

	return s.SdramOps(SdramLoad)
}
