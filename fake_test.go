// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

var errFakeUsb = errors.New("LIBUSB_ERROR_IO")

// fakeBus simulates the libusb device list.
type fakeBus struct {
	devices []*fakeDevice
}

func (b *fakeBus) OpenDevices(match func(desc *gousb.DeviceDesc) bool) ([]Device, error) {
	var opened []Device
	var err error

	for _, dev := range b.devices {
		if !match(&dev.desc) {
			continue
		}

		if dev.openErr != nil {
			err = dev.openErr
			continue
		}

		dev.opened++
		opened = append(opened, dev)
	}

	return opened, err
}

func (b *fakeBus) Close() error {
	return nil
}

// fakeDevice records every transfer in ops, in order.
type fakeDevice struct {
	desc gousb.DeviceDesc

	openErr  error
	claimErr error

	// replies to successive cpu info requests, the last one repeats
	tags   []string
	tagIdx int

	// request code -> status returned instead of the zero byte ack
	rejects map[uint8]int

	shortWrite int
	readData   []byte

	ops []string

	opened      int
	closed      int
	claimed     []string
	intfsClosed int
}

func newFakeDevice(vid, pid gousb.ID, tags ...string) *fakeDevice {
	return &fakeDevice{
		desc:       vendorDesc(vid, pid),
		tags:       tags,
		rejects:    map[uint8]int{},
		shortWrite: -1,
	}
}

func vendorDesc(vid, pid gousb.ID) gousb.DeviceDesc {
	return gousb.DeviceDesc{
		Bus:     1,
		Address: 7,
		Vendor:  vid,
		Product: pid,
		Configs: map[int]gousb.ConfigDesc{
			1: {
				Number: 1,
				Interfaces: []gousb.InterfaceDesc{
					{
						Number: 0,
						AltSettings: []gousb.InterfaceSetting{
							{Number: 0, Alternate: 0, Class: gousb.ClassVendorSpec, SubClass: 0},
						},
					},
				},
			},
		},
	}
}

func (d *fakeDevice) Desc() *gousb.DeviceDesc {
	return &d.desc
}

func (d *fakeDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if rType&gousb.ControlIn != 0 {
		d.ops = append(d.ops, inOp(request, len(data)))

		if len(d.tags) == 0 {
			return 0, errFakeUsb
		}

		tag := d.tags[d.tagIdx]
		if d.tagIdx < len(d.tags)-1 {
			d.tagIdx++
		}

		return copy(data, tag), nil
	}

	d.ops = append(d.ops, outOp(request, val, idx))

	if status, ok := d.rejects[request]; ok {
		if status < 0 {
			return status, errFakeUsb
		}

		return status, nil
	}

	return 0, nil
}

func (d *fakeDevice) Claim(config, number, alt int) (Interface, error) {
	d.claimed = append(d.claimed, fmt.Sprintf("%d/%d/%d", config, number, alt))

	if d.claimErr != nil {
		return nil, d.claimErr
	}

	return &fakeInterface{dev: d}, nil
}

func (d *fakeDevice) Close() error {
	d.closed++
	return nil
}

type fakeInterface struct {
	dev *fakeDevice
}

func (i *fakeInterface) Write(buffer []byte) (int, error) {
	i.dev.ops = append(i.dev.ops, bulkOutOp(len(buffer)))

	if i.dev.shortWrite >= 0 {
		return i.dev.shortWrite, nil
	}

	return len(buffer), nil
}

func (i *fakeInterface) Read(buffer []byte) (int, error) {
	i.dev.ops = append(i.dev.ops, bulkInOp(len(buffer)))

	return copy(buffer, i.dev.readData), nil
}

func (i *fakeInterface) Close() error {
	i.dev.intfsClosed++
	return nil
}

func openFake(dev *fakeDevice) (*Session, error) {
	bus := &fakeBus{devices: []*fakeDevice{dev}}

	return Open(bus, NewSessionConfig(nil, FirmwareArgs{}))
}

func inOp(request uint8, length int) string {
	return fmt.Sprintf("in 0x%02x len %d", request, length)
}

func outOp(request uint8, val, idx uint16) string {
	return fmt.Sprintf("out 0x%02x %04x:%04x", request, val, idx)
}

func bulkOutOp(length int) string {
	return fmt.Sprintf("bulk out %d", length)
}

func bulkInOp(length int) string {
	return fmt.Sprintf("bulk in %d", length)
}
