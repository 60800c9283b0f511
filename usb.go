// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// Package ingenicboot talks to the USB boot rom of Ingenic XBurst SoCs
// (JZ4740, JZ4750, JZ4760, JZ4770) and pushes the two loader stages into
// device RAM.
package ingenicboot

import (
	"context"
	"errors"
	"time"

	"github.com/google/gousb"
)

// Bus enumerates and opens USB devices.
type Bus interface {
	// OpenDevices opens every device for which match returns true.
	OpenDevices(match func(desc *gousb.DeviceDesc) bool) ([]Device, error)
	Close() error
}

// Device is an opened USB device.
type Device interface {
	Desc() *gousb.DeviceDesc
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	// Claim selects the configuration and claims the interface alternate
	// setting holding the bulk endpoints.
	Claim(config, number, alt int) (Interface, error)
	Close() error
}

// Interface is a claimed interface with one bulk out and one bulk in
// endpoint.
type Interface interface {
	Write(buffer []byte) (int, error)
	Read(buffer []byte) (int, error)
	Close() error
}

type libusbBus struct {
	ctx     *gousb.Context
	timeout time.Duration
}

type libusbDevice struct {
	dev     *gousb.Device
	timeout time.Duration
}

type libusbInterface struct {
	config     *gousb.Config
	intf       *gousb.Interface
	rxEndpoint *gousb.InEndpoint
	txEndpoint *gousb.OutEndpoint
	timeout    time.Duration
}

// NewUsbBus initializes libusb. A zero timeout selects DefaultTimeout.
func NewUsbBus(timeout time.Duration) (Bus, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx := gousb.NewContext()

	if ctx == nil {
		return nil, errors.New("could not initialize libusb")
	}

	logger.Debug("Initialized libusb...")

	return &libusbBus{ctx: ctx, timeout: timeout}, nil
}

func (b *libusbBus) OpenDevices(match func(desc *gousb.DeviceDesc) bool) ([]Device, error) {
	devices, err := b.ctx.OpenDevices(match)

	opened := make([]Device, 0, len(devices))

	for _, dev := range devices {
		dev.ControlTimeout = b.timeout

		if detachErr := dev.SetAutoDetach(true); detachErr != nil {
			logger.Debugf("could not enable kernel driver auto detach: %v", detachErr)
		}

		opened = append(opened, &libusbDevice{dev: dev, timeout: b.timeout})
	}

	return opened, err
}

func (b *libusbBus) Close() error {
	return b.ctx.Close()
}

func (d *libusbDevice) Desc() *gousb.DeviceDesc {
	return d.dev.Desc
}

func (d *libusbDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.dev.Control(rType, request, val, idx, data)
}

func (d *libusbDevice) Claim(config, number, alt int) (Interface, error) {
	cfg, err := d.dev.Config(config)

	if err != nil {
		return nil, err
	}

	intf, err := cfg.Interface(number, alt)

	if err != nil {
		cfg.Close()
		return nil, err
	}

	result := &libusbInterface{config: cfg, intf: intf, timeout: d.timeout}

	result.txEndpoint, err = intf.OutEndpoint(usbTxEndpointNo &^ usbEndpointIn)

	if err == nil {
		result.rxEndpoint, err = intf.InEndpoint(usbRxEndpointNo &^ usbEndpointIn)
	}

	if err != nil {
		result.Close()
		return nil, err
	}

	return result, nil
}

func (d *libusbDevice) Close() error {
	return d.dev.Close()
}

func (i *libusbInterface) Write(buffer []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	written, err := i.txEndpoint.WriteContext(ctx, buffer)

	logger.Tracef("Wrote %d bytes to endpoint", written)

	return written, err
}

func (i *libusbInterface) Read(buffer []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	read, err := i.rxEndpoint.ReadContext(ctx, buffer)

	logger.Tracef("Read %d byte from in endpoint", read)

	return read, err
}

func (i *libusbInterface) Close() error {
	i.intf.Close()

	return i.config.Close()
}
