// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boljen/go-bitmap"
	"github.com/google/gousb"
)

// AllowedIdentity is a vendor/product pair eligible for discovery.
type AllowedIdentity struct {
	Vendor  gousb.ID
	Product gousb.ID
}

func (a AllowedIdentity) String() string {
	return fmt.Sprintf("%04x:%04x", uint16(a.Vendor), uint16(a.Product))
}

// ParseAllowedIdentity parses a "vid:pid" pair given in hex.
func ParseAllowedIdentity(s string) (AllowedIdentity, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")

	if len(parts) != 2 {
		return AllowedIdentity{}, fmt.Errorf("bad device id %q, expected VID:PID", s)
	}

	vid, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 16)
	if err != nil {
		return AllowedIdentity{}, fmt.Errorf("bad vendor id in %q: %w", s, err)
	}

	pid, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 16)
	if err != nil {
		return AllowedIdentity{}, fmt.Errorf("bad product id in %q: %w", s, err)
	}

	return AllowedIdentity{Vendor: gousb.ID(vid), Product: gousb.ID(pid)}, nil
}

type Allowlist []AllowedIdentity

// DefaultAllowlist returns a fresh copy of the built-in XBurst id table.
func DefaultAllowlist() Allowlist {
	return Allowlist{
		{Vendor: 0x601a, Product: 0x4740},
		{Vendor: 0x601a, Product: 0x4750},
		{Vendor: 0x601a, Product: 0x4760},
		{Vendor: 0xa108, Product: 0x4770},
	}
}

func (l Allowlist) Contains(vid gousb.ID, pid gousb.ID) bool {
	for _, element := range l {
		if element.Vendor == vid && element.Product == pid {
			return true
		}
	}

	return false
}

type SessionConfig struct {
	Allowlist Allowlist
	Args      FirmwareArgs
}

func NewSessionConfig(allowlist Allowlist, args FirmwareArgs) *SessionConfig {
	if len(allowlist) == 0 {
		allowlist = DefaultAllowlist()
	}

	config := &SessionConfig{
		Allowlist: allowlist,
		Args:      args,
	}

	return config
}

// Session owns the single opened boot device and its claimed interface.
type Session struct {
	dev  Device
	intf Interface

	interfaceNumber int
	claimed         bitmap.Bitmap

	identity *ChipIdentity
	args     FirmwareArgs
}

// ListDevices reports every allowlisted device on the bus without opening
// any of them.
func ListDevices(bus Bus, allowlist Allowlist) ([]gousb.DeviceDesc, error) {
	var found []gousb.DeviceDesc

	_, err := bus.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if allowlist.Contains(desc.Vendor, desc.Product) {
			found = append(found, *desc)
		}

		return false
	})

	return found, err
}

// Open discovers exactly one allowlisted device, opens it and claims its
// vendor specific interface. The returned session must be closed.
func Open(bus Bus, config *SessionConfig) (*Session, error) {
	session := &Session{
		claimed: bitmap.New(maxInterfaceNumber + 1),
		args:    config.Args,
	}

	if err := session.discover(bus, config.Allowlist); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

func (s *Session) discover(bus Bus, allowlist Allowlist) error {
	matched := 0

	devices, err := bus.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if !allowlist.Contains(desc.Vendor, desc.Product) {
			return false
		}

		logger.Infof("Found XBurst device [%04x:%04x] on bus %03d:%03d", uint16(desc.Vendor),
			uint16(desc.Product), desc.Bus, desc.Address)

		matched++
		return true
	})

	if matched != 1 || len(devices) != 1 {
		for _, dev := range devices {
			dev.Close()
		}
	}

	switch {
	case matched == 0:
		return NewUsbError("discover", ErrNoDeviceFound, 0, err)
	case matched > 1:
		return NewUsbError("discover", ErrAmbiguousDevice, matched, err)
	case len(devices) != 1:
		return NewUsbError("open", ErrOpenFailed, 0, err)
	}

	s.dev = devices[0]
	desc := s.dev.Desc()

	config, number, alt, ok := findVendorInterface(desc)

	if !ok {
		return NewUsbError("find interface", ErrInterfaceNotFound, 0, nil)
	}

	logger.Debugf("using config %d interface %d alt %d", config, number, alt)

	s.intf, err = s.dev.Claim(config, number, alt)

	if err != nil {
		return NewUsbError("claim interface", ErrClaimFailed, number, err)
	}

	s.interfaceNumber = number
	s.claimed.Set(number, true)

	return nil
}

// findVendorInterface walks configs, interfaces and alternate settings in
// order and returns the first vendor specific setting with subclass 0.
func findVendorInterface(desc *gousb.DeviceDesc) (config int, number int, alt int, ok bool) {
	for _, n := range sortedConfigNumbers(desc) {
		cfg := desc.Configs[n]

		for _, intf := range cfg.Interfaces {
			for _, setting := range intf.AltSettings {
				if setting.Class == vendorSpecificClass && setting.SubClass == vendorSpecificSubClass {
					return cfg.Number, setting.Number, setting.Alternate, true
				}
			}
		}
	}

	return 0, 0, 0, false
}

// Close releases the claimed interface and the device handle. Failures are
// logged only and repeated calls do nothing.
func (s *Session) Close() {
	s.releaseInterface()

	if s.dev != nil {
		desc := s.dev.Desc()
		logger.Debugf("Close XBurst device [%04x:%04x]", uint16(desc.Vendor), uint16(desc.Product))

		if err := s.dev.Close(); err != nil {
			logger.Warnf("could not close XBurst device: %v", err)
		}

		s.dev = nil
	}

	s.identity = nil
}

// releaseInterface gives the claimed interface back exactly once. The handle
// stays in place, the claimed bit alone tells whether it is still held.
func (s *Session) releaseInterface() {
	if !s.claimed.Get(s.interfaceNumber) {
		return
	}

	s.claimed.Set(s.interfaceNumber, false)

	if err := s.intf.Close(); err != nil {
		logger.Warnf("could not release XBurst interface %d: %v", s.interfaceNumber, err)
	}
}

func (s *Session) checkOpen(op string) error {
	if s.dev == nil || !s.claimed.Get(s.interfaceNumber) {
		return NewUsbError(op, ErrOpenFailed, 0, fmt.Errorf("session is closed"))
	}

	return nil
}
