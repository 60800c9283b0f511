// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gousb"
)

func TestOpenDiscovery(t *testing.T) {
	tests := []struct {
		name     string
		devices  []*fakeDevice
		wantErr  error
		wantOpen int
	}{
		{
			name:    "no devices",
			wantErr: ErrNoDeviceFound,
		},
		{
			name:    "only foreign devices",
			devices: []*fakeDevice{newFakeDevice(0x0483, 0x3748), newFakeDevice(0x601a, 0x1234)},
			wantErr: ErrNoDeviceFound,
		},
		{
			name:     "one jz4740",
			devices:  []*fakeDevice{newFakeDevice(0x0483, 0x3748), newFakeDevice(0x601a, 0x4740)},
			wantOpen: 1,
		},
		{
			name:     "one jz4770",
			devices:  []*fakeDevice{newFakeDevice(0xa108, 0x4770)},
			wantOpen: 0,
		},
		{
			name:    "two xburst devices",
			devices: []*fakeDevice{newFakeDevice(0x601a, 0x4740), newFakeDevice(0x601a, 0x4760)},
			wantErr: ErrAmbiguousDevice,
		},
		{
			name:    "same id twice",
			devices: []*fakeDevice{newFakeDevice(0x601a, 0x4750), newFakeDevice(0x601a, 0x4750)},
			wantErr: ErrAmbiguousDevice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &fakeBus{devices: tt.devices}

			session, err := Open(bus, NewSessionConfig(nil, FirmwareArgs{}))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
				if session != nil {
					t.Errorf("Open() returned a session on error")
				}
				for i, dev := range tt.devices {
					if dev.opened != dev.closed {
						t.Errorf("device %d opened %d times, closed %d times", i, dev.opened, dev.closed)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("Open() unexpected error: %v", err)
			}
			defer session.Close()

			dev := tt.devices[tt.wantOpen]
			if diff := cmp.Diff([]string{"1/0/0"}, dev.claimed); diff != "" {
				t.Errorf("claimed interfaces mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpenCustomAllowlist(t *testing.T) {
	dev := newFakeDevice(0x1234, 0x5678)
	bus := &fakeBus{devices: []*fakeDevice{dev, newFakeDevice(0x601a, 0x4740)}}

	session, err := Open(bus, NewSessionConfig(Allowlist{{Vendor: 0x1234, Product: 0x5678}}, FirmwareArgs{}))
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer session.Close()

	if dev.opened != 1 {
		t.Errorf("custom device opened %d times, want 1", dev.opened)
	}
}

func TestOpenFailures(t *testing.T) {
	t.Run("open refused", func(t *testing.T) {
		dev := newFakeDevice(0x601a, 0x4740)
		dev.openErr = errors.New("LIBUSB_ERROR_ACCESS")

		_, err := openFake(dev)
		if !errors.Is(err, ErrOpenFailed) {
			t.Fatalf("Open() error = %v, want ErrOpenFailed", err)
		}
	})

	t.Run("no vendor interface", func(t *testing.T) {
		dev := newFakeDevice(0x601a, 0x4740)
		dev.desc.Configs[1].Interfaces[0].AltSettings[0].Class = gousb.ClassMassStorage

		_, err := openFake(dev)
		if !errors.Is(err, ErrInterfaceNotFound) {
			t.Fatalf("Open() error = %v, want ErrInterfaceNotFound", err)
		}
		if dev.closed != 1 {
			t.Errorf("device closed %d times, want 1", dev.closed)
		}
	})

	t.Run("claim refused", func(t *testing.T) {
		dev := newFakeDevice(0x601a, 0x4740)
		dev.claimErr = errors.New("LIBUSB_ERROR_BUSY")

		_, err := openFake(dev)
		if !errors.Is(err, ErrClaimFailed) {
			t.Fatalf("Open() error = %v, want ErrClaimFailed", err)
		}
		if dev.closed != 1 || dev.intfsClosed != 0 {
			t.Errorf("closed device %d times and interface %d times, want 1 and 0", dev.closed, dev.intfsClosed)
		}
	})
}

func TestFindVendorInterface(t *testing.T) {
	desc := &gousb.DeviceDesc{
		Configs: map[int]gousb.ConfigDesc{
			2: {
				Number: 2,
				Interfaces: []gousb.InterfaceDesc{
					{Number: 0, AltSettings: []gousb.InterfaceSetting{{Number: 0, Class: gousb.ClassVendorSpec}}},
				},
			},
			1: {
				Number: 1,
				Interfaces: []gousb.InterfaceDesc{
					{Number: 0, AltSettings: []gousb.InterfaceSetting{{Number: 0, Class: gousb.ClassHID}}},
					{Number: 1, AltSettings: []gousb.InterfaceSetting{
						{Number: 1, Alternate: 0, Class: gousb.ClassVendorSpec, SubClass: 1},
						{Number: 1, Alternate: 1, Class: gousb.ClassVendorSpec, SubClass: 0},
					}},
				},
			},
		},
	}

	config, number, alt, ok := findVendorInterface(desc)
	if !ok {
		t.Fatal("findVendorInterface() found nothing")
	}

	if config != 1 || number != 1 || alt != 1 {
		t.Errorf("findVendorInterface() = %d/%d/%d, want 1/1/1", config, number, alt)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	dev := newFakeDevice(0x601a, 0x4740)

	session, err := openFake(dev)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}

	session.Close()
	session.Close()

	if dev.closed != 1 || dev.intfsClosed != 1 {
		t.Errorf("closed device %d times and interface %d times, want 1 and 1", dev.closed, dev.intfsClosed)
	}

	if _, err := session.Identify(); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Identify() after Close error = %v, want ErrOpenFailed", err)
	}

	if err := session.WriteData([]byte{1}); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("WriteData() after Close error = %v, want ErrOpenFailed", err)
	}

	if len(dev.ops) != 0 {
		t.Errorf("transfers after Close: %v", dev.ops)
	}
}

func TestReleaseInterfaceOnce(t *testing.T) {
	dev := newFakeDevice(0x601a, 0x4740, "JZ4740V1")

	session, err := openFake(dev)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer session.Close()

	session.releaseInterface()
	session.releaseInterface()

	if dev.intfsClosed != 1 {
		t.Errorf("interface released %d times, want 1", dev.intfsClosed)
	}

	if dev.closed != 0 {
		t.Errorf("device closed %d times while only the interface was released", dev.closed)
	}

	if err := session.WriteData([]byte{1}); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("WriteData() on released interface error = %v, want ErrOpenFailed", err)
	}

	session.Close()

	if dev.intfsClosed != 1 || dev.closed != 1 {
		t.Errorf("closed device %d times and interface %d times, want 1 and 1", dev.closed, dev.intfsClosed)
	}
}

func TestListDevices(t *testing.T) {
	dev := newFakeDevice(0x601a, 0x4760)
	bus := &fakeBus{devices: []*fakeDevice{newFakeDevice(0x0483, 0x3748), dev}}

	found, err := ListDevices(bus, DefaultAllowlist())
	if err != nil {
		t.Fatalf("ListDevices() unexpected error: %v", err)
	}

	if len(found) != 1 || found[0].Product != 0x4760 {
		t.Errorf("ListDevices() = %v, want the jz4760", found)
	}

	if dev.opened != 0 {
		t.Errorf("ListDevices() opened the device")
	}
}

func TestParseAllowedIdentity(t *testing.T) {
	tests := []struct {
		in      string
		want    AllowedIdentity
		wantErr bool
	}{
		{in: "601a:4740", want: AllowedIdentity{0x601a, 0x4740}},
		{in: "0xa108:0x4770", want: AllowedIdentity{0xa108, 0x4770}},
		{in: " 601A:4750 ", want: AllowedIdentity{0x601a, 0x4750}},
		{in: "601a", wantErr: true},
		{in: "601a:47401", wantErr: true},
		{in: "zz:4740", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAllowedIdentity(tt.in)

		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAllowedIdentity(%q) expected error", tt.in)
			}
			continue
		}

		if err != nil || got != tt.want {
			t.Errorf("ParseAllowedIdentity(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}
