// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	ingenicboot "github.com/shiv50084/ingenic-boot"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	list := flag.BoolP("list", "l", false, "only list matching devices")
	debug := flag.BoolP("debug", "d", false, "enable debug output")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
		ingenicboot.SetLogger(log.StandardLogger())
	}

	log.Info("Starting usb XBurst test-software...")

	bus, err := ingenicboot.NewUsbBus(0)

	if err != nil {
		log.Panic(err)
	}

	defer bus.Close()

	if *list {
		devices, err := ingenicboot.ListDevices(bus, ingenicboot.DefaultAllowlist())

		if err != nil {
			log.Error(err)
		}

		for _, desc := range devices {
			fmt.Printf("%03d:%03d %04x:%04x\n", desc.Bus, desc.Address, uint16(desc.Vendor), uint16(desc.Product))
		}

		return
	}

	session, err := ingenicboot.Open(bus, ingenicboot.NewSessionConfig(nil, ingenicboot.FirmwareArgs{}))

	if err != nil {
		log.Error(err)
		bus.Close()
		os.Exit(1)
	}

	identity, err := session.Identify()

	if err == nil {
		log.Infof("Found %s", identity)
	} else {
		log.Error(err)
	}

	session.Close()
}
