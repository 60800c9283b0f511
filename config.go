// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// BoardConfig is the human readable board description, converted into the
// raw FirmwareArgs the loaders expect.
type BoardConfig struct {
	PLL struct {
		ExtClk   uint32 `mapstructure:"ext_clk"`
		CpuSpeed uint32 `mapstructure:"cpu_speed"`
		PhmDiv   uint8  `mapstructure:"phm_div"`
		UseUart  uint8  `mapstructure:"use_uart"`
		Baudrate uint32 `mapstructure:"baudrate"`
	} `mapstructure:"pll"`

	SDRAM struct {
		BusWidth   uint32 `mapstructure:"bus_width"`
		Banks      uint32 `mapstructure:"banks"`
		RowAddr    uint8  `mapstructure:"row_addr"`
		ColAddr    uint8  `mapstructure:"col_addr"`
		IsMobile   bool   `mapstructure:"is_mobile"`
		IsBusShare bool   `mapstructure:"is_busshare"`
	} `mapstructure:"sdram"`

	Debug struct {
		Ops    uint8  `mapstructure:"ops"`
		PinNum uint8  `mapstructure:"pin_num"`
		Start  uint32 `mapstructure:"start"`
		Size   uint32 `mapstructure:"size"`
	} `mapstructure:"debug"`
}

// DefaultBoardConfig describes a JZ4740 board with 12 MHz crystal, 336 MHz
// core clock and 16 bit wide SDRAM.
func DefaultBoardConfig() BoardConfig {
	var c BoardConfig

	c.PLL.ExtClk = 12
	c.PLL.CpuSpeed = 336
	c.PLL.PhmDiv = 3
	c.PLL.UseUart = 0
	c.PLL.Baudrate = 57600

	c.SDRAM.BusWidth = 16
	c.SDRAM.Banks = 4
	c.SDRAM.RowAddr = 13
	c.SDRAM.ColAddr = 9
	c.SDRAM.IsMobile = false
	c.SDRAM.IsBusShare = true

	return c
}

// FirmwareArgs converts the board description into the device record. The
// loaders want the cpu speed as a PLL multiplier, a 0/1 bus width flag and
// the bank count in units of four.
func (c BoardConfig) FirmwareArgs() (FirmwareArgs, error) {
	if c.PLL.ExtClk == 0 || c.PLL.ExtClk > 0xff {
		return FirmwareArgs{}, fmt.Errorf("pll.ext_clk %d MHz is out of range", c.PLL.ExtClk)
	}

	multiplier := c.PLL.CpuSpeed / c.PLL.ExtClk
	if multiplier == 0 || multiplier > 0xff {
		return FirmwareArgs{}, fmt.Errorf("cpu speed %d MHz is not reachable from %d MHz", c.PLL.CpuSpeed, c.PLL.ExtClk)
	}

	var busWidth uint8
	switch c.SDRAM.BusWidth {
	case 32:
		busWidth = 0
	case 16:
		busWidth = 1
	default:
		return FirmwareArgs{}, fmt.Errorf("unsupported sdram bus width %d", c.SDRAM.BusWidth)
	}

	if c.SDRAM.Banks == 0 || c.SDRAM.Banks%4 != 0 {
		return FirmwareArgs{}, fmt.Errorf("sdram bank count %d is not a multiple of 4", c.SDRAM.Banks)
	}

	args := FirmwareArgs{
		ExtClk:   uint8(c.PLL.ExtClk),
		CpuSpeed: uint8(multiplier),
		PhmDiv:   c.PLL.PhmDiv,
		UseUart:  c.PLL.UseUart,
		Baudrate: c.PLL.Baudrate,

		BusWidth: busWidth,
		BankNum:  uint8(c.SDRAM.Banks / 4),
		RowAddr:  c.SDRAM.RowAddr,
		ColAddr:  c.SDRAM.ColAddr,

		DebugOps: c.Debug.Ops,
		PinNum:   c.Debug.PinNum,
		Start:    c.Debug.Start,
		Size:     c.Debug.Size,
	}

	if c.SDRAM.IsMobile {
		args.IsMobile = 1
	}

	if c.SDRAM.IsBusShare {
		args.IsBusShare = 1
	}

	return args, nil
}

// LoadBoardConfig decodes the pll, sdram and debug sections of v on top of
// DefaultBoardConfig.
func LoadBoardConfig(v *viper.Viper) (BoardConfig, error) {
	config := DefaultBoardConfig()

	for name, target := range map[string]interface{}{
		"pll":   &config.PLL,
		"sdram": &config.SDRAM,
		"debug": &config.Debug,
	} {
		section := v.GetStringMap(name)
		if len(section) == 0 {
			continue
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           target,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return BoardConfig{}, err
		}

		if err := decoder.Decode(section); err != nil {
			return BoardConfig{}, fmt.Errorf("failed to decode %s section: %w", name, err)
		}
	}

	return config, nil
}

// LoadAllowlist reads the "devices" list of VID:PID strings, falling back to
// DefaultAllowlist when none are configured.
func LoadAllowlist(v *viper.Viper) (Allowlist, error) {
	ids := v.GetStringSlice("devices")

	if len(ids) == 0 {
		return DefaultAllowlist(), nil
	}

	allowlist := make(Allowlist, 0, len(ids))

	for _, id := range ids {
		identity, err := ParseAllowedIdentity(id)
		if err != nil {
			return nil, err
		}

		allowlist = append(allowlist, identity)
	}

	return allowlist, nil
}

// LoadTimeout reads "timeout", a duration applied to every USB transfer.
func LoadTimeout(v *viper.Viper) time.Duration {
	timeout := v.GetDuration("timeout")

	if timeout <= 0 {
		return DefaultTimeout
	}

	return timeout
}
