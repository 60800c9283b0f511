// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"sort"

	"github.com/google/gousb"
)

// 32 bit values travel in wValue (high half) and wIndex (low half)
func addrMsb(value uint32) uint16 {
	return uint16(value >> 16)
}

func addrLsb(value uint32) uint16 {
	return uint16(value & 0xffff)
}

func sortedConfigNumbers(desc *gousb.DeviceDesc) []int {
	numbers := make([]int, 0, len(desc.Configs))

	for n := range desc.Configs {
		numbers = append(numbers, n)
	}

	sort.Ints(numbers)

	return numbers
}

func cString(buffer []byte) string {
	for i, b := range buffer {
		if b == 0 {
			return string(buffer[:i])
		}
	}

	return string(buffer)
}
