// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

const hexPadding = 0xff

// ReadImage loads a whole stage image into memory. Files ending in .hex are
// parsed as Intel HEX and flattened from their lowest to highest address.
func ReadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, NewUsbError("read "+path, ErrFileReadFailed, 0, err)
	}

	if len(data) == 0 {
		return nil, NewUsbError("read "+path, ErrFileReadFailed, 0, errors.New("file is empty"))
	}

	if strings.EqualFold(filepath.Ext(path), ".hex") {
		return flattenIntelHex(path, data)
	}

	logger.Debugf("read %d bytes from '%s'", len(data), path)

	return data, nil
}

func flattenIntelHex(path string, data []byte) ([]byte, error) {
	mem := gohex.NewMemory()

	if err := mem.ParseIntelHex(bytes.NewReader(data)); err != nil {
		return nil, NewUsbError("parse "+path, ErrFileReadFailed, 0, err)
	}

	segments := mem.GetDataSegments()

	if len(segments) == 0 {
		return nil, NewUsbError("parse "+path, ErrFileReadFailed, 0, errors.New("no data records"))
	}

	first := segments[0].Address
	last := segments[len(segments)-1]
	size := last.Address + uint32(len(last.Data)) - first

	logger.Debugf("flattened %d hex segments from '%s' into %d bytes at 0x%08x", len(segments), path, size, first)

	return mem.ToBinary(first, size, hexPadding), nil
}
