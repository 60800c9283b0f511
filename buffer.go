// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package ingenicboot

import (
	"bytes"
	"errors"
)

// Buffer builds and consumes the little endian records the XBurst loaders
// read from their own image.
type Buffer struct {
	bytes.Buffer
}

func NewBuffer(initSize int) *Buffer {
	b := &Buffer{}

	b.Grow(initSize)

	return b
}

func (buf *Buffer) WriteUint32LE(value uint32) {
	buf.WriteByte(byte(value))
	buf.WriteByte(byte(value >> 8))
	buf.WriteByte(byte(value >> 16))
	buf.WriteByte(byte(value >> 24))
}

func (buf *Buffer) WriteUint16LE(value uint16) {
	buf.WriteByte(byte(value))
	buf.WriteByte(byte(value >> 8))
}

var errShortRecord = errors.New("record ends before all fields were read")

// ReadUint32LE consumes four bytes.
func (buf *Buffer) ReadUint32LE() (uint32, error) {
	if buf.Len() < 4 {
		return 0, errShortRecord
	}

	b := buf.Next(4)

	return uint32(b[0]) | (uint32(b[1]) << 8) | (uint32(b[2]) << 16) | (uint32(b[3]) << 24), nil
}

func (buf *Buffer) ReadUint8() (uint8, error) {
	b, err := buf.ReadByte()

	if err != nil {
		return 0, errShortRecord
	}

	return b, nil
}
