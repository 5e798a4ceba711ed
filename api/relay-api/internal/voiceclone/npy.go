// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_voiceclone

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// npy v1.0, little-endian float32, C-order, 1-D. The gateway's Python side
// reads these with numpy.load, so the header must be byte-exact.

var npyMagic = []byte("\x93NUMPY\x01\x00")

// writeNPY serializes a float32 vector as an .npy file.
func writeNPY(path string, vec []float32) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d,), }", len(vec))
	// Total header (magic + 2-byte length + text) pads to a 64-byte multiple,
	// newline-terminated.
	unpadded := len(npyMagic) + 2 + len(header) + 1
	pad := (64 - unpadded%64) % 64
	header = header + strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range vec {
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// readNPY loads a float32 vector written by writeNPY or numpy.save.
func readNPY(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < len(npyMagic)+2 || !bytes.Equal(data[:len(npyMagic)], npyMagic) {
		return nil, fmt.Errorf("npy %s: bad magic", path)
	}
	headerLen := int(binary.LittleEndian.Uint16(data[len(npyMagic) : len(npyMagic)+2]))
	bodyStart := len(npyMagic) + 2 + headerLen
	if bodyStart > len(data) {
		return nil, fmt.Errorf("npy %s: truncated header", path)
	}
	header := string(data[len(npyMagic)+2 : bodyStart])
	if !strings.Contains(header, "'<f4'") {
		return nil, fmt.Errorf("npy %s: dtype is not little-endian float32", path)
	}
	n, err := parseShape(header)
	if err != nil {
		return nil, fmt.Errorf("npy %s: %w", path, err)
	}
	if len(data)-bodyStart < n*4 {
		return nil, fmt.Errorf("npy %s: body shorter than shape", path)
	}

	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[bodyStart+i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

func parseShape(header string) (int, error) {
	i := strings.Index(header, "'shape':")
	if i < 0 {
		return 0, fmt.Errorf("no shape in header")
	}
	open := strings.Index(header[i:], "(")
	closing := strings.Index(header[i:], ")")
	if open < 0 || closing < 0 || closing < open {
		return 0, fmt.Errorf("malformed shape tuple")
	}
	dims := strings.Split(header[i+open+1:i+closing], ",")
	n := 1
	count := 0
	for _, d := range dims {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		v, err := strconv.Atoi(d)
		if err != nil {
			return 0, fmt.Errorf("bad shape dim %q", d)
		}
		n *= v
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("empty shape")
	}
	return n, nil
}
