package ai

import (
	"encoding/binary"
	"errors"
	"time"
)

var ErrNotWAV = errors.New("not a wav stream")

// WAVDuration reads the duration from a RIFF/WAVE header. Streaming servers
// often leave the data chunk size unset, in which case the remaining bytes are used.
func WAVDuration(data []byte) (time.Duration, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, ErrNotWAV
	}

	var byteRate uint32
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(data) {
				return 0, errors.New("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, errors.New("data chunk before fmt chunk")
			}
			size := int64(chunkSize)
			if remaining := int64(len(data) - body); chunkSize == 0 || chunkSize == 0xFFFFFFFF || size > remaining {
				size = remaining
			}
			return time.Duration(float64(size) / float64(byteRate) * float64(time.Second)), nil
		}

		pos = body + int(chunkSize)
		if pos%2 != 0 {
			pos++
		}
	}

	return 0, errors.New("missing data chunk")
}
