package dmcam

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-semccd/internal/util"
	"github.com/arloliu/go-semccd/semccd"
)

// bytesPerPixel is the sample width of acquired images: unsigned 16-bit.
const bytesPerPixel = 2

// ProcessingMode selects the reference processing applied by the host to an
// acquired image.
type ProcessingMode int

const (
	// Dark acquires a dark reference frame.
	Dark ProcessingMode = iota
	// Unprocessed acquires the raw image.
	Unprocessed
	// DarkSubtracted acquires a dark-subtracted image.
	DarkSubtracted
	// GainNormalized acquires a gain-normalized image.
	GainNormalized
)

// String implements fmt.Stringer.
func (m ProcessingMode) String() string {
	switch m {
	case Dark:
		return "dark"
	case Unprocessed:
		return "unprocessed"
	case DarkSubtracted:
		return "dark-subtracted"
	case GainNormalized:
		return "gain-normalized"
	default:
		return fmt.Sprintf("ProcessingMode(%d)", int(m))
	}
}

// processingFlag returns the numeric processing flag the plugin expects for
// non-dark acquisitions.
func (m ProcessingMode) processingFlag() (int64, bool) {
	switch m {
	case Unprocessed:
		return 0, true
	case DarkSubtracted:
		return 1, true
	case GainNormalized:
		return 2, true
	default:
		return 0, false
	}
}

// valid reports whether m is one of the defined modes.
func (m ProcessingMode) valid() bool {
	return m >= Dark && m <= GainNormalized
}

// AcquireParams describes one image acquisition.
//
// Exposure is in seconds; ShutterDelay in milliseconds. Top/Left/Bottom/
// Right bound the readout area in binned coordinates.
type AcquireParams struct {
	Processing   ProcessingMode
	Height       int64
	Width        int64
	Binning      int64
	Top          int64
	Left         int64
	Bottom       int64
	Right        int64
	Exposure     float64
	Corrections  int64
	Shutter      int64
	ShutterDelay int64
}

// Image is a received 2-D frame of unsigned 16-bit samples in row-major
// order.
type Image struct {
	Width  int
	Height int
	Pix    []uint16
}

// At returns the sample at row y, column x.
func (im *Image) At(y, x int) uint16 {
	return im.Pix[y*im.Width+x]
}

// GetImage acquires one frame and receives its pixels via the chunked
// sub-protocol.
//
// The header response carries a status, the pixel count, the actual
// dimensions, and the chunk count N. The pixel payload then arrives in N
// chunks of ceil(totalBytes/N) bytes (the last chunk may be shorter), read
// raw off the socket; before every chunk after the first the client sends a
// handshake message as a pacing signal.
//
// A negative header status is returned as a *RemoteStatusError so callers
// can branch on the code without treating it as a transport failure.
func (c *Connection) GetImage(p AcquireParams) (*Image, error) {
	if !p.Processing.valid() {
		return nil, fmt.Errorf("invalid processing mode %d", int(p.Processing))
	}

	req := newAcquireRequest(p)

	// The lock spans the whole transfer: the handshake messages and raw
	// chunk reads belong to the same positional exchange as the header.
	c.mu.Lock()
	defer c.mu.Unlock()

	hdr, err := c.exchangeLocked(req, &semccd.Shape{Longs: 5})
	if err != nil {
		return nil, err
	}

	status := hdr.LongArgs[0]
	if status < 0 {
		return nil, &RemoteStatusError{Op: "GetImage", Code: status}
	}

	pixels := hdr.LongArgs[1]
	width := int(hdr.LongArgs[2])
	height := int(hdr.LongArgs[3])
	numChunks := int(hdr.LongArgs[4])

	if pixels <= 0 || width <= 0 || height <= 0 || numChunks <= 0 {
		return nil, fmt.Errorf("invalid image header: pixels=%d width=%d height=%d chunks=%d",
			pixels, width, height, numChunks)
	}

	numBytes := int(pixels) * bytesPerPixel
	chunkSize := util.CeilDiv(numBytes, numChunks)

	c.logger.Debug("receiving image", "width", width, "height", height, "chunks", numChunks, "bytes", numBytes)

	data := make([]byte, numBytes)
	received := 0
	for chunk := 0; chunk < numChunks; chunk++ {
		if chunk > 0 {
			// Pacing handshake; the host sends the next chunk only after
			// receiving it. No response is expected.
			handshake := semccd.NewRequest(semccd.FuncChunkHandshake, nil, nil, nil, nil)
			if _, err := c.exchangeLocked(handshake, nil); err != nil {
				return nil, fmt.Errorf("chunk %d handshake: %w", chunk+1, err)
			}
		}

		thisChunk := min(chunkSize, numBytes-received)
		if err := c.recvFullLocked(data[received : received+thisChunk]); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk+1, err)
		}
		received += thisChunk
	}

	pix := make([]uint16, pixels)
	for i := range pix {
		pix[i] = binary.LittleEndian.Uint16(data[i*bytesPerPixel:])
	}

	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// newAcquireRequest builds the acquisition request. Dark reference
// acquisitions use their own function code and omit the processing flag and
// shutter delay slots.
func newAcquireRequest(p AcquireParams) *semccd.Message {
	name := semccd.FuncGetAcquiredImage
	if p.Processing == Dark {
		name = semccd.FuncGetDarkReference
	}

	const (
		divideBy2 = int64(0)
		settling  = 0.0
	)

	longs := make([]int64, 0, 13)
	longs = append(longs, p.Width*p.Height, p.Width, p.Height)
	if flag, ok := p.Processing.processingFlag(); ok {
		longs = append(longs, flag)
	}
	longs = append(longs, p.Binning, p.Top, p.Left, p.Bottom, p.Right, p.Shutter)
	if p.Processing != Dark {
		longs = append(longs, p.ShutterDelay)
	}
	longs = append(longs, divideBy2, p.Corrections)

	return semccd.NewRequest(name, longs, nil, []float64{p.Exposure, settling}, nil)
}
