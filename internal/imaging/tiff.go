package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"

	"golang.org/x/image/tiff"
)

// maxTIFFPages bounds the IFD walk so a cyclic chain cannot loop forever.
const maxTIFFPages = 1 << 16

var errBadTIFF = errors.New("malformed TIFF header")

// decodeTIFFPages decodes every page of a (possibly multi-page) TIFF file.
//
// golang.org/x/image/tiff only decodes the first IFD. Each further page is
// decoded by pointing the header's first-IFD offset at that page and decoding
// the same buffer again.
func decodeTIFFPages(path string) ([]*image.Gray16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	offsets, order, err := tiffIFDOffsets(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	planes := make([]*image.Gray16, 0, len(offsets))
	for i, off := range offsets {
		order.PutUint32(data[4:8], off)
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: page %d: %w", i, err)
		}
		planes = append(planes, ToGray16(img))
	}
	return planes, nil
}

// tiffIFDOffsets walks the IFD chain and returns the offset of every page.
func tiffIFDOffsets(data []byte) ([]uint32, binary.ByteOrder, error) {
	if len(data) < 8 {
		return nil, nil, errBadTIFF
	}

	var order binary.ByteOrder
	switch string(data[0:4]) {
	case "II\x2A\x00":
		order = binary.LittleEndian
	case "MM\x00\x2A":
		order = binary.BigEndian
	default:
		return nil, nil, errBadTIFF
	}

	var offsets []uint32
	seen := make(map[uint32]bool)
	for off := order.Uint32(data[4:8]); off != 0; {
		if seen[off] || len(offsets) >= maxTIFFPages {
			return nil, nil, fmt.Errorf("%w: IFD chain loops", errBadTIFF)
		}
		if int64(off)+2 > int64(len(data)) {
			return nil, nil, fmt.Errorf("%w: IFD offset %d beyond end of file", errBadTIFF, off)
		}
		seen[off] = true
		offsets = append(offsets, off)

		n := int64(order.Uint16(data[off : off+2]))
		next := int64(off) + 2 + 12*n
		if next+4 > int64(len(data)) {
			// Truncated trailer: treat as the last page.
			break
		}
		off = order.Uint32(data[next : next+4])
	}

	if len(offsets) == 0 {
		return nil, nil, fmt.Errorf("%w: no image directories", errBadTIFF)
	}
	return offsets, order, nil
}
