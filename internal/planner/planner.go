// Package planner computes part boundary plans for multipart transfers.
//
// Planning is a pure function of file size and part size: no I/O, no side
// effects. The resulting parts cover [0, fileSize) exactly, with 1-based
// contiguous part numbers and only the final part allowed to be short.
package planner

import (
	"fmt"

	"github.com/aisdata/aisup/errors"
)

// Part is one contiguous byte range [Start, End) of a file, uploaded as an
// independent unit in a multipart transfer.
type Part struct {
	// Number is the 1-based part number
	Number int32

	// Start is the inclusive byte offset where this part begins
	Start int64

	// End is the exclusive byte offset where this part ends
	End int64
}

// Size returns the number of bytes in the part.
func (p Part) Size() int64 {
	return p.End - p.Start
}

// Plan computes the part plan for a file of fileSize bytes split into parts
// of partSize bytes. The final part may be shorter than partSize; all others
// are exactly partSize. Part lengths always sum to fileSize.
func Plan(fileSize, partSize int64) ([]Part, error) {
	if fileSize <= 0 {
		return nil, errors.NewError("plan",
			fmt.Errorf("%w: file size must be positive, got %d", errors.ErrInvalidInput, fileSize))
	}
	if partSize <= 0 {
		return nil, errors.NewError("plan",
			fmt.Errorf("%w: part size must be positive, got %d", errors.ErrInvalidInput, partSize))
	}

	numParts := (fileSize + partSize - 1) / partSize
	parts := make([]Part, 0, numParts)

	for start := int64(0); start < fileSize; start += partSize {
		end := start + partSize
		if end > fileSize {
			end = fileSize
		}
		parts = append(parts, Part{
			Number: int32(len(parts) + 1),
			Start:  start,
			End:    end,
		})
	}

	return parts, nil
}
