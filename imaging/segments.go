package imaging

import (
	"io"
	"os"
)

// Stitch a set of raw segments into one address space. Reads that
// span a seam are assembled from both sides.
type segmentSet struct {
	files  []*os.File
	starts []int64
	total  int64
}

func (self *segmentSet) add(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}

	st, err := fd.Stat()
	if err != nil {
		fd.Close()
		return err
	}

	self.files = append(self.files, fd)
	self.starts = append(self.starts, self.total)
	self.total += st.Size()
	return nil
}

func (self *segmentSet) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset >= self.total {
		return 0, io.EOF
	}

	read := 0
	for idx := self.segmentFor(offset); idx < len(self.files); idx++ {
		segment_offset := offset - self.starts[idx]

		n, err := self.files[idx].ReadAt(buf[read:], segment_offset)
		read += n
		offset += int64(n)

		if read == len(buf) {
			return read, nil
		}

		// EOF within a segment just moves us to the next one.
		if err != nil && err != io.EOF {
			return read, err
		}
		if offset >= self.total {
			return read, io.EOF
		}
	}
	return read, io.EOF
}

func (self *segmentSet) segmentFor(offset int64) int {
	for idx := len(self.starts) - 1; idx >= 0; idx-- {
		if offset >= self.starts[idx] {
			return idx
		}
	}
	return 0
}

func (self *segmentSet) Close() error {
	for _, fd := range self.files {
		fd.Close()
	}
	return nil
}
