package utils

import (
	"io"
	"sync"
)

// Provide a ReaderAt interface on a ReadSeeker.
type ReaderAtter struct {
	mu     sync.Mutex
	Reader io.ReadSeeker
}

func (self *ReaderAtter) ReadAt(buf []byte, offset int64) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	_, err := self.Reader.Seek(offset, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return self.Reader.Read(buf)
}

func MakeReaderAtter(fd io.ReadSeeker) io.ReaderAt {
	reader_at, ok := fd.(io.ReaderAt)
	if ok {
		return reader_at
	}
	return &ReaderAtter{Reader: fd}
}

// A bounded window into a larger ReaderAt. Used to present a single
// partition as its own address space.
type OffsetReader struct {
	Reader io.ReaderAt
	Offset int64
	Size   int64
}

func (self *OffsetReader) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset >= self.Size {
		return 0, io.EOF
	}

	to_read := int64(len(buf))
	if offset+to_read > self.Size {
		to_read = self.Size - offset
	}

	n, err := self.Reader.ReadAt(buf[:to_read], self.Offset+offset)
	if err == nil && int64(n) < int64(len(buf)) {
		err = io.EOF
	}
	return n, err
}

// Wrap a ReaderAt with a Read/Seek interface.
type ReadSeekReaderAdapter struct {
	mu     sync.Mutex
	reader io.ReaderAt
	offset int64
	size   int64
}

func NewReadSeekReaderAdapter(reader io.ReaderAt, size int64) *ReadSeekReaderAdapter {
	return &ReadSeekReaderAdapter{reader: reader, size: size}
}

func (self *ReadSeekReaderAdapter) Read(buf []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.offset >= self.size {
		return 0, io.EOF
	}

	n, err := self.reader.ReadAt(buf, self.offset)
	self.offset += int64(n)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (self *ReadSeekReaderAdapter) Seek(offset int64, whence int) (int64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	switch whence {
	case io.SeekStart:
		self.offset = offset
	case io.SeekCurrent:
		self.offset += offset
	case io.SeekEnd:
		self.offset = self.size + offset
	}
	return self.offset, nil
}

func (self *ReadSeekReaderAdapter) Close() error {
	return nil
}
