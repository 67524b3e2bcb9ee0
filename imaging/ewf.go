// An ingestor for EWF (Expert Witness Format) evidence containers
// (.E01, .E02, ...). All segments of the set are opened together and
// the ewf parser presents the decompressed media as one address
// space.

package imaging

import (
	"fmt"
	"io"
	"os"

	"github.com/Velocidex/go-ewf/parser"
	errors "github.com/pkg/errors"
)

type ewfReader struct {
	ewf     *parser.EWFFile
	closers []io.Closer
}

func (self *ewfReader) ReadAt(buf []byte, offset int64) (int, error) {
	n, err := self.ewf.ReadAt(buf, offset)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (self *ewfReader) Close() error {
	for _, fd := range self.closers {
		fd.Close()
	}
	return nil
}

// Acquisition tools write the segment extension in either case
// (.E01/.E02 or .e01/.e02). Follow whatever case the first segment
// carries or the rest of the set is missed on case sensitive
// filesystems.
func ewfSegments(path string) ([]string, error) {
	letter := "E"
	m := ewfSegmentRegex.FindStringSubmatch(path)
	if m != nil {
		letter = m[2]
	}

	return listSegments(path, ewfSegmentRegex,
		func(base string, idx int) string {
			return fmt.Sprintf("%s.%s%02d", base, letter, idx)
		})
}

func openEWF(path string) (*Handle, error) {
	segments, err := ewfSegments(path)
	if err != nil {
		return nil, err
	}

	readers := []io.ReaderAt{}
	closers := []io.Closer{}
	for _, segment := range segments {
		fd, err := os.Open(segment)
		if err != nil {
			for _, closer := range closers {
				closer.Close()
			}
			return nil, err
		}
		readers = append(readers, fd)
		closers = append(closers, fd)
	}

	ewf_file, err := parser.OpenEWFFile(&parser.EWFOptions{}, readers...)
	if err != nil {
		for _, closer := range closers {
			closer.Close()
		}
		return nil, errors.Wrapf(ErrImageFormat, "ewf: %v", err)
	}

	reader := &ewfReader{ewf: ewf_file, closers: closers}
	return &Handle{
		path:    path,
		format:  FormatEWF,
		size:    ewf_file.TotalImageSize,
		reader:  reader,
		closers: []io.Closer{reader},
	}, nil
}
