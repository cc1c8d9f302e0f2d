package dvid

import (
	"errors"
	"fmt"
	"io"

	. "github.com/janelia-flyem/go/gocheck"
)

func (s *DataSuite) TestErrorKinds(c *C) {
	err := NewError(BadMagic, "open", "got %q", "ABCD")
	c.Assert(err.Error(), Equals, `open: bad magic: got "ABCD"`)
	c.Assert(errors.Is(err, ErrBadMagic), Equals, true)
	c.Assert(errors.Is(err, ErrUnsupportedVersion), Equals, false)

	wrapped := fmt.Errorf("opening dataset: %w", err)
	c.Assert(errors.Is(wrapped, ErrBadMagic), Equals, true)
	c.Assert(KindOf(wrapped), Equals, BadMagic)
	c.Assert(KindOf(io.EOF), Equals, UnknownKind)

	categories := map[ErrorKind]ErrorCategory{
		BadMagic:           FormatError,
		UnsupportedVersion: FormatError,
		CorruptDirectory:   FormatError,
		IOFailure:          IOError,
		CorruptBlock:       CompressionError,
		ChecksumMismatch:   CompressionError,
		OutOfBounds:        RangeError,
		InvalidBlockEdge:   RangeError,
		SingularMatrix:     RangeError,
		DuplicateBlock:     WriteError,
		NotFound:           LookupError,
	}
	for kind, category := range categories {
		c.Assert(kind.Category(), Equals, category, Commentf("kind %s", kind))
	}
}

func (s *DataSuite) TestIOErr(c *C) {
	c.Assert(IOErr("read", nil), IsNil)

	err := IOErr("read", io.ErrUnexpectedEOF)
	c.Assert(errors.Is(err, ErrIOFailure), Equals, true)
	c.Assert(errors.Is(err, io.ErrUnexpectedEOF), Equals, true)

	// Already classified errors keep their kind.
	inner := NewError(CorruptBlock, "decode", "bad token")
	c.Assert(KindOf(IOErr("read", inner)), Equals, CorruptBlock)
	c.Assert(WrapError(ChecksumMismatch, "read", nil), IsNil)
}
