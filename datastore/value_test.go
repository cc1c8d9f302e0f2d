package datastore

import (
	. "github.com/janelia-flyem/go/gocheck"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

func (s *DataSuite) TestValues(c *C) {
	v, err := UintValue(format.Uint16, 65535)
	c.Assert(err, IsNil)
	c.Assert(v.Bytes(), DeepEquals, []byte{0xff, 0xff})
	c.Assert(v.String(), Equals, "65535")
	_, err = UintValue(format.Uint16, 65536)
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)
	_, err = UintValue(format.Int16, 1)
	c.Assert(dvid.KindOf(err), Equals, dvid.OutOfBounds)

	v, err = IntValue(format.Int8, -128)
	c.Assert(err, IsNil)
	c.Assert(v.Int(), Equals, int64(-128))
	c.Assert(v.Bytes(), DeepEquals, []byte{0x80})
	c.Assert(v.Float(), Equals, float64(-128))
	_, err = IntValue(format.Int8, 128)
	c.Assert(err, NotNil)

	v, err = IntValue(format.Int32, -2)
	c.Assert(err, IsNil)
	c.Assert(ValueFromBytes(format.Int32, v.Bytes()), Equals, v)

	v, err = FloatValue(format.Float32, 1.5)
	c.Assert(err, IsNil)
	c.Assert(v.Float(), Equals, 1.5)
	c.Assert(v.String(), Equals, "1.5")
	_, err = FloatValue(format.Uint8, 1.5)
	c.Assert(err, NotNil)

	v, err = ChannelsValue(format.RGB8, 10, 20, 30)
	c.Assert(err, IsNil)
	c.Assert(v.Channel(1), Equals, uint8(20))
	c.Assert(v.String(), Equals, "(10,20,30)")
	_, err = ChannelsValue(format.RGBA8, 10, 20, 30)
	c.Assert(err, NotNil)

	c.Assert(ZeroValue(format.Float64).Float(), Equals, 0.0)
	c.Assert(ZeroValue(format.Uint8) == ZeroValue(format.Int8), Equals, false)
}

func (s *DataSuite) TestParseValue(c *C) {
	v, err := parseValue(format.Uint32, nil)
	c.Assert(err, IsNil)
	c.Assert(v, Equals, ZeroValue(format.Uint32))

	v, err = parseValue(format.Uint32, int64(7))
	c.Assert(err, IsNil)
	c.Assert(v.Uint(), Equals, uint64(7))
	_, err = parseValue(format.Uint32, int64(-7))
	c.Assert(err, NotNil)

	v, err = parseValue(format.Float64, int64(3))
	c.Assert(err, IsNil)
	c.Assert(v.Float(), Equals, 3.0)
	_, err = parseValue(format.Int64, 2.5)
	c.Assert(err, NotNil)

	v, err = parseValue(format.RGBA8, []interface{}{int64(1), int64(2), int64(3), int64(255)})
	c.Assert(err, IsNil)
	c.Assert(v.Channel(3), Equals, uint8(255))
	_, err = parseValue(format.RGBA8, []interface{}{int64(1), int64(2), int64(3), int64(256)})
	c.Assert(err, NotNil)
	_, err = parseValue(format.RGB8, int64(1))
	c.Assert(err, NotNil)
	_, err = parseValue(format.Uint8, "one")
	c.Assert(err, NotNil)
}
