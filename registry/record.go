package registry

import (
	"encoding/hex"
	"fmt"

	"github.com/blang/semver"
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/pixels/dvid"
)

// RecordVersion is the version of the record encoding written by this package.
// Records with a greater major version are rejected.
var RecordVersion = semver.MustParse("1.0.0")

// Record is the registered metadata of one pixel set.
type Record struct {
	ID   uint64
	Grid dvid.Grid

	// VendorPath is the vendor file backing the pixel set, or "" if the pixels
	// are held in a canonical flat file.
	VendorPath string

	// Digest is the SHA-1 of the pixel data, or nil if not yet computed.
	Digest []byte

	Version semver.Version
}

func (r *Record) String() string {
	digest := "none"
	if len(r.Digest) != 0 {
		digest = hex.EncodeToString(r.Digest)
	}
	if r.VendorPath != "" {
		return fmt.Sprintf("pixels %d (%s) vendor file %s, digest %s", r.ID, r.Grid, r.VendorPath, digest)
	}
	return fmt.Sprintf("pixels %d (%s), digest %s", r.ID, r.Grid, digest)
}

const recordFields = 10

// MarshalMsg implements msgp.Marshaler.  A record is a fixed-length array.
func (r *Record) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, r.Msgsize())
	o = msgp.AppendArrayHeader(o, recordFields)
	o = msgp.AppendString(o, r.Version.String())
	o = msgp.AppendUint64(o, r.ID)
	for _, size := range r.Grid.Sizes() {
		o = msgp.AppendInt(o, size)
	}
	o = msgp.AppendUint8(o, uint8(r.Grid.PixelType))
	o = msgp.AppendString(o, r.VendorPath)
	o = msgp.AppendBytes(o, r.Digest)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (r *Record) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var sz uint32
	sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if sz != recordFields {
		err = msgp.ArrayError{Wanted: recordFields, Got: sz}
		return
	}
	var version string
	version, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return
	}
	r.Version, err = semver.Parse(version)
	if err != nil {
		return
	}
	if r.Version.Major > RecordVersion.Major {
		err = fmt.Errorf("record version %s is newer than supported version %s", r.Version, RecordVersion)
		return
	}
	r.ID, bts, err = msgp.ReadUint64Bytes(bts)
	if err != nil {
		return
	}
	var sizes [dvid.NumAxes]int
	for i := range sizes {
		sizes[i], bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
	}
	r.Grid.SizeX, r.Grid.SizeY, r.Grid.SizeZ, r.Grid.SizeC, r.Grid.SizeT = sizes[0], sizes[1], sizes[2], sizes[3], sizes[4]
	var pt uint8
	pt, bts, err = msgp.ReadUint8Bytes(bts)
	if err != nil {
		return
	}
	r.Grid.PixelType = dvid.PixelType(pt)
	r.VendorPath, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return
	}
	r.Digest, bts, err = msgp.ReadBytesBytes(bts, nil)
	if err != nil {
		return
	}
	if len(r.Digest) == 0 {
		r.Digest = nil
	}
	o = bts
	return
}

// Msgsize returns an upper bound on the encoded size of the record.
func (r *Record) Msgsize() (s int) {
	s = msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(r.Version.String()) + msgp.Uint64Size +
		dvid.NumAxes*msgp.IntSize + msgp.Uint8Size +
		msgp.StringPrefixSize + len(r.VendorPath) + msgp.BytesPrefixSize + len(r.Digest)
	return
}
