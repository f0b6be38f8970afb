package pixels

// NullPlaneSize is the length of the sentinel written at the start of planes
// that have never been acquired.
const NullPlaneSize = 64

var nullPlane = func() (b [NullPlaneSize]byte) {
	for i := 0; i < NullPlaneSize; i += 2 {
		b[i] = 0x80 // -128
		b[i+1] = 0x7f
	}
	return
}()

// NullPlane returns a copy of the 64-byte null plane sentinel.
func NullPlane() []byte {
	b := nullPlane
	return b[:]
}

// IsNullPlane returns true if the leading bytes of plane match the sentinel.
// Planes shorter than the sentinel are compared over their full length.
func IsNullPlane(plane []byte) bool {
	n := len(plane)
	if n == 0 {
		return false
	}
	if n > NullPlaneSize {
		n = NullPlaneSize
	}
	for i := 0; i < n; i++ {
		if plane[i] != nullPlane[i] {
			return false
		}
	}
	return true
}

// InitNullPlane writes the sentinel at the start of plane and zeroes the rest.
func InitNullPlane(plane []byte) {
	n := copy(plane, nullPlane[:])
	for i := n; i < len(plane); i++ {
		plane[i] = 0
	}
}
