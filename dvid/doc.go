/*
	Package dvid provides types, constants, and functions that have no other dependencies
	and can be used by all packages of the pixels engine.  This includes the grid descriptor
	and pixel types, the error conditions shared by every backing store, and leveled logging.
*/
package dvid

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
)
