package format

// Alignment utilities for plane geometry.

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Align returns n aligned up to the next multiple of a.
// a must be a power of two; a value <= 1 leaves n unchanged.
//
// Example:
//
//	Align(1, 16)  = 16
//	Align(16, 16) = 16
//	Align(17, 16) = 32
func Align(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) & ^(a - 1)
}

// AlignPage returns n aligned up to the next 4KB boundary.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n int) int {
	return (n + PageMask) & ^PageMask
}

// PlaneLength returns the byte length a plane needs before alignment:
// ceil(stride * bpp * height / 8).
func PlaneLength(stridePixels, bpp, height int) int {
	bits := stridePixels * bpp * height
	return (bits + 7) / 8
}

// BytesPerPixel returns bpp/8, never less than 1.
func BytesPerPixel(bpp int) int {
	if b := bpp >> 3; b > 0 {
		return b
	}
	return 1
}
