// Package cbf decodes Crystallographic Binary Format (CBF) detector images.
//
// A CBF document is CIF text with one or more embedded binary sections. Each
// section looks like this on the wire:
//
//	--CIF-BINARY-FORMAT-SECTION--<CRLF>
//	Content-Type: application/octet-stream;<CRLF>
//	     conversions="x-CBF_BYTE_OFFSET"<CRLF>
//	Content-Transfer-Encoding: BINARY<CRLF>
//	X-Binary-Element-Type: "signed 32-bit integer"<CRLF>
//	...<CRLF>
//	<CRLF>
//	0C 1A 04 D5 <byte-offset compressed payload>
//	--CIF-BINARY-FORMAT-SECTION----<CRLF>
//
// # Decoding
//
// Reader walks a stream section by section. Next returns ErrNoImage once no
// further start marker exists, which is how All stops:
//
//	images, err := cbf.ReadAllImages(f)
//
// Only byte-offset compressed, little-endian, binary-encoded payloads of the
// six integer element types are decoded. Other conversions and element types
// parse as metadata but are rejected with ErrUnsupportedCompression or
// ErrUnsupportedPixelFormat.
//
// # Pixel Model
//
// An Image holds one of ten typed buffers (Buffer[uint8] ... Buffer[float64]).
// PlaneOf gives typed access; Linear and Centered address samples either by
// row-major index or relative to the image centre.
//
// # Unchecked Invariants
//
// The declared dimensions are not checked against the element count. Lookups
// that fall outside the buffer simply report no value.
package cbf
