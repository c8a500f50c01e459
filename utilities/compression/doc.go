// Package compression shrinks pre-formatted ratsfs images used as golden
// test fixtures (rtestutil builds and compresses one at test time).
//
// A logical block is 1KiB and most of it is unused on a freshly formatted or
// lightly populated image: long runs of zero bytes in the data region, the
// bitmaps, and the padding around directory entries. Run-length encoding the
// raw image first, then gzipping the result, squeezes that waste out far
// better than gzip alone manages on the repeated-byte runs.
//
// The run-length scheme used here is RLE8, the one the Microsoft BMP format
// uses: a byte B occurring N consecutive times (N >= 2) is written as B, B,
// followed by an unsigned byte giving the count of additional repeats. For
// example:
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// Three bytes can therefore represent a run up to 257 bytes long; anything
// longer is split into multiple runs (a run of 300 "X" becomes `XX 255 XX
// 41`). One quirk falls out of using the repeated byte as its own escape: a
// byte appearing exactly twice still costs three bytes (the pair, plus a
// trailing zero meaning "no further repeats").
package compression
