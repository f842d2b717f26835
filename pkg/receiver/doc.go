// Package receiver reads samples back from the serial line.
package receiver

// The emitter writes bare digits with nothing between values, so "5"
// followed by "23" is indistinguishable from "523" in the byte stream.
// Values are separated by timing instead: the emitter writes a whole value
// in one burst and stays silent for about a second, so a gap of IdleGap
// without bytes closes the current value. Non-digit bytes also close it,
// which covers an emitter started with a delimiter.
