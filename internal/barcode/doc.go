// Package barcode decodes sync barcodes from digital-line transition times.
//
// The sync device emits a burst of pulses every few tens of seconds. Each
// burst encodes an incrementing integer, LSB first, one pulse per bit:
//
//	short pulse (width < BitDuration)  -> 0
//	long pulse  (width >= BitDuration) -> 1
//
// A burst starts whenever the line has been low for longer than
// GapThreshold. The same convention is used for the master sync line and for
// every probe's copy of it, so decoded values can be matched across clocks.
package barcode
