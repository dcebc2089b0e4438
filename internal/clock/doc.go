// Package clock reconciles a probe's clock with the master sync clock.
//
// Both devices log the same barcode stream. Barcodes are matched by decoded
// value, never by position, because the recordings start and stop at
// different times and only partially overlap. A least-squares line through
// the matched (probe time, master time) pairs gives
//
//	master = Scale*local + Offset
//
// and every timestamp read from that probe goes through ClockMap.Apply
// before it is compared with stimulus or behavior times.
package clock
