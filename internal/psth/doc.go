// Package psth builds peri-stimulus time histograms and spike density
// functions from sorted spike trains.
//
// Spikes near each event are located by binary search, so the cost per
// event depends on the spikes inside its window, not on the length of the
// train. Density smooths the trial-averaged histogram with a boxcar and
// reports spikes/second; Matrix keeps the raw per-trial counts.
package psth
