// Package connstate tracks per-connection state: the control stream, the
// set of open data streams and the SUBGROUP header each remembers, the
// bidirectional track-alias/TrackIdentifier map, and the per-track
// "current group" cursor used by LatestGroup/LatestObject filters.
package connstate
