// Package cue turns occupancy results into audio and haptic cues for
// external players: a column-by-column tone sweep over the grid and a
// left/right balance cue when an obstacle is detected.
//
// Cues only describe what should be played. Playback and vibration are the
// business of whatever sits behind a Sink.
package cue
