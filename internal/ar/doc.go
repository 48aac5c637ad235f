// Package ar describes the data the measurement core consumes from an AR
// runtime: per-frame tracking state, hit-test candidates, trackables and
// anchors.
//
// Nothing in this package talks to a real device. The runtime is an external
// collaborator; package sim provides a scripted implementation for tests and
// for the replay command.
package ar
