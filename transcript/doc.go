// Package transcript turns raw chat transcript lines into typed chat records.
//
// A transcript line has the shape
//
//	[<timestamp>] <author>: <message>
//
// ParseLine handles one line; Aggregate runs a whole transcript through the
// parser, keeping every parsed record in input order and collecting the lines
// that failed to parse so the caller can log or reject them.
package transcript
