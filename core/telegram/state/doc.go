// Package state tracks per-user conversation steps and their scratch data.
//
// A session is a step name plus a flat string map. Entering a step replaces
// the previous scratch, Clear drops everything, and an expired or missing
// session reads as StepIdle. Two backends are provided: an in-process map and
// Redis with a per-session TTL.
package state
