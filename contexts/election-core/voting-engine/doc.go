// Package votingengine implements the Voting Engine inside the election-core
// context.
//
// The module owns voting sessions, the append-only urn of sealed ballots,
// and the atomic cast path: eligibility and double-vote checks, blind
// signing and sealing of the ballot payload, and the single-step commit that
// marks the elector as having voted while the ballot enters the urn. Outbox
// events leave through a relay worker; a closer worker retires sessions past
// their scheduled end.
package votingengine
