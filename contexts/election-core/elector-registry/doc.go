// Package electorregistry implements the Elector Registry inside the
// election-core context.
//
// The module owns the roll of eligible electors, one-time credential
// issuance (a clear voting code plus a hashed verification code), the
// monotonic has-voted flag, and the credential checks the tally engine
// performs during scrutiny. Ballot contents never pass through this module.
package electorregistry
