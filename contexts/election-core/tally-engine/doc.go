// Package tallyengine counts sealed ballots. It opens each envelope with the
// authority's keys, verifies the blind signature and the elector verification
// code, rejects fraudulent ballots into a scrutiny log, and certifies final
// results when a session closes.
package tallyengine
