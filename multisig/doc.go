// Package multisig builds and finishes spends from a 1-of-2 P2SH multisig
// wallet whose signatures come from an external signer.
//
// A spend is two-phase. BuildUnsignedTransaction and DigestsToSign produce the
// per-input legacy SIGHASH_ALL digests that are handed to the signer; once
// the signer returns one 64-byte r||s signature per input,
// AssembleSignedTransaction and Serialize produce the raw transaction. No
// private key ever reaches this package and every function is pure.
package multisig
