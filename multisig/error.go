package multisig

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of engine failure.
type ErrorCode int

const (
	// ErrInvalidKeyCount indicates a redeem script was requested for a key
	// set other than two keys.
	ErrInvalidKeyCount ErrorCode = iota

	// ErrInvalidPublicKey indicates bytes that are not a compressed
	// secp256k1 point.
	ErrInvalidPublicKey

	// ErrUnsupportedNetwork indicates a missing or unknown network.
	ErrUnsupportedNetwork

	// ErrNoMultisigPeer indicates a spend was attempted on a wallet that
	// only has a single key configured.
	ErrNoMultisigPeer

	// ErrInsufficientBalance indicates the UTXO set cannot cover the
	// requested amount and fee.
	ErrInsufficientBalance

	// ErrInvalidAmount indicates a non-positive payment, a negative fee or a
	// negative UTXO value.
	ErrInvalidAmount

	// ErrValueOverflow indicates a value sum beyond the maximum number of
	// satoshi.
	ErrValueOverflow

	// ErrDuplicateInput indicates the same outpoint appears twice in the
	// UTXO set.
	ErrDuplicateInput

	// ErrDestinationAddressInvalid indicates the destination does not decode
	// for the configured network.
	ErrDestinationAddressInvalid

	// ErrChangeAddressInvalid indicates the change address does not decode
	// for the configured network.
	ErrChangeAddressInvalid

	// ErrInvalidRedeemScript indicates a script that is not a multisig
	// script or cannot be used for signing.
	ErrInvalidRedeemScript

	// ErrUnsupportedSigningMethod indicates a signing method this wallet
	// type does not know.
	ErrUnsupportedSigningMethod

	// ErrRawSigningNotSupported indicates a request to sign the raw
	// unhashed transaction.
	ErrRawSigningNotSupported

	// ErrIssuerValidationNotSupported indicates a request for an issuer
	// co-signature validation step.
	ErrIssuerValidationNotSupported

	// ErrSignatureBlobLengthMismatch indicates the signer returned a blob
	// whose length is not 64 bytes per input.
	ErrSignatureBlobLengthMismatch

	// ErrInvalidSignatureEncoding indicates an (r, s) pair outside the
	// valid scalar range.
	ErrInvalidSignatureEncoding

	// ErrSignatureMismatch indicates a well formed signature that does not
	// verify against any key of the redeem script for its input digest.
	ErrSignatureMismatch

	// ErrInputIndexOutOfRange indicates a signature for a non-existent
	// input.
	ErrInputIndexOutOfRange

	// ErrIncompleteSignatures indicates an assembly finished before every
	// input was sealed.
	ErrIncompleteSignatures

	// ErrSighash indicates the digest computation itself failed.
	ErrSighash

	// ErrScriptBuild indicates a script builder failure.
	ErrScriptBuild
)

var errorCodeStrings = map[ErrorCode]string{
	ErrInvalidKeyCount:              "ErrInvalidKeyCount",
	ErrInvalidPublicKey:             "ErrInvalidPublicKey",
	ErrUnsupportedNetwork:           "ErrUnsupportedNetwork",
	ErrNoMultisigPeer:               "ErrNoMultisigPeer",
	ErrInsufficientBalance:          "ErrInsufficientBalance",
	ErrInvalidAmount:                "ErrInvalidAmount",
	ErrValueOverflow:                "ErrValueOverflow",
	ErrDuplicateInput:               "ErrDuplicateInput",
	ErrDestinationAddressInvalid:    "ErrDestinationAddressInvalid",
	ErrChangeAddressInvalid:         "ErrChangeAddressInvalid",
	ErrInvalidRedeemScript:          "ErrInvalidRedeemScript",
	ErrUnsupportedSigningMethod:     "ErrUnsupportedSigningMethod",
	ErrRawSigningNotSupported:       "ErrRawSigningNotSupported",
	ErrIssuerValidationNotSupported: "ErrIssuerValidationNotSupported",
	ErrSignatureBlobLengthMismatch:  "ErrSignatureBlobLengthMismatch",
	ErrInvalidSignatureEncoding:     "ErrInvalidSignatureEncoding",
	ErrSignatureMismatch:            "ErrSignatureMismatch",
	ErrInputIndexOutOfRange:         "ErrInputIndexOutOfRange",
	ErrIncompleteSignatures:         "ErrIncompleteSignatures",
	ErrSighash:                      "ErrSighash",
	ErrScriptBuild:                  "ErrScriptBuild",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// ErrorClass groups error codes by how a caller should react to them.
type ErrorClass int

const (
	// ClassConfiguration errors are fatal and never retried.
	ClassConfiguration ErrorClass = iota

	// ClassInsufficientFunds errors are user actionable, e.g. by asking
	// for a different amount.
	ClassInsufficientFunds

	// ClassInvalidInput errors reject caller supplied amounts or
	// addresses.
	ClassInvalidInput

	// ClassUnsupported errors mean this wallet type cannot perform the
	// operation at all.
	ClassUnsupported

	// ClassMalformedSignature errors mean the signer and the engine are out
	// of sync; the caller should derive fresh digests and sign again.
	ClassMalformedSignature
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassInsufficientFunds:
		return "insufficient funds"
	case ClassInvalidInput:
		return "invalid input"
	case ClassUnsupported:
		return "unsupported"
	case ClassMalformedSignature:
		return "malformed signature"
	}
	return fmt.Sprintf("Unknown ErrorClass (%d)", int(c))
}

// Class returns the handling class of the code.
func (e ErrorCode) Class() ErrorClass {
	switch e {
	case ErrInsufficientBalance:
		return ClassInsufficientFunds
	case ErrInvalidAmount, ErrValueOverflow, ErrDuplicateInput,
		ErrDestinationAddressInvalid, ErrChangeAddressInvalid,
		ErrInputIndexOutOfRange, ErrIncompleteSignatures:
		return ClassInvalidInput
	case ErrUnsupportedSigningMethod, ErrRawSigningNotSupported,
		ErrIssuerValidationNotSupported, ErrNoMultisigPeer:
		return ClassUnsupported
	case ErrSignatureBlobLengthMismatch, ErrInvalidSignatureEncoding,
		ErrSignatureMismatch:
		return ClassMalformedSignature
	}
	return ClassConfiguration
}

// Error is the error type returned by every engine operation.
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

func (e Error) Unwrap() error {
	return e.Err
}

func newError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode reports whether err is an engine Error with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == c
}

// Retryable reports whether err signals a signer desync that a fresh
// digest-and-sign cycle may resolve. Every other engine error is permanent
// for the inputs that produced it.
func Retryable(err error) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode.Class() == ClassMalformedSignature
}
