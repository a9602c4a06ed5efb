// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Storage and validation sentinels.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., duplicate follow edge).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates a request that fails input validation.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Assertion verification failures.
var (
	// ErrMalformedPayload indicates the login assertion cannot be parsed or lacks required fields.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrSignatureInvalid indicates the assertion hash does not match the shared secret.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrAssertionExpired indicates auth_date is older than the accepted window.
	ErrAssertionExpired = errors.New("assertion expired")
)

// Session failures.
var (
	// ErrUnregisteredIdentity indicates a verified identity with no provisioned account.
	ErrUnregisteredIdentity = errors.New("unregistered identity")

	// ErrSessionExpired indicates a credential past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionInvalid indicates a tampered, malformed or orphaned credential.
	ErrSessionInvalid = errors.New("session invalid")
)

// Domain rejections.
var (
	// ErrSelfFollowForbidden indicates a follow whose target is the caller.
	ErrSelfFollowForbidden = errors.New("cannot follow yourself")

	// ErrTargetNotFound indicates a follow or status target with no account.
	ErrTargetNotFound = errors.New("target user not found")

	// ErrRecipientNotFound indicates a message recipient with no account.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrMessagingNotAllowed indicates the recipient disabled direct messages.
	ErrMessagingNotAllowed = errors.New("recipient does not accept direct messages")
)

// IsAuth reports whether err is a verification or session failure.
// Such failures are never retried and surface as "please re-authenticate".
func IsAuth(err error) bool {
	for _, target := range []error{
		ErrMalformedPayload,
		ErrSignatureInvalid,
		ErrAssertionExpired,
		ErrUnregisteredIdentity,
		ErrSessionExpired,
		ErrSessionInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
