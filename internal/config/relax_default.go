//go:build !devauth

package config

// relaxExpiryAllowed gates --relax-expiry. Production builds refuse it.
const relaxExpiryAllowed = false
