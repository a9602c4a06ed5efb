//go:build devauth

package config

const relaxExpiryAllowed = true
