// Package crypto verifies login assertions signed by the external identity platform.
package crypto

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
)

// DefaultMaxAge is the accepted age of auth_date.
const DefaultMaxAge = 300 * time.Second

// keyDerivationLabel is the fixed HMAC key used to derive the per-bot secret.
const keyDerivationLabel = "WebAppData"

const (
	fieldHash     = "hash"
	fieldAuthDate = "auth_date"
	fieldUser     = "user"
)

// VerifyOptions tunes Verify.
type VerifyOptions struct {
	// MaxAge is the clock skew tolerance for auth_date; zero means DefaultMaxAge.
	MaxAge time.Duration
	// RelaxExpiry accepts stale assertions. Development policy only:
	// config refuses it outside devauth builds.
	RelaxExpiry bool
}

// webAppUser mirrors the platform's user object. Unknown fields are rejected.
type webAppUser struct {
	ID                    *int64 `json:"id"`
	IsBot                 bool   `json:"is_bot"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Username              string `json:"username"`
	LanguageCode          string `json:"language_code"`
	IsPremium             bool   `json:"is_premium"`
	AddedToAttachmentMenu bool   `json:"added_to_attachment_menu"`
	AllowsWriteToPM       bool   `json:"allows_write_to_pm"`
	PhotoURL              string `json:"photo_url"`
}

type pair struct{ key, value string }

// Verify checks raw against the shared secret and returns the asserted principal.
// It performs no I/O and never logs.
func Verify(raw string, secret []byte, nowUnix int64, opts VerifyOptions) (model.Principal, error) {
	fields, err := url.ParseQuery(raw)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: query encoding", errs.ErrMalformedPayload)
	}
	hashes, ok := fields[fieldHash]
	if !ok || len(hashes) == 0 || hashes[0] == "" {
		return model.Principal{}, fmt.Errorf("%w: missing hash", errs.ErrMalformedPayload)
	}
	fields.Del(fieldHash)

	expected := signature(CheckString(fields), secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(hashes[0])) != 1 {
		return model.Principal{}, errs.ErrSignatureInvalid
	}

	authDate, err := strconv.ParseInt(fields.Get(fieldAuthDate), 10, 64)
	if err != nil || authDate <= 0 {
		return model.Principal{}, fmt.Errorf("%w: bad auth_date", errs.ErrMalformedPayload)
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	window := int64(maxAge / time.Second)
	// A date further ahead than the window is never accepted, relaxed or not.
	if authDate > nowUnix+window {
		return model.Principal{}, errs.ErrAssertionExpired
	}
	if authDate < nowUnix-window && !opts.RelaxExpiry {
		return model.Principal{}, errs.ErrAssertionExpired
	}

	p, err := decodeUser(fields.Get(fieldUser))
	if err != nil {
		return model.Principal{}, err
	}
	p.AuthDate = time.Unix(authDate, 0).UTC()
	return p, nil
}

// CheckString builds the canonical string covered by the signature:
// pairs sorted byte-wise by key, rendered key=value, joined by '\n'.
// Repeated keys keep their transmission order.
func CheckString(fields url.Values) string {
	pairs := make([]pair, 0, len(fields))
	for k, vs := range fields {
		if k == fieldHash {
			continue
		}
		for _, v := range vs {
			pairs = append(pairs, pair{key: k, value: v})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

// Sign returns fields encoded as an assertion with a valid hash appended.
// It is the inverse of Verify and is meant for tests and local tooling.
func Sign(fields url.Values, secret []byte) string {
	cp := url.Values{}
	for k, vs := range fields {
		if k == fieldHash {
			continue
		}
		cp[k] = append([]string(nil), vs...)
	}
	h := signature(CheckString(cp), secret)
	return cp.Encode() + "&" + fieldHash + "=" + h
}

func signature(check string, secret []byte) string {
	derive := hmac.New(sha256.New, []byte(keyDerivationLabel))
	derive.Write(secret)
	mac := hmac.New(sha256.New, derive.Sum(nil))
	mac.Write([]byte(check))
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeUser(raw string) (model.Principal, error) {
	if raw == "" {
		return model.Principal{}, fmt.Errorf("%w: missing user", errs.ErrMalformedPayload)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	var u webAppUser
	if err := dec.Decode(&u); err != nil {
		return model.Principal{}, fmt.Errorf("%w: user: %v", errs.ErrMalformedPayload, err)
	}
	if dec.More() {
		return model.Principal{}, fmt.Errorf("%w: user: trailing data", errs.ErrMalformedPayload)
	}
	if u.ID == nil || *u.ID <= 0 {
		return model.Principal{}, fmt.Errorf("%w: user.id", errs.ErrMalformedPayload)
	}
	if strings.TrimSpace(u.FirstName) == "" {
		return model.Principal{}, fmt.Errorf("%w: user.first_name", errs.ErrMalformedPayload)
	}
	return model.Principal{
		ExternalID: model.ExternalID(*u.ID),
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		AvatarURL:  u.PhotoURL,
	}, nil
}
