// Package webapp verifies Telegram Mini App initData so API requests can be
// attributed to a Telegram user without trusting the client.
package webapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("initdata signature mismatch")
	ErrExpired          = errors.New("initdata expired")
	ErrNoUser           = errors.New("initdata has no user")
)

// Verifier checks initData signatures for one bot token.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier derives the signing secret from the bot token per the Telegram
// WebApp scheme: secret = HMAC_SHA256("WebAppData", botToken).
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return &Verifier{
		secret: mac.Sum(nil),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// UserID validates the raw initData query string and returns the embedded
// Telegram user id.
func (v *Verifier) UserID(initData string) (int64, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, fmt.Errorf("parse initdata: %w", err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return 0, ErrInvalidSignature
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	checkString := strings.Join(lines, "\n")

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return 0, ErrInvalidSignature
	}

	if v.maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return 0, ErrExpired
		}
		if v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
			return 0, ErrExpired
		}
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return 0, ErrNoUser
	}
	return user.ID, nil
}
