package admin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/karloscodes/fiberadmin/cache"
)

const sessionKeyPrefix = "session:"

var errInvalidSession = errors.New("admin: invalid session cookie")

// Session identifies a signed-in admin.
type Session struct {
	Token     string    `json:"-"`
	AdminID   uint      `json:"admin_id"`
	Username  string    `json:"username"`
	Provider  string    `json:"provider"`
	ExpiresAt time.Time `json:"expires_at"`
}

// sessionStore keeps session state in the cache. The cookie only carries
// the HMAC-signed token.
type sessionStore struct {
	store      cache.Store
	cookieName string
	secret     []byte
	secure     bool
	path       string
}

func (s *sessionStore) create(c *fiber.Ctx, adminID uint, username, provider string, ttl time.Duration) (*Session, error) {
	session := &Session{
		Token:     uuid.NewString(),
		AdminID:   adminID,
		Username:  username,
		Provider:  provider,
		ExpiresAt: time.Now().Add(ttl),
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("admin: encode session: %w", err)
	}
	if err := s.store.WriteWithTTL(c.UserContext(), sessionKeyPrefix+session.Token, payload, ttl); err != nil {
		return nil, fmt.Errorf("admin: store session: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    s.sign(session.Token),
		Path:     s.path,
		MaxAge:   int(ttl.Seconds()),
		Expires:  session.ExpiresAt,
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return session, nil
}

// load returns nil without error when the request has no usable session.
func (s *sessionStore) load(c *fiber.Ctx) (*Session, error) {
	value := c.Cookies(s.cookieName)
	if value == "" {
		return nil, nil
	}
	token, err := s.verify(value)
	if err != nil {
		return nil, nil
	}

	payload, ok := s.store.Read(c.UserContext(), sessionKeyPrefix+token)
	if !ok {
		return nil, nil
	}
	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, nil
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	session.Token = token
	return &session, nil
}

func (s *sessionStore) destroy(c *fiber.Ctx) error {
	var err error
	if token, verr := s.verify(c.Cookies(s.cookieName)); verr == nil {
		err = s.store.Delete(c.UserContext(), sessionKeyPrefix+token)
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     s.path,
		MaxAge:   -1,
		Expires:  time.Now().Add(-24 * time.Hour),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return err
}

func (s *sessionStore) sign(token string) string {
	sig := s.computeHMAC([]byte(token))
	return token + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (s *sessionStore) verify(value string) (string, error) {
	token, sigEnc, ok := strings.Cut(value, ".")
	if !ok || token == "" {
		return "", errInvalidSession
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigEnc)
	if err != nil {
		return "", errInvalidSession
	}
	if !hmac.Equal(s.computeHMAC([]byte(token)), sig) {
		return "", errInvalidSession
	}
	return token, nil
}

func (s *sessionStore) computeHMAC(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
