package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/cli/auth"
)

// storedCookie is the persisted form of one credential cookie
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"http_only"`
}

// PersistentJar is a cookie jar for one API origin whose contents survive
// between CLI runs in a TokenStore
type PersistentJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	cookies map[string]storedCookie
	origin  *url.URL
	store   auth.TokenStore
	key     string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewPersistentJar loads the jar saved for baseURL, if any
func NewPersistentJar(store auth.TokenStore, baseURL string, logger zerolog.Logger) (*PersistentJar, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	origin.Path, origin.RawQuery = "/", ""

	j := &PersistentJar{
		cookies: make(map[string]storedCookie),
		origin:  origin,
		store:   store,
		key:     auth.CookiesKey(baseURL),
		logger:  logger,
		now:     time.Now,
	}
	if j.jar, err = cookiejar.New(nil); err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	raw, err := store.LoadToken(j.key)
	if errors.Is(err, auth.ErrNotFound) {
		return j, nil
	}
	if err != nil {
		return nil, err
	}

	var saved []storedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		logger.Warn().Err(err).Msg("Discarding unreadable stored cookies")
		return j, nil
	}

	now := j.now()
	restored := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		if !sc.Expires.IsZero() && !sc.Expires.After(now) {
			continue
		}
		j.cookies[cookieID(sc.Name, sc.Domain, sc.Path)] = sc
		restored = append(restored, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Domain:   sc.Domain,
			Path:     sc.Path,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		})
	}
	j.jar.SetCookies(origin, restored)

	return j, nil
}

// SetCookies implements http.CookieJar and persists the result
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	now := j.now()
	for _, c := range cookies {
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		id := cookieID(c.Name, c.Domain, c.Path)
		if c.MaxAge < 0 || c.Value == "" || (!expires.IsZero() && !expires.After(now)) {
			delete(j.cookies, id)
			continue
		}
		j.cookies[id] = storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}

	if err := j.saveLocked(); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to persist cookies")
	}
}

// Cookies implements http.CookieJar
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// HasCredentials reports whether any credential cookie is stored
func (j *PersistentJar) HasCredentials() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.cookies) > 0
}

// Clear forgets every cookie, in memory and in the store
func (j *PersistentJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.jar = jar
	j.cookies = make(map[string]storedCookie)
	return j.store.DeleteToken(j.key)
}

// cookieID identifies a cookie the way a jar does: same name, domain and path
// means the same cookie
func cookieID(name, domain, path string) string {
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	return name + ";" + domain + ";" + path
}

func (j *PersistentJar) saveLocked() error {
	if len(j.cookies) == 0 {
		return j.store.DeleteToken(j.key)
	}

	list := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		list = append(list, c)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return j.store.SaveToken(j.key, string(data))
}
