package store

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// PersistentJar is a cookie jar that remembers what the backend set so the
// jar can be written to a JarStore and restored later.
type PersistentJar struct {
	jar *cookiejar.Jar

	mu      sync.Mutex
	records map[string]StoredCookie
	dirty   bool
	now     func() time.Time
}

// NewPersistentJar builds a jar and replays stored cookies into it.
func NewPersistentJar(stored []StoredCookie) (*PersistentJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	p := &PersistentJar{jar: jar, records: make(map[string]StoredCookie), now: time.Now}
	for _, sc := range stored {
		if !sc.Expires.IsZero() && p.now().After(sc.Expires) {
			continue
		}
		u, err := url.Parse(sc.URL)
		if err != nil {
			continue
		}
		jar.SetCookies(u, []*http.Cookie{sc.cookie()})
		p.records[sc.recordKey()] = sc
	}
	return p, nil
}

func (p *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jar.SetCookies(u, cookies)
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
	for _, c := range cookies {
		sc := StoredCookie{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge > 0:
			sc.Expires = p.now().Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			sc.Expires = c.Expires
		}
		key := sc.recordKey()
		if c.MaxAge < 0 || (!sc.Expires.IsZero() && !sc.Expires.After(p.now())) {
			delete(p.records, key)
		} else {
			p.records[key] = sc
		}
		p.dirty = true
	}
}

func (p *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	p.mu.Lock()
	jar := p.jar
	p.mu.Unlock()
	return jar.Cookies(u)
}

// Clear forgets every cookie. The jar is marked dirty so the empty set is
// persisted.
func (p *PersistentJar) Clear() {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jar = jar
	clear(p.records)
	p.dirty = true
}

// Dirty reports whether cookies changed since the last Export.
func (p *PersistentJar) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Export returns the live cookies and clears the dirty flag.
func (p *PersistentJar) Export() []StoredCookie {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StoredCookie, 0, len(p.records))
	for key, sc := range p.records {
		if !sc.Expires.IsZero() && p.now().After(sc.Expires) {
			delete(p.records, key)
			continue
		}
		out = append(out, sc)
	}
	p.dirty = false
	return out
}

func (sc StoredCookie) recordKey() string {
	return sc.URL + "|" + sc.Domain + "|" + sc.Path + "|" + sc.Name
}

func (sc StoredCookie) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     sc.Name,
		Value:    sc.Value,
		Path:     sc.Path,
		Domain:   sc.Domain,
		Expires:  sc.Expires,
		Secure:   sc.Secure,
		HttpOnly: sc.HttpOnly,
	}
}
