package state

import "time"

// Cookie is one jar entry in boundary-safe form
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// CookieJar holds cookies in insertion order with unique (name, domain, path)
type CookieJar struct {
	cookies []Cookie
}

// NewCookieJar creates a jar seeded with the given cookies
func NewCookieJar(cookies []Cookie) *CookieJar {
	jar := &CookieJar{cookies: make([]Cookie, len(cookies))}
	copy(jar.cookies, cookies)
	return jar
}

// Get returns the first cookie matching name
func (j *CookieJar) Get(name string) (Cookie, bool) {
	for _, c := range j.cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// Set inserts or replaces a cookie matching (name, domain, path)
func (j *CookieJar) Set(c Cookie) {
	for i := range j.cookies {
		if j.cookies[i].Name == c.Name && j.cookies[i].Domain == c.Domain && j.cookies[i].Path == c.Path {
			j.cookies[i] = c
			return
		}
	}
	j.cookies = append(j.cookies, c)
}

// All returns a copy of every cookie in insertion order
func (j *CookieJar) All() []Cookie {
	out := make([]Cookie, len(j.cookies))
	copy(out, j.cookies)
	return out
}

// Clone returns an independent deep copy
func (j *CookieJar) Clone() *CookieJar {
	if j == nil {
		return NewCookieJar(nil)
	}
	return NewCookieJar(j.cookies)
}
