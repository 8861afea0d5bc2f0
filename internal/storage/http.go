package storage

import (
	"net/http"
	"sync"
)

// HTTPCookieJar serves the cookie half of the adapter from an HTTP exchange:
// reads come from the request, writes become Set-Cookie headers and are
// visible to later reads in the same exchange.
type HTTPCookieJar struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	cookies map[string]string
}

func NewHTTPCookieJar(w http.ResponseWriter, r *http.Request) *HTTPCookieJar {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	return &HTTPCookieJar{w: w, cookies: cookies}
}

func (j *HTTPCookieJar) Cookie(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.cookies[name]
	return v, ok
}

func (j *HTTPCookieJar) SetCookie(c *http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c.MaxAge < 0 {
		delete(j.cookies, c.Name)
	} else {
		j.cookies[c.Name] = c.Value
	}
	http.SetCookie(j.w, c)
}
