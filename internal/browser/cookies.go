package browser

import "github.com/go-rod/rod/lib/proto"

// Cookie is the persisted form of a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
	Priority string  `json:"priority,omitempty"`
}

// Session reports whether the cookie lives only for the browser session.
func (c Cookie) Session() bool {
	return c.Expires <= 0
}

func cookieFromProto(c *proto.NetworkCookie) Cookie {
	return Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  float64(c.Expires),
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: string(c.SameSite),
		Priority: string(c.Priority),
	}
}

func (c Cookie) param() *proto.NetworkCookieParam {
	p := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: proto.NetworkCookieSameSite(c.SameSite),
		Priority: proto.NetworkCookiePriority(c.Priority),
	}
	if !c.Session() {
		p.Expires = proto.TimeSinceEpoch(c.Expires)
	}
	return p
}
