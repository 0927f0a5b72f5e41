package source

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kbukum/mediascribe/errors"
)

// Kind is the coarse category of a classified source.
type Kind int

const (
	KindKnownProvider Kind = iota + 1
	KindGenericHTTP
	KindLocalFile
)

func (k Kind) String() string {
	switch k {
	case KindKnownProvider:
		return "known_provider"
	case KindGenericHTTP:
		return "generic_http"
	case KindLocalFile:
		return "local_file"
	default:
		return "unknown"
	}
}

// Family names a provider family. Different URL forms of one site share a family.
type Family string

// Known provider families.
const (
	FamilyYouTube  Family = "youtube"
	FamilyVimeo    Family = "vimeo"
	FamilyBilibili Family = "bilibili"
)

// Classified is the result of classifying a request source.
type Classified struct {
	Kind   Kind
	Family Family
	// URL is set for KindKnownProvider and KindGenericHTTP.
	URL *url.URL
	// Path is the cleaned filesystem path for KindLocalFile.
	Path string
	// Raw is the trimmed input.
	Raw string
	// MediaID is the provider's identifier when the URL form exposes one.
	MediaID string
	// Playlist marks collection pages (playlists, channels, showcases).
	Playlist bool
	// Live marks live-stream pages.
	Live bool
}

// IsRemote reports whether the source needs acquisition over the network.
func (c Classified) IsRemote() bool {
	return c.Kind == KindKnownProvider || c.Kind == KindGenericHTTP
}

// Label is a short description for logs: the family, or the kind.
func (c Classified) Label() string {
	if c.Family != "" {
		return string(c.Family)
	}
	return c.Kind.String()
}

var (
	youtubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoIDPattern    = regexp.MustCompile(`^[0-9]+$`)
	bilibiliIDPattern = regexp.MustCompile(`^(BV[0-9A-Za-z]{10}|av[0-9]+)$`)
)

// Classify inspects raw and returns its classification. It fails only with
// INVALID_INPUT for an empty or malformed reference.
func Classify(raw string) (Classified, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Classified{}, errors.InvalidInput("source", "source is required")
	}
	if strings.ContainsRune(raw, 0) {
		return Classified{}, errors.InvalidInput("source", "source contains a NUL byte")
	}

	if scheme, ok := schemeOf(raw); ok {
		switch scheme {
		case "http", "https":
			return classifyURL(raw)
		case "file":
			u, err := url.Parse(raw)
			if err != nil || u.Path == "" {
				return Classified{}, errors.InvalidInput("source", "malformed file URL")
			}
			return localFile(raw, u.Path), nil
		default:
			return Classified{}, errors.InvalidInput("source", "unsupported URL scheme "+scheme)
		}
	}

	// Bare "youtu.be/…" style references without a scheme.
	if host, _, _ := strings.Cut(raw, "/"); familyOfHost(strings.ToLower(host)) != "" {
		return classifyURL("https://" + raw)
	}
	return localFile(raw, raw), nil
}

// schemeOf returns the lowercased scheme when raw starts with "<scheme>://".
func schemeOf(raw string) (string, bool) {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return "", false
	}
	for i, r := range scheme {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isAlpha && (i == 0 || !strings.ContainsRune("0123456789+-.", r)) {
			return "", false
		}
	}
	return strings.ToLower(scheme), true
}

func localFile(raw, path string) Classified {
	return Classified{Kind: KindLocalFile, Path: filepath.Clean(path), Raw: raw}
}

func classifyURL(raw string) (Classified, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Classified{}, errors.InvalidInput("source", "malformed URL").WithCause(err)
	}
	if u.Hostname() == "" {
		return Classified{}, errors.InvalidInput("source", "URL has no host")
	}
	u.Scheme = strings.ToLower(u.Scheme)

	c := Classified{Kind: KindGenericHTTP, URL: u, Raw: raw}
	host := strings.ToLower(u.Hostname())
	family := familyOfHost(host)
	if family == "" {
		return c, nil
	}
	c.Kind = KindKnownProvider
	c.Family = family

	segments := pathSegments(u.Path)
	switch family {
	case FamilyYouTube:
		classifyYouTube(&c, host, segments, u.Query())
	case FamilyVimeo:
		classifyVimeo(&c, host, segments)
	case FamilyBilibili:
		classifyBilibili(&c, host, segments)
	}
	return c, nil
}

func familyOfHost(host string) Family {
	host = strings.TrimPrefix(host, "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "youtube-nocookie.com":
		return FamilyYouTube
	case "vimeo.com", "player.vimeo.com":
		return FamilyVimeo
	case "bilibili.com", "m.bilibili.com", "live.bilibili.com", "space.bilibili.com", "b23.tv":
		return FamilyBilibili
	}
	return ""
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func classifyYouTube(c *Classified, host string, seg []string, q url.Values) {
	if strings.TrimPrefix(host, "www.") == "youtu.be" {
		if len(seg) > 0 && youtubeIDPattern.MatchString(seg[0]) {
			c.MediaID = seg[0]
		}
		return
	}
	if len(seg) == 0 {
		return
	}
	switch seg[0] {
	case "watch":
		if v := q.Get("v"); youtubeIDPattern.MatchString(v) {
			c.MediaID = v
		}
	case "shorts", "embed", "v":
		if len(seg) > 1 && youtubeIDPattern.MatchString(seg[1]) {
			c.MediaID = seg[1]
		}
	case "live":
		c.Live = true
		if len(seg) > 1 && youtubeIDPattern.MatchString(seg[1]) {
			c.MediaID = seg[1]
		}
	case "playlist", "channel", "c", "user":
		c.Playlist = true
	default:
		if strings.HasPrefix(seg[0], "@") {
			c.Playlist = true
			if len(seg) > 1 && seg[1] == "live" {
				c.Playlist = false
				c.Live = true
			}
		}
	}
}

func classifyVimeo(c *Classified, host string, seg []string) {
	if strings.TrimPrefix(host, "www.") == "player.vimeo.com" {
		if len(seg) > 1 && seg[0] == "video" && vimeoIDPattern.MatchString(seg[1]) {
			c.MediaID = seg[1]
		}
		return
	}
	if len(seg) == 0 {
		return
	}
	last := seg[len(seg)-1]
	switch seg[0] {
	case "showcase", "album":
		c.Playlist = true
	case "channels", "groups":
		// channels/<name>/<id> points at one video inside the channel.
		if len(seg) > 2 && vimeoIDPattern.MatchString(last) {
			c.MediaID = last
		} else {
			c.Playlist = true
		}
	case "event":
		c.Live = true
	default:
		if vimeoIDPattern.MatchString(seg[0]) {
			c.MediaID = seg[0]
		}
	}
}

func classifyBilibili(c *Classified, host string, seg []string) {
	switch strings.TrimPrefix(host, "www.") {
	case "live.bilibili.com":
		c.Live = true
		return
	case "space.bilibili.com":
		c.Playlist = true
		return
	case "b23.tv":
		// Short links resolve server-side; the ID is not visible here.
		return
	}
	if len(seg) > 1 && seg[0] == "video" && bilibiliIDPattern.MatchString(seg[1]) {
		c.MediaID = seg[1]
	}
}

// CheckAcquirable rejects playlist and live-stream sources with
// UNSUPPORTED_CONTENT before any data transfer starts.
func (c Classified) CheckAcquirable() error {
	switch {
	case c.Playlist:
		return errors.Unsupported("playlists and channel pages are not supported, submit a single video URL")
	case c.Live:
		return errors.Unsupported("live streams are not supported")
	}
	return nil
}
