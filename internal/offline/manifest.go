package offline

import (
	"fmt"
	"sort"

	"github.com/wildfrostsss/Blood-pressure/internal/checksum"
)

// VendorScript is a third-party dependency cached at install time and
// served through the vendor proxy (charting library, PDF generator,
// rasterizer).
type VendorScript struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Manifest is the fixed set of resources a cache version is populated
// from: same-origin static paths plus external vendor scripts.
type Manifest struct {
	StaticPaths []string
	Vendor      []VendorScript
}

// DefaultStaticPaths lists the app shell: root document, stylesheet,
// script bundle, web manifest, favicon and the icon set.
func DefaultStaticPaths() []string {
	paths := []string{
		"/",
		"/index.html",
		"/style.css",
		"/script.js",
		"/manifest.json",
		"/favicon.ico",
	}
	for _, size := range []string{"72x72", "96x96", "128x128", "144x144", "152x152", "192x192", "384x384", "512x512"} {
		paths = append(paths, "/assets/icons/icon-"+size+".png")
	}
	return paths
}

// VendorPath returns the request path a vendor script is cached and
// served under.
func VendorPath(name string) string {
	return "/vendor/" + name
}

// vendorURL resolves a vendor path back to its upstream URL, or "".
func (m Manifest) vendorURL(path string) string {
	for _, v := range m.Vendor {
		if VendorPath(v.Name) == path {
			return v.URL
		}
	}
	return ""
}

// Fingerprint derives a content fingerprint for the manifest from the
// current bytes of its static assets. Vendor URLs participate by name and
// URL only; their content lives upstream.
func (m Manifest) Fingerprint(assets AssetSource) (string, error) {
	paths := append([]string(nil), m.StaticPaths...)
	sort.Strings(paths)

	var combined []byte
	for _, p := range paths {
		e, err := assets.Fetch(p)
		if err != nil {
			return "", fmt.Errorf("offline: fingerprint %s: %w", p, err)
		}
		combined = append(combined, []byte(p)...)
		combined = append(combined, e.Body...)
	}
	for _, v := range m.Vendor {
		combined = append(combined, []byte(v.Name+"="+v.URL)...)
	}
	return checksum.Short(combined), nil
}

// BucketName builds the version-tagged cache bucket name, e.g.
// "blood-pressure-diary-3f2a9c1d04be".
func BucketName(prefix, fingerprint string) string {
	return prefix + "-" + fingerprint
}
