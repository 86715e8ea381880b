package config

// SiteConfig holds per-host overrides for crawling one site. Hosts are
// matched against the URL host (including port, if present).
type SiteConfig struct {
	// Cookie is an HTTP cookie header value to send to this host.
	// Format: "name=value" or "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are additional HTTP headers for requests to this host,
	// for example an Authorization header for staging environments.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global recursion depth for this host.
	// Zero means the global MaxDepth applies.
	Depth int `yaml:"depth,omitempty"`

	// ExcludePatterns are extra exclude regexes applied only to URLs on
	// this host, in addition to the global patterns.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`
}

// File represents the structure of the .linkhound configuration file.
type File struct {
	// Sites maps hosts to their overrides, e.g. "docs.example.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to every host unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteFor returns the effective configuration for a host, merging the
// host's overrides onto the defaults.
func (f *File) SiteFor(host string) SiteConfig {
	result := f.Defaults

	site, ok := f.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(site.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(site.ExcludePatterns) > 0 {
		result.ExcludePatterns = site.ExcludePatterns
	}
	return result
}
