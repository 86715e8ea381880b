package robots

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nao1215/linkhound/internal/model"
	"github.com/nao1215/linkhound/internal/urlnorm"
)

// maxSitemapSize caps the bytes read per sitemap document.
const maxSitemapSize = 10 << 20

// urlSet is the <urlset> sitemap document: a flat list of page URLs.
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapIndex is the <sitemapindex> document: a list of child sitemaps.
type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapURL `xml:"sitemap"`
}

// Sitemaps expands the sitemap URLs declared by a host's robots.txt into
// normalized page URLs. Index documents are expanded one level deep:
// a sitemapindex may list urlsets, but a nested index inside an index is
// not followed. The result is capped at the configured maximum; broken or
// unreachable sitemaps are logged and skipped.
func (r *Resolver) Sitemaps(ctx context.Context, rules model.SiteRules) []model.NormalizedURL {
	if len(rules.Sitemaps) == 0 {
		return nil
	}

	var urls []model.NormalizedURL
	for _, loc := range rules.Sitemaps {
		if len(urls) >= r.cfg.MaxSitemapURLs {
			break
		}
		urls = r.expand(ctx, loc, urls, true)
	}

	r.logger.Info("expanded sitemaps",
		slog.String("host", rules.Host),
		slog.Int("declared", len(rules.Sitemaps)),
		slog.Int("urls", len(urls)))
	return urls
}

// expand fetches one sitemap document and appends its page URLs to urls.
// followIndex permits one level of sitemapindex recursion.
func (r *Resolver) expand(ctx context.Context, loc string, urls []model.NormalizedURL, followIndex bool) []model.NormalizedURL {
	body, err := r.download(ctx, loc)
	if err != nil {
		r.logger.Warn("skipping sitemap",
			slog.String("sitemap", loc),
			slog.String("error", err.Error()))
		return urls
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		for _, entry := range set.URLs {
			if len(urls) >= r.cfg.MaxSitemapURLs {
				return urls
			}
			normalized, err := urlnorm.Normalize(entry.Loc, nil)
			if err != nil {
				r.logger.Debug("ignoring sitemap entry",
					slog.String("loc", entry.Loc),
					slog.String("error", err.Error()))
				continue
			}
			urls = append(urls, normalized)
		}
		return urls
	}

	if !followIndex {
		return urls
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil || len(index.Sitemaps) == 0 {
		r.logger.Warn("skipping sitemap: neither urlset nor sitemapindex",
			slog.String("sitemap", loc))
		return urls
	}
	for _, child := range index.Sitemaps {
		if len(urls) >= r.cfg.MaxSitemapURLs {
			break
		}
		urls = r.expand(ctx, child.Loc, urls, false)
	}
	return urls
}

func (r *Resolver) download(ctx context.Context, loc string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("build sitemap request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", loc, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", loc, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	return body, nil
}
