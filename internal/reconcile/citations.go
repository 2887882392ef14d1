package reconcile

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// trackingParamRe matches query parameters that vary per click without
// changing what the URL identifies.
var trackingParamRe = regexp.MustCompile(`^(utm_.*|fbclid|gclid|mc_cid|mc_eid|ref|ref_src)$`)

// NormalizeURL canonicalizes a source URL for identity comparison: scheme
// and host lowercased, fragment stripped, tracking parameters removed, and
// the remaining query re-encoded in sorted key order so parameter order
// never affects identity. Unparseable URLs are returned trimmed as-is.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if trackingParamRe.MatchString(strings.ToLower(key)) {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// CitationKey is the identity key for deduplication: claim text and
// normalized source URL, joined by a separator that cannot occur in a URL.
func CitationKey(c model.Citation) string {
	return strings.TrimSpace(c.ClaimText) + "§" + NormalizeURL(c.SourceURL)
}

// DedupeCitations collapses raw citations onto unique identity keys.
// The first-seen record wins for required fields; later duplicates only
// fill in optional fields the kept record is missing, never overwrite a
// present value. After the fold, documented defaults cover anything still
// absent. The operation is idempotent: running it on its own output yields
// the same set.
func DedupeCitations(raw []model.Citation) []model.Citation {
	index := map[string]int{}
	var out []model.Citation

	for _, c := range raw {
		key := CitationKey(c)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, c)
			continue
		}
		out[i] = fillMissing(out[i], c)
	}

	if dropped := len(raw) - len(out); dropped > 0 {
		zap.L().Debug("reconcile: citations deduplicated",
			zap.Int("input", len(raw)),
			zap.Int("unique", len(out)),
			zap.Int("dropped", dropped),
		)
	}

	for i := range out {
		out[i] = applyCitationDefaults(out[i])
	}
	return out
}

// fillMissing copies optional fields from donor into kept only where kept
// has no value.
func fillMissing(kept, donor model.Citation) model.Citation {
	if kept.SourceTitle == "" {
		kept.SourceTitle = donor.SourceTitle
	}
	if kept.AuthorityScore == 0 {
		kept.AuthorityScore = donor.AuthorityScore
	}
	if kept.VerificationStatus == "" {
		kept.VerificationStatus = donor.VerificationStatus
	}
	if kept.SourceOrigin == "" {
		kept.SourceOrigin = donor.SourceOrigin
	}
	if kept.InfluenceWeight == nil {
		kept.InfluenceWeight = donor.InfluenceWeight
	}
	if kept.ScenarioID == 0 {
		kept.ScenarioID = donor.ScenarioID
	}
	return kept
}

// applyCitationDefaults fills documented defaults for still-absent fields.
// Defaults never overwrite a value that survived the merge.
func applyCitationDefaults(c model.Citation) model.Citation {
	if c.AuthorityScore == 0 {
		c.AuthorityScore = model.DefaultAuthorityScore
	}
	if c.VerificationStatus == "" {
		c.VerificationStatus = model.VerificationUnverified
	}
	if c.SourceOrigin == "" {
		c.SourceOrigin = model.OriginUnknown
	}
	return c
}

// BuildSourcesTable derives the consolidated sources table from the
// deduplicated citation set: one row per normalized URL with a citation
// count. Rows sort by citation count descending, then title.
func BuildSourcesTable(citations []model.Citation) []model.SourceRow {
	index := map[string]int{}
	var rows []model.SourceRow

	for _, c := range citations {
		key := NormalizeURL(c.SourceURL)
		if i, ok := index[key]; ok {
			rows[i].Citations++
			if rows[i].Title == "" {
				rows[i].Title = c.SourceTitle
			}
			continue
		}
		title := c.SourceTitle
		if title == "" {
			if u, err := url.Parse(key); err == nil && u.Host != "" {
				title = u.Host
			} else {
				title = key
			}
		}
		index[key] = len(rows)
		rows = append(rows, model.SourceRow{
			Title:     title,
			URL:       key,
			Origin:    c.SourceOrigin,
			Citations: 1,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Citations != rows[j].Citations {
			return rows[i].Citations > rows[j].Citations
		}
		return rows[i].Title < rows[j].Title
	})
	return rows
}
