package domain

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultKnownDomains maps normalized company names to their mail domains.
// Companies whose mail domain differs from their common name (zoom.us,
// datadoghq.com) are the reason this table exists at all.
var defaultKnownDomains = map[string]string{
	"google":     "google.com",
	"microsoft":  "microsoft.com",
	"apple":      "apple.com",
	"amazon":     "amazon.com",
	"meta":       "meta.com",
	"facebook":   "meta.com",
	"netflix":    "netflix.com",
	"salesforce": "salesforce.com",
	"oracle":     "oracle.com",
	"ibm":        "ibm.com",
	"intel":      "intel.com",
	"cisco":      "cisco.com",
	"adobe":      "adobe.com",
	"spotify":    "spotify.com",
	"uber":       "uber.com",
	"airbnb":     "airbnb.com",
	"linkedin":   "linkedin.com",
	"twitter":    "x.com",
	"stripe":     "stripe.com",
	"shopify":    "shopify.com",
	"slack":      "slack.com",
	"zoom":       "zoom.us",
	"dropbox":    "dropbox.com",
	"hubspot":    "hubspot.com",
	"mailchimp":  "mailchimp.com",
	"twilio":     "twilio.com",
	"datadog":    "datadoghq.com",
	"snowflake":  "snowflake.com",
	"palantir":   "palantir.com",
}

// KnownDomains returns a copy of the built-in company-to-domain table,
// optionally merged with entries from a YAML file (a flat mapping of
// normalized company name to domain). File entries win on conflict.
func KnownDomains(path string) (map[string]string, error) {
	table := make(map[string]string, len(defaultKnownDomains))
	for k, v := range defaultKnownDomains {
		table[k] = v
	}

	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "domain: read known-domains file %s", path)
	}

	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, eris.Wrapf(err, "domain: parse known-domains file %s", path)
	}

	for k, v := range extra {
		table[NormalizeCompany(k)] = v
	}
	return table, nil
}
