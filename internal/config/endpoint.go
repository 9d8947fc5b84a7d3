package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Endpoints are the hosted APIs a run may talk to. Each base URL must be a
// bare https origin whose host is on that provider's allow list. An empty
// allow list means the provider's built-in hosts.
type Endpoints struct {
	OpenRouterBaseURL      string `yaml:"openrouter_base_url" validate:"endpoint=openrouter"`
	OpenRouterAllowedHosts string `yaml:"openrouter_allowed_hosts"`
	// OpenAIBaseURL is empty for the client's default.
	OpenAIBaseURL      string `yaml:"openai_base_url" validate:"omitempty,endpoint=openai"`
	OpenAIAllowedHosts string `yaml:"openai_allowed_hosts"`
}

type provider struct {
	baseEnv    string
	hostsEnv   string
	hostsField string
	hosts      []string
}

var providers = map[string]provider{
	"openrouter": {
		baseEnv:    "OPENROUTER_BASE_URL",
		hostsEnv:   "OPENROUTER_ALLOWED_HOSTS",
		hostsField: "OpenRouterAllowedHosts",
		hosts:      []string{"openrouter.ai", "api.openrouter.ai"},
	},
	"openai": {
		baseEnv:    "OPENAI_BASE_URL",
		hostsEnv:   "OPENAI_ALLOWED_HOSTS",
		hostsField: "OpenAIAllowedHosts",
		hosts:      []string{"api.openai.com"},
	},
}

func (e Endpoints) check(name string) error {
	switch name {
	case "openrouter":
		return checkEndpoint(name, e.OpenRouterBaseURL, e.OpenRouterAllowedHosts)
	case "openai":
		return checkEndpoint(name, e.OpenAIBaseURL, e.OpenAIAllowedHosts)
	}
	return fmt.Errorf("unknown endpoint provider %q", name)
}

func validEndpoint(fl validator.FieldLevel) bool {
	p, ok := providers[fl.Param()]
	if !ok {
		return false
	}
	hosts := fl.Parent().FieldByName(p.hostsField)
	if !hosts.IsValid() {
		return false
	}
	return checkEndpoint(fl.Param(), fl.Field().String(), hosts.String()) == nil
}

func checkEndpoint(name, baseURL, allowedHosts string) error {
	p, ok := providers[name]
	if !ok {
		return fmt.Errorf("unknown endpoint provider %q", name)
	}
	origin := Origin(baseURL)

	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", p.baseEnv, err)
	}
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		return fmt.Errorf("invalid %s %q: absolute URL with host is required", p.baseEnv, origin)
	case u.User != nil:
		return fmt.Errorf("invalid %s %q: userinfo is not allowed", p.baseEnv, origin)
	case u.RawQuery != "" || u.Fragment != "" || u.ForceQuery:
		return fmt.Errorf("invalid %s %q: query and fragment are not allowed", p.baseEnv, origin)
	case !strings.EqualFold(u.Scheme, "https"):
		return fmt.Errorf("invalid %s %q: https is required", p.baseEnv, origin)
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range hostList(allowedHosts, p.hosts) {
		if h == host {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q: host %q is not in %s", p.baseEnv, origin, host, p.hostsEnv)
}

// Origin trims space and trailing slashes from a configured base URL.
func Origin(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// hostList reads a comma separated host list. Schemes, paths and ports are
// dropped; an empty list yields fallback.
func hostList(v string, fallback []string) []string {
	var out []string
	for _, h := range strings.Split(v, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimPrefix(h, "https://")
		h = strings.TrimPrefix(h, "http://")
		if i := strings.IndexAny(h, "/:"); i >= 0 {
			h = h[:i]
		}
		if h != "" {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
