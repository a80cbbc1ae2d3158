package sdk

// LinkType selects the link product: dynamic links carry parameters and
// smart per-platform fallbacks, unified links are simple per-platform
// redirects.
type LinkType string

const (
	LinkTypeDynamic LinkType = "dynamic"
	LinkTypeUnified LinkType = "unified"
)

// SocialMediaTags customize how a link renders when shared.
type SocialMediaTags struct {
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
}

// LinkParameters is the outbound request model for CreateLink.
//
// For unified links the iOS URL, Android URL, and fallback URL are required;
// dynamic links only require a fallback URL.
type LinkParameters struct {
	Type   LinkType `json:"type" validate:"required,oneof=dynamic unified"`
	Domain string   `json:"domain" validate:"required"`
	Slug   string   `json:"slug,omitempty"`
	Name   string   `json:"name,omitempty"`

	IOSURL             string `json:"iosUrl,omitempty" validate:"required_if=Type unified"`
	AndroidURL         string `json:"androidUrl,omitempty" validate:"required_if=Type unified"`
	IOSFallbackURL     string `json:"iosFallbackUrl,omitempty"`
	AndroidFallbackURL string `json:"androidFallbackUrl,omitempty"`
	FallbackURL        string `json:"fallbackUrl,omitempty" validate:"required"`

	Parameters      map[string]any   `json:"parameters,omitempty"`
	SocialMediaTags *SocialMediaTags `json:"socialMediaTags,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

// DynamicLink builds the minimal parameter set for a dynamic link. Optional
// fields are set directly on the returned struct.
func DynamicLink(domain, fallbackURL string) LinkParameters {
	return LinkParameters{
		Type:        LinkTypeDynamic,
		Domain:      domain,
		FallbackURL: fallbackURL,
	}
}

// UnifiedLink builds the minimal parameter set for a unified link.
func UnifiedLink(domain, iosURL, androidURL, fallbackURL string) LinkParameters {
	return LinkParameters{
		Type:        LinkTypeUnified,
		Domain:      domain,
		IOSURL:      iosURL,
		AndroidURL:  androidURL,
		FallbackURL: fallbackURL,
	}
}

// LinkResult is the outcome of a link create or resolve call. Ordinary HTTP
// and network failures are reported through Error rather than thrown.
type LinkResult struct {
	Success bool
	URL     string
	Error   string
	Data    map[string]any
}

// ResolvedLinkData is the parsed payload of a resolved deep link.
type ResolvedLinkData struct {
	Slug               string
	Type               LinkType
	FallbackURL        string
	IOSFallbackURL     string
	AndroidFallbackURL string
	Parameters         map[string]any
	Metadata           map[string]any
	SocialMediaTags    *SocialMediaTags

	// RawData is the full server JSON the link was parsed from.
	RawData map[string]any

	// IsDeferred marks links recovered through deferred matching rather
	// than an intent.
	IsDeferred bool
	MatchType  string
}

// InstallationInfo is derived from the server bootstrap response.
type InstallationInfo struct {
	InstallationID         string
	IsReinstall            bool
	PreviousInstallationID string
	ReinstallDetectedAt    string
	PersistentDeviceID     string
}

// SessionState is the lifecycle state of the SDK session machine.
type SessionState string

const (
	SessionIdle         SessionState = "idle"
	SessionInitializing SessionState = "initializing"
	SessionActive       SessionState = "active"
	SessionEnding       SessionState = "ending"
	SessionFailed       SessionState = "failed"
)

// parseResolvedLinkData maps a resolve response body into ResolvedLinkData.
//
// Servers wrap the link payload under "data"; when that envelope is absent
// the body itself is treated as the payload. The full body is always kept in
// RawData.
func parseResolvedLinkData(body map[string]any) ResolvedLinkData {
	src := body
	if d, ok := body["data"].(map[string]any); ok {
		src = d
	}
	data := ResolvedLinkData{
		Slug:               stringField(src, "slug"),
		FallbackURL:        stringField(src, "fallbackUrl"),
		IOSFallbackURL:     stringField(src, "iosFallbackUrl"),
		AndroidFallbackURL: stringField(src, "androidFallbackUrl"),
		RawData:            body,
	}
	if t := stringField(src, "type"); t != "" {
		data.Type = LinkType(t)
	}
	if m, ok := src["parameters"].(map[string]any); ok {
		data.Parameters = m
	}
	if m, ok := src["metadata"].(map[string]any); ok {
		data.Metadata = m
	}
	if m, ok := src["socialMediaTags"].(map[string]any); ok {
		data.SocialMediaTags = &SocialMediaTags{
			OGTitle:       stringField(m, "ogTitle"),
			OGDescription: stringField(m, "ogDescription"),
			OGImage:       stringField(m, "ogImage"),
		}
	}
	// Deferred stamps survive a round-trip through last-link persistence;
	// they are written at the top level of the persisted record.
	if v, ok := src["isDeferred"].(bool); ok {
		data.IsDeferred = v
	} else if v, ok := body["isDeferred"].(bool); ok {
		data.IsDeferred = v
	}
	data.MatchType = stringField(src, "matchType")
	if data.MatchType == "" {
		data.MatchType = stringField(body, "matchType")
	}
	return data
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}
