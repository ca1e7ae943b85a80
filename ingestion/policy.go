package ingestion

import (
	"fmt"
	"strings"

	"github.com/poiesic/newsdesk/core"
)

// DedupPolicy selects how a pipeline decides an item is already stored.
type DedupPolicy string

const (
	// DedupKey looks up the content-hash key of the item link.
	DedupKey DedupPolicy = "key"
	// DedupProbe runs a link-filtered top-1 search with a probe vector.
	DedupProbe DedupPolicy = "probe"
)

// ParseDedupPolicy converts a configuration value into a DedupPolicy.
// An empty value selects DedupKey.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch DedupPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case DedupKey, "":
		return DedupKey, nil
	case DedupProbe:
		return DedupProbe, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDedupPolicy, s)
}

// MissingLinkPolicy selects what happens to items without a link.
type MissingLinkPolicy string

const (
	// MissingLinkSkip drops link-less items.
	MissingLinkSkip MissingLinkPolicy = "skip"
	// MissingLinkAlwaysNew stores link-less items without an existence check.
	MissingLinkAlwaysNew MissingLinkPolicy = "always_new"
)

// ParseMissingLinkPolicy converts a configuration value into a MissingLinkPolicy.
// An empty value selects MissingLinkSkip.
func ParseMissingLinkPolicy(s string) (MissingLinkPolicy, error) {
	switch MissingLinkPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case MissingLinkSkip, "":
		return MissingLinkSkip, nil
	case MissingLinkAlwaysNew:
		return MissingLinkAlwaysNew, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMissingLinkPolicy, s)
}

// TextSelector picks the text of an item that is sent to the embedder.
type TextSelector func(item core.SourceItem) string

// TitleText embeds the item title. It is the default selector.
func TitleText(item core.SourceItem) string {
	return item.Title
}

// DescriptionText embeds the item description.
func DescriptionText(item core.SourceItem) string {
	return item.Description
}
