package cloud

import (
	"errors"
	"strings"
)

var ErrUnknownProvider = errors.New("unknown cloud provider")

// Provider identifies a cloud media provider. The string value is the
// canonical lowercase tag used to namespace ids in merged collections.
// Tags never collide with the local "image"/"video" id tags.
type Provider string

const (
	ProviderMinIO  Provider = "minio"
	ProviderS3     Provider = "s3"
	ProviderCustom Provider = "custom"
)

// Providers lists every supported provider in a fixed order.
var Providers = []Provider{ProviderMinIO, ProviderS3, ProviderCustom}

func (p Provider) String() string {
	return string(p)
}

// Label returns the capitalized display name, used to disambiguate a cloud
// album from a local album of the same name ("Vacation (MinIO)").
func (p Provider) Label() string {
	switch p {
	case ProviderMinIO:
		return "MinIO"
	case ProviderS3:
		return "S3"
	case ProviderCustom:
		return "Custom"
	}
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// ParseProvider resolves a namespace tag to a known provider.
// Matching is case-insensitive; the canonical form is lowercase.
func ParseProvider(tag string) (Provider, error) {
	candidate := Provider(strings.ToLower(tag))
	for _, p := range Providers {
		if p == candidate {
			return p, nil
		}
	}
	return "", ErrUnknownProvider
}

// EncodeID prefixes a provider-native id with the provider tag so the item
// stays traceable to its origin inside a merged collection.
func EncodeID(p Provider, nativeID string) string {
	return string(p) + ":" + nativeID
}

// DecodeID strips the provider prefix from id. ok is false when the id has
// no prefix at all or the prefix belongs to a different provider. Malformed
// input never panics; the native id may itself contain colons, so only the
// first colon is significant.
func DecodeID(p Provider, id string) (string, bool) {
	prefix, rest, found := strings.Cut(id, ":")
	if !found {
		return "", false
	}
	if !strings.EqualFold(prefix, string(p)) {
		return "", false
	}
	return rest, true
}

// SplitID separates the namespace tag from the remainder of a composite id
// without validating the tag. Callers dispatch on the tag and forward the
// remainder, which may itself be a namespaced id.
func SplitID(id string) (tag, rest string, ok bool) {
	return strings.Cut(id, ":")
}
