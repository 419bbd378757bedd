package ooze

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultNamespace is used when parsing an identifier with no explicit
// namespace.
const DefaultNamespace = "minecraft"

var ErrInvalidResourceLocation = errors.New("ooze: invalid resource location")

// ResourceLocation is a namespaced identifier, like "minecraft:stone". Used
// by Minecraft for block and item IDs among other things. The zero value is
// not valid; construct through NewResourceLocation or ParseResourceLocation.
type ResourceLocation struct {
	Namespace string
	Path      string
}

// NewResourceLocation validates both parts and returns the location. An
// empty namespace is replaced with DefaultNamespace.
func NewResourceLocation(namespace, path string) (ResourceLocation, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	for i := 0; i < len(namespace); i++ {
		if !isNamespaceChar(namespace[i]) {
			return ResourceLocation{}, fmt.Errorf("%w: bad namespace %q", ErrInvalidResourceLocation, namespace)
		}
	}
	for i := 0; i < len(path); i++ {
		if !isPathChar(path[i]) {
			return ResourceLocation{}, fmt.Errorf("%w: bad path %q", ErrInvalidResourceLocation, path)
		}
	}
	return ResourceLocation{Namespace: namespace, Path: path}, nil
}

// ParseResourceLocation parses "namespace:path". A bare "path" gets the
// default namespace; more than one ':' is invalid.
func ParseResourceLocation(value string) (ResourceLocation, error) {
	switch parts := strings.Split(value, ":"); len(parts) {
	case 1:
		return NewResourceLocation(DefaultNamespace, value)
	case 2:
		return NewResourceLocation(parts[0], parts[1])
	default:
		return ResourceLocation{}, fmt.Errorf("%w: %q", ErrInvalidResourceLocation, value)
	}
}

func (r ResourceLocation) String() string {
	return r.Namespace + ":" + r.Path
}

// Namespaces may contain a-z, 0-9, periods, underscores, and dashes. Paths
// additionally allow forward slashes.
func isNamespaceChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '_' || c == '-'
}

func isPathChar(c byte) bool {
	return isNamespaceChar(c) || c == '/'
}
