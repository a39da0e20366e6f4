package types

import (
	"sort"
	"strings"
)

// ArtifactCategory names a class of deployable artifact that can be removed
// from a deployment.
type ArtifactCategory string

const (
	// CategoryAll is a meta-category that expands to every concrete category.
	CategoryAll ArtifactCategory = "all"

	// CategoryAPI is the compute-api service (App Runner).
	CategoryAPI ArtifactCategory = "api"

	// CategoryWeb is the compute-frontend service (App Runner).
	CategoryWeb ArtifactCategory = "web"

	// CategoryDB is the durable data store.
	CategoryDB ArtifactCategory = "db"

	// CategoryWorker is the serverless worker (function, queue, image).
	CategoryWorker ArtifactCategory = "worker"

	// CategoryConfiguration is the per-deployment configuration store.
	CategoryConfiguration ArtifactCategory = "configuration"
)

// Catalog is the full set of categories accepted from callers, including the
// "all" meta-category.
var Catalog = []ArtifactCategory{
	CategoryAll,
	CategoryAPI,
	CategoryWeb,
	CategoryDB,
	CategoryWorker,
	CategoryConfiguration,
}

// String returns the category name.
func (c ArtifactCategory) String() string {
	return string(c)
}

// IsMeta reports whether the category expands to other categories.
func (c ArtifactCategory) IsMeta() bool {
	return c == CategoryAll
}

// IsDurable reports whether the whole category holds durable data.
func (c ArtifactCategory) IsDurable() bool {
	return c == CategoryDB
}

// CatalogNames returns the catalog as plain strings, in catalog order.
func CatalogNames(catalog []ArtifactCategory) []string {
	names := make([]string, len(catalog))
	for i, c := range catalog {
		names[i] = string(c)
	}
	return names
}

// SelectionSet is the set of concrete categories selected for removal.
type SelectionSet map[ArtifactCategory]bool

// Has reports whether c is selected.
func (s SelectionSet) Has(c ArtifactCategory) bool {
	return s[c]
}

// Empty reports whether nothing is selected.
func (s SelectionSet) Empty() bool {
	for _, v := range s {
		if v {
			return false
		}
	}
	return true
}

// Categories returns the selected categories sorted by name.
func (s SelectionSet) Categories() []ArtifactCategory {
	out := make([]ArtifactCategory, 0, len(s))
	for c, v := range s {
		if v {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders the selection as a sorted, comma separated list.
func (s SelectionSet) String() string {
	return strings.Join(CatalogNames(s.Categories()), ", ")
}
