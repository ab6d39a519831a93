package store

import (
	"fmt"
	"strings"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/pkg/utils"
)

// KeyFunc derives the store key of an article.
type KeyFunc func(entity.Article) string

const (
	KeyPolicyTitle    = "title"
	KeyPolicyIdentity = "identity"
)

// KeyByTitle keys articles by title only. Distinct articles sharing a title overwrite each other.
func KeyByTitle(a entity.Article) string {
	return a.Title
}

// KeyByIdentity keys articles by title, source domain and publish date.
func KeyByIdentity(a entity.Article) string {
	return strings.Join([]string{a.Title, a.SourceDomain, utils.FormatDate(a.DatePublished)}, "|")
}

// KeyFuncFor resolves a configured key policy name.
func KeyFuncFor(policy string) (KeyFunc, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", KeyPolicyTitle:
		return KeyByTitle, nil
	case KeyPolicyIdentity:
		return KeyByIdentity, nil
	default:
		return nil, fmt.Errorf("unknown key policy %q", policy)
	}
}
