package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
)

// Fingerprint derives the stable cache key for a query. Filter lists are
// sorted into the digest so that request-order differences cannot split
// otherwise identical queries across entries. Extras distinguish query
// variants within one kind (dimension, metric, limit).
func Fingerprint(kind Kind, fs domain.FilterSet, extras ...string) string {
	h := sha256.New()

	parts := []string{
		string(kind),
		strconv.FormatInt(fs.Start.UTC().Unix(), 10),
		strconv.FormatInt(fs.End.UTC().Unix(), 10),
		string(fs.Granularity),
		canonicalList(fs.Models),
		canonicalList(fs.Endpoints),
		canonicalList(fs.Providers),
	}
	parts = append(parts, extras...)
	h.Write([]byte(strings.Join(parts, "|")))

	return hex.EncodeToString(h.Sum(nil))
}

func canonicalList(values []string) string {
	sorted := append([]string{}, values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
