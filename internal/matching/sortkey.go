package matching

import (
	"cmp"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"WhiskeyIndex/internal/domain"
)

var (
	yearBatchExpr     = regexp.MustCompile(`^(\d{4})-(\d+)`)
	leadingIntExpr    = regexp.MustCompile(`^(\d+)\s*[-–—:]\s*\S`)
	seasonExpr        = regexp.MustCompile(`(?i)\b(fall|spring)\b`)
	embeddedYearExpr  = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	letterCodeExpr    = regexp.MustCompile(`^([A-Za-z])(\d{2,3})$`)
	batchNumberExpr   = regexp.MustCompile(`(?i)^batch\s*#?\s*(\d+)$`)
	bareYearExpr      = regexp.MustCompile(`^(\d{4})$`)
	bareIntExpr       = regexp.MustCompile(`^(\d+)$`)
	chapterExpr       = regexp.MustCompile(`(?i)\bchapter\s+(\d+)`)
	shortYearCodeExpr = regexp.MustCompile(`^(\d{2})([A-Za-z])$`)
	yearParenExpr     = regexp.MustCompile(`^(\d{4})\s*\(`)
)

// Batch pattern tiers, in match order.
const (
	TierYearBatch = iota + 1
	TierLeadingInteger
	TierSeasonal
	TierLetterCode
	TierBatchNumber
	TierBareYear
	TierBareInteger
	TierChapter
	TierShortYearLetter
	TierYearParenthetical
	TierDefault
)

// tierRank orders batches of different tiers within one product, matching
// the order the dataset has always been kept in. Seasonal, bare-year and
// year-parenthetical labels share a rank and interleave by year.
var tierRank = map[int]int{
	TierYearBatch:         0,
	TierLetterCode:        2,
	TierBatchNumber:       3,
	TierBareInteger:       4,
	TierChapter:           5,
	TierShortYearLetter:   6,
	TierLeadingInteger:    7,
	TierSeasonal:          8,
	TierBareYear:          8,
	TierYearParenthetical: 8,
	TierDefault:           99,
}

// Key orders batches inside a product: ascending keys are newest first.
type Key struct {
	Tier     int
	parts    []int
	text     string
	textDesc bool
	batch    string
}

// Compare returns -1, 0 or +1.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(tierRank[k.Tier], tierRank[o.Tier]); c != 0 {
		return c
	}
	if c := slices.Compare(k.parts, o.parts); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Tier, o.Tier); c != 0 {
		return c
	}
	if c := strings.Compare(k.text, o.text); c != 0 {
		if k.textDesc {
			return -c
		}
		return c
	}
	return strings.Compare(k.batch, o.batch)
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

// SortKey derives the ordering key of a batch label. The first matching
// pattern wins; a leading number is tested before a season because labels
// such as "6 - LA/NE (Spring 2025)" carry both.
func SortKey(batch, releaseYear string) Key {
	batch = strings.TrimSpace(batch)
	year, _ := domain.ParseYear(releaseYear)
	key := Key{batch: batch}

	switch {
	case yearBatchExpr.MatchString(batch):
		m := yearBatchExpr.FindStringSubmatch(batch)
		key.Tier = TierYearBatch
		key.parts = []int{-atoi(m[1]), -atoi(m[2])}
	case leadingIntExpr.MatchString(batch):
		m := leadingIntExpr.FindStringSubmatch(batch)
		key.Tier = TierLeadingInteger
		key.parts = []int{-year, -atoi(m[1])}
	case seasonExpr.MatchString(batch):
		season := strings.ToLower(seasonExpr.FindStringSubmatch(batch)[1])
		y := year
		if m := embeddedYearExpr.FindStringSubmatch(batch); m != nil {
			y = atoi(m[1])
		}
		rank := 1
		if season == "fall" {
			rank = 0
		}
		key.Tier = TierSeasonal
		key.parts = []int{-y, rank}
	case letterCodeExpr.MatchString(batch):
		m := letterCodeExpr.FindStringSubmatch(batch)
		key.Tier = TierLetterCode
		key.parts = []int{-year, -letterRank(m[1])}
	case batchNumberExpr.MatchString(batch):
		m := batchNumberExpr.FindStringSubmatch(batch)
		key.Tier = TierBatchNumber
		key.parts = []int{-atoi(m[1])}
	case bareYearExpr.MatchString(batch):
		key.Tier = TierBareYear
		key.parts = []int{-atoi(batch)}
	case bareIntExpr.MatchString(batch):
		key.Tier = TierBareInteger
		key.parts = []int{-atoi(batch)}
	case chapterExpr.MatchString(batch):
		m := chapterExpr.FindStringSubmatch(batch)
		key.Tier = TierChapter
		key.parts = []int{-atoi(m[1])}
	case shortYearCodeExpr.MatchString(batch):
		m := shortYearCodeExpr.FindStringSubmatch(batch)
		key.Tier = TierShortYearLetter
		key.parts = []int{-(2000 + atoi(m[1])), -letterRank(m[2])}
	case yearParenExpr.MatchString(batch):
		m := yearParenExpr.FindStringSubmatch(batch)
		key.Tier = TierYearParenthetical
		key.parts = []int{-atoi(m[1])}
		key.text, key.textDesc = batch, true
	default:
		key.Tier = TierDefault
		key.parts = []int{-year}
		key.text, key.textDesc = batch, true
	}

	return key
}

// ReleaseLess is the dataset order: name ascending, then batch key.
func ReleaseLess(a, b domain.Release) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return SortKey(a.Batch, a.ReleaseYear).Less(SortKey(b.Batch, b.ReleaseYear))
}

// SortReleases orders rows the way the dataset file is kept.
func SortReleases(rows []domain.Release) {
	sort.SliceStable(rows, func(i, j int) bool { return ReleaseLess(rows[i], rows[j]) })
}

// Chronological orders releases of one product oldest batch first.
func Chronological(rows []domain.Release) []domain.Release {
	out := append([]domain.Release(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		ki := SortKey(out[i].Batch, out[i].ReleaseYear)
		kj := SortKey(out[j].Batch, out[j].ReleaseYear)
		return kj.Less(ki)
	})
	return out
}

func letterRank(s string) int {
	return int(unicode.ToUpper(rune(s[0])))
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
