package dashboard

import (
	"slices"
	"strings"

	"github.com/angelmondragon/wbdash/internal/catalog"
	"github.com/angelmondragon/wbdash/pkg/enums"
)

// Slice names one independently fetched part of the dashboard state.
type Slice string

const (
	SliceProducts     Slice = "products"
	SliceCategories   Slice = "categories"
	SliceStatistics   Slice = "statistics"
	SliceDistribution Slice = "price_distribution"
)

// AllSlices lists every slice in load order.
var AllSlices = []Slice{SliceProducts, SliceCategories, SliceStatistics, SliceDistribution}

// Tag identifies one issued fetch. Only the latest tag of a slice may write it.
type Tag struct {
	Slice Slice
	Seq   uint64
}

// Result carries the payload of a fetch; only the field matching the tag's slice is read.
type Result struct {
	Products     []catalog.Product
	Categories   []string
	Statistics   *catalog.Statistics
	Distribution []catalog.HistogramBucket
}

// Outcome is a completed fetch inside a refresh batch.
type Outcome struct {
	Tag    Tag
	Result Result
	Err    error
}

// Batch is an atomic refresh: one tag per slice, committed together.
type Batch struct {
	Seq   uint64
	Tags  []Tag
	Query catalog.Query
}

// State is the dashboard model. It performs no I/O and is not safe for
// concurrent use; Coordinator serializes access.
type State struct {
	filter       catalog.FilterSpec
	sort         catalog.SortSpec
	products     []catalog.Product
	categories   []string
	statistics   catalog.Statistics
	distribution []catalog.HistogramBucket

	seq        uint64
	latest     map[Slice]uint64
	errs       map[Slice]error
	loading    map[Slice]bool
	batchSeq   uint64
	refreshing bool
	scraping   bool
}

// NewState returns an empty state sorted newest first.
func NewState() *State {
	return &State{
		sort:         catalog.DefaultSort(),
		products:     []catalog.Product{},
		categories:   []string{},
		distribution: []catalog.HistogramBucket{},
		latest:       make(map[Slice]uint64, len(AllSlices)),
		errs:         make(map[Slice]error, len(AllSlices)),
		loading:      make(map[Slice]bool, len(AllSlices)),
	}
}

// Query returns the network-facing product query for the current filter and sort.
func (s *State) Query() catalog.Query {
	return catalog.Query{Filter: s.filter, Sort: s.sort}
}

// Filter returns the current filter.
func (s *State) Filter() catalog.FilterSpec { return s.filter }

// Sort returns the current sort.
func (s *State) Sort() catalog.SortSpec { return s.sort }

// Begin issues a new tag for slice, superseding any fetch in flight for it.
func (s *State) Begin(slice Slice) Tag {
	s.seq++
	s.latest[slice] = s.seq
	s.loading[slice] = true
	return Tag{Slice: slice, Seq: s.seq}
}

// IsLatest reports whether tag is still the most recent for its slice.
func (s *State) IsLatest(tag Tag) bool {
	return tag.Seq != 0 && s.latest[tag.Slice] == tag.Seq
}

// SetFilter replaces the filter. A product fetch is issued only when a clause
// the catalog service evaluates changed; search edits stay local.
func (s *State) SetFilter(f catalog.FilterSpec) (Tag, bool) {
	f = f.Normalized()
	changed := !s.filter.NetworkEqual(f)
	s.filter = f
	if !changed {
		return Tag{}, false
	}
	return s.Begin(SliceProducts), true
}

// SetSearch updates only the local name search.
func (s *State) SetSearch(query string) {
	s.filter.SearchQuery = strings.TrimSpace(query)
}

// SetSort replaces the sort and issues a product fetch.
func (s *State) SetSort(sort catalog.SortSpec) Tag {
	s.sort = sort
	return s.Begin(SliceProducts)
}

// ToggleSort flips direction on the current field or switches to field ascending.
func (s *State) ToggleSort(field enums.SortField) Tag {
	s.sort = s.sort.Toggle(field)
	return s.Begin(SliceProducts)
}

// OnFetchSucceeded applies r when tag is the latest for its slice. The slice is
// replaced wholesale.
func (s *State) OnFetchSucceeded(tag Tag, r Result) bool {
	if !s.IsLatest(tag) {
		return false
	}
	switch tag.Slice {
	case SliceProducts:
		s.products = nonNil(slices.Clone(r.Products))
	case SliceCategories:
		s.categories = nonNil(slices.Clone(r.Categories))
	case SliceStatistics:
		s.statistics = catalog.Statistics{}
		if r.Statistics != nil {
			s.statistics = *r.Statistics
		}
	case SliceDistribution:
		s.distribution = nonNil(slices.Clone(r.Distribution))
	}
	delete(s.errs, tag.Slice)
	s.loading[tag.Slice] = false
	return true
}

// OnFetchFailed resets the slice to its empty value and records err when tag is
// the latest. Other slices are untouched.
func (s *State) OnFetchFailed(tag Tag, err error) bool {
	if !s.IsLatest(tag) {
		return false
	}
	switch tag.Slice {
	case SliceProducts:
		s.products = []catalog.Product{}
	case SliceCategories:
		s.categories = []string{}
	case SliceStatistics:
		s.statistics = catalog.Statistics{}
	case SliceDistribution:
		s.distribution = []catalog.HistogramBucket{}
	}
	s.errs[tag.Slice] = err
	s.loading[tag.Slice] = false
	return true
}

// BeginBatch issues fresh tags for every slice and marks a refresh in flight.
func (s *State) BeginBatch() Batch {
	s.seq++
	s.batchSeq = s.seq
	s.refreshing = true
	batch := Batch{Seq: s.batchSeq, Query: s.Query()}
	for _, slice := range AllSlices {
		batch.Tags = append(batch.Tags, s.Begin(slice))
	}
	return batch
}

// CommitBatch applies every outcome of batch in one transition and returns the
// slices that were written. Outcomes superseded by a later fetch are skipped.
func (s *State) CommitBatch(batch Batch, outcomes []Outcome) []Slice {
	var applied []Slice
	for _, o := range outcomes {
		var ok bool
		if o.Err != nil {
			ok = s.OnFetchFailed(o.Tag, o.Err)
		} else {
			ok = s.OnFetchSucceeded(o.Tag, o.Result)
		}
		if ok {
			applied = append(applied, o.Tag.Slice)
		}
	}
	if s.batchSeq == batch.Seq {
		s.refreshing = false
	}
	return applied
}

// SetScraping marks whether a scrape is in flight.
func (s *State) SetScraping(v bool) { s.scraping = v }

// Err returns the last error recorded for slice.
func (s *State) Err(slice Slice) error { return s.errs[slice] }

// View is a read-only snapshot of the dashboard.
type View struct {
	Filter            catalog.FilterSpec        `json:"filter"`
	Sort              catalog.SortSpec          `json:"sort"`
	Products          []catalog.Product         `json:"products"`
	LoadedCount       int                       `json:"loaded_count"`
	VisibleCount      int                       `json:"visible_count"`
	Categories        []string                  `json:"categories"`
	Statistics        catalog.Statistics        `json:"statistics"`
	PriceDistribution []catalog.HistogramBucket `json:"price_distribution"`
	Histogram         []catalog.HistogramBucket `json:"histogram"`
	Scatter           []catalog.ScatterPoint    `json:"scatter"`
	Errors            map[Slice]string          `json:"errors"`
	Loading           []Slice                   `json:"loading"`
	Refreshing        bool                      `json:"refreshing"`
	Scraping          bool                      `json:"scraping"`
}

// View derives the visible rows (loaded products under the full filter, server
// order kept) and aggregates them.
func (s *State) View() View {
	visible := catalog.Filter(s.products, s.filter)
	v := View{
		Filter:            s.filter,
		Sort:              s.sort,
		Products:          visible,
		LoadedCount:       len(s.products),
		VisibleCount:      len(visible),
		Categories:        nonNil(slices.Clone(s.categories)),
		Statistics:        s.statistics,
		PriceDistribution: nonNil(slices.Clone(s.distribution)),
		Histogram:         catalog.Histogram(visible),
		Scatter:           catalog.Scatter(visible),
		Errors:            make(map[Slice]string, len(s.errs)),
		Loading:           []Slice{},
		Refreshing:        s.refreshing,
		Scraping:          s.scraping,
	}
	for slice, err := range s.errs {
		v.Errors[slice] = err.Error()
	}
	for _, slice := range AllSlices {
		if s.loading[slice] {
			v.Loading = append(v.Loading, slice)
		}
	}
	return v
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
