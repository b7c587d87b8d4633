package board

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortColumn identifies the active sort key of the board table. The four
// stage columns sort members of that stage ahead of everything else.
type SortColumn string

const (
	SortByClient   SortColumn = "clientName"
	SortByDelivery SortColumn = "deliveryDate"
)

// StageColumn returns the sort column for a stage-membership column.
func StageColumn(stage Stage) SortColumn {
	return SortColumn(stage)
}

func (c SortColumn) stage() (Stage, bool) {
	return ParseStage(string(c))
}

// SortState is the current column and direction of the board table.
type SortState struct {
	Column    SortColumn `json:"column"`
	Ascending bool       `json:"ascending"`
}

func DefaultSort() SortState {
	return SortState{Column: SortByDelivery, Ascending: true}
}

// Toggle returns the state after clicking a column header: the same
// column flips direction, a new column resets to ascending.
func (s SortState) Toggle(column SortColumn) SortState {
	if s.Column == column {
		return SortState{Column: column, Ascending: !s.Ascending}
	}
	return SortState{Column: column, Ascending: true}
}

// Project turns the canonical order set into the sequence to display:
// filtered by the search term, then sorted. The input slice and its
// orders are never mutated, and identical inputs always produce an
// identical sequence.
//
// The comparator has three tiers: among non-completed orders urgent sorts
// strictly first regardless of column or direction; then the active
// column; the direction multiplier only inverts the column tier.
func Project(orders []*Order, searchTerm string, sortState SortState) []*Order {
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if term == "" || matchesSearch(o, term) {
			out = append(out, o)
		}
	}

	dir := 1
	if !sortState.Ascending {
		dir = -1
	}
	coll := collate.New(language.Und, collate.IgnoreCase)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := urgencyRank(a), urgencyRank(b); ra != rb {
			return ra < rb
		}
		cmp := columnCompare(coll, a, b, sortState.Column) * dir
		return cmp < 0
	})

	return out
}

// urgencyRank is the first sort tier: urgent non-completed orders rank
// ahead of everything else. Ranking every order, instead of comparing
// urgency only between non-completed pairs, keeps the comparator
// transitive when completed orders sit between urgent and plain ones. A
// completed order ignores its own urgency flag and is governed purely
// by the column tier.
func urgencyRank(o *Order) int {
	if o.IsUrgent && !o.IsCompleted {
		return 0
	}
	return 1
}

func matchesSearch(o *Order, term string) bool {
	haystacks := []string{o.ClientName, o.Notes, o.OrderNumber}
	haystacks = append(haystacks, o.LegacyRefs...)
	for _, tag := range o.PrintType {
		haystacks = append(haystacks, string(tag))
	}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), term) {
			return true
		}
	}
	return false
}

func columnCompare(coll *collate.Collator, a, b *Order, column SortColumn) int {
	switch column {
	case SortByClient:
		return coll.CompareString(a.ClientName, b.ClientName)
	case SortByDelivery:
		at, bt := deliveryTime(a), deliveryTime(b)
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		}
		return 0
	}
	if stage, ok := column.stage(); ok {
		return stageMembership(b, stage) - stageMembership(a, stage)
	}
	return 0
}

func stageMembership(o *Order, stage Stage) int {
	if o.CurrentStage == stage {
		return 1
	}
	return 0
}

// maxDate pushes unparseable and missing delivery dates to the end of
// an ascending chronological sort.
var maxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func deliveryTime(o *Order) time.Time {
	t, err := time.Parse(dateLayout, o.DeliveryDate)
	if err != nil {
		return maxDate
	}
	return t
}
