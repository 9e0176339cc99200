// Package analysis holds pure, read-only functions over a record collection.
//
// # Risk tiers
//
// A city's tier comes from the first record seen for that city in insertion
// order, not from an aggregate:
//
//	cases > High threshold (1000)   → High
//	cases > Medium threshold (500)  → Medium
//	otherwise                       → Low
//
// Later records for the same city never revise the tier. This first-record
// policy is the established behavior of the tool and is kept deliberately;
// changing it to an aggregate needs a product decision.
//
// # Hotspot
//
// The hotspot is the city with the largest sum of cases over all of its
// records. Ties go to the city that appears first in insertion order. An
// empty collection has no hotspot and yields apperr.ErrEmptyInput.
//
// # Trend series
//
// Per city, the (date, cases) pairs in insertion order. The series are not
// sorted by date; charting tools receive exactly what was entered.
package analysis
