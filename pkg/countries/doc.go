// Package countries decodes the per-country requests document and provides
// the lookups the map is built on.
//
// # Document Format
//
// The metrics document nests its records two levels deep:
//
//	{
//	  "countries": {
//	    "country": [
//	      {"countryCode": "FI", "countryName": "Finland", "requests": "42"}
//	    ]
//	  }
//	}
//
// The nesting is load-bearing: [Decode] reads countries.country and nothing
// else. Request counts stay as decimal text in [Metric] and are parsed only
// where a number is needed ([ParseRequests], [Max]).
//
// # Index
//
// [NewIndex] builds a name-to-record map once at load time so per-feature
// lookups during rendering are constant time. Names are the join key against
// the geometry document and are compared exactly (case-sensitive). When the
// document repeats a name, the last record wins and the name is reported by
// [Index.Duplicates].
//
// # Search
//
// [Filter] implements the search box: an empty query matches nothing, any
// other query matches every record whose name contains it, ignoring case.
// [Matches] is the same predicate for a single name and drives map
// highlighting.
package countries
