// Package tracker holds the job-application domain: the record types and
// their enums, input validation, error classification, the Service used by
// the HTTP layer, and dashboard statistics.
//
// The Service validates every input before it reaches a Store, so stores may
// assume well-formed values. Stores own persistence and caching.
package tracker
