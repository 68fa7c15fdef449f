// Package report renders pass summaries as terminal tables.
package report
