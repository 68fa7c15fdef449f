// Package utils provides small conversion helpers shared by the metadata readers.
package utils
