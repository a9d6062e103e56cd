//go:build !linux && !windows

package output

// Typed punctuation is unmapped on this platform; paste delivery covers the
// full character set.
var punctKeys = map[rune]int{}

var shiftedPunct = map[rune]int{}
