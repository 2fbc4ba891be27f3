package gcode

import (
	"strconv"
	"strings"
	"unicode"
)

// Line is a parsed G-code line.
type Line struct {
	// Code is the command word, upper cased, like "G1" or "M280".
	// It is empty for blank and comment-only lines.
	Code    string
	Params  map[byte]float64
	Comment string // text after ';', without it
}

// Param returns the value of the parameter with the given letter.
func (l Line) Param(letter byte) (float64, bool) {
	v, ok := l.Params[letter]
	return v, ok
}

// Is returns true if the command code is one of codes.
func (l Line) Is(codes ...string) bool {
	for _, c := range codes {
		if l.Code == c {
			return true
		}
	}
	return false
}

// normalizeCode removes leading zeros of the numeric part,
// so that "G00" and "G0" compare equal.
func normalizeCode(word string) string {
	if len(word) < 2 {
		return word
	}
	num := strings.TrimLeft(word[1:], "0")
	if num == "" || num[0] == '.' {
		num = "0" + num
	}
	return word[:1] + num
}

// ParseLine splits a G-code line into its command, parameters and
// comment. Line numbers (N) and checksums (*) are discarded.
// Parameters without a valid number are ignored; a message
// command like `M0 red pen` keeps its text in Comment.
func ParseLine(s string) Line {
	var l Line
	if i := strings.IndexByte(s, ';'); i >= 0 {
		l.Comment = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	if i := strings.IndexByte(s, '*'); i >= 0 {
		s = s[:i]
	}
	fields := strings.Fields(s)
	if len(fields) > 0 && (fields[0][0] == 'N' || fields[0][0] == 'n') {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return l
	}
	l.Code = normalizeCode(strings.ToUpper(fields[0]))
	for k, f := range fields[1:] {
		letter := byte(unicode.ToUpper(rune(f[0])))
		v, err := strconv.ParseFloat(f[1:], 64)
		if err != nil || letter < 'A' || letter > 'Z' {
			if l.Code == "M0" || l.Code == "M1" || l.Code == "M117" {
				l.Comment = strings.Join(fields[k+1:], " ")
				break
			}
			continue
		}
		if l.Params == nil {
			l.Params = make(map[byte]float64)
		}
		l.Params[letter] = v
	}
	return l
}

// Checksum returns the XOR of the bytes of s, as
// expected by Marlin after a '*'.
func Checksum(s string) byte {
	var cs byte
	for i := 0; i < len(s); i++ {
		cs ^= s[i]
	}
	return cs
}

// Number prefixes the command with the line number n and
// appends its checksum: `N<n> <cmd>*<checksum>`.
func Number(n int, cmd string) string {
	s := "N" + strconv.Itoa(n) + " " + cmd
	return s + "*" + strconv.Itoa(int(Checksum(s)))
}
