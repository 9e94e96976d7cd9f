package errors

import (
	"regexp"
	"strconv"
	"strings"
)

// Location is a position extracted from compiler output.
type Location struct {
	File    string
	Line    int
	Column  int
	Message string
}

type locationPattern struct {
	regex       *regexp.Regexp
	parseFields func(matches []string) Location
}

// sassPatterns recognize the positions libsass reports, most specific first.
var sassPatterns = []locationPattern{
	{
		// Error > stdin:3
		regex: regexp.MustCompile(`^Error > (.+?):(\d+)(?::(\d+))?$`),
		parseFields: func(m []string) Location {
			return Location{File: m[1], Line: atoi(m[2]), Column: atoi(m[3])}
		},
	},
	{
		// on line 3:7 of stdin
		regex: regexp.MustCompile(`on line (\d+)(?::(\d+))? of (\S+)`),
		parseFields: func(m []string) Location {
			return Location{File: m[3], Line: atoi(m[1]), Column: atoi(m[2])}
		},
	},
	{
		// style.scss:3:7: message
		regex: regexp.MustCompile(`^([^\s:]+\.(?:scss|sass|css)):(\d+):(\d+):\s*(.*)$`),
		parseFields: func(m []string) Location {
			return Location{File: m[1], Line: atoi(m[2]), Column: atoi(m[3]), Message: m[4]}
		},
	},
}

// ParseSassLocation extracts the first source position from a libsass error
// message. Message holds the first line that is not a position marker. A zero
// Line means no position was found.
func ParseSassLocation(output string) Location {
	var loc Location
	var message string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		matched := false
		if loc.Line == 0 {
			for _, p := range sassPatterns {
				if m := p.regex.FindStringSubmatch(line); m != nil {
					loc = p.parseFields(m)
					matched = true
					break
				}
			}
		}

		if !matched && message == "" && !strings.HasPrefix(line, ">>") && !strings.HasPrefix(line, "-") {
			message = strings.TrimPrefix(line, "Error: ")
		}
	}

	if loc.Message == "" {
		loc.Message = message
	}
	return loc
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
