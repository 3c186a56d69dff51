// Package log parses the log lines of a flashswap transaction receipt.
//
// The runtime writes one line when a program is invoked, one when it
// finishes, and one per message a program logs:
//
//	Program <id> invoke [1]
//	Program log: Instruction: Swap
//	Program <token> invoke [2]
//	Program <token> success
//	Program <id> failed: SLIPPAGE_EXCEEDED: ...
//
// The parser classifies these lines and recovers which instruction each
// message came from.
package log

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LogType represents the type of a log message.
type LogType int

const (
	// LogTypeUnknown represents an unrecognized log message.
	LogTypeUnknown LogType = iota
	// LogTypeInvoke represents a "Program X invoke [N]" message.
	LogTypeInvoke
	// LogTypeSuccess represents a "Program X success" message.
	LogTypeSuccess
	// LogTypeFailed represents a "Program X failed: ERR" message.
	LogTypeFailed
	// LogTypeLog represents a "Program log: MESSAGE" message.
	LogTypeLog
)

// String returns the string representation of LogType.
func (lt LogType) String() string {
	switch lt {
	case LogTypeInvoke:
		return "Invoke"
	case LogTypeSuccess:
		return "Success"
	case LogTypeFailed:
		return "Failed"
	case LogTypeLog:
		return "Log"
	default:
		return "Unknown"
	}
}

// ParsedLog represents a parsed log message with its type and extracted data.
type ParsedLog struct {
	Type LogType

	// StackHeight is the call stack depth (1-indexed) of Invoke logs.
	StackHeight int

	// ProgramID is set for Invoke, Success and Failed logs.
	ProgramID string

	// Message is the text of a "Program log:" line or the error of a
	// "Program X failed:" line.
	Message string

	RawLog string
}

// LogParser parses receipt logs.
type LogParser struct {
	invoke  *regexp.Regexp
	success *regexp.Regexp
	failed  *regexp.Regexp
	log     *regexp.Regexp
}

// NewParser creates a new LogParser.
func NewParser() *LogParser {
	return &LogParser{
		invoke:  regexp.MustCompile(`^Program (\S+) invoke \[(\d+)\]$`),
		success: regexp.MustCompile(`^Program (\S+) success$`),
		failed:  regexp.MustCompile(`^Program (\S+) failed: (.*)$`),
		log:     regexp.MustCompile(`^Program log: (.*)$`),
	}
}

// Parse parses a single log message.
func (p *LogParser) Parse(line string) *ParsedLog {
	result := &ParsedLog{Type: LogTypeUnknown, RawLog: line}

	// "Program log:" first, so a message that happens to look like an
	// invoke line is still a message
	if m := p.log.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeLog
		result.Message = m[1]
		return result
	}
	if m := p.invoke.FindStringSubmatch(line); m != nil {
		height, err := strconv.Atoi(m[2])
		if err != nil {
			return result
		}
		result.Type = LogTypeInvoke
		result.ProgramID = m[1]
		result.StackHeight = height
		return result
	}
	if m := p.success.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeSuccess
		result.ProgramID = m[1]
		return result
	}
	if m := p.failed.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeFailed
		result.ProgramID = m[1]
		result.Message = m[2]
		return result
	}
	return result
}

// ParseAll parses every line.
func (p *LogParser) ParseAll(lines []string) []*ParsedLog {
	results := make([]*ParsedLog, 0, len(lines))
	for _, line := range lines {
		results = append(results, p.Parse(line))
	}
	return results
}

// ExtractProgramLogs returns the text of every "Program log:" line.
func (p *LogParser) ExtractProgramLogs(lines []string) []string {
	var logs []string
	for _, line := range lines {
		if parsed := p.Parse(line); parsed.Type == LogTypeLog {
			logs = append(logs, parsed.Message)
		}
	}
	return logs
}

// Failure returns the innermost failed invocation, which is the first
// "failed" line in the receipt.
func (p *LogParser) Failure(lines []string) (*ParsedLog, bool) {
	for _, line := range lines {
		if parsed := p.Parse(line); parsed.Type == LogTypeFailed {
			return parsed, true
		}
	}
	return nil, false
}

// InstructionPath locates an invocation: [0] is the first top-level
// instruction, [0, 1] the second invocation made by it.
type InstructionPath []uint8

// String returns a string representation of the path.
func (path InstructionPath) String() string {
	if len(path) == 0 {
		return "[]"
	}
	parts := make([]string, len(path))
	for i, idx := range path {
		parts[i] = strconv.Itoa(int(idx))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equals checks if two paths are equal.
func (path InstructionPath) Equals(other InstructionPath) bool {
	if len(path) != len(other) {
		return false
	}
	for i := range path {
		if path[i] != other[i] {
			return false
		}
	}
	return true
}

// IsParentOf checks if this path is a strict prefix of other.
func (path InstructionPath) IsParentOf(other InstructionPath) bool {
	if len(path) >= len(other) {
		return false
	}
	return path.Equals(other[:len(path)])
}

// Walk calls fn for every line together with the path of the invocation
// that was executing when it was written.
func (p *LogParser) Walk(lines []string, fn func(path InstructionPath, parsed *ParsedLog)) {
	var path InstructionPath
	// next[d] is the index the next invocation at depth d+1 will get
	next := []uint8{0}

	for _, line := range lines {
		parsed := p.Parse(line)
		switch parsed.Type {
		case LogTypeInvoke:
			depth := parsed.StackHeight - 1
			if depth < 0 {
				depth = 0
			}
			if depth < len(path) {
				path = path[:depth]
			}
			for len(next) <= depth {
				next = append(next, 0)
			}
			path = append(path, next[depth])
			next[depth]++
			next = append(next[:depth+1], 0)
			fn(path, parsed)
		case LogTypeSuccess, LogTypeFailed:
			fn(path, parsed)
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		default:
			fn(path, parsed)
		}
	}
}

// FilterByInstructionPath returns the program log messages written by the
// invocation at target, excluding those of invocations it made.
func (p *LogParser) FilterByInstructionPath(lines []string, target InstructionPath) []string {
	var filtered []string
	p.Walk(lines, func(path InstructionPath, parsed *ParsedLog) {
		if parsed.Type == LogTypeLog && path.Equals(target) {
			filtered = append(filtered, parsed.Message)
		}
	})
	return filtered
}

// Summary renders one line per top-level instruction: its program and how
// it ended.
func (p *LogParser) Summary(lines []string) []string {
	var out []string
	p.Walk(lines, func(path InstructionPath, parsed *ParsedLog) {
		if len(path) != 1 {
			return
		}
		switch parsed.Type {
		case LogTypeSuccess:
			out = append(out, fmt.Sprintf("#%d %s ok", path[0], parsed.ProgramID))
		case LogTypeFailed:
			out = append(out, fmt.Sprintf("#%d %s failed: %s", path[0], parsed.ProgramID, parsed.Message))
		}
	})
	return out
}
