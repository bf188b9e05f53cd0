package lint

import (
	"fmt"
	"regexp"
	"strings"
)

// CommandKind selects one of the built-in content checks.
type CommandKind string

const (
	CmdRegexForbid       CommandKind = "regex-forbid"
	CmdRegexRequire      CommandKind = "regex-require"
	CmdMaxLineLength     CommandKind = "max-line-length"
	CmdMaxFileSize       CommandKind = "max-file-size"
	CmdMaxFunctionLength CommandKind = "max-function-length"
	CmdContains          CommandKind = "contains"
	CmdNotContains       CommandKind = "not-contains"
)

// RegexFix rewrites each matching span with a replacement that may use
// $1…$9 capture group references.
type RegexFix struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// CommandRule is a built-in content check over one file.
type CommandRule struct {
	Kind    CommandKind
	Pattern *regexp.Regexp
	Message string
	Max     int
	Text    string
	Fix     *RegexFix
}

func parseCommandRule(body map[string]any, fix map[string]any) (*CommandRule, error) {
	kindStr, _ := body["type"].(string)
	cmd := &CommandRule{Kind: CommandKind(kindStr)}

	getStr := func(key string) string {
		s, _ := body[key].(string)
		return s
	}
	getInt := func(key string) int {
		switch v := body[key].(type) {
		case int64:
			return int(v)
		case int:
			return v
		case float64:
			return int(v)
		}
		return 0
	}

	switch cmd.Kind {
	case CmdRegexForbid, CmdRegexRequire:
		pattern := getStr("pattern")
		if pattern == "" {
			return nil, fmt.Errorf("command %s: missing pattern", cmd.Kind)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", cmd.Kind, err)
		}
		cmd.Pattern = re
		cmd.Message = getStr("message")
	case CmdMaxLineLength, CmdMaxFileSize, CmdMaxFunctionLength:
		cmd.Max = getInt("max")
		if cmd.Max <= 0 {
			return nil, fmt.Errorf("command %s: missing max", cmd.Kind)
		}
	case CmdContains, CmdNotContains:
		cmd.Text = getStr("text")
		if cmd.Text == "" {
			return nil, fmt.Errorf("command %s: missing text", cmd.Kind)
		}
		cmd.Message = getStr("message")
	default:
		return nil, fmt.Errorf("unknown command type %q", kindStr)
	}

	if len(fix) > 0 {
		if cmd.Kind != CmdRegexForbid {
			return nil, fmt.Errorf("command %s: fix only applies to regex-forbid", cmd.Kind)
		}
		pattern, _ := fix["pattern"].(string)
		replacement, _ := fix["replacement"].(string)
		if pattern == "" {
			return nil, fmt.Errorf("fix: missing pattern")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("fix: %w", err)
		}
		cmd.Fix = &RegexFix{Pattern: re, Replacement: replacement}
	}
	return cmd, nil
}

// run evaluates the check against one file's content. spans supplies
// function extents for max-function-length; nil skips that check.
func (c *CommandRule) run(rule *Rule, path string, content []byte, spans SpanSource) []Issue {
	issue := func(line *int, message string) Issue {
		is := Issue{
			RuleID:   rule.ID,
			Category: rule.Categories[0],
			Severity: rule.Severity,
			Code:     rule.ID,
			Message:  message,
			FilePath: path,
			Priority: rule.Priority,
		}
		if line != nil {
			is.Start = &Position{Line: *line + 1, Col: 1}
			is.End = &Position{Line: *line + 1, Col: 1}
		}
		return is
	}

	text := string(content)
	switch c.Kind {
	case CmdRegexForbid:
		var issues []Issue
		offset := 0
		for i, line := range strings.Split(text, "\n") {
			if c.Pattern.MatchString(line) {
				lineNo := i
				is := issue(&lineNo, c.Message)
				if c.Fix != nil {
					if loc := c.Fix.Pattern.FindStringSubmatchIndex(line); loc != nil {
						repl := c.Fix.Pattern.ExpandString(nil, c.Fix.Replacement, line, loc)
						is.Fix = &Fix{Edit: &TextEdit{
							StartByte:   offset + loc[0],
							EndByte:     offset + loc[1],
							Replacement: string(repl),
						}}
					}
				}
				issues = append(issues, is)
			}
			offset += len(line) + 1
		}
		return issues

	case CmdRegexRequire:
		for _, line := range strings.Split(text, "\n") {
			if c.Pattern.MatchString(line) {
				return nil
			}
		}
		return []Issue{issue(nil, c.Message)}

	case CmdMaxLineLength:
		var issues []Issue
		for i, line := range strings.Split(text, "\n") {
			if len(line) > c.Max {
				lineNo := i
				issues = append(issues, issue(&lineNo,
					fmt.Sprintf("line exceeds %d characters (%d)", c.Max, len(line))))
			}
		}
		return issues

	case CmdMaxFileSize:
		if len(content) > c.Max {
			return []Issue{issue(nil,
				fmt.Sprintf("file exceeds %d bytes (%d)", c.Max, len(content)))}
		}
		return nil

	case CmdMaxFunctionLength:
		if spans == nil {
			return nil
		}
		extents, err := spans.FunctionSpans(path)
		if err != nil || extents == nil {
			return nil
		}
		var issues []Issue
		for _, span := range extents {
			length := span[1] - span[0] + 1
			if length > c.Max {
				lineNo := span[0]
				issues = append(issues, issue(&lineNo,
					fmt.Sprintf("function exceeds %d lines (%d)", c.Max, length)))
			}
		}
		return issues

	case CmdContains:
		if strings.Contains(text, c.Text) {
			return nil
		}
		return []Issue{issue(nil, c.Message)}

	case CmdNotContains:
		if !strings.Contains(text, c.Text) {
			return nil
		}
		return []Issue{issue(nil, c.Message)}
	}
	return nil
}
