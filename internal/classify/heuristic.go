// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/classify/heuristic.go
// Summary: Implements a conservative collab.Classifier stub that
// answers the readline-style "is this line runnable yet, and where"
// question a shell integration asks before submitting a command.

package classify

import (
	"strings"

	"github.com/termstack/termstack/internal/collab"
)

// shellStateBuiltins lists commands that mutate the invoking shell's
// own state (working directory, environment, aliases, job table)
// rather than producing output, so they cannot be meaningfully run as
// a new cell's independent subprocess.
var shellStateBuiltins = map[string]bool{
	"cd": true, "pushd": true, "popd": true,
	"export": true, "unset": true, "set": true, "declare": true, "local": true,
	"alias": true, "unalias": true,
	"source": true, ".": true,
	"exit": true, "logout": true,
	"fg": true, "bg": true, "jobs": true,
	"umask": true, "ulimit": true,
}

// continuationOperators end a line without completing a statement.
var continuationOperators = []string{"&&", "||", "|", "&", ";"}

// HeuristicClassifier answers Classify using only the command's surface
// syntax: unbalanced quoting or a trailing continuation marks the line
// incomplete; otherwise the first word is checked against the
// shell-state-affecting builtin table.
type HeuristicClassifier struct{}

// Classify implements collab.Classifier.
func (HeuristicClassifier) Classify(cmd string) collab.ClassifyOutcome {
	if !isComplete(cmd) {
		return collab.IncompleteSyntax
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return collab.SpawnNewCell
	}
	name := fields[0]
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if shellStateBuiltins[name] {
		return collab.ShellStateAffecting
	}
	return collab.SpawnNewCell
}

// isComplete reports whether cmd's quoting is balanced and it does not
// end in a line continuation (trailing backslash or a dangling
// pipe/logical/list operator).
func isComplete(cmd string) bool {
	trimmed := strings.TrimRight(cmd, " \t")
	if strings.HasSuffix(trimmed, "\\") {
		return false
	}
	for _, op := range continuationOperators {
		if strings.HasSuffix(trimmed, op) {
			return false
		}
	}

	var inSingle, inDouble bool
	for i := 0; i < len(cmd); i++ {
		switch {
		case inDouble:
			if cmd[i] == '\\' {
				i++
			} else if cmd[i] == '"' {
				inDouble = false
			}
		case inSingle:
			if cmd[i] == '\'' {
				inSingle = false
			}
		case cmd[i] == '\'':
			inSingle = true
		case cmd[i] == '"':
			inDouble = true
		}
	}
	return !inSingle && !inDouble
}
