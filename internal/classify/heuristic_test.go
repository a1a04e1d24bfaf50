// Copyright © 2026 TermStack contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"testing"

	"github.com/termstack/termstack/internal/collab"
)

func TestClassifyShellStateBuiltin(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify("cd /tmp"); got != collab.ShellStateAffecting {
		t.Fatalf("expected cd to classify as shell-state-affecting, got %d", got)
	}
}

func TestClassifyStripsPathPrefixForBuiltinLookup(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify("/usr/bin/export FOO=bar"); got != collab.ShellStateAffecting {
		t.Fatalf("expected path-prefixed export to still classify as shell-state-affecting, got %d", got)
	}
}

func TestClassifyOrdinaryCommandSpawnsNewCell(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify("ls -la"); got != collab.SpawnNewCell {
		t.Fatalf("expected ls to classify as spawn-new-cell, got %d", got)
	}
}

func TestClassifyEmptyCommandSpawnsNewCell(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify(""); got != collab.SpawnNewCell {
		t.Fatalf("expected empty command to classify as spawn-new-cell, got %d", got)
	}
}

func TestClassifyUnbalancedDoubleQuoteIsIncomplete(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify(`echo "hello`); got != collab.IncompleteSyntax {
		t.Fatalf("expected unbalanced quote to classify as incomplete, got %d", got)
	}
}

func TestClassifyUnbalancedSingleQuoteIsIncomplete(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify(`echo 'hello`); got != collab.IncompleteSyntax {
		t.Fatalf("expected unbalanced quote to classify as incomplete, got %d", got)
	}
}

func TestClassifyTrailingPipeIsIncomplete(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify("ls |"); got != collab.IncompleteSyntax {
		t.Fatalf("expected trailing pipe to classify as incomplete, got %d", got)
	}
}

func TestClassifyTrailingBackslashIsIncomplete(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify(`echo hi \`); got != collab.IncompleteSyntax {
		t.Fatalf("expected trailing backslash to classify as incomplete, got %d", got)
	}
}

func TestClassifyEscapedQuoteInsideDoubleQuotesDoesNotCloseIt(t *testing.T) {
	c := HeuristicClassifier{}
	if got := c.Classify(`echo "say \"hi"`); got != collab.SpawnNewCell {
		t.Fatalf("expected escaped inner quote to still close the statement, got %d", got)
	}
}
