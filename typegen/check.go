package typegen

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/teranos/avbindgen/errors"
)

// maxReportedDifferences caps CheckResult.Differences.
const maxReportedDifferences = 10

// CheckResult holds the result of an artifact check
type CheckResult struct {
	UpToDate    bool
	Missing     bool     // the artifact does not exist yet
	Differences []string // "line N" descriptions, capped
}

// CheckArtifact compares generated text with the artifact at path. Banner
// comment lines are ignored so that a tool upgrade alone does not flag the
// artifact as stale.
func CheckArtifact(path, generated string) (*CheckResult, error) {
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &CheckResult{Missing: true}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	diffs := compareLines(filterBannerLines(string(existing)), filterBannerLines(generated))
	return &CheckResult{
		UpToDate:    len(diffs) == 0,
		Differences: diffs,
	}, nil
}

// filterBannerLines removes the "/* automatically generated by ... */"
// header.
func filterBannerLines(content string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "/* automatically generated by") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		// a line the scanner cannot hold never equals real output
		return append(lines, "\x00"+err.Error())
	}
	return lines
}

func compareLines(existing, generated []string) []string {
	var diffs []string
	n := len(existing)
	if len(generated) > n {
		n = len(generated)
	}
	for i := 0; i < n && len(diffs) < maxReportedDifferences; i++ {
		switch {
		case i >= len(existing):
			diffs = append(diffs, lineDiff(i, "", generated[i]))
		case i >= len(generated):
			diffs = append(diffs, lineDiff(i, existing[i], ""))
		case existing[i] != generated[i]:
			diffs = append(diffs, lineDiff(i, existing[i], generated[i]))
		}
	}
	return diffs
}

func lineDiff(i int, was, now string) string {
	return fmt.Sprintf("line %d: -%q +%q", i+1, was, now)
}
