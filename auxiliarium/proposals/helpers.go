package proposals

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	rake "github.com/afjoseph/RAKE.Go"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/guilledk/telos-works/worksmachine"
)

// proposal names follow the account name rules of the chain the treasury lives on
var validName = regexp.MustCompile(`^[a-z1-5.]{1,12}$`)

const maxKeywords = 5

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: proposal name %q must be 1-12 characters of a-z, 1-5 and '.'", worksmachine.ErrValidation, name)
	}
	return nil
}

// ballotName returns the ballot deciding a milestone. Milestone 1 is decided by the proposal
// ballot, which carries the proposal name.
func ballotName(proposal string, milestone int64) string {
	if milestone == 1 {
		return proposal
	}
	return fmt.Sprintf("%s-%d", proposal, milestone)
}

func extractKeywords(title, description string) (keywords []string) {
	candidates := rake.RunRake(title + ". " + description)
	type scored struct {
		key   string
		value float64
	}
	var all []scored
	for _, candidate := range candidates {
		if len(candidate.Key) < 50 {
			all = append(all, scored{candidate.Key, candidate.Value})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].value != all[j].value {
			return all[i].value > all[j].value
		}
		return all[i].key < all[j].key
	})
	seen := make(map[string]struct{})
	for _, c := range all {
		if _, dup := seen[c.key]; dup {
			continue
		}
		seen[c.key] = struct{}{}
		keywords = append(keywords, c.key)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return
}

// makeRevision returns a patch that turns next back into previous.
func makeRevision(previous, next string) string {
	dmp := diffmatchpatch.New()
	return dmp.PatchToText(dmp.PatchMake(next, previous))
}

// Versions replays the revision history of a proposal, newest first. The first element is
// the current content.
func Versions(p Proposal) ([]string, error) {
	dmp := diffmatchpatch.New()
	versions := []string{p.Content}
	current := p.Content
	for i := len(p.Revisions) - 1; i >= 0; i-- {
		patches, err := dmp.PatchFromText(p.Revisions[i].Patch)
		if err != nil {
			return nil, err
		}
		previous, applied := dmp.PatchApply(patches, current)
		for _, ok := range applied {
			if !ok {
				return nil, fmt.Errorf("revision %d of %s does not apply", i, p.Name)
			}
		}
		versions = append(versions, previous)
		current = previous
	}
	return versions, nil
}

func nonEmpty(field, value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return fmt.Errorf("%w: %s must not be empty", worksmachine.ErrValidation, field)
	}
	return nil
}
