package artifact

import "github.com/pkg/errors"

// Select returns the single entry in b that matches host, applying the
// most-specific-predicate-wins rule: among all matching entries, the
// one with the most predicate fields set wins; a tie between two
// equally specific matches is an error rather than an arbitrary pick.
func Select(b Binding, host Host) (Entry, error) {
	var best *Entry
	bestSpecificity := -1
	tied := false

	for i := range b.Entries {
		e := &b.Entries[i]
		if !e.Predicate.matches(host) {
			continue
		}
		s := e.Predicate.specificity()
		switch {
		case s > bestSpecificity:
			best = e
			bestSpecificity = s
			tied = false
		case s == bestSpecificity:
			tied = true
		}
	}

	if best == nil {
		return Entry{}, errors.Errorf("no platform binding for artifact %q matches host %+v", b.Name, host)
	}
	if tied {
		return Entry{}, errors.Errorf("ambiguous platform bindings for artifact %q: multiple entries of equal specificity match host %+v", b.Name, host)
	}
	return *best, nil
}
