package engine

import (
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
)

// entry is one notification in the ordered view. pending marks a tentative
// read transition awaiting remote confirmation; a pending read may be rolled
// back, a server-confirmed one may not.
type entry struct {
	n       model.Notification
	pending bool
}

// view is the client's ordered notification list, newest first, keyed on id.
// The merge is idempotent: re-receiving an id never duplicates the entry and
// never regresses read=true back to read=false.
type view struct {
	entries []*entry
	index   map[string]*entry
	unread  int
}

func newView() *view {
	return &view{
		index: make(map[string]*entry),
	}
}

func (v *view) get(id string) *entry {
	return v.index[id]
}

// merge inserts n into the view, or folds it into the existing entry with
// the same id. Reports whether the entry is new.
func (v *view) merge(n model.Notification) bool {
	if ent, ok := v.index[n.ID]; ok {
		// Duplicate delivery. Read state only ever moves forward here.
		if n.Read && !ent.n.Read {
			ent.n.Read = true
			ent.pending = false
			v.unread--
		}
		return false
	}

	ent := &entry{n: n}

	// Insert after every entry with a timestamp >= n's, keeping the slice
	// newest first and stable for equal timestamps.
	pos := len(v.entries)
	for i, existing := range v.entries {
		if existing.n.Timestamp.Before(n.Timestamp) {
			pos = i
			break
		}
	}
	v.entries = append(v.entries, nil)
	copy(v.entries[pos+1:], v.entries[pos:])
	v.entries[pos] = ent

	v.index[n.ID] = ent
	if !n.Read {
		v.unread++
	}
	return true
}

// applyServerUnread reconciles the view against an authoritative unread
// snapshot. The server wins both ways: snapshot entries are unread even if
// the client optimistically read them (an in-flight confirmation re-applies
// read on success), and local unread entries absent from the snapshot were
// read elsewhere and flip to read. Returns the entries new to the view.
func (v *view) applyServerUnread(list []model.Notification) []model.Notification {
	present := make(map[string]struct{}, len(list))
	var added []model.Notification
	for _, n := range list {
		present[n.ID] = struct{}{}
		if v.merge(n) {
			added = append(added, n)
		}
	}

	for _, ent := range v.entries {
		if _, ok := present[ent.n.ID]; ok {
			if ent.n.Read {
				ent.n.Read = false
				v.unread++
			}
		} else if !ent.n.Read {
			ent.n.Read = true
			ent.pending = false
			v.unread--
		}
	}
	return added
}

// snapshot returns a copy of the view, newest first.
func (v *view) snapshot() []model.Notification {
	out := make([]model.Notification, len(v.entries))
	for i, ent := range v.entries {
		out[i] = ent.n
	}
	return out
}
