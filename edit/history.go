package edit

// MaxHistorySize bounds both the undo and redo stacks, per §4.5.
const MaxHistorySize = 8

// History holds the undo/redo stacks for one project. It does not itself
// apply commands; callers call Command.Apply/Revert and report the
// outcome through PushUndo/PushRedo/PopUndo/PopRedo so History stays pure
// bookkeeping.
type History struct {
	undo []*Command
	redo []*Command
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// PushUndo records a newly applied command and clears the redo stack,
// since this mutation is not a redo of whatever was undone last (§4.5:
// "On any mutation that is not a redo of the current redo-top, the redo
// stack is cleared").
func (h *History) PushUndo(cmd *Command) {
	h.redo = nil
	h.pushUndoPreserveRedo(cmd)
}

// pushUndoPreserveRedo records cmd on the undo stack without touching
// redo. Used internally by Redo so that "undo N, redo N" stays possible:
// redoing one command must not wipe out the remaining redo entries.
func (h *History) pushUndoPreserveRedo(cmd *Command) {
	h.undo = append(h.undo, cmd)
	for len(h.undo) > MaxHistorySize {
		h.undo = h.undo[1:]
	}
}

// PopUndo removes and returns the most recent undo entry.
func (h *History) PopUndo() (*Command, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	cmd := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	return cmd, true
}

// PushRedo records a command that was just undone, capped at
// MaxHistorySize oldest-first.
func (h *History) PushRedo(cmd *Command) {
	h.redo = append(h.redo, cmd)
	for len(h.redo) > MaxHistorySize {
		h.redo = h.redo[1:]
	}
}

// PopRedo removes and returns the most recent redo entry.
func (h *History) PopRedo() (*Command, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	cmd := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return cmd, true
}

// Clear empties both stacks, used on New Project, successful Load, and
// whenever a revert fails invariant validation (§4.5 Robustness).
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// UndoLen and RedoLen expose stack depth for the UI's enabled/disabled
// menu state.
func (h *History) UndoLen() int { return len(h.undo) }
func (h *History) RedoLen() int { return len(h.redo) }

// PushRedoPreserving re-applies a command that came from the redo stack,
// recording it on undo without clearing redo — the Redo operation itself.
func (h *History) PushRedoPreserving(cmd *Command) {
	h.pushUndoPreserveRedo(cmd)
}

// PopUndoGroup pops the top undo entry and, if it carries a non-zero
// GroupID, any further contiguous entries sharing that GroupID — so a
// run of insert-mode keystrokes undoes as one step rather than one note
// at a time (§4.4).
func (h *History) PopUndoGroup() ([]*Command, bool) {
	top, ok := h.PopUndo()
	if !ok {
		return nil, false
	}
	group := []*Command{top}
	if top.GroupID == 0 {
		return group, true
	}
	for {
		next, ok := h.PopUndo()
		if !ok {
			break
		}
		if next.GroupID != top.GroupID {
			h.undo = append(h.undo, next)
			break
		}
		group = append(group, next)
	}
	return group, true
}
