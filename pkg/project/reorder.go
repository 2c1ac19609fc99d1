package project

import "github.com/matzehuels/kdag/pkg/errors"

// Move returns a new sequence with the element at index from placed at index
// to, shifting the elements in between. It is the id order sent to the
// reorder endpoints after a drag gesture. ids is not modified.
func Move(ids []string, from, to int) ([]string, error) {
	n := len(ids)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, errors.New(errors.ErrCodeInvalidInput, "move %d -> %d out of range for %d items", from, to, n)
	}
	out := make([]string, 0, n)
	moved := ids[from]
	for i, id := range ids {
		if i == from {
			continue
		}
		if len(out) == to {
			out = append(out, moved)
		}
		out = append(out, id)
	}
	if len(out) < n {
		out = append(out, moved)
	}
	return out, nil
}

// MoveID is Move addressed by id. It places id at index to.
func MoveID(ids []string, id string, to int) ([]string, error) {
	for i, v := range ids {
		if v == id {
			return Move(ids, i, to)
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "id %q not in sequence", id)
}
