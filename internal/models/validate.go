package models

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func get() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInst
}

// Validate runs struct-tag validation against any record type in this
// package (closed enums, [0,1] confidence ranges, required fields) and
// returns a single error describing every failing field, or nil. It is
// called both before a record is persisted and immediately after a record
// is decoded off disk — a failure on read is an Integrity error, never a
// silent coercion (SPEC_FULL.md §4.3, §7).
func Validate(v any) error {
	if err := get().Struct(v); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value=%v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Normalize returns the canonical comparison key used by invariant 4 and
// §4.8.3's deduplication pass: lowercase, internal whitespace collapsed.
// It does not perform honorific stripping or initials handling — those are
// the Correlation Engine's canonicalization concern (internal/correlation),
// which builds on this as the final comparison step.
func Normalize(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}
