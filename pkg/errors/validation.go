package errors

import "regexp"

// Reserved patch names.
const (
	NameMagicState = "A"
	NameAncillaBus = "ANCILLA"
)

// patchIndexRegex matches a logical-qubit index rendered as a name.
var patchIndexRegex = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)

// ValidatePatchName validates a patch name as it appears in an instruction.
// Valid names are decimal logical-qubit indices and the reserved names
// "A" and "ANCILLA". Whether the name exists on a topology is checked later.
func ValidatePatchName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "patch name cannot be empty")
	}
	if name == NameMagicState || name == NameAncillaBus {
		return nil
	}
	if len(name) > 9 {
		return New(ErrCodeInvalidName, "patch index too long: %q", name)
	}
	if !patchIndexRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid patch name: %q", name)
	}
	return nil
}

// IsReservedName reports whether name is one of the reserved patch names.
func IsReservedName(name string) bool {
	return name == NameMagicState || name == NameAncillaBus
}

// runIDRegex matches a canonical lowercase UUID.
var runIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateRunID validates a stored run identifier received from a client.
func ValidateRunID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "run id cannot be empty")
	}
	if !runIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid run id: %q", id)
	}
	return nil
}
