package token

// Secret holds key material and redacts itself whenever it is printed,
// logged or serialized. Use Bytes to get at the raw value.
type Secret string

const secretRedacted = "[REDACTED]"

func (s Secret) String() string { return secretRedacted }

func (s Secret) GoString() string { return secretRedacted }

func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }

// Bytes returns the raw key material.
func (s Secret) Bytes() []byte { return []byte(s) }
