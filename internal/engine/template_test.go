package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLookup(vars map[string][]string) LookupFunc {
	return func(name string) ([]string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestSubstitute(t *testing.T) {
	lookup := testLookup(map[string][]string{
		"email":    {"a@example.com", "b@example.com"},
		"otp_code": {"123456"},
		"empty":    {},
	})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"first value", "{email}", "a@example.com"},
		{"indexed value", "{email[1]}", "b@example.com"},
		{"embedded", "code: {otp_code}!", "code: 123456!"},
		{"several", "{email[0]}/{otp_code}", "a@example.com/123456"},
		{"unknown variable", "{missing}", "{missing}"},
		{"index out of range", "{email[5]}", "{email[5]}"},
		{"empty values", "{empty}", "{empty}"},
		{"not a placeholder", "{ not valid }", "{ not valid }"},
		{"json braces", `{"a": 1}`, `{"a": 1}`},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.in, lookup))
		})
	}
}

func TestSubstitute_NilLookup(t *testing.T) {
	assert.Equal(t, "{x}", Substitute("{x}", nil))
}

func TestSubstituteAll(t *testing.T) {
	lookup := testLookup(map[string][]string{"city": {"Berlin"}})

	in := []string{"{city}", "Paris"}
	out := SubstituteAll(in, lookup)

	assert.Equal(t, []string{"Berlin", "Paris"}, out)
	assert.Equal(t, "{city}", in[0], "input slice must not be modified")
	assert.Nil(t, SubstituteAll(nil, lookup))
}
