package typeid

import (
	"strings"
	"testing"
)

func TestNewAndValidate(t *testing.T) {
	id := NewPropertyID()
	if !strings.HasPrefix(id, PrefixProperty+"_") {
		t.Fatalf("NewPropertyID() = %q, want prefix %q", id, PrefixProperty)
	}
	if err := Validate(id, PrefixProperty); err != nil {
		t.Errorf("Validate(%q) = %v", id, err)
	}
	if err := Validate(id, PrefixUser); err == nil {
		t.Errorf("Validate(%q, %q) succeeded", id, PrefixUser)
	}
	if err := Validate("not-an-id", PrefixProperty); err == nil {
		t.Error("Validate accepted garbage")
	}
}
