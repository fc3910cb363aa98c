package needlekit_test

import (
	"testing"

	"github.com/danpasecinic/needlekit"
)

func TestScopeString(t *testing.T) {
	t.Parallel()

	if needlekit.Singleton.String() != "singleton" {
		t.Errorf("unexpected singleton name %s", needlekit.Singleton)
	}
	if needlekit.PerCall.String() != "per-call" {
		t.Errorf("unexpected per-call name %s", needlekit.PerCall)
	}
	if needlekit.Scope(42).String() != "unknown" {
		t.Errorf("unexpected name for invalid scope %s", needlekit.Scope(42))
	}
}

func TestScopeDefaultIsSingleton(t *testing.T) {
	t.Parallel()

	set, err := needlekit.NewModule("m").ProvideValue(configKey, &Config{}).Produce()
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if b, _ := set.Get(configKey); b.Scope != needlekit.Singleton {
		t.Errorf("expected singleton by default, got %s", b.Scope)
	}
}
