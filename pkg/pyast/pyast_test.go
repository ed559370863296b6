package pyast

import "testing"

func TestResolveUnknownKind(t *testing.T) {
	if _, ok := Resolve("Bogus"); ok {
		t.Fatalf("expected Bogus to be unknown")
	}
}

func TestHasFieldChecksDeclaredFields(t *testing.T) {
	if !HasField("arg", "annotation") {
		t.Fatalf("arg should declare annotation")
	}
	if HasField("arg", "body") {
		t.Fatalf("arg should not declare body")
	}
}

func TestIsPositionalExcludesModule(t *testing.T) {
	if IsPositional("Module") {
		t.Fatalf("Module must not be positional")
	}
	if !IsPositional("Name") {
		t.Fatalf("Name must be positional")
	}
	if !IsPositional("arg") {
		t.Fatalf("arg must be positional")
	}
}

func TestInferBaseUpcastsToAbstractBase(t *testing.T) {
	n := &Name{ID: "x"}
	if got := InferBase(n); got != "expr" {
		t.Fatalf("got %q want expr", got)
	}
	a := &Arg{ArgName: "x"}
	if got := InferBase(a); got != "arg" {
		t.Fatalf("got %q want arg", got)
	}
	m := &Module{}
	if got := InferBase(m); got != "Module" {
		t.Fatalf("got %q want Module", got)
	}
}

func TestModuleAnnotatedKindsExcludesModuleAndAbstractBases(t *testing.T) {
	kinds := ModuleAnnotatedKinds()
	for _, k := range kinds {
		if k == "Module" || k == "stmt" || k == "expr" || k == "AST" {
			t.Fatalf("unexpected module-annotated kind %q", k)
		}
	}
	found := false
	for _, k := range kinds {
		if k == "Name" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Name to be module-annotated")
	}
}

func TestIsAtomicDetectsLeafValues(t *testing.T) {
	if !IsAtomic("x") || !IsAtomic(int64(1)) || !IsAtomic(true) {
		t.Fatalf("expected string/int64/bool to be atomic")
	}
	if IsAtomic(&Name{}) {
		t.Fatalf("a Node must not be atomic")
	}
}

func TestLocatedNodesExposeFourLocationFields(t *testing.T) {
	n := &Name{Pos: Pos{Lineno: 1, ColOffset: 2, EndLineno: 1, EndColOffset: 5}, ID: "x"}
	var loc Located = n
	locs := loc.Locations()
	if len(locs) != 4 {
		t.Fatalf("want 4 location fields, got %d", len(locs))
	}
}

func TestEnumValueVariants(t *testing.T) {
	if Load.Variant() != "Load" || Store.Variant() != "Store" || Del.Variant() != "Del" {
		t.Fatalf("unexpected ExprContext variants")
	}
	if Eq.EnumBase() != "CmpOp" {
		t.Fatalf("unexpected enum base")
	}
}
