package typesystem

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestFlagsAndOuterBinder(t *testing.T) {
	intTy := Con("Int")
	proj := Alias(Projection, "Iterator::Item", Param(0, "T", SortType))
	bound := Bound(0, 0, SortRegion)

	tests := []struct {
		name      string
		term      Term
		wantFlags Flags
		wantOuter int
	}{
		{"closed nominal", Con("Vec", intTy), 0, 0},
		{"param", Param(0, "T", SortType), HasParams, 0},
		{"projection", proj, HasTyProjection | HasParams, 0},
		{"weak uses projection flag", Alias(Weak, "A"), HasTyProjection, 0},
		{"inherent", Alias(Inherent, "W::X", Con("W")), HasTyInherent, 0},
		{"opaque", Alias(Opaque, "O"), HasTyOpaque, 0},
		{"const alias", Array(intTy, ConstAlias("LEN", false)), HasCtProjection, 0},
		{"escaping bound", Ref(bound, intTy), HasBound, 1},
		{"bound under binder", Forall([]Sort{SortRegion}, nil, Ref(bound, intTy)), HasBound, 0},
		{"deeper escape", Forall([]Sort{SortRegion}, nil, Ref(Bound(2, 0, SortRegion), intTy)), HasBound, 2},
		{"projection predicate drops alias flag", ProjectsTo(Alias(Projection, "Tr::X", intTy), intTy), 0, 0},
		{"infer", Tuple(Infer(3)), HasInfer, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.term.Flags(); got != tt.wantFlags {
				t.Errorf("Flags() = %b, want %b", got, tt.wantFlags)
			}
			if got := tt.term.OuterBinder(); got != tt.wantOuter {
				t.Errorf("OuterBinder() = %d, want %d", got, tt.wantOuter)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	T := Param(0, "T", SortType)
	tests := []struct {
		term Term
		want string
	}{
		{Con("Vec", Con("Int")), "Vec<Int>"},
		{Alias(Projection, "Iterator::Item", T), "<T as Iterator>::Item"},
		{Alias(Projection, "Into::Out", T, Con("Int")), "<T as Into<Int>>::Out"},
		{Alias(Inherent, "Wrapper::Inner", Con("Wrapper", Con("Int"))), "Wrapper<Int>::Inner"},
		{Alias(Weak, "Pair", T, T), "Pair<T, T>"},
		{Func([]Term{T}, Unit), "fn(T)"},
		{Func(nil, Tuple(T)), "fn() -> (T,)"},
		{Array(T, Value(4)), "[T; 4]"},
		{Forall([]Sort{SortRegion}, []string{"'a"}, Func([]Term{Ref(Bound(0, 0, SortRegion), T)}, Unit)), "for<'a> fn(&'a T)"},
		{Forall([]Sort{SortRegion}, nil, Ref(Bound(0, 0, SortRegion), T)), "for<'b0_0> &'b0_0 T"},
		{Ref(Bound(1, 2, SortRegion), T), "&'^1_2 T"},
		{Ref(Static, Placeholder(2, 0, SortType)), "&'static !2_0"},
		{Implements(T, "Clone"), "T: Clone"},
		{ProjectsTo(Alias(Projection, "Iterator::Item", T), Con("Int")), "<T as Iterator>::Item == Int"},
		{ConstAlias("Shape::SIDES", true, T), "<T as Shape>::SIDES"},
		{WellFormed(T), "wf(T)"},
	}
	for _, tt := range tests {
		if got := tt.term.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEqualIgnoresBinderNames(t *testing.T) {
	body := Ref(Bound(0, 0, SortRegion), Con("Int"))
	a := Forall([]Sort{SortRegion}, []string{"'a"}, body)
	b := Forall([]Sort{SortRegion}, []string{"'x"}, Ref(Bound(0, 0, SortRegion), Con("Int")))
	if !Equal(a, b) {
		t.Errorf("binders differing only by name should be equal:\n%s", spew.Sdump(a, b))
	}
	c := Forall([]Sort{SortType}, nil, body)
	if Equal(a, c) {
		t.Errorf("binders with different sorts should differ")
	}
	if Equal(Param(0, "T", SortType), Param(1, "T", SortType)) {
		t.Errorf("params with different indices should differ")
	}
}

func TestDefIDSplit(t *testing.T) {
	owner, item := DefID("Iterator::Item").Split()
	if owner != "Iterator" || item != "Item" {
		t.Errorf("Split() = %q, %q", owner, item)
	}
	owner, item = DefID("Pair").Split()
	if owner != "" || item != "Pair" {
		t.Errorf("Split() = %q, %q", owner, item)
	}
	if Item("Wrapper", "Inner") != "Wrapper::Inner" {
		t.Errorf("Item() join failed")
	}
}
