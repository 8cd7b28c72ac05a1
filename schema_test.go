package idxtable

import (
	"math"
	"testing"
)

func TestDefine(t *testing.T) {
	typ, err := Define("idx_user_posts", 3, 2)
	noErr(t, err)
	if typ.Name() != "idx_user_posts" || typ.Columns() != 3 || typ.OrderColumn() != 2 {
		t.Fatalf("Define = %v", typ)
	}
	if s := typ.String(); s != "idx_user_posts(3 cols, order by 2)" {
		t.Fatalf("String = %q", s)
	}
}

func TestDefine_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		columns int
		order   int
	}{
		{"", 2, 1},
		{"x", 1, 0},
		{"x", 0, 0},
		{"x", math.MaxUint16 + 1, 0},
		{"x", 2, 2},
		{"x", 2, -1},
	}
	for _, tt := range tests {
		_, err := Define(tt.name, tt.columns, tt.order)
		isErr(t, err, ErrInvalidConfig)
	}
	assertPanics(t, func() { MustDefine("x", 1, 0) })
}

func TestSchema(t *testing.T) {
	scm := NewSchema()
	posts := AddType(scm, "idx_user_posts", 2, 1)
	likes := AddType(scm, "idx_post_likes", 3, 1)

	deepEqual(t, scm.Types(), []*Type{posts, likes})
	if scm.TypeNamed("IDX_User_Posts") != posts {
		t.Fatalf("TypeNamed is not case-insensitive")
	}
	isnil(t, scm.TypeNamed("missing"))
	assertPanics(t, func() { AddType(scm, "Idx_Post_Likes", 2, 1) })
}
