package rbac

import "testing"

func TestTableAllows(t *testing.T) {
	if !DefaultTable.Allows(PermUserDelete, RoleAdmin) {
		t.Fatalf("admin must hold %s", PermUserDelete)
	}
	if DefaultTable.Allows(PermUserDelete, RoleUser) {
		t.Fatalf("user must not hold %s", PermUserDelete)
	}
	if DefaultTable.Allows("unknown:perm", RoleAdmin) {
		t.Fatal("unknown permission must be denied")
	}
	if DefaultTable.Allows(PermSystemRead, Role("superuser")) {
		t.Fatal("unknown role must be denied")
	}
}

func TestTableAllowListsAreExact(t *testing.T) {
	for perm, allowed := range DefaultTable {
		set := make(map[Role]struct{}, len(allowed))
		for _, r := range allowed {
			set[r] = struct{}{}
			if !DefaultTable.Allows(perm, r) {
				t.Fatalf("%s should allow %s", perm, r)
			}
		}
		for _, r := range Roles() {
			if _, ok := set[r]; ok {
				continue
			}
			if DefaultTable.Allows(perm, r) {
				t.Fatalf("%s should deny %s", perm, r)
			}
		}
	}
}

func TestHierarchy(t *testing.T) {
	for _, r := range Roles() {
		if !DefaultHierarchy.CanAccess(r, RoleUser) {
			t.Fatalf("%s should reach user", r)
		}
	}
	if !DefaultHierarchy.CanAccess(RoleAdmin, RoleAdmin) {
		t.Fatal("admin should reach admin")
	}
	for _, r := range []Role{RoleHR, RoleManager, RoleUser} {
		if DefaultHierarchy.CanAccess(r, RoleAdmin) {
			t.Fatalf("%s should not reach admin", r)
		}
	}
	if DefaultHierarchy.CanAccess(RoleHR, RoleManager) {
		t.Fatal("hr should not reach manager")
	}
}

func TestParse(t *testing.T) {
	if r, ok := Parse("  Admin "); !ok || r != RoleAdmin {
		t.Fatalf("unexpected parse result: %v %v", r, ok)
	}
	if _, ok := Parse("root"); ok {
		t.Fatal("root is not a role")
	}
}

func TestRoleFromFlags(t *testing.T) {
	cases := []struct {
		admin, hr, manager bool
		want               Role
	}{
		{true, true, true, RoleAdmin},
		{false, true, true, RoleHR},
		{false, false, true, RoleManager},
		{false, false, false, RoleUser},
	}
	for _, tc := range cases {
		if got := RoleFromFlags(tc.admin, tc.hr, tc.manager); got != tc.want {
			t.Fatalf("flags(%v,%v,%v): got %s, want %s", tc.admin, tc.hr, tc.manager, got, tc.want)
		}
	}
}
