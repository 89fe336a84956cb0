package webdir

import "testing"

func rootEntry() *DirectoryEntry {
	return &DirectoryEntry{Name: "root", VirtualPath: "/", RealPath: "/var/www"}
}

func TestNewDirectoryTreeRequiresSingleRoot(t *testing.T) {
	if _, err := NewDirectoryTree(nil); err == nil {
		t.Error("expected error with no root entry")
	}
}

func TestNewDirectoryTreeRejectsUnknownParent(t *testing.T) {
	entries := []*DirectoryEntry{
		rootEntry(),
		{Name: "docs", ParentName: "missing", VirtualPath: "/docs/", RealPath: "/var/www/docs"},
	}
	if _, err := NewDirectoryTree(entries); err == nil {
		t.Error("expected error for unresolvable parent")
	}
}

func TestNearestAncestor(t *testing.T) {
	entries := []*DirectoryEntry{
		rootEntry(),
		{Name: "docs", ParentName: "root", VirtualPath: "/docs/", RealPath: "/var/www/docs"},
	}
	tree, err := NewDirectoryTree(entries)
	if err != nil {
		t.Fatal(err)
	}

	e, ok := tree.NearestAncestor("/docs/guide/setup.html")
	if !ok || e.Name != "docs" {
		t.Errorf("NearestAncestor = %v, %v, want docs entry", e, ok)
	}

	e, ok = tree.NearestAncestor("/anything/else")
	if !ok || e.Name != "root" {
		t.Errorf("NearestAncestor fallback = %v, %v, want root entry", e, ok)
	}
}

func TestEffectiveDefaultDocumentsMerge(t *testing.T) {
	entries := []*DirectoryEntry{
		func() *DirectoryEntry {
			e := rootEntry()
			e.DefaultDocuments = []DefaultDocRule{{Add: true, Name: "index.html"}, {Add: true, Name: "index.htm"}}
			return e
		}(),
		{
			Name: "docs", ParentName: "root", VirtualPath: "/docs/", RealPath: "/var/www/docs",
			DefaultDocuments: []DefaultDocRule{{Add: false, Name: "index.htm"}, {Add: true, Name: "readme.html"}},
		},
	}
	tree, err := NewDirectoryTree(entries)
	if err != nil {
		t.Fatal(err)
	}

	docs, _ := tree.Lookup("/docs/")
	got := docs.EffectiveDefaultDocuments()
	want := []string{"index.html", "readme.html"}
	if len(got) != len(want) {
		t.Fatalf("EffectiveDefaultDocuments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("doc[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveBrowsableInherits(t *testing.T) {
	entries := []*DirectoryEntry{
		func() *DirectoryEntry {
			e := rootEntry()
			e.Browsable = TristateTrue
			return e
		}(),
		{Name: "docs", ParentName: "root", VirtualPath: "/docs/", RealPath: "/var/www/docs", Browsable: TristateUnknown},
	}
	tree, err := NewDirectoryTree(entries)
	if err != nil {
		t.Fatal(err)
	}
	docs, _ := tree.Lookup("/docs/")
	if !tree.ResolveBrowsable(docs) {
		t.Error("expected docs to inherit browsable=true from root")
	}
}
