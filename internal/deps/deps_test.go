package deps

import "testing"

func TestCheckAllCoversEveryTool(t *testing.T) {
	statuses := CheckAll()
	if len(statuses) != len(tools) {
		t.Fatalf("statuses: got %d, want %d", len(statuses), len(tools))
	}
	for i, s := range statuses {
		if s.Name != tools[i].name {
			t.Errorf("status %d: got %q, want %q", i, s.Name, tools[i].name)
		}
		if s.Purpose == "" {
			t.Errorf("%s: missing purpose", s.Name)
		}
	}
}

func TestCheckMissingTool(t *testing.T) {
	s := check(tool{name: "definitely-not-installed-anywhere", required: true})
	if s.Installed {
		t.Error("nonexistent tool reported as installed")
	}
	if s.Path != "" || s.Version != "" {
		t.Errorf("missing tool must have empty path and version, got %+v", s)
	}
}

func TestMissingRequiredSkipsOptional(t *testing.T) {
	for _, name := range MissingRequired() {
		for _, tl := range tools {
			if tl.name == name && !tl.required {
				t.Errorf("%s is optional, must not be reported missing", name)
			}
		}
	}
}
