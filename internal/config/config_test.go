package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{EnvTrace, EnvFile, EnvTargetWord, EnvCC} {
		t.Setenv(name, "")
	}
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.Trace || c.File != "main.d" || c.WordSize != 8 || c.CC != "cc" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvTrace, "1")
	t.Setenv(EnvFile, "app.d")
	t.Setenv(EnvTargetWord, "4")
	t.Setenv(EnvCC, "clang")
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !c.Trace || c.File != "app.d" || c.CC != "clang" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if got := c.Layout().PtrSize; got != 4 {
		t.Fatalf("expected 4-byte pointers, got %d", got)
	}
}

func TestLoadRejectsBadWordSize(t *testing.T) {
	cases := []struct {
		name string
		val  string
	}{
		{"not a number", "abc"},
		{"unsupported", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvFile, "")
			t.Setenv(EnvTargetWord, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%q", EnvTargetWord, tc.val)
			}
		})
	}
}

// Load must see values changed after a previous Load.
func TestLoadSeesChangedEnv(t *testing.T) {
	t.Setenv(EnvFile, "first.d")
	if c, err := Load(); err != nil || c.File != "first.d" {
		t.Fatalf("expected %q, got %+v (%v)", "first.d", c, err)
	}
	t.Setenv(EnvFile, "second.d")
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.File != "second.d" {
		t.Fatalf("expected %q, got %q", "second.d", c.File)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		c    Config
		ok   bool
	}{
		{"default", Config{File: "a.d", WordSize: 8}, true},
		{"word 4", Config{File: "a.d", WordSize: 4}, true},
		{"word 2", Config{File: "a.d", WordSize: 2}, false},
		{"no file", Config{WordSize: 8}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.c.Validate(); (err == nil) != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, err)
			}
		})
	}
}
