package build

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsSwapFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".main.js.swp", true},
		{"src/.main.js.swx", true},
		{"README.md~", true},
		{"src/4913", true},
		{"src/49130", false},
		{"main.js", false},
		{"swp.css", false},
	}
	for _, tt := range tests {
		if got := isSwapFile(tt.path); got != tt.want {
			t.Errorf("isSwapFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRelativeInput(t *testing.T) {
	work := filepath.FromSlash("/home/dev/site")
	tests := []struct {
		in   string
		want string
	}{
		{"assets/logo.png", "assets/logo.png"},
		{"./index.html", "index.html"},
		{"/home/dev/site/static/app.css", "static/app.css"},
		{"/etc/hosts", "hosts"},
		{"../shared/theme.css", "theme.css"},
	}
	for _, tt := range tests {
		got := relativeInput(filepath.FromSlash(tt.in), work)
		if got != filepath.FromSlash(tt.want) {
			t.Errorf("relativeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTaskQueueFIFO(t *testing.T) {
	q := newTaskQueue()
	q.push(task{kind: taskBundle})
	q.push(task{kind: taskForce})
	q.push(task{kind: taskAsset})

	var got []taskKind
	for {
		tk, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, tk.kind)
	}
	want := []taskKind{taskBundle, taskForce, taskAsset}
	if len(got) != len(want) {
		t.Fatalf("popped %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pop %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestShellRunner(t *testing.T) {
	r := ShellRunner{Dir: t.TempDir()}

	if err := r.Run(context.Background(), "echo ok > out.txt"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	err := r.Run(context.Background(), "echo broken >&2; exit 3")
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CommandError", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error lacks stderr: %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseStarting.String() != "starting" || PhaseRunning.String() != "running" {
		t.Errorf("unexpected phase names %q %q", PhaseStarting, PhaseRunning)
	}
}
