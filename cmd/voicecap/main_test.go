package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/voicecap/audio"
	"github.com/kbukum/voicecap/audio/wav"
	"github.com/kbukum/voicecap/script"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestWindowsCmd(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  []string
	}{
		{"morning", "08:00", []string{"window 1  08:10:00", "window 2  08:13:30"}},
		{"cross midnight", "23:55", []string{"window 1  00:05:00  (+1d)", "window 2  00:08:30  (+1d)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "windows", tt.start)
			if err != nil {
				t.Fatal(err)
			}
			got := strings.Split(strings.TrimSpace(out), "\n")
			if len(got) != 2 || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Fatalf("output = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := execute(t, "windows", "25:00"); err == nil {
		t.Fatal("expected error for an invalid time")
	}
}

func TestEncodeCmd_WAVPassthrough(t *testing.T) {
	buf := audio.NewBuffer(16000, 1, 1600)
	for i := range buf.Channels[0] {
		buf.Channels[0][i] = 0.25
	}
	in, err := wav.Encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "take.bin")
	dst := filepath.Join(dir, "take.wav")
	if err := os.WriteFile(src, in, 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "encode", src, "-o", dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "16000 Hz, 1 ch, 1600 frames") {
		t.Fatalf("output = %q", out)
	}
	written, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, in) {
		t.Fatal("re-encoding a canonical WAV should be byte-identical")
	}
}

func TestEncodeCmd_SameOutput(t *testing.T) {
	if _, err := execute(t, "encode", "take.wav", "-o", "take.wav"); err == nil {
		t.Fatal("expected error when output overwrites input")
	}
}

func TestEnrollCmd_RequiresLecturer(t *testing.T) {
	_, err := execute(t, "enroll")
	if err == nil || !strings.Contains(err.Error(), "--lecturer") {
		t.Fatalf("err = %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "voicecap ") {
		t.Fatalf("output = %q", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := execute(t, "--config", "absent.yml", "windows", "08:00"); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestHandleInput(t *testing.T) {
	newAck := func(t *testing.T) *script.Tracker {
		t.Helper()
		tr, err := script.NewTracker([]string{"a", "b"})
		if err != nil {
			t.Fatal(err)
		}
		return tr
	}

	t.Run("stop words", func(t *testing.T) {
		for _, in := range []string{"s", "STOP", "q"} {
			stopped := false
			if !handleInput(in, nil, func() { stopped = true }) || !stopped {
				t.Errorf("%q should stop", in)
			}
		}
	})

	t.Run("ack confirms then stops when done", func(t *testing.T) {
		tr := newAck(t)
		stopped := false
		stop := func() { stopped = true }
		if handleInput("", tr, stop) || stopped {
			t.Fatal("first confirm should keep recording")
		}
		if tr.Focused() != 1 {
			t.Fatalf("focus = %d, want 1", tr.Focused())
		}
		if !handleInput("", tr, stop) || !stopped {
			t.Fatal("confirming the last line should stop")
		}
	})

	t.Run("ack selects by number", func(t *testing.T) {
		tr := newAck(t)
		handleInput("2", tr, func() {})
		if tr.Focused() != 1 {
			t.Fatalf("focus = %d, want 1", tr.Focused())
		}
	})

	t.Run("time mode enter stops", func(t *testing.T) {
		tr, _ := script.NewTracker([]string{"a"}, script.WithLineDuration(0))
		stopped := false
		if !handleInput("", tr, func() { stopped = true }) || !stopped {
			t.Fatal("enter should stop in time mode")
		}
		if handleInput("hello", tr, func() { t.Fatal("unexpected stop") }) {
			t.Fatal("other input should be ignored")
		}
	})
}
